package main

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskhub/api/handler"
	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/taskhub/internal/infrastructure/postgres"
	"github.com/fastygo/taskhub/internal/infrastructure/push"
	redisInfra "github.com/fastygo/taskhub/internal/infrastructure/redis"
	"github.com/fastygo/taskhub/internal/middleware"
	"github.com/fastygo/taskhub/internal/router"
	"github.com/fastygo/taskhub/internal/services"
	"github.com/fastygo/taskhub/internal/services/lifecycle"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	"github.com/fastygo/taskhub/pkg/logger"
	"github.com/fastygo/taskhub/repository/postgres"
	redisRepo "github.com/fastygo/taskhub/repository/redis"
	authUC "github.com/fastygo/taskhub/usecase/auth"
	categoryUC "github.com/fastygo/taskhub/usecase/category"
	"github.com/fastygo/taskhub/usecase/notify"
	"github.com/fastygo/taskhub/usecase/priority"
	profileUC "github.com/fastygo/taskhub/usecase/profile"
	subscriptionUC "github.com/fastygo/taskhub/usecase/subscription"
	taskUC "github.com/fastygo/taskhub/usecase/task"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and push server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return serve(cfg)
}

func serve(cfg *config.Config) error {
	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)
	defer func() {
		if err := manager.Shutdown(context.Background()); err != nil {
			zapLogger.Error("graceful shutdown error", zap.Error(err))
		}
	}()

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.AppName, cfg.Database, zapLogger)
	if err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	relay, err := newRelay(cfg, redisClient, zapLogger)
	if err != nil {
		return fmt.Errorf("push relay failed: %w", err)
	}
	hub := push.NewHub(cfg.Push.SessionBuffer)
	broker := push.NewBroker(hub, relay, push.BreakerConfig{
		MaxRequests:      cfg.Push.BreakerProbes,
		Interval:         cfg.Push.BreakerInterval,
		Timeout:          cfg.Push.BreakerOpen,
		FailureThreshold: cfg.Push.BreakerFailures,
	}, zapLogger)
	if err := manager.Start(appCtx, "push_broker", broker); err != nil {
		_ = relay.Close()
		return err
	}

	notifier := notify.New(broker, notify.Config{
		QueueSize: cfg.Push.NotifierQueue,
		Timeout:   cfg.Push.NotifierTimeout,
	}, zapLogger)
	notifier.Start()
	manager.Register("notifier", func(ctx context.Context) error {
		notifier.Stop(ctx)
		return nil
	})

	mon := monitor.New(pool, redisClient, broker, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.JWT.SessionTTL)

	authUseCase := authUC.New(userRepo, sessionRepo, authUC.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		SessionTTL: cfg.JWT.SessionTTL,
	}, zapLogger)
	taskUseCase := taskUC.New(taskUC.Repositories{
		Tasks:         taskRepo,
		Categories:    categoryRepo,
		Users:         userRepo,
		Subscriptions: subscriptionRepo,
		Tx:            postgres.NewTransactor(pool),
	}, priority.NewEngine(priority.DefaultConfig()), notifier, taskUC.Options{
		DefaultUserWeight:  cfg.Priority.DefaultUserWeight,
		PreserveUserWeight: cfg.Priority.PreserveUserWeight,
	}, zapLogger)
	subscriptionUseCase := subscriptionUC.New(subscriptionRepo, taskRepo, userRepo, zapLogger)
	categoryUseCase := categoryUC.New(categoryRepo, zapLogger)
	profileUseCase := profileUC.New(userRepo, taskRepo, zapLogger)

	if cfg.Priority.RefreshInterval > 0 {
		refresher, err := services.NewPriorityRefresher(taskUseCase, mon, services.RefresherConfig{
			Interval: cfg.Priority.RefreshInterval,
		}, zapLogger)
		if err != nil {
			return err
		}
		if err := manager.Start(appCtx, "priority_refresher", refresher); err != nil {
			return err
		}
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:         apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Profile:      apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Task:         apiHandler.NewTaskHandler(taskUseCase, subscriptionUseCase, ctxAdapter, zapLogger),
		Subscription: apiHandler.NewSubscriptionHandler(subscriptionUseCase, ctxAdapter, zapLogger),
		Category:     apiHandler.NewCategoryHandler(categoryUseCase, ctxAdapter, zapLogger),
		Push:         apiHandler.NewPushHandler(hub, push.SessionCommands(broker), ctxAdapter, zapLogger),
		Health:       apiHandler.NewHealthHandler(mon, cfg.Push.Broker, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(authUseCase, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		Concurrency:        cfg.HTTP.MaxConn,
		Name:               cfg.AppName,
		CloseOnShutdown:    true,
		MaxRequestBodySize: 1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("push_broker", cfg.Push.Broker))
		serverErr <- server.ListenAndServe(cfg.Address())
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	select {
	case <-appCtx.Done():
		return nil
	case err := <-serverErr:
		return fmt.Errorf("server crashed: %w", err)
	}
}

// newRelay picks how push events travel between instances.
func newRelay(cfg *config.Config, redisClient redislib.UniversalClient, logger *zap.Logger) (push.Relay, error) {
	switch cfg.Push.Broker {
	case config.BrokerLocal:
		return push.NewLocalRelay(), nil
	case config.BrokerRedis:
		return push.NewRedisRelay(redisClient, cfg.Push.Channel, logger), nil
	case config.BrokerAMQP:
		relay, err := push.NewAMQPRelay(cfg.RabbitMQ.URL, cfg.Push.Exchange, logger)
		if err != nil {
			return nil, err
		}
		return relay, nil
	default:
		return nil, fmt.Errorf("unknown push broker %q", cfg.Push.Broker)
	}
}
