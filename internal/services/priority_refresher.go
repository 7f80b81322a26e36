package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// Refresher recomputes stored priorities and reports how many changed.
type Refresher interface {
	RefreshPriorities(ctx context.Context) (int, error)
}

// RefresherConfig controls how often priorities are recomputed.
type RefresherConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// PriorityRefresher keeps stored priorities current as due dates approach.
type PriorityRefresher struct {
	refresher Refresher
	monitor   ConnectionHealth
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       RefresherConfig
}

func NewPriorityRefresher(refresher Refresher, monitor ConnectionHealth, cfg RefresherConfig, logger *zap.Logger) (*PriorityRefresher, error) {
	if refresher == nil {
		return nil, errors.New("priority refresher: nil refresher")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Timeout <= 0 || cfg.Timeout > cfg.Interval {
		cfg.Timeout = cfg.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pr := &PriorityRefresher{
		refresher: refresher,
		monitor:   monitor,
		logger:    logger,
		cfg:       cfg,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger.Sugar()}),
			cron.SkipIfStillRunning(cronLogger{logger.Sugar()}),
		)),
	}

	schedule := fmt.Sprintf("@every %s", cfg.Interval)
	if _, err := pr.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if err := pr.RunOnce(ctx); err != nil {
			pr.logger.Error("priority refresh failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("priority refresher schedule: %w", err)
	}
	return pr, nil
}

// Start launches the cron scheduler.
func (pr *PriorityRefresher) Start(context.Context) error {
	pr.cron.Start()
	pr.logger.Info("priority refresher started", zap.Duration("interval", pr.cfg.Interval))
	return nil
}

// Stop waits for a running refresh or ctx, whichever ends first.
func (pr *PriorityRefresher) Stop(ctx context.Context) error {
	stopCtx := pr.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	pr.logger.Info("priority refresher stopped")
	return nil
}

// RunOnce refreshes priorities synchronously unless the stores are offline.
func (pr *PriorityRefresher) RunOnce(ctx context.Context) error {
	if pr.monitor != nil && !pr.monitor.IsOnline() {
		pr.logger.Debug("skipping priority refresh (offline)")
		return nil
	}

	started := time.Now()
	changed, err := pr.refresher.RefreshPriorities(ctx)
	if err != nil {
		return err
	}
	pr.logger.Info("priorities refreshed",
		zap.Int("changed", changed),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// cronLogger routes scheduler messages to zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
