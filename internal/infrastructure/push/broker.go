package push

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/usecase"
)

// BreakerConfig guards relay publishes.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Broker is the PushChannel used by the change notifier. Broadcasts go out
// through the relay; the subscription started by Start feeds them back into
// the local hub.
type Broker struct {
	hub     *Hub
	relay   Relay
	breaker *gobreaker.CircuitBreaker[any]
	logger  *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ usecase.PushChannel = (*Broker)(nil)

func NewBroker(hub *Hub, relay Relay, cfg BreakerConfig, logger *zap.Logger) *Broker {
	def := DefaultBreakerConfig()
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Broker{hub: hub, relay: relay, logger: logger}
	b.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "push-relay",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return b
}

// Start subscribes to the relay. Deliveries stop on Stop or when ctx ends.
func (b *Broker) Start(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	if err := b.relay.Subscribe(subCtx, b.deliver); err != nil {
		cancel()
		return err
	}
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
	b.logger.Info("push broker started")
	return nil
}

func (b *Broker) Stop(_ context.Context) error {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.mu.Unlock()
	b.hub.Close()
	err := b.relay.Close()
	b.logger.Info("push broker stopped")
	return err
}

func (b *Broker) BroadcastAll(ctx context.Context, event string, payload any) error {
	return b.publish(ctx, "", event, payload)
}

func (b *Broker) BroadcastGroup(ctx context.Context, group, event string, payload any) error {
	return b.publish(ctx, group, event, payload)
}

// JoinGroup and LeaveGroup act on the local hub; sessions never move between
// instances.
func (b *Broker) JoinGroup(_ context.Context, sessionID, group string) error {
	return b.hub.Join(sessionID, group)
}

func (b *Broker) LeaveGroup(_ context.Context, sessionID, group string) error {
	return b.hub.Leave(sessionID, group)
}

// State reports the relay breaker state: closed, half-open or open.
func (b *Broker) State() string {
	return b.breaker.State().String()
}

func (b *Broker) Sessions() int {
	return b.hub.SessionCount()
}

func (b *Broker) publish(ctx context.Context, group, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope := Envelope{Event: event, Group: group, Payload: raw}
	_, err = b.breaker.Execute(func() (any, error) {
		return nil, b.relay.Publish(ctx, envelope)
	})
	return err
}

func (b *Broker) deliver(envelope Envelope) {
	frame, err := EncodeFrame(envelope.Event, envelope.Payload)
	if err != nil {
		b.logger.Warn("failed to encode push frame", zap.String("event", envelope.Event), zap.Error(err))
		return
	}
	delivered, dropped := b.hub.Deliver(envelope.Group, frame)
	if dropped > 0 {
		b.logger.Warn("push frames dropped for slow sessions",
			zap.String("event", envelope.Event),
			zap.String("group", envelope.Group),
			zap.Int("dropped", dropped))
	}
	b.logger.Debug("push event delivered",
		zap.String("event", envelope.Event),
		zap.String("group", envelope.Group),
		zap.Int("sessions", delivered))
}
