package push

import (
	"context"
	"encoding/json"
	"fmt"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultRedisChannel = "taskhub:push"

// RedisRelay fans envelopes out over a Redis Pub/Sub channel.
type RedisRelay struct {
	client  redislib.UniversalClient
	channel string
	logger  *zap.Logger
}

func NewRedisRelay(client redislib.UniversalClient, channel string, logger *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, channel: channel, logger: logger}
}

func (r *RedisRelay) Publish(ctx context.Context, envelope Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, body).Err()
}

func (r *RedisRelay) Subscribe(ctx context.Context, handler func(Envelope)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	// wait for the subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	messages := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var envelope Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
					r.logger.Warn("discarding malformed push envelope", zap.Error(err))
					continue
				}
				handler(envelope)
			}
		}
	}()
	r.logger.Info("redis push relay subscribed", zap.String("channel", r.channel))
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (r *RedisRelay) Close() error {
	return nil
}
