package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"shoplist-go/pkg/logger"
)

var errSubscriptionClosed = errors.New("relay subscription closed")

// RedisRelay moves events between instances over a Redis pub/sub channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
	log     logger.Logger
}

func NewRedisRelay(ctx context.Context, url, channel string, log logger.Logger) (*RedisRelay, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info("realtime.relay: redis connected", "channel", channel)
	return NewRedisRelayFromClient(client, channel, log), nil
}

func NewRedisRelayFromClient(client *redis.Client, channel string, log logger.Logger) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, log: log}
}

func (r *RedisRelay) Publish(ctx context.Context, message []byte) error {
	return r.client.Publish(ctx, r.channel, message).Err()
}

func (r *RedisRelay) Subscribe(ctx context.Context, deliver func([]byte)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errSubscriptionClosed
			}
			deliver([]byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
