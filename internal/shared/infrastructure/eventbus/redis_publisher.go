package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix is prepended to routing keys to form Redis channel names.
const DefaultChannelPrefix = "klarity:"

// RedisPublisher publishes events on Redis pub/sub channels named prefix+routingKey.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisPublisher connects to the Redis server at url (redis://host:port/db).
func NewRedisPublisher(ctx context.Context, url string, logger *slog.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisPublisherWithClient(client, DefaultChannelPrefix, logger), nil
}

// NewRedisPublisherWithClient wraps an existing client.
func NewRedisPublisherWithClient(client *redis.Client, prefix string, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("redis publisher connected", "prefix", prefix)
	return &RedisPublisher{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Channel returns the pub/sub channel used for routingKey.
func (p *RedisPublisher) Channel(routingKey string) string {
	return p.prefix + routingKey
}

// Publish sends payload to the routing key's channel.
func (p *RedisPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	receivers, err := p.client.Publish(ctx, p.Channel(routingKey), payload).Result()
	if err != nil {
		p.logger.Error("failed to publish message",
			"routing_key", routingKey,
			"error", err,
		)
		return err
	}

	p.logger.Debug("message published",
		"routing_key", routingKey,
		"size", len(payload),
		"receivers", receivers,
	)
	return nil
}

// Ping checks that the server is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
