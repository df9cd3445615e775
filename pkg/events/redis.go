package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/chatpulse/pkg/buildinfo"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
	"github.com/otherjamesbrown/chatpulse/pkg/observability"
)

// redisClient is the subset of *redis.Client used for publishing.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes events to a Redis pub/sub channel.
type RedisPublisher struct {
	client  redisClient
	channel string
	logger  logging.Logger
}

// NewRedisPublisher creates a publisher on an existing client. An empty
// channel uses the event subject.
func NewRedisPublisher(client redisClient, channel string, logger logging.Logger) *RedisPublisher {
	if channel == "" {
		channel = observability.SubjectAnalysisCompleted
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger.With(logging.F("component", "redis_publisher")),
	}
}

// NewRedisPublisherFromConfig creates a publisher with a new Redis connection.
func NewRedisPublisherFromConfig(ctx context.Context, cfg RedisConfig, logger logging.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(redisOptions(cfg))

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return NewRedisPublisher(client, cfg.Channel, logger), nil
}

func redisOptions(cfg RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:       cfg.Address,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: buildinfo.UserAgent(),
	}
}

// PublishAnalysisCompleted publishes event on the configured channel.
func (p *RedisPublisher) PublishAnalysisCompleted(ctx context.Context, event *observability.AnalysisCompletedEvent) error {
	return p.publish(ctx, p.channel, event)
}

// Channel returns the channel events are published on.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Backend returns "redis".
func (p *RedisPublisher) Backend() string {
	return BackendRedis
}

// publish serializes and publishes an event to Redis.
func (p *RedisPublisher) publish(ctx context.Context, channel string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Err(err),
			logging.F("channel", channel))
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	p.logger.Debug("Event published",
		logging.F("channel", channel),
		logging.F("payload_size", len(data)))

	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
