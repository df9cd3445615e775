// Package events publishes analysis events to an external bus. Redis
// pub/sub and NATS are supported; the nop publisher is used when no
// backend is configured.
package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/otherjamesbrown/chatpulse/pkg/logging"
	"github.com/otherjamesbrown/chatpulse/pkg/observability"
)

// Backend names
const (
	BackendNone  = "none"
	BackendRedis = "redis"
	BackendNATS  = "nats"
)

// Publisher publishes analysis events.
type Publisher interface {
	// PublishAnalysisCompleted publishes a scored-transcript event.
	PublishAnalysisCompleted(ctx context.Context, event *observability.AnalysisCompletedEvent) error

	// Backend returns the backend name used in logs and metrics.
	Backend() string

	// Close releases the underlying connection.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string
	Redis   RedisConfig
	NATS    NATSConfig
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Channel  string
}

// NATSConfig holds NATS connection configuration.
type NATSConfig struct {
	URL     string
	Token   string
	Subject string
}

// New creates the publisher selected by cfg.Backend.
func New(ctx context.Context, cfg Config, logger logging.Logger) (Publisher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendNone:
		return NopPublisher{}, nil
	case BackendRedis:
		return NewRedisPublisherFromConfig(ctx, cfg.Redis, logger)
	case BackendNATS:
		return NewNATSPublisherFromConfig(cfg.NATS, logger)
	default:
		return nil, fmt.Errorf("unknown events backend %q (want none, redis or nats)", cfg.Backend)
	}
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) PublishAnalysisCompleted(context.Context, *observability.AnalysisCompletedEvent) error {
	return nil
}

func (NopPublisher) Backend() string { return BackendNone }

func (NopPublisher) Close() error { return nil }
