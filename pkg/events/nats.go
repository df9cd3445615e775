package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/otherjamesbrown/chatpulse/pkg/buildinfo"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
	"github.com/otherjamesbrown/chatpulse/pkg/observability"
)

const flushTimeout = 5 * time.Second

// natsConn is the subset of *nats.Conn used for publishing.
type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes events to a NATS subject.
type NATSPublisher struct {
	conn    natsConn
	subject string
	logger  logging.Logger
}

// NewNATSPublisher creates a publisher on an existing connection. An empty
// subject uses the event subject.
func NewNATSPublisher(conn natsConn, subject string, logger logging.Logger) *NATSPublisher {
	if subject == "" {
		subject = observability.SubjectAnalysisCompleted
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With(logging.F("component", "nats_publisher")),
	}
}

// NewNATSPublisherFromConfig connects to NATS and creates a publisher.
func NewNATSPublisherFromConfig(cfg NATSConfig, logger logging.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, natsOptions(cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return NewNATSPublisher(nc, cfg.Subject, logger), nil
}

func natsOptions(cfg NATSConfig, logger logging.Logger) []nats.Option {
	opts := []nats.Option{
		nats.Name(buildinfo.UserAgent()),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logging.Err(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts
}

// PublishAnalysisCompleted publishes event and waits for the server to
// acknowledge the flush.
func (p *NATSPublisher) PublishAnalysisCompleted(ctx context.Context, event *observability.AnalysisCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Err(err),
			logging.F("subject", p.subject))
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	// FlushWithContext rejects contexts without a deadline.
	flushCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}

	p.logger.Debug("Event published",
		logging.F("subject", p.subject),
		logging.F("payload_size", len(payload)))
	return nil
}

// Subject returns the subject events are published on.
func (p *NATSPublisher) Subject() string {
	return p.subject
}

// Backend returns "nats".
func (p *NATSPublisher) Backend() string {
	return BackendNATS
}

// Close closes the connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
