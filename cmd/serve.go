package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/chatpulse/config"
	"github.com/otherjamesbrown/chatpulse/pkg/api"
	"github.com/otherjamesbrown/chatpulse/pkg/events"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
	"github.com/otherjamesbrown/chatpulse/pkg/observability"
)

// shutdownTimeout bounds how long in-flight requests may run after a stop signal.
const shutdownTimeout = 10 * time.Second

// Serve command flags.
var (
	serveListen   string
	serveLogLevel string
)

// ServeCommandDeps holds the dependencies for the serve command.
type ServeCommandDeps struct {
	LoadConfig   func() (*config.CLIConfig, error)
	NewPublisher PublisherFactory

	// NewRegistry returns the registry metrics are registered on and served from.
	NewRegistry func() *prometheus.Registry
}

// DefaultServeDeps returns the default dependencies for production use.
func DefaultServeDeps() *ServeCommandDeps {
	return &ServeCommandDeps{
		LoadConfig:   config.LoadConfig,
		NewPublisher: events.New,
		NewRegistry:  newProcessRegistry,
	}
}

func newProcessRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewServeCommand creates the serve command.
func NewServeCommand(deps *ServeCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultServeDeps()
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP API",
		Long: `Run the analysis HTTP API until interrupted.

Endpoints:
  POST /api/v1/analyze   Score a transcript (text/plain, application/pdf, or JSON {"text": "..."})
  GET  /api/v1/schema    JSON Schema of the analysis result
  GET  /health           Liveness check
  GET  /version          Build information
  GET  /metrics          Prometheus metrics

When events.backend is redis or nats, every successful analysis publishes an
analysis.completed event.

Examples:
  chatpulse serve
  chatpulse serve --listen 127.0.0.1:9090
  CHATPULSE_EVENTS_BACKEND=nats chatpulse serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), deps)
		},
	}

	cmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config, :8080)")
	cmd.Flags().StringVar(&serveLogLevel, "log-level", string(logging.LevelInfo), "Log level: debug, info, warn, error")

	return cmd
}

func runServe(ctx context.Context, deps *ServeCommandDeps) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if serveListen != "" {
		cfg.Server.ListenAddress = serveListen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logging.ParseLevel(serveLogLevel)
	if err != nil {
		return err
	}

	logger := NewLogger(cfg, os.Stderr, level)

	newPublisher := deps.NewPublisher
	if newPublisher == nil {
		newPublisher = events.New
	}
	publisher, err := newPublisher(ctx, cfg.PublisherConfig(), logger)
	if err != nil {
		return fmt.Errorf("connecting to event backend: %w", err)
	}
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			logger.Warn("Failed to close publisher", logging.Err(cerr))
		}
	}()

	newRegistry := deps.NewRegistry
	if newRegistry == nil {
		newRegistry = newProcessRegistry
	}
	reg := newRegistry()

	runner, err := newRunner(runnerParts{
		cfg:       cfg,
		logger:    logger,
		publisher: publisher,
		metrics:   observability.NewAnalysisMetrics(reg),
	})
	if err != nil {
		return err
	}

	srv := api.NewServer(cfg.Server.ListenAddress, runner,
		api.WithLogger(logger),
		api.WithMaxBodyBytes(cfg.MaxInputBytes),
		api.WithReadTimeout(cfg.Server.ReadTimeout),
		api.WithPublish(publisher.Backend() != events.BackendNone),
		api.WithGatherer(reg),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return <-errCh
}
