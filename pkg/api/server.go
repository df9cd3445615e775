// Package api serves transcript analysis over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otherjamesbrown/chatpulse/pkg/buildinfo"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
	"github.com/otherjamesbrown/chatpulse/pkg/pipeline"
)

// DefaultReadTimeout bounds how long a client may take to send a request.
const DefaultReadTimeout = 30 * time.Second

// Server is the HTTP API.
type Server struct {
	router      *chi.Mux
	runner      *pipeline.Runner
	addr        string
	maxBytes    int64
	publish     bool
	readTimeout time.Duration
	gatherer    prometheus.Gatherer
	logger      logging.Logger

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger.With(logging.F("component", "api"))
		}
	}
}

// WithMaxBodyBytes limits request bodies. Values <= 0 keep the loader limit.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithPublish publishes an event for every successful analysis.
func WithPublish(publish bool) Option {
	return func(s *Server) {
		s.publish = publish
	}
}

// WithReadTimeout sets the HTTP read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// NewServer creates a server listening on addr.
func NewServer(addr string, runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		runner:      runner,
		addr:        addr,
		maxBytes:    runner.Loader().MaxBytes(),
		readTimeout: DefaultReadTimeout,
		gatherer:    prometheus.DefaultGatherer,
		logger:      logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.health)
	s.router.Get("/version", buildinfo.Handler())
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.analyze)
		r.Get("/schema", s.schema)
	})

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
	}

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("API server starting", logging.F("addr", s.addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs one line per request with the chi request ID.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := context.WithValue(r.Context(), logging.RequestIDKey, middleware.GetReqID(r.Context()))

			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.WithContext(ctx).Info("HTTP request",
				logging.F("method", r.Method),
				logging.F("path", r.URL.Path),
				logging.F("status", ww.Status()),
				logging.F("bytes", ww.BytesWritten()),
				logging.F("duration_ms", time.Since(start).Milliseconds()))
		})
	}
}
