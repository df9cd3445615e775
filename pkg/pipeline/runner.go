// Package pipeline runs one analysis from transcript source to published
// event. Each run gets its own ID, a root span, and metrics per stage.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/chatpulse/pkg/engagement"
	cperrors "github.com/otherjamesbrown/chatpulse/pkg/errors"
	"github.com/otherjamesbrown/chatpulse/pkg/events"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
	"github.com/otherjamesbrown/chatpulse/pkg/observability"
	"github.com/otherjamesbrown/chatpulse/pkg/source"
)

// Stage names used for spans and latency metrics.
const (
	StageLoad    = "load"
	StageAnalyze = "analyze"
	StagePublish = "publish"
)

// Input describes where a run reads its transcript from. Data takes
// precedence over Path.
type Input struct {
	// Path is a file path, or "-" for stdin.
	Path string

	// Data is an in-memory transcript, such as an uploaded request body.
	Data []byte

	// Name labels Data in logs and errors.
	Name string

	// Format of Data. Empty sniffs the content.
	Format source.Format

	// Origin is the entry point, observability.OriginCLI or OriginAPI.
	Origin string

	// Publish emits an analysis.completed event after scoring.
	Publish bool
}

// Run is the outcome of a successful run.
type Run struct {
	ID        string
	Origin    string
	Document  *source.Document
	Result    engagement.Result
	Stats     engagement.Stats
	StartedAt time.Time
	Duration  time.Duration
	Published bool
}

// Runner executes runs. It is safe for concurrent use.
type Runner struct {
	loader    *source.Loader
	analyzer  *engagement.Analyzer
	metrics   *observability.AnalysisMetrics
	tracer    *observability.Tracer
	publisher events.Publisher
	logger    logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLoader sets the transcript loader.
func WithLoader(l *source.Loader) Option {
	return func(r *Runner) {
		r.loader = l
	}
}

// WithAnalyzer sets the analyzer.
func WithAnalyzer(a *engagement.Analyzer) Option {
	return func(r *Runner) {
		r.analyzer = a
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.AnalysisMetrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(r *Runner) {
		r.tracer = t
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger.With(logging.F("component", "pipeline"))
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		publisher: events.NopPublisher{},
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.loader == nil {
		r.loader = source.NewLoader(source.WithLogger(r.logger))
	}
	if r.analyzer == nil {
		r.analyzer = engagement.NewAnalyzer(engagement.WithLogger(r.logger))
	}
	if r.tracer == nil {
		r.tracer = observability.NewTracer()
	}
	if r.publisher == nil {
		r.publisher = events.NopPublisher{}
	}
	return r
}

// Loader returns the loader used by the runner.
func (r *Runner) Loader() *source.Loader {
	return r.loader
}

// Run loads, analyzes and optionally publishes one transcript.
// Cancellation is checked between stages; scoring itself is not interrupted.
func (r *Runner) Run(ctx context.Context, in Input) (*Run, error) {
	origin := in.Origin
	if origin == "" {
		origin = observability.OriginCLI
	}

	run := &Run{
		ID:        uuid.New().String(),
		Origin:    origin,
		StartedAt: time.Now(),
	}

	ctx = context.WithValue(ctx, logging.RunIDKey, run.ID)
	ctx, span := r.tracer.StartRunSpan(ctx, run.ID, origin)
	defer span.End()
	spanHelper := observability.NewSpanHelper(span)
	logger := r.logger.WithContext(ctx)

	doc, err := r.load(ctx, in)
	if err != nil {
		code := cperrors.CodeOf(err)
		spanHelper.SetError(err, string(code), cperrors.IsErrorRetryable(err))
		r.recordFailure(origin, code)
		logger.Warn("Transcript load failed",
			logging.Err(err),
			logging.F("code", string(code)))
		return nil, err
	}
	run.Document = doc
	spanHelper.SetSource(doc.Name, string(doc.Format), doc.Bytes)

	if err := ctx.Err(); err != nil {
		err = cperrors.ClassifyError(err, doc.Name)
		spanHelper.SetError(err, string(cperrors.CodeOf(err)), false)
		r.recordFailure(origin, cperrors.CodeOf(err))
		return nil, err
	}
	run.Result, run.Stats = r.analyze(ctx, doc)
	spanHelper.SetExtraction(run.Stats.Lines, run.Stats.Messages, run.Stats.ReplySamples)
	spanHelper.SetResult(run.Result.Percentage, run.Result.TotalEmojis, run.Result.AverageReplyTime)

	run.Duration = time.Since(run.StartedAt)

	if in.Publish {
		run.Published = r.publish(ctx, run, logger)
	}

	spanHelper.SetSuccess()
	if r.metrics != nil {
		r.metrics.RecordRun(origin, observability.RunStatusSuccess)
	}

	logger.Info("Analysis complete",
		logging.F("source", doc.Name),
		logging.F("format", string(doc.Format)),
		logging.F("messages", run.Result.TotalMessages),
		logging.F("percentage", run.Result.Percentage),
		logging.F("duration_ms", run.Duration.Milliseconds()))

	return run, nil
}

func (r *Runner) load(ctx context.Context, in Input) (*source.Document, error) {
	ctx, span := r.tracer.StartStageSpan(ctx, StageLoad)
	defer span.End()
	defer r.observeStage(StageLoad, time.Now())

	var (
		doc *source.Document
		err error
	)
	switch {
	case in.Data != nil:
		name := in.Name
		if name == "" {
			name = "upload"
		}
		doc, err = r.loader.Decode(ctx, in.Data, name, in.Format)
	case in.Path != "":
		doc, err = r.loader.Load(ctx, in.Path)
	default:
		err = cperrors.ClassifyError(
			fmt.Errorf("no transcript path or data: %w", cperrors.ErrEmptyContent), "")
	}
	if err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.RecordInput(string(doc.Format), doc.Bytes)
	}
	return doc, nil
}

func (r *Runner) analyze(ctx context.Context, doc *source.Document) (engagement.Result, engagement.Stats) {
	_, span := r.tracer.StartStageSpan(ctx, StageAnalyze)
	defer span.End()
	defer r.observeStage(StageAnalyze, time.Now())

	result, stats := r.analyzer.AnalyzeWithStats(doc.Text)

	if r.metrics != nil {
		r.metrics.RecordLines(stats.Messages, stats.NoTimestampLines, stats.InvalidDates)
		r.metrics.RecordResult(result.TotalMessages, result.TotalEmojis, result.Percentage, result.AverageReplyTime)
	}
	return result, stats
}

// publish reports whether the event was delivered. Failures are logged and
// do not fail the run.
func (r *Runner) publish(ctx context.Context, run *Run, logger logging.Logger) bool {
	if r.publisher.Backend() == events.BackendNone {
		logger.Debug("No events backend configured, skipping publish")
		return false
	}

	ctx, span := r.tracer.StartStageSpan(ctx, StagePublish)
	defer span.End()
	defer r.observeStage(StagePublish, time.Now())

	event := NewCompletedEvent(ctx, run)
	status := "success"
	err := r.publisher.PublishAnalysisCompleted(ctx, event)
	if err != nil {
		status = "failed"
		observability.NewSpanHelper(span).SetError(err, "publish_error", true)
		logger.Warn("Failed to publish analysis event",
			logging.Err(err),
			logging.F("backend", r.publisher.Backend()))
	}
	if r.metrics != nil {
		r.metrics.RecordEventPublished(r.publisher.Backend(), status)
	}
	return err == nil
}

// NewCompletedEvent builds the analysis.completed event for run.
func NewCompletedEvent(ctx context.Context, run *Run) *observability.AnalysisCompletedEvent {
	event := observability.NewAnalysisCompletedEvent(run.ID, run.Origin)
	event.TraceID = observability.GetTraceID(ctx)
	if run.Document != nil {
		event.SourceFormat = string(run.Document.Format)
		event.SourceBytes = run.Document.Bytes
	}
	event.Percentage = run.Result.Percentage
	event.TotalMessages = run.Result.TotalMessages
	event.AverageReplyTime = run.Result.AverageReplyTime
	event.TotalEmojis = run.Result.TotalEmojis
	event.MessageScore = run.Result.MessageScore
	event.ReplyTimeScore = run.Result.ReplyTimeScore
	event.EmojiScore = run.Result.EmojiScore
	event.Participants = len(run.Stats.Participants)
	event.ReplySamples = run.Stats.ReplySamples
	event.DurationMs = run.Duration.Milliseconds()
	return event
}

func (r *Runner) observeStage(stage string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordStageLatency(stage, time.Since(start).Seconds())
	}
}

func (r *Runner) recordFailure(origin string, code cperrors.ErrorCode) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordRun(origin, observability.RunStatusFailed)
	r.metrics.RecordSourceError(string(code))
}
