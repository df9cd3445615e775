package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the tracer for analysis runs.
	TracerName = "chatpulse"
)

// Span attribute keys
const (
	AttrRunID            = "run_id"
	AttrOrigin           = "origin"
	AttrStage            = "stage"
	AttrSourceName       = "source_name"
	AttrSourceFormat     = "source_format"
	AttrSourceBytes      = "source_bytes"
	AttrLines            = "lines"
	AttrMessages         = "messages"
	AttrEmojis           = "emojis"
	AttrReplySamples     = "reply_samples"
	AttrPercentage       = "percentage"
	AttrAverageReplyTime = "average_reply_minutes"
	AttrErrorType        = "error_type"
	AttrRetryable        = "retryable"
)

// Span names
const (
	SpanRun = "chatpulse.run"
)

// Tracer provides distributed tracing for analysis runs.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer backed by the global OpenTelemetry provider.
func NewTracer() *Tracer {
	return NewTracerWithProvider(otel.GetTracerProvider())
}

// NewTracerWithProvider creates a tracer from a specific provider.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(TracerName),
	}
}

// StartRunSpan starts the root span of a run.
func (t *Tracer) StartRunSpan(ctx context.Context, runID, origin string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanRun,
		trace.WithAttributes(
			attribute.String(AttrRunID, runID),
			attribute.String(AttrOrigin, origin),
		),
	)
}

// StartStageSpan starts a span for a pipeline stage.
func (t *Tracer) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("chatpulse.stage.%s", stage),
		trace.WithAttributes(
			attribute.String(AttrStage, stage),
		),
	)
}

// SpanHelper provides convenient methods for working with the current span.
type SpanHelper struct {
	span trace.Span
}

// NewSpanHelper creates a new span helper for the given span.
func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

// SetSource sets attributes describing the loaded transcript.
func (h *SpanHelper) SetSource(name, format string, bytes int) {
	h.span.SetAttributes(
		attribute.String(AttrSourceName, name),
		attribute.String(AttrSourceFormat, format),
		attribute.Int(AttrSourceBytes, bytes),
	)
}

// SetExtraction sets attributes describing extraction output.
func (h *SpanHelper) SetExtraction(lines, messages, replySamples int) {
	h.span.SetAttributes(
		attribute.Int(AttrLines, lines),
		attribute.Int(AttrMessages, messages),
		attribute.Int(AttrReplySamples, replySamples),
	)
}

// SetResult sets attributes describing the score.
func (h *SpanHelper) SetResult(percentage, emojis int, averageReplyMinutes float64) {
	h.span.SetAttributes(
		attribute.Int(AttrPercentage, percentage),
		attribute.Int(AttrEmojis, emojis),
		attribute.Float64(AttrAverageReplyTime, averageReplyMinutes),
	)
}

// SetError records an error on the span.
func (h *SpanHelper) SetError(err error, errorType string, retryable bool) {
	h.span.SetStatus(codes.Error, err.Error())
	h.span.SetAttributes(
		attribute.String(AttrErrorType, errorType),
		attribute.Bool(AttrRetryable, retryable),
	)
	h.span.RecordError(err)
}

// SetSuccess marks the span as successful.
func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span.
func (h *SpanHelper) AddEvent(name string, attrs ...attribute.KeyValue) {
	h.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
