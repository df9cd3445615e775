package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AnalysisMetrics holds the Prometheus metrics for transcript analysis.
type AnalysisMetrics struct {
	// Run metrics
	RunsTotal         *prometheus.CounterVec
	StageSeconds      *prometheus.HistogramVec
	SourceErrorsTotal *prometheus.CounterVec
	InputBytes        *prometheus.HistogramVec

	// Transcript metrics
	LinesTotal    *prometheus.CounterVec
	MessagesTotal prometheus.Counter
	EmojisTotal   prometheus.Counter

	// Score metrics
	EngagementScore  prometheus.Histogram
	AverageReplyTime prometheus.Histogram

	// Event metrics
	EventsPublishedTotal *prometheus.CounterVec
}

// DefaultAnalysisMetrics creates metrics registered with the default registry.
func DefaultAnalysisMetrics() *AnalysisMetrics {
	return NewAnalysisMetrics(prometheus.DefaultRegisterer)
}

// NewAnalysisMetrics creates a new set of analysis metrics.
func NewAnalysisMetrics(reg prometheus.Registerer) *AnalysisMetrics {
	factory := promauto.With(reg)

	return &AnalysisMetrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatpulse_runs_total",
				Help: "Total analysis runs by entry point and status",
			},
			[]string{"origin", "status"},
		),
		StageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatpulse_stage_seconds",
				Help:    "Latency per pipeline stage",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"stage"},
		),
		SourceErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatpulse_source_errors_total",
				Help: "Transcript load failures by error code",
			},
			[]string{"code"},
		),
		InputBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatpulse_input_bytes",
				Help:    "Size of analyzed transcripts",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
			[]string{"format"},
		),

		LinesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatpulse_lines_total",
				Help: "Transcript lines seen, by outcome",
			},
			[]string{"outcome"},
		),
		MessagesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chatpulse_messages_total",
				Help: "Messages extracted from transcripts",
			},
		),
		EmojisTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chatpulse_emojis_total",
				Help: "Emojis counted in message bodies",
			},
		),

		EngagementScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatpulse_engagement_score",
				Help:    "Distribution of overall engagement percentages",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
		AverageReplyTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatpulse_average_reply_minutes",
				Help:    "Distribution of average reply times in minutes",
				Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120, 300, 720},
			},
		),

		EventsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatpulse_events_published_total",
				Help: "Analysis events published, by backend and status",
			},
			[]string{"backend", "status"},
		),
	}
}

// RecordRun records a finished run.
func (m *AnalysisMetrics) RecordRun(origin, status string) {
	m.RunsTotal.WithLabelValues(origin, status).Inc()
}

// RecordStageLatency records how long a stage took.
func (m *AnalysisMetrics) RecordStageLatency(stage string, seconds float64) {
	m.StageSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordSourceError records a failed transcript load.
func (m *AnalysisMetrics) RecordSourceError(code string) {
	m.SourceErrorsTotal.WithLabelValues(code).Inc()
}

// RecordInput records the size of a loaded transcript.
func (m *AnalysisMetrics) RecordInput(format string, bytes int) {
	m.InputBytes.WithLabelValues(format).Observe(float64(bytes))
}

// RecordLines records line outcomes for one transcript.
func (m *AnalysisMetrics) RecordLines(messages, noTimestamp, invalidDates int) {
	m.LinesTotal.WithLabelValues(LineOutcomeMessage).Add(float64(messages))
	m.LinesTotal.WithLabelValues(LineOutcomeNoTimestamp).Add(float64(noTimestamp))
	m.LinesTotal.WithLabelValues(LineOutcomeInvalidDate).Add(float64(invalidDates))
}

// RecordResult records the headline numbers of a result.
func (m *AnalysisMetrics) RecordResult(messages, emojis, percentage int, averageReplyMinutes float64) {
	m.MessagesTotal.Add(float64(messages))
	m.EmojisTotal.Add(float64(emojis))
	m.EngagementScore.Observe(float64(percentage))
	if averageReplyMinutes > 0 {
		m.AverageReplyTime.Observe(averageReplyMinutes)
	}
}

// RecordEventPublished records an event publish attempt.
func (m *AnalysisMetrics) RecordEventPublished(backend, status string) {
	m.EventsPublishedTotal.WithLabelValues(backend, status).Inc()
}

// Line outcomes
const (
	LineOutcomeMessage     = "message"
	LineOutcomeNoTimestamp = "no_timestamp"
	LineOutcomeInvalidDate = "invalid_date"
)

// Run statuses
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)
