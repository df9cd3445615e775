// Package observability provides event schemas, metrics, and tracing for
// analysis runs.
package observability

import (
	"time"

	"github.com/google/uuid"
)

// Event subjects. Redis uses them as channel names, NATS as subjects.
const (
	SubjectAnalysisCompleted = "chatpulse.analysis.completed"
)

// Event types
const (
	EventTypeAnalysisCompleted = "analysis.completed"
)

// EventSource identifies chatpulse as the producer of an event.
const EventSource = "chatpulse"

// EventVersion is the schema version of published events.
const EventVersion = "1.0"

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id,omitempty"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a BaseEvent with a generated ID.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    EventSource,
		Version:   EventVersion,
	}
}

// AnalysisCompletedEvent is emitted after a transcript has been scored.
// It carries the numbers only, never message text or sender names.
type AnalysisCompletedEvent struct {
	BaseEvent

	RunID        string `json:"run_id"`
	Origin       string `json:"origin"`
	SourceFormat string `json:"source_format,omitempty"`
	SourceBytes  int    `json:"source_bytes"`

	Percentage       int     `json:"percentage"`
	TotalMessages    int     `json:"total_messages"`
	AverageReplyTime float64 `json:"average_reply_time"`
	TotalEmojis      int     `json:"total_emojis"`
	MessageScore     float64 `json:"message_score"`
	ReplyTimeScore   float64 `json:"reply_time_score"`
	EmojiScore       float64 `json:"emoji_score"`

	Participants int   `json:"participants"`
	ReplySamples int   `json:"reply_samples"`
	DurationMs   int64 `json:"duration_ms"`
}

// NewAnalysisCompletedEvent creates an event for runID.
func NewAnalysisCompletedEvent(runID, origin string) *AnalysisCompletedEvent {
	return &AnalysisCompletedEvent{
		BaseEvent: NewBaseEvent(EventTypeAnalysisCompleted),
		RunID:     runID,
		Origin:    origin,
	}
}

// Run origins
const (
	OriginCLI = "cli"
	OriginAPI = "api"
)
