package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/chatpulse/pkg/engagement"
	cperrors "github.com/otherjamesbrown/chatpulse/pkg/errors"
	"github.com/otherjamesbrown/chatpulse/pkg/events"
	"github.com/otherjamesbrown/chatpulse/pkg/observability"
	"github.com/otherjamesbrown/chatpulse/pkg/source"
)

const threeLines = "[1/1/24, 10:00:00] Alice: hi\n" +
	"[1/1/24, 10:05:00] Bob: hey \U0001F600\n" +
	"[1/1/24, 10:07:00] Alice: what's up\n"

type recordingPublisher struct {
	backend string
	err     error
	events  []*observability.AnalysisCompletedEvent
}

func (p *recordingPublisher) PublishAnalysisCompleted(_ context.Context, event *observability.AnalysisCompletedEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Backend() string { return p.backend }

func (p *recordingPublisher) Close() error { return nil }

func newTestRunner(t *testing.T, opts ...Option) (*Runner, *observability.AnalysisMetrics) {
	t.Helper()
	metrics := observability.NewAnalysisMetrics(prometheus.NewRegistry())
	base := []Option{
		WithAnalyzer(engagement.NewAnalyzer(engagement.WithLocation(time.UTC))),
		WithMetrics(metrics),
	}
	return NewRunner(append(base, opts...)...), metrics
}

func TestRunner_RunData(t *testing.T) {
	runner, metrics := newTestRunner(t)

	run, err := runner.Run(context.Background(), Input{
		Data:   []byte(threeLines),
		Origin: observability.OriginAPI,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, observability.OriginAPI, run.Origin)
	assert.Equal(t, "upload", run.Document.Name)
	assert.Equal(t, source.FormatText, run.Document.Format)
	assert.Equal(t, 31, run.Result.Percentage)
	assert.Equal(t, 3, run.Result.TotalMessages)
	assert.Equal(t, 3.5, run.Result.AverageReplyTime)
	assert.Equal(t, []string{"Alice", "Bob"}, run.Stats.Participants)
	assert.False(t, run.Published)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues(observability.OriginAPI, observability.RunStatusSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.MessagesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EmojisTotal))
}

func TestRunner_RunPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.txt")
	require.NoError(t, os.WriteFile(path, []byte(threeLines), 0o600))

	runner, _ := newTestRunner(t)
	run, err := runner.Run(context.Background(), Input{Path: path})
	require.NoError(t, err)

	assert.Equal(t, observability.OriginCLI, run.Origin)
	assert.Equal(t, path, run.Document.Name)
	assert.Equal(t, 31, run.Result.Percentage)
	assert.GreaterOrEqual(t, run.Duration, time.Duration(0))
}

func TestRunner_RunIDsAreUnique(t *testing.T) {
	runner, _ := newTestRunner(t)

	a, err := runner.Run(context.Background(), Input{Data: []byte(threeLines)})
	require.NoError(t, err)
	b, err := runner.Run(context.Background(), Input{Data: []byte(threeLines)})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Result, b.Result)
}

func TestRunner_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		code cperrors.ErrorCode
	}{
		{"empty data", Input{Data: []byte("  \n ")}, cperrors.CodeEmptyContent},
		{"no input", Input{}, cperrors.CodeEmptyContent},
		{"missing file", Input{Path: filepath.Join(t.TempDir(), "missing.txt")}, cperrors.CodeNotFound},
		{"unsupported format", Input{Path: "chat.docx"}, cperrors.CodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, metrics := newTestRunner(t)

			run, err := runner.Run(context.Background(), tt.in)
			require.Error(t, err)
			assert.Nil(t, run)
			assert.Equal(t, tt.code, cperrors.CodeOf(err))

			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues(observability.OriginCLI, observability.RunStatusFailed)))
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceErrorsTotal.WithLabelValues(string(tt.code))))
		})
	}
}

func TestRunner_Cancelled(t *testing.T) {
	runner, _ := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, Input{Data: []byte(threeLines)})
	require.Error(t, err)
	assert.Equal(t, cperrors.CodeContextCancelled, cperrors.CodeOf(err))
}

func TestRunner_Publish(t *testing.T) {
	pub := &recordingPublisher{backend: events.BackendRedis}
	runner, metrics := newTestRunner(t, WithPublisher(pub))

	run, err := runner.Run(context.Background(), Input{Data: []byte(threeLines), Publish: true})
	require.NoError(t, err)
	assert.True(t, run.Published)

	require.Len(t, pub.events, 1)
	event := pub.events[0]
	assert.Equal(t, run.ID, event.RunID)
	assert.Equal(t, observability.EventTypeAnalysisCompleted, event.EventType)
	assert.Equal(t, "text", event.SourceFormat)
	assert.Equal(t, len(threeLines), event.SourceBytes)
	assert.Equal(t, 31, event.Percentage)
	assert.Equal(t, 3, event.TotalMessages)
	assert.Equal(t, 2, event.Participants)
	assert.Equal(t, 2, event.ReplySamples)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublishedTotal.WithLabelValues(events.BackendRedis, "success")))
}

func TestRunner_PublishNotRequested(t *testing.T) {
	pub := &recordingPublisher{backend: events.BackendNATS}
	runner, _ := newTestRunner(t, WithPublisher(pub))

	run, err := runner.Run(context.Background(), Input{Data: []byte(threeLines)})
	require.NoError(t, err)
	assert.False(t, run.Published)
	assert.Empty(t, pub.events)
}

func TestRunner_PublishFailureDoesNotFailRun(t *testing.T) {
	pub := &recordingPublisher{backend: events.BackendNATS, err: errors.New("nats: timeout")}
	runner, metrics := newTestRunner(t, WithPublisher(pub))

	run, err := runner.Run(context.Background(), Input{Data: []byte(threeLines), Publish: true})
	require.NoError(t, err)
	assert.False(t, run.Published)
	assert.Equal(t, 31, run.Result.Percentage)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublishedTotal.WithLabelValues(events.BackendNATS, "failed")))
}

func TestRunner_PublishNopBackend(t *testing.T) {
	runner, _ := newTestRunner(t)

	run, err := runner.Run(context.Background(), Input{Data: []byte(threeLines), Publish: true})
	require.NoError(t, err)
	assert.False(t, run.Published)
}

func TestRunner_NoMessagesIsNotAnError(t *testing.T) {
	runner, _ := newTestRunner(t)

	run, err := runner.Run(context.Background(), Input{Data: []byte("just some text\nwithout timestamps")})
	require.NoError(t, err)
	assert.Equal(t, 15, run.Result.Percentage)
	assert.Equal(t, 0, run.Result.TotalMessages)
	assert.Equal(t, 2, run.Stats.NoTimestampLines)
}

func TestNewRunner_Defaults(t *testing.T) {
	runner := NewRunner()
	require.NotNil(t, runner.Loader())
	assert.Equal(t, source.DefaultMaxBytes, runner.Loader().MaxBytes())
}
