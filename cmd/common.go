// Package cmd provides the chatpulse subcommands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/otherjamesbrown/chatpulse/config"
	"github.com/otherjamesbrown/chatpulse/pkg/engagement"
	cperrors "github.com/otherjamesbrown/chatpulse/pkg/errors"
	"github.com/otherjamesbrown/chatpulse/pkg/events"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
	"github.com/otherjamesbrown/chatpulse/pkg/observability"
	"github.com/otherjamesbrown/chatpulse/pkg/pipeline"
	"github.com/otherjamesbrown/chatpulse/pkg/source"
)

// PublisherFactory opens an event publisher for the configured backend.
type PublisherFactory func(ctx context.Context, cfg events.Config, logger logging.Logger) (events.Publisher, error)

// NewLogger builds the command logger at the given level, or debug when
// cfg.Debug is set. Logs go to w so stdout stays free for reports.
func NewLogger(cfg *config.CLIConfig, w io.Writer, level logging.Level) logging.Logger {
	if cfg.Debug {
		level = logging.LevelDebug
	}
	return logging.NewLogger(&logging.Config{
		Level:       level,
		ServiceName: "chatpulse",
		JSONFormat:  cfg.LogJSON,
		NoColor:     !IsTerminal(w),
		Output:      w,
	})
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runnerParts groups what a command needs to build a pipeline.Runner.
type runnerParts struct {
	cfg       *config.CLIConfig
	logger    logging.Logger
	stdin     io.Reader
	publisher events.Publisher
	metrics   *observability.AnalysisMetrics
}

func newRunner(p runnerParts) (*pipeline.Runner, error) {
	loc, err := p.cfg.Location()
	if err != nil {
		return nil, err
	}

	loaderOpts := []source.Option{
		source.WithMaxBytes(p.cfg.MaxInputBytes),
		source.WithLogger(p.logger),
	}
	if p.stdin != nil {
		loaderOpts = append(loaderOpts, source.WithStdin(p.stdin))
	}

	opts := []pipeline.Option{
		pipeline.WithLoader(source.NewLoader(loaderOpts...)),
		pipeline.WithAnalyzer(engagement.NewAnalyzer(
			engagement.WithLocation(loc),
			engagement.WithLogger(p.logger),
		)),
		pipeline.WithLogger(p.logger),
	}
	if p.publisher != nil {
		opts = append(opts, pipeline.WithPublisher(p.publisher))
	}
	if p.metrics != nil {
		opts = append(opts, pipeline.WithMetrics(p.metrics))
	}
	return pipeline.NewRunner(opts...), nil
}

// withSuggestion appends the suggested action for classified source errors.
func withSuggestion(err error) error {
	var se *cperrors.SourceError
	if !errors.As(err, &se) {
		return err
	}
	if action := cperrors.GetSuggestedAction(se.Code); action != "" {
		return fmt.Errorf("%w\n  Suggestion: %s", err, action)
	}
	return err
}
