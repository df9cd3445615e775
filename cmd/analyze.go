package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/chatpulse/config"
	"github.com/otherjamesbrown/chatpulse/pkg/engagement"
	"github.com/otherjamesbrown/chatpulse/pkg/events"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
	"github.com/otherjamesbrown/chatpulse/pkg/observability"
	"github.com/otherjamesbrown/chatpulse/pkg/pipeline"
	"github.com/otherjamesbrown/chatpulse/pkg/report"
)

// Analyze command flags.
var (
	analyzeVerbose  bool
	analyzePublish  bool
	analyzeTimezone string
	analyzeNoColor  bool
)

// AnalyzeCommandDeps holds the dependencies for the analyze command.
type AnalyzeCommandDeps struct {
	LoadConfig   func() (*config.CLIConfig, error)
	NewPublisher PublisherFactory

	// Stdin is read when the path is "-". Nil uses the command's input.
	Stdin io.Reader

	// IsTerminal decides whether text output is colored.
	IsTerminal func(w io.Writer) bool
}

// DefaultAnalyzeDeps returns the default dependencies for production use.
func DefaultAnalyzeDeps() *AnalyzeCommandDeps {
	return &AnalyzeCommandDeps{
		LoadConfig:   config.LoadConfig,
		NewPublisher: events.New,
		IsTerminal:   IsTerminal,
	}
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(deps *AnalyzeCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAnalyzeDeps()
	}

	cmd := &cobra.Command{
		Use:   "analyze <file|->",
		Short: "Score the engagement of a chat transcript",
		Long: `Score the engagement of an exported chat transcript.

Reads a plain-text (.txt) or PDF (.pdf) chat export, or standard input when the
path is "-", and prints an engagement percentage with its three subscores:
message volume (40 points), reply speed (30 points) and emoji use (30 points).

Lines without a recognizable "date, time - sender: text" prefix are skipped.
Timestamps are read in the configured timezone (--timezone, default Local).

Use --verbose to include parse diagnostics (skipped lines, participants,
reply samples) and --publish to emit an analysis.completed event to the
configured event backend.

Examples:
  chatpulse analyze chat.txt
  chatpulse analyze export.pdf --output json
  cat chat.txt | chatpulse analyze -
  chatpulse analyze chat.txt --verbose --timezone Europe/Paris
  chatpulse analyze chat.txt --publish`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, deps, args[0])
		},
	}

	cmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Include parse diagnostics")
	cmd.Flags().BoolVar(&analyzePublish, "publish", false, "Publish an analysis.completed event")
	cmd.Flags().StringVar(&analyzeTimezone, "timezone", "", "IANA timezone for chat timestamps (default from config)")
	cmd.Flags().BoolVar(&analyzeNoColor, "no-color", false, "Disable colored output")

	return cmd
}

func runAnalyze(cmd *cobra.Command, deps *AnalyzeCommandDeps, path string) error {
	ctx := cmd.Context()

	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if analyzeTimezone != "" {
		cfg.Timezone = analyzeTimezone
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := NewLogger(cfg, cmd.ErrOrStderr(), logging.LevelWarn)

	var publisher events.Publisher = events.NopPublisher{}
	if analyzePublish {
		if deps.NewPublisher == nil {
			deps.NewPublisher = events.New
		}
		publisher, err = deps.NewPublisher(ctx, cfg.PublisherConfig(), logger)
		if err != nil {
			return fmt.Errorf("connecting to event backend: %w", err)
		}
		defer func() {
			if cerr := publisher.Close(); cerr != nil {
				logger.Warn("Failed to close publisher", logging.Err(cerr))
			}
		}()
	}

	stdin := deps.Stdin
	if stdin == nil {
		stdin = cmd.InOrStdin()
	}

	runner, err := newRunner(runnerParts{
		cfg:       cfg,
		logger:    logger,
		stdin:     stdin,
		publisher: publisher,
	})
	if err != nil {
		return err
	}

	run, err := runner.Run(ctx, pipeline.Input{
		Path:    path,
		Origin:  observability.OriginCLI,
		Publish: analyzePublish,
	})
	if err != nil {
		return withSuggestion(err)
	}

	var stats *engagement.Stats
	if analyzeVerbose {
		stats = &run.Stats
	}

	format := report.Format(cfg.OutputFormat)
	out := cmd.OutOrStdout()
	color := format != report.FormatJSON && format != report.FormatYAML && !analyzeNoColor &&
		deps.IsTerminal != nil && deps.IsTerminal(out)

	if err := report.Render(out, format, report.New(run.ID, run.Result, stats), report.TextOptions{
		Color:   color,
		Verbose: analyzeVerbose,
	}); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if analyzePublish && !run.Published && publisher.Backend() != events.BackendNone {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: analysis.completed event was not published")
	}
	return nil
}
