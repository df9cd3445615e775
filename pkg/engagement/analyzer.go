// Package engagement scores a chat transcript by message volume, reply
// latency and emoji usage. It performs no I/O and never fails: text without
// recognizable messages produces the neutral result.
package engagement

import (
	"time"

	"github.com/otherjamesbrown/chatpulse/pkg/logging"
	"github.com/otherjamesbrown/chatpulse/pkg/transcript"
)

// TopEmojiLimit caps the ranked emoji list in a Result.
const TopEmojiLimit = 10

// Result is the outcome of analyzing one transcript.
type Result struct {
	Percentage       int          `json:"percentage" yaml:"percentage" jsonschema:"required,minimum=0,maximum=100,description=Overall engagement score"`
	TotalMessages    int          `json:"totalMessages" yaml:"totalMessages" jsonschema:"required,minimum=0"`
	AverageReplyTime float64      `json:"averageReplyTime" yaml:"averageReplyTime" jsonschema:"required,minimum=0,description=Mean of per-day average reply gaps in minutes"`
	TotalEmojis      int          `json:"totalEmojis" yaml:"totalEmojis" jsonschema:"required,minimum=0"`
	MessageScore     float64      `json:"messageScore" yaml:"messageScore" jsonschema:"required,minimum=0,maximum=40"`
	ReplyTimeScore   float64      `json:"replyTimeScore" yaml:"replyTimeScore" jsonschema:"required,minimum=0,maximum=30"`
	EmojiScore       float64      `json:"emojiScore" yaml:"emojiScore" jsonschema:"required,minimum=0,maximum=30"`
	TopEmojis        []EmojiCount `json:"topEmojis" yaml:"topEmojis" jsonschema:"required,maxItems=10,description=Most used emojis by descending count"`
	Summary          string       `json:"summary" yaml:"summary" jsonschema:"required"`
}

// Stats describes how the transcript was read. It does not affect the score.
type Stats struct {
	Lines            int        `json:"lines" yaml:"lines"`
	Messages         int        `json:"messages" yaml:"messages"`
	NoTimestampLines int        `json:"noTimestampLines" yaml:"noTimestampLines"`
	InvalidDates     int        `json:"invalidDates" yaml:"invalidDates"`
	Participants     []string   `json:"participants" yaml:"participants"`
	FirstMessage     *time.Time `json:"firstMessage,omitempty" yaml:"firstMessage,omitempty"`
	LastMessage      *time.Time `json:"lastMessage,omitempty" yaml:"lastMessage,omitempty"`
	ReplySamples     int        `json:"replySamples" yaml:"replySamples"`
	DistinctEmojis   int        `json:"distinctEmojis" yaml:"distinctEmojis"`
	ConversationDays []string   `json:"conversationDays" yaml:"conversationDays"`
}

// Analyzer runs the extraction and scoring pipeline. It keeps no state
// between runs and is safe for concurrent use.
type Analyzer struct {
	extractor *transcript.Extractor
	logger    logging.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*analyzerOptions)

type analyzerOptions struct {
	loc    *time.Location
	logger logging.Logger
}

// WithLocation sets the local clock used for timestamps and conversational days.
func WithLocation(loc *time.Location) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.loc = loc
	}
}

// WithLogger sets the logger for skipped-line diagnostics.
func WithLogger(logger logging.Logger) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.logger = logger
	}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	o := &analyzerOptions{loc: time.Local}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}

	return &Analyzer{
		extractor: transcript.NewExtractor(
			transcript.WithLocation(o.loc),
			transcript.WithLogger(o.logger),
		),
		logger: o.logger.With(logging.F("component", "analyzer")),
	}
}

// Analyze scores text.
func (a *Analyzer) Analyze(text string) Result {
	result, _ := a.AnalyzeWithStats(text)
	return result
}

// AnalyzeWithStats scores text and reports how it was read.
func (a *Analyzer) AnalyzeWithStats(text string) (Result, Stats) {
	extraction := a.extractor.Extract(text)
	msgs := extraction.Messages

	var tally EmojiTally
	latency := NewLatencyAggregator()
	for i, msg := range msgs {
		tally.Scan(msg.Body)
		if i > 0 {
			latency.Observe(msgs[i-1], msg)
		}
	}

	avg := latency.Average()
	score := ComputeScore(len(msgs), avg, tally.Total())

	result := Result{
		Percentage:       score.Percentage,
		TotalMessages:    len(msgs),
		AverageReplyTime: avg,
		TotalEmojis:      tally.Total(),
		MessageScore:     score.Message,
		ReplyTimeScore:   score.ReplyTime,
		EmojiScore:       score.Emoji,
		TopEmojis:        tally.Top(TopEmojiLimit),
		Summary:          Summarize(len(msgs), avg, tally.Total(), score.Percentage),
	}

	stats := Stats{
		Lines:            extraction.Lines,
		Messages:         len(msgs),
		NoTimestampLines: extraction.NoTimestamp,
		InvalidDates:     extraction.InvalidDates,
		Participants:     extraction.Participants(),
		ReplySamples:     latency.Samples(),
		DistinctEmojis:   tally.Distinct(),
		ConversationDays: latency.Days(),
	}
	if stats.ConversationDays == nil {
		stats.ConversationDays = []string{}
	}
	if len(msgs) > 0 {
		first, last := msgs[0].Timestamp, msgs[len(msgs)-1].Timestamp
		stats.FirstMessage, stats.LastMessage = &first, &last
	}

	if len(msgs) == 0 && extraction.Lines > 0 {
		a.logger.Warn("No messages recognized in transcript",
			logging.F("lines", extraction.Lines),
			logging.F("invalid_dates", extraction.InvalidDates))
	}
	a.logger.Debug("Analyzed transcript",
		logging.F("messages", len(msgs)),
		logging.F("reply_samples", latency.Samples()),
		logging.F("percentage", score.Percentage))

	return result, stats
}
