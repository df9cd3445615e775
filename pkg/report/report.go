// Package report renders analysis results for people and programs: a
// colored text card, JSON, or YAML, plus the JSON Schema of the result.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/chatpulse/pkg/engagement"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// IsValid checks if the format is supported.
func (f Format) IsValid() bool {
	switch f {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Report is a result plus the context it was produced in.
type Report struct {
	engagement.Result `yaml:",inline"`

	RunID   string            `json:"runId,omitempty" yaml:"runId,omitempty"`
	Verdict string            `json:"verdict" yaml:"verdict"`
	Stats   *engagement.Stats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// New builds a Report. stats may be nil.
func New(runID string, result engagement.Result, stats *engagement.Stats) *Report {
	return &Report{
		RunID:   runID,
		Result:  result,
		Verdict: VerdictFor(result.Percentage).Label,
		Stats:   stats,
	}
}

// TextOptions controls text rendering.
type TextOptions struct {
	// Color enables ANSI colors.
	Color bool

	// Verbose adds parse statistics when the report carries them.
	Verbose bool
}

// Render writes rep to w in format.
func Render(w io.Writer, format Format, rep *Report, opts TextOptions) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rep)
	case FormatText, "":
		return RenderText(w, rep, opts)
	default:
		return fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
	}
}

// RenderText writes the human-readable result card.
func RenderText(w io.Writer, rep *Report, opts TextOptions) error {
	p := &printer{w: w, color: opts.Color}
	r := rep.Result
	verdict := VerdictFor(r.Percentage)

	p.line(p.paint(ColorBold, "Chat Analysis Results"))
	p.line(strings.Repeat("-", 60))
	p.line("")
	p.line(fmt.Sprintf("%s  %s", p.paint(ColorBold+verdict.Color, fmt.Sprintf("%d%%", r.Percentage)), verdict.Label))
	p.line(scoreBar(r.Percentage, 40))
	p.line(fmt.Sprintf("Based on %d messages analyzed", r.TotalMessages))
	p.line("")

	p.line(fmt.Sprintf("  %-16s %8d   %s", "Total Messages", r.TotalMessages,
		FormatPoints(r.MessageScore, int(engagement.MaxMessageScore))))
	p.line(fmt.Sprintf("  %-16s %8s   %s", "Avg Reply Time", FormatReplyTime(r.AverageReplyTime),
		FormatPoints(r.ReplyTimeScore, int(engagement.MaxReplyTimeScore))))
	p.line(fmt.Sprintf("  %-16s %8d   %s", "Total Emojis", r.TotalEmojis,
		FormatPoints(r.EmojiScore, int(engagement.MaxEmojiScore))))

	if r.Summary != "" {
		p.line("")
		p.line(p.paint(ColorBold, "Chat Summary"))
		p.line("  " + r.Summary)
	}

	if len(r.TopEmojis) > 0 {
		p.line("")
		p.line(p.paint(ColorBold, "Top Emojis Used"))
		parts := make([]string, 0, len(r.TopEmojis))
		for _, e := range r.TopEmojis {
			parts = append(parts, fmt.Sprintf("%s %dx", e.Emoji, e.Count))
		}
		p.line("  " + strings.Join(parts, "   "))
	}

	if opts.Verbose && rep.Stats != nil {
		s := rep.Stats
		p.line("")
		p.line(p.paint(ColorBold, "Parse Details"))
		p.line(fmt.Sprintf("  Lines:              %d", s.Lines))
		p.line(fmt.Sprintf("  Without timestamp:  %d", s.NoTimestampLines))
		p.line(fmt.Sprintf("  Invalid dates:      %d", s.InvalidDates))
		p.line(fmt.Sprintf("  Participants:       %s", joinOrNone(s.Participants)))
		p.line(fmt.Sprintf("  Reply samples:      %d", s.ReplySamples))
		p.line(fmt.Sprintf("  Conversation days:  %d", len(s.ConversationDays)))
		p.line(fmt.Sprintf("  Distinct emojis:    %d", s.DistinctEmojis))
		if s.FirstMessage != nil && s.LastMessage != nil {
			p.line(fmt.Sprintf("  Span:               %s to %s",
				s.FirstMessage.Format(time.DateTime), s.LastMessage.Format(time.DateTime)))
		}
	}
	if rep.RunID != "" && opts.Verbose {
		p.line(fmt.Sprintf("  Run ID:             %s", rep.RunID))
	}

	return p.err
}

// printer remembers the first write error.
type printer struct {
	w     io.Writer
	color bool
	err   error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *printer) paint(c Color, s string) string {
	if !p.color {
		return s
	}
	return string(c) + s + string(ColorReset)
}

// scoreBar draws percentage as a bar of width cells.
func scoreBar(percentage, width int) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	filled := percentage * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
