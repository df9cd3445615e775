// Package transcript turns exported chat transcripts (one line per message)
// into structured messages.
package transcript

import "time"

// Layout identifies the timestamp grammar a line was recognized with.
type Layout string

const (
	// LayoutBracketed is "[D/M/YY, H:MM:SS] Sender: message".
	LayoutBracketed Layout = "bracketed"
	// LayoutDashed is "D/M/YY, H:MM[:SS][ am|pm] - Sender: message".
	LayoutDashed Layout = "dashed"
)

// Line is a single non-empty line of transcript text.
type Line struct {
	Number int    // 1-based position in the original text
	Text   string // line content without the trailing line break
}

// Message is a transcript line whose timestamp was recognized and valid.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	Layout    Layout    `json:"layout"`
	Line      int       `json:"line"`
}

// Status describes what happened to a line during extraction.
type Status int

const (
	// StatusMessage means the line produced a Message.
	StatusMessage Status = iota
	// StatusNoTimestamp means neither timestamp grammar matched.
	StatusNoTimestamp
	// StatusInvalidDate means a timestamp matched but is not a real date/time.
	StatusInvalidDate
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusMessage:
		return "message"
	case StatusNoTimestamp:
		return "no_timestamp"
	case StatusInvalidDate:
		return "invalid_date"
	default:
		return "unknown"
	}
}

// Extraction is the output of running the extractor over a whole transcript.
type Extraction struct {
	Messages     []Message `json:"messages"`
	Lines        int       `json:"lines"`
	NoTimestamp  int       `json:"no_timestamp"`
	InvalidDates int       `json:"invalid_dates"`
}

// Participants returns the distinct senders in first-seen order.
func (e *Extraction) Participants() []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, m := range e.Messages {
		if !seen[m.Sender] {
			seen[m.Sender] = true
			out = append(out, m.Sender)
		}
	}
	return out
}
