package transcript

import (
	"strings"
	"time"

	"github.com/otherjamesbrown/chatpulse/pkg/logging"
)

// Extractor recognizes timestamped lines and splits them into sender and body.
// An Extractor holds no per-run state and is safe for concurrent use.
type Extractor struct {
	loc    *time.Location
	logger logging.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLocation sets the clock timestamps are read in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLogger sets the logger used to report skipped lines.
func WithLogger(logger logging.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger.With(logging.F("component", "extractor"))
		}
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		loc:    time.Local,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the clock the extractor reads timestamps in.
func (e *Extractor) Location() *time.Location {
	return e.loc
}

// ExtractLine parses a single line. The Message is only meaningful when the
// returned status is StatusMessage.
//
// The sender runs from the end of the timestamp to the first ":" and the body
// is everything after it, both trimmed. A colon inside a sender name therefore
// splits the name. A line with no colon after the timestamp yields the whole
// remainder as the sender and an empty body.
func (e *Extractor) ExtractLine(line Line) (Message, Status) {
	st, ok := matchTimestamp(line.Text)
	if !ok {
		return Message{}, StatusNoTimestamp
	}

	ts, err := st.Time(e.loc)
	if err != nil {
		e.logger.Warn("Skipping line with invalid date",
			logging.F("line", line.Number),
			logging.Err(err))
		return Message{}, StatusInvalidDate
	}

	rest := line.Text[st.End:]
	sender, body := rest, ""
	if idx := strings.Index(rest, ":"); idx >= 0 {
		sender, body = rest[:idx], rest[idx+1:]
	}

	return Message{
		Timestamp: ts,
		Sender:    strings.TrimSpace(sender),
		Body:      strings.TrimSpace(body),
		Layout:    st.Layout,
		Line:      line.Number,
	}, StatusMessage
}

// Extract runs the segmenter and extractor over a whole transcript. Messages
// keep their order of appearance; nothing is re-sorted.
func (e *Extractor) Extract(text string) *Extraction {
	lines := SplitLines(text)
	out := &Extraction{
		Messages: make([]Message, 0, len(lines)),
		Lines:    len(lines),
	}

	for _, line := range lines {
		msg, status := e.ExtractLine(line)
		switch status {
		case StatusMessage:
			out.Messages = append(out.Messages, msg)
		case StatusNoTimestamp:
			out.NoTimestamp++
			e.logger.Debug("Skipping line without timestamp", logging.F("line", line.Number))
		case StatusInvalidDate:
			out.InvalidDates++
		}
	}

	return out
}
