package engagement

import (
	"math"
	"time"

	"github.com/otherjamesbrown/chatpulse/pkg/transcript"
)

const (
	// MaxReplyGapMinutes is the exclusive upper bound for a reply gap.
	MaxReplyGapMinutes = 720.0

	// DayStartHour is the local hour a conversational day begins at.
	DayStartHour = 6

	dayKeyLayout = "2006-01-02"
)

// ConversationalDay returns the day key a reply at t belongs to. Replies
// before DayStartHour count toward the previous calendar date.
func ConversationalDay(t time.Time) string {
	y, m, d := t.Date()
	if t.Hour() < DayStartHour {
		d--
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format(dayKeyLayout)
}

// ReplyGap returns the minutes between prev and curr and whether the pair is
// a genuine reply: different senders and a gap inside (0, 720).
func ReplyGap(prev, curr transcript.Message) (float64, bool) {
	if curr.Sender == prev.Sender {
		return 0, false
	}
	gap := math.Abs(curr.Timestamp.Sub(prev.Timestamp).Minutes())
	if gap <= 0 || gap >= MaxReplyGapMinutes {
		return 0, false
	}
	return gap, true
}

type dayBucket struct {
	sum   float64
	count int
}

// LatencyAggregator accumulates reply gaps into conversational day buckets.
// Each run owns its aggregator; it is not safe for concurrent use.
type LatencyAggregator struct {
	buckets map[string]*dayBucket
	days    []string
	samples int
}

// NewLatencyAggregator creates an empty aggregator.
func NewLatencyAggregator() *LatencyAggregator {
	return &LatencyAggregator{buckets: make(map[string]*dayBucket)}
}

// Observe considers the adjacent pair (prev, curr) and reports whether it
// was counted as a reply.
func (a *LatencyAggregator) Observe(prev, curr transcript.Message) bool {
	gap, ok := ReplyGap(prev, curr)
	if !ok {
		return false
	}

	key := ConversationalDay(curr.Timestamp)
	b, exists := a.buckets[key]
	if !exists {
		b = &dayBucket{}
		a.buckets[key] = b
		a.days = append(a.days, key)
	}
	b.sum += gap
	b.count++
	a.samples++
	return true
}

// Samples returns the number of reply gaps counted.
func (a *LatencyAggregator) Samples() int {
	return a.samples
}

// Days returns the conversational days with at least one reply, in the
// order they were first seen.
func (a *LatencyAggregator) Days() []string {
	return append([]string(nil), a.days...)
}

// Average returns the unweighted mean of the per-day average gaps, rounded
// to two decimals, or 0 when no reply was counted.
func (a *LatencyAggregator) Average() float64 {
	if len(a.days) == 0 {
		return 0
	}
	var total float64
	for _, key := range a.days {
		b := a.buckets[key]
		total += b.sum / float64(b.count)
	}
	return roundTo(total/float64(len(a.days)), 2)
}

// AverageReplyTime runs a fresh aggregator over msgs in order.
func AverageReplyTime(msgs []transcript.Message) float64 {
	a := NewLatencyAggregator()
	for i := 1; i < len(msgs); i++ {
		a.Observe(msgs[i-1], msgs[i])
	}
	return a.Average()
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
