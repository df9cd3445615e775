package engagement

import "math"

// Subscore caps and saturation points.
const (
	MaxMessageScore   = 40.0
	MaxReplyTimeScore = 30.0
	MaxEmojiScore     = 30.0

	// NeutralReplyTimeScore is used when no reply gap was measured.
	NeutralReplyTimeScore = 15.0

	MessageSaturation = 100
	EmojiSaturation   = 50

	// replyMinutesPerPoint is how many minutes of average reply time cost
	// one point of reply time score.
	replyMinutesPerPoint = 10.0
)

// Score holds the three subscores and the overall percentage.
type Score struct {
	Message    float64
	ReplyTime  float64
	Emoji      float64
	Percentage int
}

// MessageScore grows linearly with message count and saturates at 40.
func MessageScore(totalMessages int) float64 {
	if totalMessages <= 0 {
		return 0
	}
	return math.Min(float64(totalMessages)/MessageSaturation*MaxMessageScore, MaxMessageScore)
}

// ReplyTimeScore loses one point per ten minutes of average reply time,
// bottoming out at 0. Without a measurement it returns the neutral 15.
func ReplyTimeScore(averageReplyMinutes float64) float64 {
	if !(averageReplyMinutes > 0) {
		return NeutralReplyTimeScore
	}
	return math.Max(0, MaxReplyTimeScore-averageReplyMinutes/replyMinutesPerPoint)
}

// EmojiScore grows linearly with emoji count and saturates at 30.
func EmojiScore(totalEmojis int) float64 {
	if totalEmojis <= 0 {
		return 0
	}
	return math.Min(float64(totalEmojis)/EmojiSaturation*MaxEmojiScore, MaxEmojiScore)
}

// Percentage rounds the subscore sum and clamps it to [0, 100].
func Percentage(message, replyTime, emoji float64) int {
	p := int(math.Round(message + replyTime + emoji))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// ComputeScore maps the three signals to subscores and a percentage.
func ComputeScore(totalMessages int, averageReplyMinutes float64, totalEmojis int) Score {
	s := Score{
		Message:   MessageScore(totalMessages),
		ReplyTime: ReplyTimeScore(averageReplyMinutes),
		Emoji:     EmojiScore(totalEmojis),
	}
	s.Percentage = Percentage(s.Message, s.ReplyTime, s.Emoji)
	return s
}
