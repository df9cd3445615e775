package engagement

import "strings"

// band pairs a predicate on a signal with the sentence it selects.
// Bands are evaluated in order and the first match wins.
type band[T any] struct {
	match    func(T) bool
	sentence string
}

func pick[T any](bands []band[T], v T) string {
	for _, b := range bands {
		if b.match(v) {
			return b.sentence
		}
	}
	return ""
}

func always[T any](T) bool { return true }

var volumeBands = []band[int]{
	{func(n int) bool { return n > 200 }, "Very active conversation with frequent messaging."},
	{func(n int) bool { return n > 100 }, "Moderately active chat with good engagement."},
	{always[int], "Limited conversation history analyzed."},
}

var speedBands = []band[float64]{
	{func(m float64) bool { return m < 5 }, "Very responsive with quick replies."},
	{func(m float64) bool { return m < 15 }, "Good response time between messages."},
	{always[float64], "Slower response patterns observed."},
}

var emojiBands = []band[int]{
	{func(n int) bool { return n > 50 }, "Highly expressive with frequent emoji usage."},
	{func(n int) bool { return n > 20 }, "Moderate emotional expression through emojis."},
	{always[int], "Limited emoji usage in conversations."},
}

var overallBands = []band[int]{
	{func(p int) bool { return p >= 70 }, "Strong indicators of romantic interest and connection."},
	{func(p int) bool { return p >= 40 }, "Shows potential for meaningful connection."},
	{always[int], "Suggests casual friendship level interaction."},
}

// VolumeSentence describes the message count.
func VolumeSentence(totalMessages int) string { return pick(volumeBands, totalMessages) }

// SpeedSentence describes the average reply time. It is empty when no reply
// time was measured.
func SpeedSentence(averageReplyMinutes float64) string {
	if !(averageReplyMinutes > 0) {
		return ""
	}
	return pick(speedBands, averageReplyMinutes)
}

// EmojiSentence describes the emoji count.
func EmojiSentence(totalEmojis int) string { return pick(emojiBands, totalEmojis) }

// OverallSentence describes the overall percentage.
func OverallSentence(percentage int) string { return pick(overallBands, percentage) }

// Summarize joins the volume, speed, emoji and overall sentences with
// single spaces, leaving out the speed sentence when it is empty.
func Summarize(totalMessages int, averageReplyMinutes float64, totalEmojis, percentage int) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{
		VolumeSentence(totalMessages),
		SpeedSentence(averageReplyMinutes),
		EmojiSentence(totalEmojis),
		OverallSentence(percentage),
	} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
