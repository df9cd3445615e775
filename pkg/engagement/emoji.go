package engagement

import (
	"sort"
	"unicode"
	"unicode/utf8"
)

// VariationSelector16 requests emoji presentation for the preceding code point.
const VariationSelector16 = '\uFE0F'

// ScanEmojis returns every emoji in text in order of appearance.
//
// A code point with emoji presentation matches on its own. A code point that
// only has the Emoji property matches together with a following U+FE0F.
// Skin tone modifiers and regional indicators have emoji presentation, so
// they match as separate entries.
func ScanEmojis(text string) []string {
	var out []string
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.Is(EmojiPresentation, r):
			out = append(out, text[i:i+size])
		case unicode.Is(Emoji, r):
			next, nsize := utf8.DecodeRuneInString(text[i+size:])
			if next == VariationSelector16 {
				out = append(out, text[i:i+size+nsize])
				size += nsize
			}
		}
		i += size
	}
	return out
}

// EmojiCount is one entry of a ranked emoji list.
type EmojiCount struct {
	Emoji string `json:"emoji" yaml:"emoji" jsonschema:"required,description=The emoji grapheme as matched"`
	Count int    `json:"count" yaml:"count" jsonschema:"required,minimum=1"`
}

// EmojiTally counts emoji occurrences for a single analysis run.
// The zero value is ready to use. It is not safe for concurrent use.
type EmojiTally struct {
	counts map[string]int
	order  []string
	total  int
}

// Scan adds every emoji found in body and returns how many were found.
func (t *EmojiTally) Scan(body string) int {
	found := ScanEmojis(body)
	for _, e := range found {
		t.Add(e)
	}
	return len(found)
}

// Add records one occurrence of emoji.
func (t *EmojiTally) Add(emoji string) {
	if t.counts == nil {
		t.counts = make(map[string]int)
	}
	if _, ok := t.counts[emoji]; !ok {
		t.order = append(t.order, emoji)
	}
	t.counts[emoji]++
	t.total++
}

// Total returns the number of emoji occurrences recorded.
func (t *EmojiTally) Total() int {
	return t.total
}

// Count returns the occurrences of a single emoji.
func (t *EmojiTally) Count(emoji string) int {
	return t.counts[emoji]
}

// Distinct returns the number of distinct emojis recorded.
func (t *EmojiTally) Distinct() int {
	return len(t.order)
}

// Top returns up to n emojis ordered by descending count. Ties keep the
// order in which the emojis were first seen.
func (t *EmojiTally) Top(n int) []EmojiCount {
	ranked := make([]EmojiCount, 0, len(t.order))
	for _, e := range t.order {
		ranked = append(ranked, EmojiCount{Emoji: e, Count: t.counts[e]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
