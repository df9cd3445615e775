package transcript

import "strings"

// SplitLines splits raw transcript text into its non-empty lines.
// A line holding only whitespace is empty. A trailing "\r" is dropped so
// CRLF exports behave like LF exports; other content is left untouched.
func SplitLines(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for i, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, Line{Number: i + 1, Text: l})
	}
	return lines
}
