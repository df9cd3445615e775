package report

import (
	"fmt"
	"math"
	"strconv"
)

// Color is an ANSI color escape.
type Color string

const (
	ColorRed    Color = "\033[31m"
	ColorYellow Color = "\033[33m"
	ColorBlue   Color = "\033[34m"
	ColorBold   Color = "\033[1m"
	ColorReset  Color = "\033[0m"
)

// Verdict is the headline shown for an overall percentage.
type Verdict struct {
	Label string
	Color Color
}

// Verdict thresholds
const (
	HighInterestThreshold     = 70
	ModerateInterestThreshold = 40
)

// VerdictFor returns the verdict band for percentage.
func VerdictFor(percentage int) Verdict {
	switch {
	case percentage >= HighInterestThreshold:
		return Verdict{Label: "\U0001F525 High Interest Detected!", Color: ColorRed}
	case percentage >= ModerateInterestThreshold:
		return Verdict{Label: "⭐ Moderate Interest Found", Color: ColorYellow}
	default:
		return Verdict{Label: "\U0001F4AD Casual Interest Detected", Color: ColorBlue}
	}
}

// FormatReplyTime renders an average reply time in minutes as "N/A",
// "Xm" or "Hh Mm".
func FormatReplyTime(minutes float64) string {
	if !(minutes > 0) {
		return "N/A"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", int(math.Floor(minutes+0.5)))
	}
	hours := int(math.Floor(minutes / 60))
	rest := int(math.Floor(math.Mod(minutes, 60) + 0.5))
	return fmt.Sprintf("%dh %dm", hours, rest)
}

// FormatPoints renders a subscore as "x.y/max points".
func FormatPoints(score float64, max int) string {
	return fmt.Sprintf("%s/%d points", oneDecimal(score), max)
}

// oneDecimal formats v with one decimal place. Exact binary halves such as
// 29.25 round up rather than to even.
func oneDecimal(v float64) string {
	if v >= 0 && math.Mod(v*4, 1) == 0 && math.Mod(v*2, 1) != 0 {
		return strconv.FormatFloat(math.Ceil(v*10)/10, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
