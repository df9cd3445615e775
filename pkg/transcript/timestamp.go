package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Timestamp grammars. Both are anchored to the start of the line; leading
// whitespace and the invisible direction/BOM marks some exporters emit are
// tolerated.
var (
	// Matches: [1/1/24, 10:00:00] or [01/12/2024, 9:05:07] or [1/1/24, 9:05:07 PM]
	bracketedRegex = regexp.MustCompile(`^[\s\x{200E}\x{200F}\x{FEFF}]*\[(\d{1,2})/(\d{1,2})/(\d{4}|\d{2}), (\d{1,2}):(\d{2}):(\d{2})(?:[ \x{00A0}\x{202F}]?([aApP][mM]))?\]`)

	// Matches: 1/1/24, 10:00 - | 1/1/24, 9:05:07 pm - | 1/1/24, 9:05pm
	// The space before the marker may be a regular, no-break or narrow
	// no-break space.
	dashedRegex = regexp.MustCompile(`^[\s\x{200E}\x{200F}\x{FEFF}]*(\d{1,2})/(\d{1,2})/(\d{4}|\d{2}), (\d{1,2}):(\d{2})(?::(\d{2}))?[ \x{00A0}\x{202F}]?(?:([aApP][mM])\b)?(?:\s*-)?`)
)

// Meridiem markers.
const (
	MeridiemNone = ""
	MeridiemAM   = "am"
	MeridiemPM   = "pm"
)

// stamp holds the raw fields of a recognized timestamp.
type stamp struct {
	Layout   Layout
	Day      int
	Month    int
	Year     int
	Hour     int
	Minute   int
	Second   int
	Meridiem string
	End      int // byte offset just past the match
}

// matchTimestamp tries the bracketed grammar first, then the dashed one.
func matchTimestamp(line string) (stamp, bool) {
	if m := bracketedRegex.FindStringSubmatchIndex(line); m != nil {
		return stampFromMatch(line, m, LayoutBracketed), true
	}
	if m := dashedRegex.FindStringSubmatchIndex(line); m != nil {
		return stampFromMatch(line, m, LayoutDashed), true
	}
	return stamp{}, false
}

func stampFromMatch(line string, m []int, layout Layout) stamp {
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return line[m[2*i]:m[2*i+1]]
	}
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}

	return stamp{
		Layout:   layout,
		Day:      atoi(group(1)),
		Month:    atoi(group(2)),
		Year:     NormalizeYear(group(3)),
		Hour:     atoi(group(4)),
		Minute:   atoi(group(5)),
		Second:   atoi(group(6)),
		Meridiem: strings.ToLower(group(7)),
		End:      m[1],
	}
}

// NormalizeYear turns a 2-digit year into 20YY; 4-digit years pass through.
func NormalizeYear(digits string) int {
	if len(digits) == 2 {
		digits = "20" + digits
	}
	year, _ := strconv.Atoi(digits)
	return year
}

// To24Hour converts an hour read next to an am/pm marker to the 24-hour clock.
// "pm" adds 12 to hours 1..11, "am" maps 12 to 0, anything else is unchanged.
func To24Hour(hour int, meridiem string) int {
	switch {
	case meridiem == MeridiemPM && hour >= 1 && hour <= 11:
		return hour + 12
	case meridiem == MeridiemAM && hour == 12:
		return 0
	default:
		return hour
	}
}

// Time builds the timestamp in loc. It rejects calendar dates and clock
// readings that do not exist instead of letting time.Date normalize them.
// A wall time inside a DST gap is kept and lands past the transition.
func (s stamp) Time(loc *time.Location) (time.Time, error) {
	hour := To24Hour(s.Hour, s.Meridiem)

	if s.Month < 1 || s.Month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", s.Month)
	}
	if s.Day < 1 || s.Day > daysIn(time.Month(s.Month), s.Year) {
		return time.Time{}, fmt.Errorf("day %d out of range for %04d-%02d", s.Day, s.Year, s.Month)
	}
	if hour > 23 {
		return time.Time{}, fmt.Errorf("hour %d out of range", hour)
	}
	if s.Minute > 59 {
		return time.Time{}, fmt.Errorf("minute %d out of range", s.Minute)
	}
	if s.Second > 59 {
		return time.Time{}, fmt.Errorf("second %d out of range", s.Second)
	}

	return time.Date(s.Year, time.Month(s.Month), s.Day, hour, s.Minute, s.Second, 0, loc), nil
}

// daysIn returns the number of days in month of year.
func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
