package availability

import (
	"fmt"
	"regexp"
)

// clockRe accepts HH:MM and HH:MM:SS on minute boundaries. Appointment and
// business-hour times are stored with zero seconds, so nonzero seconds are a
// data error, not a format variant.
var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?$`)

// ParseClock converts an HH:MM:SS (or HH:MM) string to minutes since
// midnight.
func ParseClock(s string) (int, error) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("availability: malformed time %q", s)
	}
	if m[3] != "" && m[3] != "00" {
		return 0, fmt.Errorf("availability: time %q not on a minute boundary", s)
	}
	hour := int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	minute := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as zero-padded HH:MM:SS.
// Zero padding keeps lexicographic ordering equal to chronological ordering.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}

// NormalizeClock expands a bare HH:MM into HH:MM:SS. Inputs already carrying
// seconds pass through unchanged; invalid shapes are returned as-is for the
// validator to reject.
func NormalizeClock(s string) string {
	m := clockRe.FindStringSubmatch(s)
	if m == nil || m[3] != "" {
		return s
	}
	return s + ":00"
}

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps implements the half-open-interval test: [a,b) and [c,d) overlap
// iff a < d and b > c.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && i.End > other.Start
}
