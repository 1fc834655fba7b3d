// Package timecode parses and formats the human time strings used by
// investigation timelines: 24-hour "H:MM[:SS]" and 12-hour "H:MM a.m./p.m."
// forms, projected to a comparable minute-of-day value.
package timecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MinutesPerDay is the wraparound modulus for midnight-crossing spans.
const MinutesPerDay = 24 * 60

var meridiemRe = regexp.MustCompile(`(?i)(\d+):(\d+)\s*(a\.m\.|p\.m\.|am|pm)`)

// ParseToMinutes converts a time string to minutes since local midnight.
// It accepts "H:MM", "H:MM:SS" (seconds ignored) and "H:MM am|pm|a.m.|p.m."
// (case-insensitive). 12 a.m. maps to 0, 12 p.m. to 720. Malformed or empty
// input yields 0; the parser never fails.
func ParseToMinutes(s string) int {
	if s == "" {
		return 0
	}

	if m := meridiemRe.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		isPM := strings.HasPrefix(strings.ToLower(m[3]), "p")

		if isPM && hours != 12 {
			hours += 12
		}
		if !isPM && hours == 12 {
			hours = 0
		}
		return hours*60 + minutes
	}

	parts := strings.Split(s, ":")
	if len(parts) >= 2 {
		hours, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
		minutes, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errH == nil && errM == nil {
			return hours*60 + minutes
		}
	}

	return 0
}

// FormatTo12Hour converts a 24-hour "H:MM[:SS]" string to "h:MM a.m./p.m."
// display form, zero-padding minutes and seconds. Input already carrying a
// meridiem marker is returned unchanged, as is anything unparseable.
// Seconds are included when includeSeconds is true or the input carried them.
func FormatTo12Hour(s string, includeSeconds bool) string {
	if s == "" {
		return ""
	}

	if meridiemRe.MatchString(s) {
		return s
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return s
	}

	hours, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
	minutes, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errH != nil || errM != nil {
		return s
	}

	seconds := 0
	if len(parts) >= 3 {
		seconds, _ = strconv.Atoi(strings.TrimSpace(parts[2]))
	}

	isPM := hours >= 12
	switch {
	case hours == 0:
		hours = 12
	case hours > 12:
		hours -= 12
	}

	period := "a.m."
	if isPM {
		period = "p.m."
	}

	if includeSeconds || len(parts) >= 3 {
		return fmt.Sprintf("%d:%02d:%02d %s", hours, minutes, seconds, period)
	}
	return fmt.Sprintf("%d:%02d %s", hours, minutes, period)
}

// Span returns the duration in minutes from start to end, treating a
// negative difference as a midnight crossing. This rule applies uniformly
// wherever durations or offsets are computed.
func Span(startMinutes, endMinutes int) int {
	d := endMinutes - startMinutes
	if d < 0 {
		d += MinutesPerDay
	}
	return d
}

// FormatClock renders a second count as "M:SS", or "H:MM:SS" once the
// value reaches an hour. Used for in-clip elapsed/total displays.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
