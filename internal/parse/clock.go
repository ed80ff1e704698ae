package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Clock is a wall-clock time of day in minutes since midnight.
type Clock int

// String renders the clock as zero-padded 24h "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns the clock shifted by d minutes. The result may pass 24:00;
// callers compare it against a same-day end boundary.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// ParseClock parses a 24h "HH:MM" wall-clock value. "9:05" is accepted and
// normalised; "24:00" and anything past it is rejected.
func ParseClock(raw string) (Clock, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", raw)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if h > 23 || min > 59 {
		return 0, fmt.Errorf("invalid clock %q: out of range", raw)
	}
	return Clock(h*60 + min), nil
}

// ParseDate parses a calendar day in "YYYY-MM-DD" form. The result is
// midnight UTC; only the day matters.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	return d, nil
}

// FormatDate renders t's calendar day as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
