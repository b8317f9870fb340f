package reports

import (
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", "01/02/06", "1/2/06"}

// Open bounds used when a report date is missing or unparsable.
var (
	DefaultFrom = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	DefaultTo   = time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// ParseDate accepts YYYY-MM-DD, MM/DD/YYYY and MM/DD/YY.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateOr parses s and returns fallback when it is not a date.
func DateOr(s string, fallback time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return fallback
}

func datePtr(s string) *time.Time {
	if t, ok := ParseDate(s); ok {
		return &t
	}
	return nil
}
