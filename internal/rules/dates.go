package rules

import (
	"fmt"
	"strings"
	"time"
)

var flexibleLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2/1/2006",
	"2-1-2006",
	"2/1/06",
	"2-1-06",
}

// ParseFlexibleDate accepts the date formats that show up on uploaded
// vouchers: ISO, day-first with slashes or dashes, and two-digit years,
// which always mean 20xx.
func ParseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("ParseFlexibleDate: empty input")
	}
	for _, layout := range flexibleLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 2000 {
			t = t.AddDate(100, 0, 0)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("ParseFlexibleDate: unrecognized date %q", s)
}

// dayOf truncates to midnight UTC so lateness is counted in whole calendar
// days, not elapsed hours.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
