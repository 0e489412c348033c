package main

import (
	"fmt"
	"strings"
	"time"
)

var localLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// parseWhen reads a schedule time relative to now. It accepts a duration
// ("90m", "+2h"), RFC 3339, a local date and time ("2006-01-02 15:04"), or a
// local clock time ("21:30") which means the next occurrence.
func parseWhen(value string, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("schedule time required")
	}

	if d, err := time.ParseDuration(strings.TrimPrefix(v, "+")); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("schedule time %q is in the past", value)
		}
		return now.Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, v, now.Location()); err == nil {
			return t, nil
		}
	}
	if clock, err := time.ParseInLocation("15:04", v, now.Location()); err == nil {
		t := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised schedule time %q (use 2h, 21:30, 2006-01-02 15:04 or RFC 3339)", value)
}
