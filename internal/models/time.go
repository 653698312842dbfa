package models

import "time"

// EventTimeLayout — нормализованный формат времени событий трекинга.
const EventTimeLayout = "2006-01-02 15:04:05"

// ParseEventTime parses a normalized event timestamp, falling back to raw
// ISO-8601 for values that skipped normalization.
func ParseEventTime(s string) (time.Time, bool) {
	if t, err := time.Parse(EventTimeLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
