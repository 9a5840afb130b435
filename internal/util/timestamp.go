package util

import (
	"fmt"
	"time"
)

// TimestampLayout is the stored form of instants: UTC, fixed width, so
// string order matches time order in every dialect.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// DateLayout is the stored and submitted form of calendar dates.
const DateLayout = "2006-01-02"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses TimestampLayout, falling back to RFC 3339.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatTimestampPtr renders t, or returns nil for a nil t.
func FormatTimestampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTimestamp(*t)
	return &s
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
