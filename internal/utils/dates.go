package utils

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates (day first, as the
// club has always written them).
const DateLayout = "02-01-2006"

// dateLayouts lists the accepted input spellings.
var dateLayouts = []string{DateLayout, "02/01/2006", "2006-01-02"}

// ParseDate parses a calendar date and normalizes it to midnight UTC.
// Day boundaries are the only time arithmetic the domain performs.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want %s)", s, DateLayout)
}

// FormatDate renders a date in the wire format.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// Today returns the current calendar date at midnight UTC.
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// MondayOf returns the Monday of the week containing t. The week
// always starts Monday.
func MondayOf(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
