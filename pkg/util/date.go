package util

import (
	"strconv"
	"strings"
	"time"
)

// Display layouts follow the id-ID locale: day/month/year and a 24-hour clock
// with dots between hour, minute and second.
const (
	DisplayLayout = "2/1/2006, 15.04.05"
	ClockDate     = "02/01/2006"
	ClockTime     = "15.04.05"
)

// naiveLayouts are offset-less timestamps; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime tries RFC3339 (with or without fraction), naive ISO timestamps as UTC,
// and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// FormatDisplay renders t in loc using DisplayLayout.
func FormatDisplay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DisplayLayout)
}

// FormatTimestamp parses a backend timestamp and renders it for display.
// Unparseable input is returned unchanged so the user still sees something.
func FormatTimestamp(s string, loc *time.Location) string {
	t, ok := ParseTime(s)
	if !ok {
		return s
	}
	return FormatDisplay(t, loc)
}
