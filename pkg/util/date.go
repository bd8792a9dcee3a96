package util

import (
	"strconv"
	"time"
)

// DayLayout is the canonical calendar-day key used for daily buckets.
const DayLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
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

// DayKey formats t as its calendar-day bucket key.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// DayCutoff returns the day key N days before now. Keys compare
// lexicographically in date order, so `key >= cutoff` keeps the window.
func DayCutoff(now time.Time, days int) string {
	return now.AddDate(0, 0, -days).Format(DayLayout)
}

// ParseDay parses a day key back into a time, zero on failure.
func ParseDay(s string) time.Time {
	t, _ := time.Parse(DayLayout, s)
	return t
}
