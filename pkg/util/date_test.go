package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestDayKeyRoundTrip(t *testing.T) {
	ts := time.Date(2024, 10, 10, 23, 59, 0, 0, time.UTC)
	key := DayKey(ts)
	if key != "2024-10-10" {
		t.Fatalf("unexpected key %s", key)
	}
	back := ParseDay(key)
	if back.Year() != 2024 || back.Month() != time.October || back.Day() != 10 {
		t.Fatalf("unexpected round trip %v", back)
	}
}

func TestDayCutoffOrdering(t *testing.T) {
	now := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)
	cutoff := DayCutoff(now, 5)
	if cutoff != "2024-10-05" {
		t.Fatalf("unexpected cutoff %s", cutoff)
	}
	// keys compare lexicographically in date order
	if !(DayKey(now) >= cutoff) {
		t.Fatalf("today should be inside the window")
	}
	old := DayKey(now.AddDate(0, 0, -6))
	if old >= cutoff {
		t.Fatalf("six days ago should be outside the window")
	}
}

func TestParseDayInvalid(t *testing.T) {
	if !ParseDay("garbage").IsZero() {
		t.Fatalf("expected zero time")
	}
}
