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

func TestParseStampClock(t *testing.T) {
	got, ok := ParseStamp("10:17:00")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Hour() != 10 || got.Minute() != 17 || got.Second() != 0 {
		t.Fatalf("unexpected clock %v", got)
	}
}

func TestParseStampShiftWindow(t *testing.T) {
	anchor, ok := ParseStamp("10:17:00")
	if !ok {
		t.Fatalf("expected ok")
	}
	lo := anchor.Add(-120 * time.Second)
	inside, _ := ParseStamp("10:15:01")
	outside, _ := ParseStamp("10:14:59")
	if inside.Before(lo) {
		t.Fatalf("10:15:01 should be inside a 120s window before 10:17:00")
	}
	if !outside.Before(lo) {
		t.Fatalf("10:14:59 should be outside a 120s window before 10:17:00")
	}
}

func TestParseStampDatetime(t *testing.T) {
	got, ok := ParseStamp("2024-03-01 09:31:05")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Hour() != 9 || got.Minute() != 31 {
		t.Fatalf("unexpected time %v", got)
	}
}
