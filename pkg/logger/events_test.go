package logger

import (
	"fmt"
	"testing"
)

func TestEventLogOrderAndEviction(t *testing.T) {
	ev := NewEventLog(3)
	for i := 1; i <= 5; i++ {
		ev.Append("replay", fmt.Sprintf("event %d", i))
	}

	if ev.Len() != 3 {
		t.Fatalf("len = %d, want 3", ev.Len())
	}
	got := ev.Recent(0)
	want := []string{"event 5", "event 4", "event 3"}
	for i, w := range want {
		if got[i].Message != w {
			t.Fatalf("recent[%d] = %q, want %q", i, got[i].Message, w)
		}
	}
}

func TestEventLogLimit(t *testing.T) {
	ev := NewEventLog(10)
	ev.Append("a", "one")
	ev.Append("b", "two")

	got := ev.Recent(1)
	if len(got) != 1 || got[0].Message != "two" {
		t.Fatalf("unexpected recent(1): %+v", got)
	}
	if got := ev.Recent(99); len(got) != 2 {
		t.Fatalf("recent(99) returned %d events", len(got))
	}
}
