package util

import (
	"testing"
	"unicode/utf8"
)

func TestTruncateShortInputUnchanged(t *testing.T) {
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Fatalf("n<=0 should be a no-op, got %q", got)
	}
}

func TestTruncateCountsCharacters(t *testing.T) {
	if got := Truncate("abcdef", 4); got != "abcd" {
		t.Fatalf("unexpected %q", got)
	}

	// 6 CJK characters, 18 bytes: the limit is characters, not bytes
	if got := Truncate("利好公告发布", 4); got != "利好公告" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestTruncateNeverSplitsRune(t *testing.T) {
	s := "利好公告发布"
	for n := 1; n < 8; n++ {
		got := Truncate(s, n)
		if !utf8.ValidString(got) {
			t.Fatalf("invalid UTF-8 at n=%d: %q", n, got)
		}
		if utf8.RuneCountInString(got) > n {
			t.Fatalf("n=%d kept %d characters", n, utf8.RuneCountInString(got))
		}
	}
}
