package analysis_test

import (
	"strings"
	"testing"

	"reviewpulse/internal/analysis"
)

func TestScrubPII(t *testing.T) {
	cases := []struct{ in, want string }{
		{"contact me at jane.doe@example.com please", "contact me at [EMAIL] please"},
		{"call 5551234567 now", "call [PHONE] now"},
		{"call 555-123-4567 now", "call [PHONE] now"},
		{"no pii here", "no pii here"},
		{"two: a@b.io and 555 123 4567", "two: [EMAIL] and [PHONE]"},
	}
	for _, c := range cases {
		if got := analysis.ScrubPII(c.in); got != c.want {
			t.Fatalf("ScrubPII(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := analysis.Truncate("hello", 10); got != "hello" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := analysis.Truncate(strings.Repeat("x", 300), 200); len(got) != 200 {
		t.Fatalf("len = %d, want 200", len(got))
	}
	// rune-safe: must not split multibyte characters
	if got := analysis.Truncate("héllо wörld", 4); got != "héll" {
		t.Fatalf("unicode truncate = %q", got)
	}
	if got := analysis.Truncate("abc", 0); got != "abc" {
		t.Fatalf("zero cap should disable truncation, got %q", got)
	}
}
