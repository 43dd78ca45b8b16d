package repository

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateErrKeepsShortMessages(t *testing.T) {
	msg := "connection refused"
	if got := truncateErr(msg); got != msg {
		t.Fatalf("truncateErr(%q) = %q, want unchanged", msg, got)
	}
}

func TestTruncateErrBoundsLongMessages(t *testing.T) {
	msg := strings.Repeat("x", 600)
	got := truncateErr(msg)
	if len(got) > 500 {
		t.Fatalf("truncated length = %d, want <= 500", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("truncated message %q should end with an ellipsis", got[len(got)-10:])
	}
}

func TestTruncateErrNeverSplitsRunes(t *testing.T) {
	// A multi-byte rune straddling the cut point must be dropped
	// whole, not sliced mid-sequence.
	msg := strings.Repeat("ש", 300) // 2 bytes each, 600 bytes total
	got := truncateErr(msg)
	if len(got) > 500 {
		t.Fatalf("truncated length = %d, want <= 500", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated message is not valid UTF-8: %q", got)
	}
}
