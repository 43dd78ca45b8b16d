package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCaptureWriterWithinLimit(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), limit: 64}
	body := strings.Repeat("a", 40)
	if _, err := cw.Write([]byte(body)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if cw.truncated() {
		t.Fatal("a body under the limit must not report truncation")
	}
	if got := cw.buf.String(); got != body {
		t.Fatalf("captured %d bytes, want %d", len(got), len(body))
	}
}

func TestCaptureWriterOversizedBodyIsDetected(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), limit: 64}
	if _, err := cw.Write([]byte(strings.Repeat("a", 100))); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !cw.truncated() {
		t.Fatal("a body over the limit must report truncation")
	}
	if cw.buf.Len() != 64 {
		t.Fatalf("buffer holds %d bytes, want capped at 64", cw.buf.Len())
	}
}

func TestCaptureWriterCountsPastExactLimit(t *testing.T) {
	// A write that lands exactly on the limit followed by more data
	// still counts as truncated; every byte is tallied even after the
	// buffer stops growing.
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), limit: 64}
	if _, err := cw.Write([]byte(strings.Repeat("a", 64))); err != nil {
		t.Fatalf("write: %v", err)
	}
	if cw.truncated() {
		t.Fatal("exactly at the limit is not truncation")
	}
	if _, err := cw.Write([]byte("b")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !cw.truncated() {
		t.Fatal("bytes past the limit must flip the truncation flag")
	}
	if cw.buf.Len() != 64 {
		t.Fatalf("buffer holds %d bytes, want capped at 64", cw.buf.Len())
	}
}

func TestCaptureWriterNoLimit(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), limit: 0}
	if _, err := cw.Write([]byte(strings.Repeat("a", 1000))); err != nil {
		t.Fatalf("write: %v", err)
	}
	if cw.truncated() {
		t.Fatal("limit 0 disables the cap and never truncates")
	}
	if cw.buf.Len() != 1000 {
		t.Fatalf("buffer holds %d bytes, want the full body", cw.buf.Len())
	}
}
