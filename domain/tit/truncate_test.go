package tit

import "testing"

func TestTruncate_UnderLimitUnchanged(t *testing.T) {
	s := "a short tool output"
	got, truncated := truncate(s)
	if truncated {
		t.Error("expected no truncation for short input")
	}
	if got != s {
		t.Errorf("expected unchanged string, got %q", got)
	}
}

func TestTruncate_OverLimit(t *testing.T) {
	long := make([]byte, maxFieldBytes+500)
	for i := range long {
		long[i] = 'x'
	}

	got, truncated := truncate(string(long))
	if !truncated {
		t.Fatal("expected truncation for oversized input")
	}
	if len(got) <= maxFieldBytes {
		t.Errorf("expected truncated output to include a marker beyond the limit, got length %d", len(got))
	}
}

func TestTruncate_ExactlyAtLimit(t *testing.T) {
	exact := make([]byte, maxFieldBytes)
	_, truncated := truncate(string(exact))
	if truncated {
		t.Error("expected no truncation exactly at the limit")
	}
}
