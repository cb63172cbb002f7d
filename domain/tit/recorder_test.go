package tit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_DisabledPassesThrough(t *testing.T) {
	r := NewRecorder(nil, discardLogger(), false)

	out, err := r.Wrap(context.Background(), "sess-1", "step-1", BoundaryCapability, "filereader", nil, func() (any, error) {
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Errorf("expected passthrough result %q, got %q", "ok", out)
	}
}

func TestRecorder_ReturnsCallResultEvenWhenPersistFails(t *testing.T) {
	// repo.db is nil, so Repository.Create will panic reaching into the
	// bun.IDB interface; Wrap must still surface the wrapped call's own
	// result untouched.
	repo := NewRepository(nil)
	r := NewRecorder(repo, discardLogger(), true)

	wantErr := errors.New("tool exploded")
	out, err := r.Wrap(context.Background(), "sess-1", "step-1", BoundaryLLM, "model-call", "input", func() (any, error) {
		return nil, wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped call's own error to surface, got %v", err)
	}
	if out != nil {
		t.Errorf("expected nil output, got %v", out)
	}
}

func TestRecorder_SuccessfulCallUnaffectedByTraceFailure(t *testing.T) {
	repo := NewRepository(nil)
	r := NewRecorder(repo, discardLogger(), true)

	out, err := r.Wrap(context.Background(), "sess-1", "step-2", BoundaryProcess, "subprocess", map[string]any{"cmd": "ls"}, func() (any, error) {
		return map[string]any{"exit_code": 0}, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok || m["exit_code"] != 0 {
		t.Errorf("expected call result to pass through unchanged, got %v", out)
	}
}
