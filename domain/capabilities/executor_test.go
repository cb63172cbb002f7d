package capabilities

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/emergent-company/codeforge/domain/tit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecutor_RequiredToolFailureStopsAndRaisesStepFailure(t *testing.T) {
	boom := errors.New("boom")
	tools := map[string]Tool{
		"environment_guard": ToolFunc(func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, boom
		}),
		"subagentcaller": ToolFunc(func(ctx context.Context, args map[string]any) (map[string]any, error) {
			t.Fatal("core tool should not run after a required pre-tool failure")
			return nil, nil
		}),
	}
	recorder := tit.NewRecorder(nil, discardLogger(), false)
	exec := NewExecutor(tools, recorder, discardLogger())

	plan := ToolPlan{
		Step: "backend_implementation",
		Entries: []ToolInvocationPlan{
			{ToolName: "environment_guard", Required: true},
			{ToolName: "subagentcaller", Required: true},
		},
	}

	err := exec.Execute(context.Background(), plan, SessionContext{SessionID: "s1"})

	var stepFailure *StepFailure
	if !errors.As(err, &stepFailure) {
		t.Fatalf("expected *StepFailure, got %v", err)
	}
	if stepFailure.ToolName != "environment_guard" {
		t.Errorf("expected failure attributed to environment_guard, got %s", stepFailure.ToolName)
	}
}

func TestExecutor_OptionalToolFailureDoesNotStopExecution(t *testing.T) {
	ran := false
	tools := map[string]Tool{
		"filelister": ToolFunc(func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, errors.New("listing failed")
		}),
		"subagentcaller": ToolFunc(func(ctx context.Context, args map[string]any) (map[string]any, error) {
			ran = true
			return map[string]any{"ok": true}, nil
		}),
	}
	recorder := tit.NewRecorder(nil, discardLogger(), false)
	exec := NewExecutor(tools, recorder, discardLogger())

	plan := ToolPlan{
		Step: "backend_implementation",
		Entries: []ToolInvocationPlan{
			{ToolName: "filelister", Required: false},
			{ToolName: "subagentcaller", Required: true},
		},
	}

	err := exec.Execute(context.Background(), plan, SessionContext{SessionID: "s1"})
	if err != nil {
		t.Fatalf("expected optional tool failure to be swallowed, got %v", err)
	}
	if !ran {
		t.Error("expected core tool to still run after an optional tool failed")
	}
}
