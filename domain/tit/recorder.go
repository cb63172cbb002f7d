package tit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emergent-company/codeforge/pkg/logger"
)

// Recorder wraps the three boundary hook points (capability execution,
// LLM invocation, process execution) and writes one Invocation per call.
// It is fail-safe by construction: a trace write failure is logged and
// swallowed, never returned to the caller, and Wrap always returns
// exactly what the wrapped function returned. Disabling the trace (the
// opt-out) short-circuits Wrap to a plain passthrough.
type Recorder struct {
	repo    *Repository
	log     *slog.Logger
	enabled bool
}

// NewRecorder constructs a Recorder. enabled mirrors
// config.WorkflowConfig.TITEnabled; when false, Wrap calls straight
// through with no persistence attempted.
func NewRecorder(repo *Repository, log *slog.Logger, enabled bool) *Recorder {
	return &Recorder{repo: repo, log: log.With(logger.Scope("tit")), enabled: enabled}
}

// Wrap executes fn and persists one Invocation describing the call,
// regardless of whether fn succeeded. The persisted record never changes
// what Wrap returns to the caller.
func (r *Recorder) Wrap(ctx context.Context, sessionID, step string, boundary Boundary, toolName string, input any, fn func() (any, error)) (any, error) {
	return r.WrapAgent(ctx, sessionID, step, boundary, toolName, "", input, fn)
}

// WrapAgent is Wrap with an agent persona name attached — used at the LLM
// boundary, where a record is scoped to the persona that made the call.
func (r *Recorder) WrapAgent(ctx context.Context, sessionID, step string, boundary Boundary, toolName, agent string, input any, fn func() (any, error)) (any, error) {
	if !r.enabled {
		return fn()
	}

	start := time.Now()
	output, callErr := fn()
	duration := time.Since(start)

	r.persist(ctx, sessionID, step, boundary, toolName, agent, input, output, callErr, duration)

	return output, callErr
}

func (r *Recorder) persist(ctx context.Context, sessionID, step string, boundary Boundary, toolName, agent string, input, output any, callErr error, duration time.Duration) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("tool invocation trace panicked, dropping record",
				slog.String("session_id", sessionID),
				slog.String("tool", toolName),
				slog.Any("panic", p),
			)
		}
	}()

	inputText, outputText := marshalQuiet(input), marshalQuiet(output)
	status, errType, errText := StatusSuccess, "", ""
	if callErr != nil {
		errText = callErr.Error()
		errType = fmt.Sprintf("%T", callErr)
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			status = StatusTimeout
		case errors.Is(ctx.Err(), context.Canceled):
			status = StatusAborted
		default:
			status = StatusFailure
		}
	}

	inputText, inTrunc := truncate(inputText)
	outputText, outTrunc := truncate(outputText)
	errText, errTrunc := truncate(errText)

	inv := &Invocation{
		SessionID:    sessionID,
		Step:         step,
		Agent:        agent,
		Boundary:     boundary,
		ToolName:     toolName,
		Input:        inputText,
		Output:       outputText,
		Status:       status,
		ErrorType:    errType,
		ErrorMessage: errText,
		DurationMs:   int(duration.Milliseconds()),
		Truncated:    inTrunc || outTrunc || errTrunc,
	}

	if err := r.repo.Create(ctx, inv); err != nil {
		r.log.Warn("failed to persist tool invocation trace",
			slog.String("session_id", sessionID),
			slog.String("tool", toolName),
			logger.Error(err),
		)
	}
}

// marshalQuiet serializes v to a JSON string, returning an empty string
// rather than an error on failure — a trace entry is diagnostic, never a
// reason to fail the call it's observing.
func marshalQuiet(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
