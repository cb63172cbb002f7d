package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/emergent-company/codeforge/domain/agentinvoke"
	"github.com/emergent-company/codeforge/domain/capabilities"
	"github.com/emergent-company/codeforge/domain/learning"
	"github.com/emergent-company/codeforge/internal/config"
	"github.com/emergent-company/codeforge/pkg/logger"
)

// Engine is the workflow engine (component E): it owns Session state and
// is the only component that drives a session from created to a
// terminal status. Every other component it touches is reached through a
// narrow interface or a concrete leaf package that does not import this
// one, per the rearchitecting note against cyclic "workflow"/"agents"
// references.
type Engine struct {
	repo         *Repository
	catalog      *Catalog
	artifacts    *ArtifactStore
	planner      *capabilities.Planner
	executor     *capabilities.Executor
	invoker      *agentinvoke.Invoker
	supervisor   *Supervisor
	learningRepo *learning.Repository
	events       EventPublisher

	// pendingFeedback accumulates Resume's userMessage for the step that
	// triggered a quality-gate pause, keyed by "sessionID/step". It is
	// process-local, not persisted: a lost feedback message on a crash
	// simply means the next retry prompt lacks that one hint, which is
	// acceptable for a corrective aside that the user can always repeat.
	pendingFeedback map[string][]string

	workspaceRoot string
	log           *slog.Logger
}

// EngineParams is NewEngine's fx.In parameter object. EventPublisher is
// optional: domain/events may not be wired in every deployment (a test
// binary, a partially-configured dev setup), and a missing sink must
// never be a reason the workflow engine fails to start.
type EngineParams struct {
	fx.In

	Repo         *Repository
	Catalog      *Catalog
	Artifacts    *ArtifactStore
	Planner      *capabilities.Planner
	Executor     *capabilities.Executor
	Invoker      *agentinvoke.Invoker
	Supervisor   *Supervisor
	LearningRepo *learning.Repository
	Events       EventPublisher `optional:"true"`
	Config       *config.Config
	Log          *slog.Logger
}

// NewEngine constructs an Engine. p.Events may be nil, in which case
// published events are dropped.
func NewEngine(p EngineParams) *Engine {
	events := p.Events
	if events == nil {
		events = noopPublisher{}
	}
	return &Engine{
		repo:            p.Repo,
		catalog:         p.Catalog,
		artifacts:       p.Artifacts,
		planner:         p.Planner,
		executor:        p.Executor,
		invoker:         p.Invoker,
		supervisor:      p.Supervisor,
		learningRepo:    p.LearningRepo,
		events:          events,
		pendingFeedback: make(map[string][]string),
		workspaceRoot:   p.Config.Workflow.WorkspaceRoot,
		log:             p.Log.With(logger.Scope("workflow")),
	}
}

// StepOutcome is advance's return value: what happened to the session on
// this call.
type StepOutcome struct {
	SessionID string
	Step      string
	Status    Status
	Completed bool
}

func (e *Engine) workspacePath(sessionID string) string {
	return filepath.Join(e.workspaceRoot, sessionID)
}

func (e *Engine) emit(sessionID string, ev Event) {
	if e.events == nil {
		return
	}
	e.events.Publish(sessionID, ev)
}

// Start implements the §4.1 contract. mode=fresh creates a new session
// row; earlier sessions for the project are not deleted or reset, and
// Progress, resume and auto read only the project's latest session.
// mode=resume requires a paused or failed session; mode=auto resumes if
// progress exists, else starts fresh. Every mode is refused with
// ConcurrentStart while a session for the project is running.
func (e *Engine) Start(ctx context.Context, projectID, description string, mode Mode) (string, error) {
	running, err := e.repo.FindRunningByProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("workflow: check running session: %w", err)
	}
	if running != nil {
		return "", &ConcurrentStart{ProjectID: projectID}
	}

	switch mode {
	case ModeResume:
		latest, err := e.repo.FindLatestByProject(ctx, projectID)
		if err != nil {
			return "", fmt.Errorf("workflow: find latest session: %w", err)
		}
		if latest == nil || (latest.Status != StatusPaused && latest.Status != StatusFailed) {
			return "", fmt.Errorf("workflow: mode=resume requires a paused or failed session for project %q", projectID)
		}
		latest.Status = StatusRunning
		if err := e.repo.Update(ctx, latest, latest.UpdatedAt); err != nil {
			return "", fmt.Errorf("workflow: resume session: %w", err)
		}
		e.emit(latest.SessionID, Event{Kind: EventWorkflowResumed})
		return latest.SessionID, nil

	case ModeAuto:
		latest, err := e.repo.FindLatestByProject(ctx, projectID)
		if err != nil {
			return "", fmt.Errorf("workflow: find latest session: %w", err)
		}
		if latest != nil && (latest.Status == StatusPaused || latest.Status == StatusFailed) {
			latest.Status = StatusRunning
			if err := e.repo.Update(ctx, latest, latest.UpdatedAt); err != nil {
				return "", fmt.Errorf("workflow: auto-resume session: %w", err)
			}
			e.emit(latest.SessionID, Event{Kind: EventWorkflowResumed})
			return latest.SessionID, nil
		}
		// fall through to fresh
	case ModeFresh:
		// nothing to check beyond the running guard above
	default:
		return "", fmt.Errorf("workflow: unknown mode %q", mode)
	}

	session := &Session{
		ProjectID:   projectID,
		Description: description,
		Status:      StatusRunning,
	}
	if err := e.repo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("workflow: create session: %w", err)
	}
	return session.SessionID, nil
}

// Pause takes effect at the next step boundary: it flips Status to
// paused without touching CurrentStep or RetryCounters, so Advance
// simply declines to select a next step until Resume flips it back.
func (e *Engine) Pause(ctx context.Context, sessionID string) error {
	session, err := e.mustLoad(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return fmt.Errorf("workflow: cannot pause a session in terminal status %q", session.Status)
	}
	session.Status = StatusPaused
	if err := e.repo.Update(ctx, session, session.UpdatedAt); err != nil {
		return fmt.Errorf("workflow: pause session: %w", err)
	}
	e.emit(sessionID, Event{Kind: EventWorkflowPaused})
	return nil
}

// Resume flips a paused session back to running. userMessage, when
// non-empty, is appended as feedback on the step that triggered the
// pause (typically a quality-gate rejection) the next time that step
// runs; an empty message resumes without altering the retry prompt, and
// per the idempotence property must not re-run the last completed step
// or advance the step counter on its own.
func (e *Engine) Resume(ctx context.Context, sessionID, userMessage string) error {
	session, err := e.mustLoad(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != StatusPaused {
		return fmt.Errorf("workflow: cannot resume a session in status %q", session.Status)
	}
	if userMessage != "" && session.CurrentStep != nil {
		e.pendingFeedback[feedbackKey(sessionID, *session.CurrentStep)] = append(
			e.pendingFeedback[feedbackKey(sessionID, *session.CurrentStep)], userMessage,
		)
	}
	session.Status = StatusRunning
	if err := e.repo.Update(ctx, session, session.UpdatedAt); err != nil {
		return fmt.Errorf("workflow: resume session: %w", err)
	}
	e.emit(sessionID, Event{Kind: EventWorkflowResumed})
	return nil
}

// Progress implements the §6 progress(project_id) contract.
func (e *Engine) Progress(ctx context.Context, projectID string) (ProgressSummary, error) {
	session, err := e.repo.FindLatestByProject(ctx, projectID)
	if err != nil {
		return ProgressSummary{}, fmt.Errorf("workflow: load latest session: %w", err)
	}
	if session == nil {
		return ProgressSummary{}, nil
	}
	current := ""
	if session.CurrentStep != nil {
		current = *session.CurrentStep
	}
	return ProgressSummary{
		CompletedSteps: session.CompletedSteps,
		CurrentStep:    current,
		IsRunning:      session.Status == StatusRunning,
		IsResumable:    session.Status == StatusPaused || session.Status == StatusFailed,
	}, nil
}

// RunningSessionIDs returns the session IDs currently in status=running,
// the poll-loop task's work queue for one tick.
func (e *Engine) RunningSessionIDs(ctx context.Context) ([]string, error) {
	sessions, err := e.repo.ListRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("workflow: list running sessions: %w", err)
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids, nil
}

// RecoverStale finds sessions stuck in status=running with no step
// transition in the last staleAfter and touches their updated_at so the
// next poll-loop tick picks them back up, without incrementing any retry
// counter — a crashed driver process, not a failed step, is why they
// stalled. It returns how many sessions it recovered.
func (e *Engine) RecoverStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	stale, err := e.repo.FindStale(ctx, time.Now().Add(-staleAfter))
	if err != nil {
		return 0, fmt.Errorf("workflow: find stale sessions: %w", err)
	}
	recovered := 0
	for _, s := range stale {
		if err := e.repo.Update(ctx, s, s.UpdatedAt); err != nil {
			e.log.Warn("failed to recover stale session, continuing",
				"session_id", s.SessionID, "error", err)
			continue
		}
		recovered++
	}
	return recovered, nil
}

func (e *Engine) mustLoad(ctx context.Context, sessionID string) (*Session, error) {
	session, err := e.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("workflow: load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("workflow: unknown session %q", sessionID)
	}
	return session, nil
}

// Advance implements the §4.1 scheduling algorithm. One call resolves
// exactly one step to either completion, a quality-gate pause, or a
// session-terminal failure; a driver (the poll-loop worker) calls it
// repeatedly until the returned Status is terminal or paused.
func (e *Engine) Advance(ctx context.Context, sessionID string) (StepOutcome, error) {
	session, err := e.mustLoad(ctx, sessionID)
	if err != nil {
		return StepOutcome{}, err
	}

	// Step 2: non-running sessions are already at a terminal or
	// suspended point; return as-is.
	if session.Status != StatusRunning {
		return StepOutcome{SessionID: sessionID, Status: session.Status}, nil
	}

	completed := session.completedSet()
	eligible := e.catalog.eligible(completed)

	// Step 4: nothing left to run.
	if len(eligible) == 0 {
		if len(session.CompletedSteps) == len(e.catalog.Names()) {
			session.Status = StatusCompleted
			session.CurrentStep = nil
			if err := e.repo.Update(ctx, session, session.UpdatedAt); err != nil {
				return StepOutcome{}, fmt.Errorf("workflow: persist completion: %w", err)
			}
			e.emit(sessionID, Event{Kind: EventWorkflowComplete})
			return StepOutcome{SessionID: sessionID, Status: StatusCompleted, Completed: true}, nil
		}

		reason := "dependency deadlock: no step is eligible and the catalog is not exhausted"
		e.ingestF6(ctx, session, "", reason)
		session.Status = StatusFailed
		if err := e.repo.Update(ctx, session, session.UpdatedAt); err != nil {
			return StepOutcome{}, fmt.Errorf("workflow: persist deadlock failure: %w", err)
		}
		e.emit(sessionID, Event{Kind: EventWorkflowFailed, Reason: reason})
		return StepOutcome{SessionID: sessionID, Status: StatusFailed}, &DependencyMissing{SessionID: sessionID, Reason: reason}
	}

	// Step 5: deterministic selection — eligible is already
	// lexicographically sorted by Catalog.eligible.
	stepName := eligible[0]

	stepCopy := stepName
	session.CurrentStep = &stepCopy
	if err := e.repo.Update(ctx, session, session.UpdatedAt); err != nil {
		return StepOutcome{}, fmt.Errorf("workflow: persist step-entered: %w", err)
	}
	e.emit(sessionID, Event{Kind: EventWorkflowUpdate, Step: stepName, Total: len(e.catalog.Names()), Status: string(StatusRunning)})

	return e.runStep(ctx, session, stepName)
}

// buildRetryHint assembles the expanding retry prompt: original prompt
// (handled by the agent layer itself) plus last raw output plus
// accumulated feedback (supervisor rejections and user resume messages)
// plus the signals extracted from the last failure.
func buildRetryHint(lastRawOutput string, feedback, signals []string) string {
	if lastRawOutput == "" && len(feedback) == 0 && len(signals) == 0 {
		return ""
	}
	var b strings.Builder
	if lastRawOutput != "" {
		b.WriteString("Previous attempt's raw output:\n")
		b.WriteString(lastRawOutput)
		b.WriteString("\n\n")
	}
	if len(feedback) > 0 {
		b.WriteString("Feedback from the prior attempt:\n- ")
		b.WriteString(strings.Join(feedback, "\n- "))
		b.WriteString("\n\n")
	}
	if len(signals) > 0 {
		b.WriteString("Extracted failure signals: ")
		b.WriteString(strings.Join(signals, ", "))
	}
	return b.String()
}

func feedbackKey(sessionID, step string) string {
	return sessionID + "/" + step
}

// classifyInvokeErr maps an agentinvoke failure to its canon class and
// extracts a raw-error string for signal extraction, per the §4.2
// failure mapping table.
func classifyInvokeErr(err error) (learning.FailureClass, string) {
	var parseFailure *agentinvoke.ParseFailure
	var truncation *agentinvoke.Truncation
	var timeout *agentinvoke.Timeout
	var external *agentinvoke.ExternalFailure

	switch {
	case errors.As(err, &truncation):
		return learning.F3Truncation, truncation.Error()
	case errors.As(err, &timeout):
		return learning.F5Timeout, timeout.Error()
	case errors.As(err, &external):
		return learning.F9ExternalFailure, external.Error()
	case errors.As(err, &parseFailure):
		return learning.F2ParseFailure, parseFailure.Error()
	default:
		return learning.F7RuntimeException, err.Error()
	}
}

// ensureWorkspace creates the session's on-disk workspace directory so
// the capability executor's environment_guard pre-tool finds it present,
// and so an approved step's files have somewhere to land for the
// static/syntax validator post-tools to check.
func ensureWorkspace(path string) error {
	return os.MkdirAll(path, 0o755)
}

func writeArtifactFiles(workspacePath string, files []agentinvoke.FileBlock) error {
	for _, f := range files {
		full := filepath.Join(workspacePath, f.Path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(f.Content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
