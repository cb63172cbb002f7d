package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emergent-company/codeforge/domain/agentinvoke"
	"github.com/emergent-company/codeforge/domain/capabilities"
	"github.com/emergent-company/codeforge/domain/learning"
)

// runStep resolves one step end to end: pre-tools, the agent call
// (retried per the §4.1 retry policy), post-tools, supervisor review,
// and either a completed-step persist, a quality-gate pause, or a
// session-terminal failure. It is the body of Advance's step 6.
func (e *Engine) runStep(ctx context.Context, session *Session, stepName string) (StepOutcome, error) {
	start := time.Now()
	outcome, err := e.runStepUnobserved(ctx, session, stepName)
	observeStep(stepName, outcome.Status, start)
	return outcome, err
}

func (e *Engine) runStepUnobserved(ctx context.Context, session *Session, stepName string) (StepOutcome, error) {
	def, ok := e.catalog.Step(stepName)
	if !ok {
		return StepOutcome{}, fmt.Errorf("workflow: eligible step %q missing from catalog", stepName)
	}

	workspacePath := e.workspacePath(session.SessionID)
	if err := ensureWorkspace(workspacePath); err != nil {
		return StepOutcome{}, fmt.Errorf("workflow: prepare workspace: %w", err)
	}

	sessionCtx := capabilities.SessionContext{SessionID: session.SessionID, ProjectID: session.ProjectID, WorkspacePath: workspacePath}
	spec := capabilities.StepSpec{Name: stepName, RequiredCapabilities: def.RequiredCapabilities}
	plan := e.planner.Plan(spec, sessionCtx)
	prePlan, postPlan := splitPlan(plan)

	if err := e.executor.Execute(ctx, prePlan, sessionCtx); err != nil {
		e.ingestFailure(ctx, learning.F7RuntimeException, session, stepName, def.AgentRole, session.RetryCounters[stepName], err.Error(), true)
		return e.failStep(ctx, session, stepName, err)
	}

	key := feedbackKey(session.SessionID, stepName)
	feedback := append([]string(nil), e.pendingFeedback[key]...)
	delete(e.pendingFeedback, key)

	if def.RequiresEntity {
		entityName, herr := e.healEntityReference(ctx, session.SessionID, stepName)
		if herr != nil {
			var dep *DependencyMissing
			if errors.As(herr, &dep) {
				entityName, herr = e.healEntityReferenceBroad(ctx, session.SessionID, session.CompletedSteps)
			}
		}
		if herr != nil {
			class := learning.F7RuntimeException
			var dep *DependencyMissing
			if errors.As(herr, &dep) {
				class = learning.F6DependencyMissing
			}
			e.ingestFailure(ctx, class, session, stepName, def.AgentRole, session.RetryCounters[stepName], herr.Error(), true)
			return e.failStep(ctx, session, stepName, herr)
		}
		feedback = append([]string{fmt.Sprintf("Target entity: %s", entityName)}, feedback...)
	}

	var lastRawOutput string
	var lastSignalHash string
	consecutiveSame := 0

	for {
		retryIndex := session.RetryCounters[stepName]
		retryHint := buildRetryHint(lastRawOutput, feedback, nil)

		artifact, invokeErr := e.invoker.Invoke(ctx, session.SessionID, stepName, retryHint)
		if invokeErr != nil {
			class, rawError := classifyInvokeErr(invokeErr)
			signals := learning.ExtractSignals(rawError, "")
			sigHash := learning.HashSignals(signals)
			hard := !learning.Retryable(class)
			if sigHash == lastSignalHash {
				consecutiveSame++
			} else {
				consecutiveSame = 1
				lastSignalHash = sigHash
			}
			if consecutiveSame >= 2 {
				hard = true
			}

			e.ingestFailure(ctx, class, session, stepName, def.AgentRole, retryIndex, rawError, hard)

			var truncation *agentinvoke.Truncation
			if errors.As(invokeErr, &truncation) {
				lastRawOutput = truncation.Partial.RawText
			}

			if hard || retryIndex >= def.MaxRetries {
				return e.failStep(ctx, session, stepName, invokeErr)
			}

			session.RetryCounters[stepName] = retryIndex + 1
			observeRetry(stepName, string(class))
			if err := e.repo.Update(ctx, session, session.UpdatedAt); err != nil {
				return StepOutcome{}, fmt.Errorf("workflow: persist retry-incremented: %w", err)
			}
			feedback = append(feedback, rawError)
			continue
		}

		if err := writeArtifactFiles(workspacePath, artifact.Files); err != nil {
			return StepOutcome{}, fmt.Errorf("workflow: write artifact files: %w", err)
		}

		if err := e.executor.Execute(ctx, postPlan, sessionCtx); err != nil {
			rawError := err.Error()
			e.ingestFailure(ctx, learning.F1InvariantViolation, session, stepName, def.AgentRole, retryIndex, rawError, false)

			if retryIndex >= def.MaxRetries {
				return e.failStep(ctx, session, stepName, err)
			}
			session.RetryCounters[stepName] = retryIndex + 1
			observeRetry(stepName, string(learning.F1InvariantViolation))
			if err := e.repo.Update(ctx, session, session.UpdatedAt); err != nil {
				return StepOutcome{}, fmt.Errorf("workflow: persist retry-incremented: %w", err)
			}
			feedback = append(feedback, rawError)
			lastRawOutput = artifact.RawText
			continue
		}

		verdict, err := e.supervisor.Review(ctx, stepName, artifact, session.Description)
		if err != nil {
			return StepOutcome{}, fmt.Errorf("workflow: supervisor review: %w", err)
		}
		if !verdict.Approved {
			reason := strings.Join(verdict.Reasons, "; ")
			e.ingestFailure(ctx, learning.F4QualityRejection, session, stepName, def.AgentRole, retryIndex, reason, false)

			if retryIndex >= def.MaxRetries {
				return e.failStep(ctx, session, stepName, fmt.Errorf("quality gate rejected: %s", reason))
			}
			session.RetryCounters[stepName] = retryIndex + 1
			observeRetry(stepName, string(learning.F4QualityRejection))
			session.Status = StatusPaused
			if err := e.repo.Update(ctx, session, session.UpdatedAt); err != nil {
				return StepOutcome{}, fmt.Errorf("workflow: persist quality-gate pause: %w", err)
			}
			e.pendingFeedback[key] = append(e.pendingFeedback[key], reason)
			e.emit(session.SessionID, Event{Kind: EventQualityGateBlocked, Step: stepName, Reasons: verdict.Reasons})
			return StepOutcome{SessionID: session.SessionID, Step: stepName, Status: StatusPaused}, nil
		}

		if err := e.artifacts.Save(ctx, session.SessionID, retryIndex, artifact); err != nil {
			return StepOutcome{}, fmt.Errorf("workflow: save artifact: %w", err)
		}
		session.CompletedSteps = append(session.CompletedSteps, stepName)
		session.StepOutputs[stepName] = fmt.Sprintf("%s/%s/%d", session.SessionID, stepName, retryIndex)
		if err := e.repo.Update(ctx, session, session.UpdatedAt); err != nil {
			return StepOutcome{}, fmt.Errorf("workflow: persist step-completed: %w", err)
		}
		e.emit(session.SessionID, Event{Kind: EventWorkflowUpdate, Step: stepName, Total: len(e.catalog.Names()), Status: string(StatusRunning)})
		e.emit(session.SessionID, Event{Kind: EventWorkspaceUpdated})
		return StepOutcome{SessionID: session.SessionID, Step: stepName, Status: StatusRunning, Completed: true}, nil
	}
}

// failStep transitions session to failed and emits WORKFLOW_FAILED. It
// never ingests on its own — the caller has already classified and
// ingested the failure that triggered termination; this only handles the
// session-level state transition (§7 propagation rule 3).
func (e *Engine) failStep(ctx context.Context, session *Session, stepName string, cause error) (StepOutcome, error) {
	session.Status = StatusFailed
	if err := e.repo.Update(ctx, session, session.UpdatedAt); err != nil {
		return StepOutcome{}, fmt.Errorf("workflow: persist step failure: %w", err)
	}
	e.emit(session.SessionID, Event{Kind: EventWorkflowFailed, Reason: cause.Error()})
	return StepOutcome{SessionID: session.SessionID, Step: stepName, Status: StatusFailed}, cause
}

// ingestF6 records a dependency-missing/deadlock failure observed by the
// scheduler itself (no step was selected to run it).
func (e *Engine) ingestF6(ctx context.Context, session *Session, step, reason string) {
	e.ingestFailure(ctx, learning.F6DependencyMissing, session, step, "", 0, reason, true)
}

// ingestFailure is a non-negotiable fail-safe wrapper (§7, §9): a
// learning-store write error is logged and swallowed, never propagated
// into the engine's own control flow.
func (e *Engine) ingestFailure(ctx context.Context, class learning.FailureClass, session *Session, step, agent string, retryIndex int, rawError string, hard bool) {
	if e.learningRepo == nil {
		return
	}
	_, err := e.learningRepo.IngestFailure(ctx, learning.IngestParams{
		RunID:         session.SessionID,
		Step:          step,
		Agent:         agent,
		PrimaryClass:  class,
		RawError:      rawError,
		RetryIndex:    retryIndex,
		IsHardFailure: hard,
	})
	if err != nil {
		e.log.Warn("failed to ingest failure record, continuing",
			"session_id", session.SessionID, "step", step, "class", class, "error", err)
	}
}

// splitPlan separates a ToolPlan around its core "subagentcaller" entry:
// entries planned before it run as pre-tools (environment checks,
// context loading); entries after it run as post-tools (validators) once
// the step's artifact has actually landed on disk. The engine — not the
// capability executor — makes the core LLM call directly, since only the
// engine has the retry hint and failure-classification logic §4.1 needs;
// subagentcaller remains in the planned-and-traced sequence so the
// capability layer's own determinism and tracing properties still hold
// for the full plan shape.
func splitPlan(plan capabilities.ToolPlan) (pre, post capabilities.ToolPlan) {
	pre.Step, post.Step = plan.Step, plan.Step
	seenCore := false
	for _, entry := range plan.Entries {
		if entry.ToolName == "subagentcaller" {
			seenCore = true
			continue
		}
		if !seenCore {
			pre.Entries = append(pre.Entries, entry)
		} else {
			post.Entries = append(post.Entries, entry)
		}
	}
	return pre, post
}
