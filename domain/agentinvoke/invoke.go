package agentinvoke

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emergent-company/codeforge/domain/capabilities"
	"github.com/emergent-company/codeforge/domain/tit"
	"github.com/emergent-company/codeforge/internal/config"
	"github.com/emergent-company/codeforge/pkg/llmprovider"
	"github.com/emergent-company/codeforge/pkg/logger"
)

// StepInputProvider supplies everything Invoke needs about a session
// that this package does not own itself: the project description, the
// artifacts of already-completed steps, and the agent_role for the step
// being invoked. domain/workflow implements this; agentinvoke only
// depends on the interface, never on workflow's concrete Session type.
type StepInputProvider interface {
	StepInput(ctx context.Context, sessionID, step string) (description, agentRole string, priorArtifacts map[string]Artifact, err error)
}

// Invoker is the agent invocation layer. It implements
// capabilities.SubAgentInvoker, which is how component C's executor
// reaches it without either package importing the other's concrete
// types.
type Invoker struct {
	provider  llmprovider.Provider
	assembler *Assembler
	sessions  StepInputProvider
	recorder  *tit.Recorder
	model     string
	timeout   time.Duration
	log       *slog.Logger
}

// NewInvoker constructs an Invoker.
func NewInvoker(provider llmprovider.Provider, assembler *Assembler, sessions StepInputProvider, recorder *tit.Recorder, cfg *config.Config, log *slog.Logger) *Invoker {
	return &Invoker{
		provider:  provider,
		assembler: assembler,
		sessions:  sessions,
		recorder:  recorder,
		model:     cfg.LLM.Model,
		timeout:   cfg.Workflow.LLMTimeout(),
		log:       log.With(logger.Scope("agentinvoke")),
	}
}

// Invoke is the §4.2 contract: given a step and session, produce an
// Artifact or raise *ParseFailure, *Truncation, *Timeout, or
// *ExternalFailure. retryHint is appended to the prompt verbatim when
// non-empty — it is the engine's job to build it from the prior
// attempt's raw output, supervisor feedback, and failure signals.
func (inv *Invoker) Invoke(ctx context.Context, sessionID, step, retryHint string) (Artifact, error) {
	maxTokens, ok := MaxTokensFor(step)
	if !ok {
		return Artifact{}, fmt.Errorf("agentinvoke: no token budget configured for step %q", step)
	}

	description, agentRole, priorArtifacts, err := inv.sessions.StepInput(ctx, sessionID, step)
	if err != nil {
		return Artifact{}, fmt.Errorf("agentinvoke: load step input: %w", err)
	}

	messages, err := inv.assembler.Assemble(PromptInput{
		Step:           step,
		AgentRole:      agentRole,
		Description:    description,
		PriorArtifacts: priorArtifacts,
		RetryHint:      retryHint,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("agentinvoke: assemble prompt: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	req := llmprovider.Request{
		Messages:  messages,
		Model:     inv.model,
		MaxTokens: maxTokens,
	}
	result, err := inv.recorder.WrapAgent(callCtx, sessionID, step, tit.BoundaryLLM, "llm_complete", agentRole, req, func() (any, error) {
		return inv.provider.Complete(callCtx, req)
	})
	var resp llmprovider.Response
	if result != nil {
		resp = result.(llmprovider.Response)
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return Artifact{}, &Timeout{Step: step}
		}
		return Artifact{}, &ExternalFailure{Step: step, Err: err}
	}

	artifact, parseErr := parseResponse(step, resp.Text, resp.StopReason)
	if parseErr != nil {
		var truncation *Truncation
		if errors.As(parseErr, &truncation) {
			truncation.Partial.InputTokens = resp.InputTokens
			truncation.Partial.OutputTokens = resp.OutputTokens
			return truncation.Partial, truncation
		}
		return Artifact{}, parseErr
	}

	artifact.InputTokens = resp.InputTokens
	artifact.OutputTokens = resp.OutputTokens
	return artifact, nil
}

// InvokeSubAgent adapts Invoke to capabilities.SubAgentInvoker's
// map[string]any-shaped contract, the boundary the capability executor's
// core tool actually calls through.
func (inv *Invoker) InvokeSubAgent(ctx context.Context, sessionID, step string) (map[string]any, error) {
	artifact, err := inv.Invoke(ctx, sessionID, step, "")
	if err != nil {
		return nil, err
	}

	files := make(map[string]any, len(artifact.Files))
	for _, f := range artifact.Files {
		files[f.Path] = f.Content
	}
	return map[string]any{
		"files":     files,
		"truncated": artifact.Truncated,
	}, nil
}

var _ capabilities.SubAgentInvoker = (*Invoker)(nil)
