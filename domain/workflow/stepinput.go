package workflow

import (
	"context"
	"fmt"

	"github.com/emergent-company/codeforge/domain/agentinvoke"
)

// SessionReader implements agentinvoke.StepInputProvider over the same
// repository, catalog, and artifact store the engine itself reads. It
// is deliberately its own leaf type rather than a method on *Engine:
// Engine depends on *agentinvoke.Invoker, and Invoker depends on
// StepInputProvider, so StepInputProvider can never be satisfied by
// Engine itself without the fx graph needing Engine to build Invoker
// and Invoker to build Engine at the same time.
type SessionReader struct {
	repo      *Repository
	catalog   *Catalog
	artifacts *ArtifactStore
}

func NewSessionReader(repo *Repository, catalog *Catalog, artifacts *ArtifactStore) *SessionReader {
	return &SessionReader{repo: repo, catalog: catalog, artifacts: artifacts}
}

// StepInput implements agentinvoke.StepInputProvider. It is the one
// place domain/agentinvoke reaches into session state, and it does so
// only through this interface — agentinvoke never imports Session.
func (s *SessionReader) StepInput(ctx context.Context, sessionID, step string) (string, string, map[string]agentinvoke.Artifact, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return "", "", nil, fmt.Errorf("workflow: load session: %w", err)
	}
	if session == nil {
		return "", "", nil, fmt.Errorf("workflow: unknown session %q", sessionID)
	}

	def, ok := s.catalog.Step(step)
	if !ok {
		return "", "", nil, fmt.Errorf("workflow: unknown step %q", step)
	}

	prior, err := s.artifacts.LatestByNames(ctx, sessionID, session.CompletedSteps)
	if err != nil {
		return "", "", nil, fmt.Errorf("workflow: load prior artifacts: %w", err)
	}

	return session.Description, def.AgentRole, prior, nil
}
