package workflow

import (
	"context"
	"fmt"
	"regexp"

	"github.com/emergent-company/codeforge/domain/agentinvoke"
)

// entityNamePattern matches a capitalized identifier a step's artifact
// might define as "the" entity — a Python/TypeScript class or model
// name. It is deliberately narrow: healing never guesses, so it only
// ever reports a match it's confident names an entity, never a common
// word.
var entityNamePattern = regexp.MustCompile(`\b(?:class|model|interface)\s+([A-Z][A-Za-z0-9_]*)\b`)

// discoverEntity implements §4.3's multi-source entity discovery:
// search, in order, the step's own artifact, then contracts, then
// architecture. The first match wins. It never falls back to a
// placeholder like "default" or "item" — callers that get ("", false)
// must raise DependencyMissing (F6) rather than invent a name.
func discoverEntity(own, contracts, architecture agentinvoke.Artifact) (string, bool) {
	for _, a := range []agentinvoke.Artifact{own, contracts, architecture} {
		if name, ok := firstEntityName(a); ok {
			return name, true
		}
	}
	return "", false
}

func firstEntityName(a agentinvoke.Artifact) (string, bool) {
	for _, f := range a.Files {
		if m := entityNamePattern.FindStringSubmatch(f.Content); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// healEntityReference resolves an entity name for step, searching the
// step's own latest artifact plus the session's contracts and
// architecture artifacts. Returns DependencyMissing (never a guess) when
// no source names an entity.
func (e *Engine) healEntityReference(ctx context.Context, sessionID, step string) (string, error) {
	own, _, err := e.artifacts.Latest(ctx, sessionID, step)
	if err != nil {
		return "", fmt.Errorf("workflow: heal entity: load own artifact: %w", err)
	}
	contracts, _, err := e.artifacts.Latest(ctx, sessionID, "contracts")
	if err != nil {
		return "", fmt.Errorf("workflow: heal entity: load contracts artifact: %w", err)
	}
	architecture, _, err := e.artifacts.Latest(ctx, sessionID, "architecture")
	if err != nil {
		return "", fmt.Errorf("workflow: heal entity: load architecture artifact: %w", err)
	}

	name, ok := discoverEntity(own, contracts, architecture)
	if !ok {
		return "", &DependencyMissing{SessionID: sessionID, Step: step, Reason: "no source (own artifact, contracts, architecture) names an entity"}
	}
	return name, nil
}

// healEntityReferenceBroad is the §4.3 "one re-ask with a broader
// evidence window" fallback: when the narrow (own, contracts,
// architecture) search in healEntityReference finds nothing, this widens
// the search to every artifact the session has produced so far, in
// completion order, before the caller gives up and raises a hard
// failure.
func (e *Engine) healEntityReferenceBroad(ctx context.Context, sessionID string, completedSteps []string) (string, error) {
	for _, step := range completedSteps {
		artifact, ok, err := e.artifacts.Latest(ctx, sessionID, step)
		if err != nil {
			return "", fmt.Errorf("workflow: heal entity (broad): load %q artifact: %w", step, err)
		}
		if !ok {
			continue
		}
		if name, ok := firstEntityName(artifact); ok {
			return name, nil
		}
	}
	return "", &DependencyMissing{SessionID: sessionID, Reason: "no completed step's artifact names an entity, even under a broadened search"}
}
