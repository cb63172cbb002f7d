// Package agentinvoke implements the agent invocation layer (component
// D): given a step and session context, call the configured LLM
// provider with the right persona and token budget, parse its response,
// and salvage partial output on truncation. The token policy table is
// fixed and non-overridable — see TokenBudget.
package agentinvoke

// FileBlock is one `(path, content)` pair extracted from an LLM
// response's `=== path ===`-delimited output.
type FileBlock struct {
	Path    string
	Content string
}

// Artifact is what Invoke returns on success (including a salvaged
// partial success): the file blocks the LLM produced for one step.
type Artifact struct {
	Step      string
	Files     []FileBlock
	Truncated bool
	RawText   string

	InputTokens  int
	OutputTokens int
}

// TokenBudget is the per-step max_output_tokens table from the spec's
// authoritative policy. The agent layer MUST use this table and MUST NOT
// accept a caller override.
var TokenBudget = map[string]int{
	"analysis":                8000,
	"architecture":            12000,
	"frontend_mock":           12000,
	"screenshot_verify":       4000,
	"contracts":               8000,
	"backend_implementation":  20000,
	"system_integration":      6000,
	"testing_backend":         8000,
	"frontend_integration":    12000,
	"testing_frontend":        8000,
	"preview":                 2000,
}

// MaxTokensFor returns the fixed budget for step, or 0 if step is not in
// the catalog (the caller should treat that as a configuration error,
// never silently substitute a default).
func MaxTokensFor(step string) (int, bool) {
	budget, ok := TokenBudget[step]
	return budget, ok
}
