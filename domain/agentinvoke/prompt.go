package agentinvoke

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aymerick/raymond"

	"github.com/emergent-company/codeforge/pkg/llmprovider"
)

// alwaysFullSteps are the artifact kinds every prompt includes in full
// when present, regardless of the bounded window below — downstream
// steps can't safely paraphrase contracts or architecture.
var alwaysFullSteps = map[string]bool{
	"contracts":    true,
	"architecture": true,
}

// priorArtifactWindow bounds how many non-pinned prior artifacts are
// inlined: candidates are sorted by step name and the last
// priorArtifactWindow of them are kept; the rest are left out of the
// prompt entirely.
const priorArtifactWindow = 3

// systemTemplateSource is the persona + static-rules half of every
// prompt. {{role_instructions}} is filled in per agent_role.
const systemTemplateSource = `You are acting as the {{agent_role}} agent in an automated build pipeline.

{{role_instructions}}

Rules:
- Produce output as one or more file blocks, each preceded by a line of the exact form "=== path/to/file ===".
- Do not include any other text outside file blocks except an optional thinking block before the first "===" marker.
- Every file block must be structurally complete: balanced braces and closed code fences.
`

// userTemplateSource is the dynamic-context half of every prompt.
const userTemplateSource = `Step: {{step}}

Project description:
{{description}}

{{#if full_artifacts}}
Reference artifacts (full):
{{#each full_artifacts}}
--- {{@key}} ---
{{this}}
{{/each}}
{{/if}}

{{#if windowed_artifacts}}
Prior step artifacts (at most {{window_size}}):
{{#each windowed_artifacts}}
--- {{@key}} ---
{{this}}
{{/each}}
{{/if}}

{{#if retry_hint}}
Retry guidance from the previous attempt:
{{retry_hint}}
{{/if}}
`

// roleInstructions gives each agent_role its persona-specific guidance.
// The "marcus" entry applies only to a step whose agent_role is
// "marcus"; the supervisor review pass in domain/workflow sends its own
// system prompt and does not read this map.
var roleInstructions = map[string]string{
	"analysis":               "Analyze the project description and enumerate the entities, flows, and constraints a build pipeline will need.",
	"architecture":           "Design the system architecture: components, data model, and integration points.",
	"frontend_mock":          "Produce a static frontend mockup matching the architecture.",
	"screenshot_verify":      "Describe what a rendered screenshot of the mockup should show, for downstream verification.",
	"contracts":              "Define the API contracts (request/response shapes, status codes) the backend and frontend will share.",
	"backend_implementation": "Implement the backend against the contracts and architecture artifacts.",
	"system_integration":     "Wire the backend and frontend together per the contracts.",
	"testing_backend":        "Write backend tests against the contracts.",
	"frontend_integration":   "Integrate the frontend against the live backend.",
	"testing_frontend":       "Write frontend tests against the integrated system.",
	"preview":                "Produce a final preview summary of the built system.",
	"marcus":                 "Review the given artifact strictly against the step's contract and the project description. Reject with specific, actionable reasons if it falls short.",
}

// Assembler builds provider messages from step/session context. Template
// parsing happens once at construction; Assemble only executes.
type Assembler struct {
	systemTemplate *raymond.Template
	userTemplate   *raymond.Template
}

// NewAssembler parses the fixed system/user templates.
func NewAssembler() (*Assembler, error) {
	sys, err := raymond.Parse(systemTemplateSource)
	if err != nil {
		return nil, fmt.Errorf("parse system template: %w", err)
	}
	usr, err := raymond.Parse(userTemplateSource)
	if err != nil {
		return nil, fmt.Errorf("parse user template: %w", err)
	}
	return &Assembler{systemTemplate: sys, userTemplate: usr}, nil
}

// PromptInput is everything Assemble needs to build one invocation's
// messages.
type PromptInput struct {
	Step           string
	AgentRole      string
	Description    string
	PriorArtifacts map[string]Artifact // step name -> artifact, already completed steps only
	RetryHint      string
}

// Assemble renders the persona/system and dynamic/user messages for one
// Invoke call.
func (a *Assembler) Assemble(in PromptInput) ([]llmprovider.Message, error) {
	instructions, ok := roleInstructions[in.AgentRole]
	if !ok {
		instructions = roleInstructions["backend_implementation"]
	}

	systemText, err := a.systemTemplate.Exec(map[string]any{
		"agent_role":       in.AgentRole,
		"role_instructions": instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}

	fullArtifacts := map[string]string{}
	var windowCandidates []string
	for step := range in.PriorArtifacts {
		if alwaysFullSteps[step] {
			continue
		}
		windowCandidates = append(windowCandidates, step)
	}
	sort.Strings(windowCandidates)
	if len(windowCandidates) > priorArtifactWindow {
		windowCandidates = windowCandidates[len(windowCandidates)-priorArtifactWindow:]
	}

	for step, art := range in.PriorArtifacts {
		if alwaysFullSteps[step] {
			fullArtifacts[step] = renderArtifact(art)
		}
	}
	windowedArtifacts := map[string]string{}
	for _, step := range windowCandidates {
		windowedArtifacts[step] = renderArtifact(in.PriorArtifacts[step])
	}

	userText, err := a.userTemplate.Exec(map[string]any{
		"step":               in.Step,
		"description":        in.Description,
		"full_artifacts":     fullArtifacts,
		"windowed_artifacts": windowedArtifacts,
		"window_size":        priorArtifactWindow,
		"retry_hint":         in.RetryHint,
	})
	if err != nil {
		return nil, fmt.Errorf("render user prompt: %w", err)
	}

	return []llmprovider.Message{
		{Role: "system", Content: systemText},
		{Role: "user", Content: userText},
	}, nil
}

func renderArtifact(a Artifact) string {
	var sb strings.Builder
	for _, f := range a.Files {
		sb.WriteString("=== ")
		sb.WriteString(f.Path)
		sb.WriteString(" ===\n")
		sb.WriteString(f.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
