// Package capabilities implements the capability planner and linear
// executor (component C): a deterministic translation from "run step X"
// to an ordered, observable sequence of tool calls. Planning never
// consults an LLM and never reorders based on history; the executor
// never loops, retries, or self-heals — that belongs to the workflow
// engine at the step level.
package capabilities

// StepSpec is the minimal view of a workflow step the planner needs.
// domain/workflow owns the full step catalog; it projects each Step down
// to a StepSpec when calling Plan, keeping this package a leaf that never
// imports domain/workflow.
type StepSpec struct {
	Name                 string
	RequiredCapabilities []string
}

// SessionContext is the minimal view of session state the planner and
// built-in tools need: enough to fill in tool args, never enough to
// change planning decisions (planning is a pure function of StepSpec).
type SessionContext struct {
	SessionID     string
	ProjectID     string
	WorkspacePath string
}

// ToolInvocationPlan is one entry in a ToolPlan.
type ToolInvocationPlan struct {
	ToolName string
	Args     map[string]any
	Reason   string
	Required bool
}

// ToolPlan is the immutable, ordered output of Plan. It is never mutated
// after construction; the executor only ever reads it.
type ToolPlan struct {
	Step    string
	Entries []ToolInvocationPlan
}
