// Package workflow implements the workflow engine (component E): it
// advances a session through the fixed 11-step generation graph to
// completion, with durable checkpoints, bounded retries, pause/resume,
// supervisor review, and multi-source entity healing. It is the largest
// component and the one every other component ultimately serves: the
// capability planner, the agent invocation layer, and the tool trace are
// all narrow interfaces this package consumes, never concrete imports of
// each other.
package workflow

import (
	"time"

	"github.com/uptrace/bun"
)

// Status is a Session's place in the engine's state machine. Terminal
// states are Completed and Failed.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is one of the two states advance never
// leaves.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Mode selects start's behavior with respect to a prior session for the
// same project.
type Mode string

const (
	ModeFresh  Mode = "fresh"
	ModeResume Mode = "resume"
	ModeAuto   Mode = "auto"
)

// Session is the durable record of a single generation run. It is the
// only shared mutable resource the engine touches; every write is
// conditional on UpdatedAt to detect a concurrent mutation (§5).
type Session struct {
	bun.BaseModel `bun:"table:workflow.sessions,alias:s"`

	SessionID   string `bun:"session_id,pk" json:"session_id"`
	ProjectID   string `bun:"project_id,notnull" json:"project_id"`
	Description string `bun:"description,notnull" json:"description"`

	Status      Status  `bun:"status,notnull" json:"status"`
	CurrentStep *string `bun:"current_step" json:"current_step"`

	// CompletedSteps is stored in completion order; StepOutputs maps a
	// completed step name to the artifact reference
	// (session_id/step/attempt_index) of the row ArtifactStore holds.
	CompletedSteps []string          `bun:"completed_steps,array" json:"completed_steps"`
	StepOutputs    map[string]string `bun:"step_outputs,type:jsonb" json:"step_outputs"`
	RetryCounters  map[string]int    `bun:"retry_counters,type:jsonb" json:"retry_counters"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// completedSet returns CompletedSteps as a lookup set.
func (s *Session) completedSet() map[string]bool {
	set := make(map[string]bool, len(s.CompletedSteps))
	for _, name := range s.CompletedSteps {
		set[name] = true
	}
	return set
}

// Step is the static definition of one node in the fixed 11-step
// generation graph. Step values are code- or catalog-loaded; they are
// never persisted per-session (only the session's references to them,
// by name, are).
type Step struct {
	Name                 string   `yaml:"name" json:"name"`
	DependsOn            []string `yaml:"depends_on" json:"depends_on"`
	MaxRetries           int      `yaml:"max_retries" json:"max_retries"`
	TokenBudget          int      `yaml:"token_budget" json:"token_budget"`
	AgentRole            string   `yaml:"agent_role" json:"agent_role"`
	RequiredCapabilities []string `yaml:"required_capabilities" json:"required_capabilities"`
	Produces             string   `yaml:"produces" json:"produces"`
	// RequiresEntity marks a step whose prompt needs a concrete entity
	// name resolved from a prior artifact (§4.3 multi-source discovery)
	// before the agent is invoked.
	RequiresEntity bool `yaml:"requires_entity" json:"requires_entity"`
	// Skippable marks the §9 open question about screenshot_verify's
	// optionality; false everywhere in the shipped catalog (the spec
	// treats the step as mandatory), present so a future catalog edit can
	// flip it without a schema change.
	Skippable bool `yaml:"skippable" json:"skippable"`
}

// ProgressSummary is the progress(project_id) contract's return shape.
type ProgressSummary struct {
	CompletedSteps []string `json:"completed_steps"`
	CurrentStep    string   `json:"current_step"`
	IsRunning      bool     `json:"is_running"`
	IsResumable    bool     `json:"is_resumable"`
}

// ConcurrentStart is returned by Start when a running session already
// exists for the project (§5 start guard).
type ConcurrentStart struct {
	ProjectID string
}

func (e *ConcurrentStart) Error() string {
	return "workflow: a running session already exists for project " + e.ProjectID
}

// DependencyMissing is raised when the scheduler cannot find a unique
// eligible step to run: either the graph is exhausted with unmet
// dependencies (deadlock, F6) or a step names a dependency absent from
// the catalog entirely.
type DependencyMissing struct {
	SessionID string
	Step      string
	Reason    string
}

func (e *DependencyMissing) Error() string {
	return "workflow: dependency missing for session " + e.SessionID + " step " + e.Step + ": " + e.Reason
}
