// Package tit implements the tool invocation trace (component B): a
// write-through, fail-safe record of every tool call the engine makes,
// taken at three boundaries — capability execution, LLM invocation, and
// process/subprocess execution. Unlike domain/learning, the trace has no
// isolation requirement; it is read by operators. The supervisor review
// step does not read it.
package tit

import (
	"time"

	"github.com/uptrace/bun"
)

// Boundary identifies which of the three hook points produced a record.
// Its values are the tool_type vocabulary: a capability-executor call is
// a plan invocation (it came from a ToolPlan entry), an agent call is an
// llm call, a sandboxed command is a process call.
type Boundary string

const (
	BoundaryCapability Boundary = "plan_invocation"
	BoundaryLLM        Boundary = "llm"
	BoundaryProcess    Boundary = "process"
)

// Status is the terminal disposition of one recorded call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusTimeout Status = "timeout"
	StatusAborted Status = "aborted"
)

// SchemaVersion is stamped on every Invocation row so a future reader can
// tell which field set produced it.
const SchemaVersion = "v1"

// maxFieldBytes is the truncation limit applied to Input/Output before
// storage, so a runaway tool (a directory listing, a stack dump) can't
// blow out the trace table.
const maxFieldBytes = 2048

// Invocation is one recorded tool call. It is always written, even when
// the call itself failed — Error is populated instead of Output in that
// case. SessionID doubles as the run_id join key referenced by the
// learning store's FailureRecord: this system has no branching concept,
// so a session is a run. BranchID and DecisionID are carried for schema
// compatibility with a future branching engine and are left nil here.
type Invocation struct {
	bun.BaseModel `bun:"table:tit.tool_invocations,alias:ti"`

	ID        string    `bun:"id,pk" json:"id"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	SessionID  string  `bun:"session_id,notnull" json:"session_id"`
	BranchID   *string `bun:"branch_id" json:"branch_id,omitempty"`
	DecisionID *string `bun:"decision_id" json:"decision_id,omitempty"`

	Step     string   `bun:"step,notnull" json:"step"`
	Agent    string   `bun:"agent" json:"agent"`
	Boundary Boundary `bun:"tool_type,notnull" json:"tool_type"`
	ToolName string   `bun:"tool_name,notnull" json:"tool_name"`

	InvocationIndex int `bun:"invocation_index,notnull" json:"invocation_index"`

	Input  string `bun:"input" json:"input"`
	Output string `bun:"output" json:"output"`

	Status       Status `bun:"status,notnull" json:"status"`
	ErrorType    string `bun:"error_type" json:"error_type"`
	ErrorMessage string `bun:"error_message" json:"error_message"`

	TokensUsed int    `bun:"tokens_used,notnull" json:"tokens_used"`
	ModelName  string `bun:"model_name" json:"model_name"`
	Retries    int    `bun:"retries,notnull" json:"retries"`

	DurationMs int  `bun:"duration_ms,notnull" json:"duration_ms"`
	Truncated  bool `bun:"truncated,notnull" json:"truncated"`

	SchemaVersion string `bun:"schema_version,notnull" json:"schema_version"`
}
