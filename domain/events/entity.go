// Package events implements the §6 event stream: it fans out the
// workflow engine's WORKFLOW_*/AGENT_MESSAGE/QUALITY_GATE_BLOCKED/
// WORKSPACE_UPDATED messages to connected SSE clients and, per
// SPEC_FULL.md §3, appends every one to a durable SessionEvent log so a
// client that reconnects mid-run can replay what it missed by seq — the
// teacher's SSE layer (domain/events/types.go's SSEConnection/heartbeat
// pattern) had no backing store at all.
package events

import (
	"time"

	"github.com/uptrace/bun"
)

// SessionEvent is the append-only projection of one emitted
// workflow.Event. Payload is stored pre-serialized since workflow.Event
// is a tagged union and a single jsonb column is simpler than one
// nullable column per event-kind field.
type SessionEvent struct {
	bun.BaseModel `bun:"table:events.session_events,alias:se"`

	SessionID   string    `bun:"session_id,pk" json:"session_id"`
	Seq         int64     `bun:"seq,pk" json:"seq"`
	Kind        string    `bun:"kind,notnull" json:"kind"`
	PayloadJSON string    `bun:"payload_json,type:jsonb,notnull" json:"payload_json"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
