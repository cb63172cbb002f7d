package events

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Repository persists the SessionEvent log.
type Repository struct {
	db bun.IDB
}

// NewRepository constructs a Repository.
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Append writes the next seq for sessionID and returns it. Sessions are
// strictly sequential (one engine advances one session at a time), so
// MAX(seq)+1 under the row's own session_id is race-free in practice;
// a concurrent writer would only appear under an operator bug, in which
// case a unique-violation on (session_id, seq) fails loudly instead of
// silently corrupting the sequence.
func (r *Repository) Append(ctx context.Context, sessionID, kind, payloadJSON string) error {
	var next int64
	err := r.db.NewSelect().
		ColumnExpr("COALESCE(MAX(seq), 0) + 1").
		Table("events.session_events").
		Where("session_id = ?", sessionID).
		Scan(ctx, &next)
	if err != nil {
		return fmt.Errorf("events: compute next seq: %w", err)
	}

	rec := &SessionEvent{SessionID: sessionID, Seq: next, Kind: kind, PayloadJSON: payloadJSON}
	if _, err := r.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return fmt.Errorf("events: append session event: %w", err)
	}
	return nil
}

// ListSince returns every event for sessionID with seq strictly greater
// than afterSeq, oldest first — the replay contract for a reconnecting
// SSE client (afterSeq=0 replays the whole log).
func (r *Repository) ListSince(ctx context.Context, sessionID string, afterSeq int64) ([]SessionEvent, error) {
	var recs []SessionEvent
	err := r.db.NewSelect().
		Model(&recs).
		Where("session_id = ?", sessionID).
		Where("seq > ?", afterSeq).
		OrderExpr("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("events: list since %d: %w", afterSeq, err)
	}
	return recs, nil
}
