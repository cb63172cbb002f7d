package tit

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository handles database operations for the tool invocation trace.
// Unlike domain/learning, Repository exposes both write and read methods
// directly — the trace has no hard-isolation requirement.
type Repository struct {
	db bun.IDB
}

// NewRepository creates a new tool invocation trace repository.
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create inserts one invocation record. InvocationIndex is assigned as
// one past the highest index already recorded for the session; this is
// race-free under the engine's own concurrency contract (a session is
// strictly sequential, so only one Create per session is ever in flight).
func (r *Repository) Create(ctx context.Context, inv *Invocation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.SchemaVersion == "" {
		inv.SchemaVersion = SchemaVersion
	}
	if inv.InvocationIndex == 0 {
		next, err := r.nextInvocationIndex(ctx, inv.SessionID)
		if err != nil {
			return err
		}
		inv.InvocationIndex = next
	}
	_, err := r.db.NewInsert().Model(inv).Exec(ctx)
	return err
}

func (r *Repository) nextInvocationIndex(ctx context.Context, sessionID string) (int, error) {
	var max int
	err := r.db.NewSelect().
		Model((*Invocation)(nil)).
		ColumnExpr("COALESCE(MAX(invocation_index), -1)").
		Where("session_id = ?", sessionID).
		Scan(ctx, &max)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// ListBySession returns every invocation recorded for a session, oldest
// first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]*Invocation, error) {
	var invs []*Invocation
	err := r.db.NewSelect().
		Model(&invs).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return invs, nil
}

// ListByStep returns every invocation recorded for a single step within a
// session, oldest first.
func (r *Repository) ListByStep(ctx context.Context, sessionID, step string) ([]*Invocation, error) {
	var invs []*Invocation
	err := r.db.NewSelect().
		Model(&invs).
		Where("session_id = ?", sessionID).
		Where("step = ?", step).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return invs, nil
}
