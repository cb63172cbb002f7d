package learning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/emergent-company/codeforge/pkg/logger"
)

// Repository is the sole write path into the learning store. It has no
// Find/Get/List method by design — see the package doc comment.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository constructs a Repository bound to the learning store's
// own bun.IDB, which must come from a connection pool distinct from the
// operational database (internal/database.NewLearningBunDB).
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("learning"))}
}

// IngestParams are the caller-supplied fields of a FailureRecord; ID,
// CreatedAt, CanonVersion, InterpretationContext*, and SignalsHash are
// all derived or stamped by Ingest.
type IngestParams struct {
	RunID         string
	Step          string
	Agent         string
	PrimaryClass  FailureClass
	Scope         Scope
	Signals       []string
	RawError      string
	RawDiff       string
	RetryIndex    int
	IsHardFailure bool
	SchemaVersion string
}

// Ingest writes one FailureRecord, or no-ops if a record with the same
// (run_id, step, retry_index, primary_class, signals_hash) already
// exists. The interpretation context is captured fresh on every call —
// never read back from a prior record — consistent with "captured at
// ingest, not read-time."
func (r *Repository) Ingest(ctx context.Context, p IngestParams) (*FailureRecord, error) {
	if p.SchemaVersion == "" {
		p.SchemaVersion = "v1"
	}

	signalsHash := HashSignals(p.Signals)

	existing, err := r.findDuplicate(ctx, p.RunID, p.Step, p.RetryIndex, p.PrimaryClass, signalsHash)
	if err != nil {
		return nil, fmt.Errorf("check duplicate failure record: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	ic := NewInterpretationContext()
	icJSON, err := ic.JSON()
	if err != nil {
		return nil, fmt.Errorf("marshal interpretation context: %w", err)
	}

	record := &FailureRecord{
		ID:                        uuid.NewString(),
		RunID:                     p.RunID,
		Step:                      p.Step,
		Agent:                     p.Agent,
		PrimaryClass:              p.PrimaryClass,
		Scope:                     p.Scope,
		Signals:                   p.Signals,
		RawError:                  p.RawError,
		RawDiff:                   p.RawDiff,
		RetryIndex:                p.RetryIndex,
		IsHardFailure:             p.IsHardFailure,
		SchemaVersion:             p.SchemaVersion,
		CanonVersion:              CanonVersion,
		InterpretationContextHash: ic.Hash(),
		InterpretationContextJSON: icJSON,
		SignalsHash:               signalsHash,
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert failure record: %w", err)
	}

	return record, nil
}

func (r *Repository) findDuplicate(ctx context.Context, runID, step string, retryIndex int, class FailureClass, signalsHash string) (*FailureRecord, error) {
	record := new(FailureRecord)
	err := r.db.NewSelect().
		Model(record).
		Where("run_id = ?", runID).
		Where("step = ?", step).
		Where("retry_index = ?", retryIndex).
		Where("primary_class = ?", class).
		Where("signals_hash = ?", signalsHash).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
