// Package readapi is the only sanctioned reader of the learning store.
// It exists purely for the offline inspection CLI (cmd/learning-inspect)
// and for batch drift reporting; domain/workflow, domain/agentinvoke, and
// domain/capabilities must never import this package — enforced by
// domain/workflow/isolation_test.go, which walks the import graph.
package readapi

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/emergent-company/codeforge/domain/learning"
)

// Reader queries the learning store for offline inspection only.
type Reader struct {
	db bun.IDB
}

// NewReader constructs a Reader bound to the learning store's bun.IDB.
func NewReader(db bun.IDB) *Reader {
	return &Reader{db: db}
}

// ListByRun returns every failure record for a run, oldest first.
func (r *Reader) ListByRun(ctx context.Context, runID string) ([]learning.FailureRecord, error) {
	var records []learning.FailureRecord
	err := r.db.NewSelect().
		Model(&records).
		Where("run_id = ?", runID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failures by run: %w", err)
	}
	return records, nil
}

// ListByClass returns the most recent failure records for a given
// primary class, newest first, capped at limit.
func (r *Reader) ListByClass(ctx context.Context, class learning.FailureClass, limit int) ([]learning.FailureRecord, error) {
	var records []learning.FailureRecord
	err := r.db.NewSelect().
		Model(&records).
		Where("primary_class = ?", class).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failures by class: %w", err)
	}
	return records, nil
}

// ListRecent returns the most recent failure records across all runs and
// classes, newest first, capped at limit.
func (r *Reader) ListRecent(ctx context.Context, limit int) ([]learning.FailureRecord, error) {
	var records []learning.FailureRecord
	err := r.db.NewSelect().
		Model(&records).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recent failures: %w", err)
	}
	return records, nil
}

// DriftReport describes one failure record whose stored interpretation
// context hash no longer matches the hash the current process would
// compute.
type DriftReport struct {
	FailureID   string
	RunID       string
	Step        string
	StoredHash  string
	CurrentHash string
}

// ReportDrift recomputes the current interpretation context hash and
// diffs it against every stored hash across the learning store, batching
// what spec.md's single-record drift scenario only requires one at a
// time.
func (r *Reader) ReportDrift(ctx context.Context) ([]DriftReport, error) {
	var records []learning.FailureRecord
	if err := r.db.NewSelect().Model(&records).Scan(ctx); err != nil {
		return nil, fmt.Errorf("load failures for drift report: %w", err)
	}

	current := learning.NewInterpretationContext().Hash()

	var drifted []DriftReport
	for _, rec := range records {
		if rec.InterpretationContextHash != current {
			drifted = append(drifted, DriftReport{
				FailureID:   rec.ID,
				RunID:       rec.RunID,
				Step:        rec.Step,
				StoredHash:  rec.InterpretationContextHash,
				CurrentHash: current,
			})
		}
	}

	return drifted, nil
}
