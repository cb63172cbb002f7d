package learning

import "context"

// IngestFailure is the general entry point: classify, extract signals,
// and write exactly once (idempotent on the dedup tuple). Most callers
// use the per-class wrappers below instead, which fix PrimaryClass and
// pick up DefaultScope unless an override is supplied.
func (r *Repository) IngestFailure(ctx context.Context, p IngestParams) (*FailureRecord, error) {
	if p.Signals == nil {
		p.Signals = ExtractSignals(p.RawError, p.RawDiff)
	}
	if p.Scope == "" {
		p.Scope = DefaultScope(p.PrimaryClass)
	}
	p.IsHardFailure = p.IsHardFailure || !Retryable(p.PrimaryClass)
	return r.Ingest(ctx, p)
}

// wrapperParams is the common shape every per-class convenience wrapper
// accepts; it omits PrimaryClass (fixed by the wrapper) and Scope
// (defaulted from the canon unless the Scope field below is set).
type wrapperParams struct {
	RunID      string
	Step       string
	Agent      string
	RawError   string
	RawDiff    string
	RetryIndex int
	Scope      Scope // optional override; empty uses DefaultScope
}

func (r *Repository) ingestClass(ctx context.Context, class FailureClass, p wrapperParams) (*FailureRecord, error) {
	return r.IngestFailure(ctx, IngestParams{
		RunID:      p.RunID,
		Step:       p.Step,
		Agent:      p.Agent,
		PrimaryClass: class,
		Scope:      p.Scope,
		RawError:   p.RawError,
		RawDiff:    p.RawDiff,
		RetryIndex: p.RetryIndex,
	})
}

// IngestF1 records an invariant violation.
func (r *Repository) IngestF1(ctx context.Context, p wrapperParams) (*FailureRecord, error) {
	return r.ingestClass(ctx, F1InvariantViolation, p)
}

// IngestF2 records a parse failure.
func (r *Repository) IngestF2(ctx context.Context, p wrapperParams) (*FailureRecord, error) {
	return r.ingestClass(ctx, F2ParseFailure, p)
}

// IngestF3 records a truncation.
func (r *Repository) IngestF3(ctx context.Context, p wrapperParams) (*FailureRecord, error) {
	return r.ingestClass(ctx, F3Truncation, p)
}

// IngestF4 records a supervisor quality rejection.
func (r *Repository) IngestF4(ctx context.Context, p wrapperParams) (*FailureRecord, error) {
	return r.ingestClass(ctx, F4QualityRejection, p)
}

// IngestF5 records an LLM/process timeout.
func (r *Repository) IngestF5(ctx context.Context, p wrapperParams) (*FailureRecord, error) {
	return r.ingestClass(ctx, F5Timeout, p)
}

// IngestF6 records a missing dependency (not retryable).
func (r *Repository) IngestF6(ctx context.Context, p wrapperParams) (*FailureRecord, error) {
	return r.ingestClass(ctx, F6DependencyMissing, p)
}

// IngestF7 records a runtime exception (not retryable).
func (r *Repository) IngestF7(ctx context.Context, p wrapperParams) (*FailureRecord, error) {
	return r.ingestClass(ctx, F7RuntimeException, p)
}

// IngestF8 records a cross-step semantic conflict.
func (r *Repository) IngestF8(ctx context.Context, p wrapperParams) (*FailureRecord, error) {
	return r.ingestClass(ctx, F8SemanticConflict, p)
}

// IngestF9 records an external (provider-side) failure.
func (r *Repository) IngestF9(ctx context.Context, p wrapperParams) (*FailureRecord, error) {
	return r.ingestClass(ctx, F9ExternalFailure, p)
}

// WrapperParams is the exported constructor for wrapperParams, kept as a
// function rather than exporting the struct fields directly so future
// fields can be added without breaking call sites.
func WrapperParams(runID, step, agent, rawError, rawDiff string, retryIndex int) wrapperParams {
	return wrapperParams{
		RunID:      runID,
		Step:       step,
		Agent:      agent,
		RawError:   rawError,
		RawDiff:    rawDiff,
		RetryIndex: retryIndex,
	}
}
