// Package learning implements the hard-isolated failure memory (component
// A) and its frozen interpretation context. The package's exported
// surface is write-only: IngestFailure and nine convenience wrappers, one
// per canon class. No Find/Get/List function is exported here — offline
// reads live in the sibling domain/learning/readapi package, which only
// cmd/learning-inspect may import (domain/workflow/isolation_test.go
// enforces this).
package learning

import (
	"time"

	"github.com/uptrace/bun"
)

// FailureClass is one of the nine canonical failure classes, F1 through
// F9. The canon is fixed and versioned as a whole (CanonVersion).
type FailureClass string

const (
	F1InvariantViolation FailureClass = "F1_invariant_violation"
	F2ParseFailure       FailureClass = "F2_parse_failure"
	F3Truncation         FailureClass = "F3_truncation"
	F4QualityRejection   FailureClass = "F4_quality_rejection"
	F5Timeout            FailureClass = "F5_timeout"
	F6DependencyMissing  FailureClass = "F6_dependency_missing"
	F7RuntimeException   FailureClass = "F7_runtime_exception"
	F8SemanticConflict   FailureClass = "F8_semantic_conflict"
	F9ExternalFailure    FailureClass = "F9_external_failure"
)

// Scope is the blast radius of a failure.
type Scope string

const (
	ScopeEntityLocal Scope = "entity_local"
	ScopeStepLocal   Scope = "step_local"
	ScopeCrossStep   Scope = "cross_step"
	ScopeSystemic    Scope = "systemic"
)

// CanonVersion is bumped whenever the F1-F9 definitions or their default
// scopes change. It is captured on every InterpretationContext so a
// stored failure can always report what the canon meant at ingest time.
const CanonVersion = "v1"

// canonEntry is one row of the code-defined, versioned failure canon.
type canonEntry struct {
	Retryable    bool
	DefaultScope Scope
}

var canon = map[FailureClass]canonEntry{
	F1InvariantViolation: {Retryable: true, DefaultScope: ScopeEntityLocal},
	F2ParseFailure:       {Retryable: true, DefaultScope: ScopeStepLocal},
	F3Truncation:         {Retryable: true, DefaultScope: ScopeStepLocal},
	F4QualityRejection:   {Retryable: true, DefaultScope: ScopeEntityLocal},
	F5Timeout:            {Retryable: true, DefaultScope: ScopeSystemic},
	F6DependencyMissing:  {Retryable: false, DefaultScope: ScopeCrossStep},
	F7RuntimeException:   {Retryable: false, DefaultScope: ScopeSystemic},
	F8SemanticConflict:   {Retryable: true, DefaultScope: ScopeCrossStep},
	F9ExternalFailure:    {Retryable: true, DefaultScope: ScopeSystemic},
}

// Retryable reports whether the canon marks class c as retryable.
func Retryable(c FailureClass) bool {
	return canon[c].Retryable
}

// DefaultScope returns the canon's default scope for class c. Callers may
// still pass an explicit scope to IngestFailure; scope is never inferred
// after the fact.
func DefaultScope(c FailureClass) Scope {
	return canon[c].DefaultScope
}

// InterpretationContext is the immutable snapshot captured at the moment
// a FailureRecord is created: which signal-extractor version and rules
// hash produced the signals, which invariants were active, what scope
// semantics and canon definitions applied. It is never recomputed for an
// existing record.
type InterpretationContext struct {
	ExtractorVersion    string   `json:"extractor_version"`
	RulesHash           string   `json:"rules_hash"`
	CanonVersion        string   `json:"canon_version"`
	ScopeSemanticsVer   string   `json:"scope_semantics_version"`
	ActiveInvariants    []string `json:"active_invariants"`
	ActiveInvariantHash string   `json:"active_invariants_hash"`
}

// FailureRecord is the append-only entity persisted by the learning
// store. Created exactly once at failure observation; never updated,
// never deleted.
type FailureRecord struct {
	bun.BaseModel `bun:"table:learning.failures_v1,alias:f"`

	ID        string    `bun:"id,pk" json:"id"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	RunID string `bun:"run_id,notnull" json:"run_id"`
	Step  string `bun:"step,notnull" json:"step"`
	Agent string `bun:"agent,notnull" json:"agent"`

	PrimaryClass FailureClass `bun:"primary_class,notnull" json:"primary_class"`
	Scope        Scope        `bun:"scope,notnull" json:"scope"`

	Signals []string `bun:"signals,array" json:"signals"`
	RawError string  `bun:"raw_error" json:"raw_error"`
	RawDiff  string  `bun:"raw_diff" json:"raw_diff"`

	RetryIndex    int  `bun:"retry_index,notnull" json:"retry_index"`
	IsHardFailure bool `bun:"is_hard_failure,notnull" json:"is_hard_failure"`

	SchemaVersion string `bun:"schema_version,notnull" json:"schema_version"`
	CanonVersion  string `bun:"canon_version,notnull" json:"canon_version"`

	InterpretationContextHash string `bun:"interpretation_context_hash,notnull" json:"interpretation_context_hash"`
	InterpretationContextJSON string `bun:"interpretation_context_json,notnull,type:jsonb" json:"interpretation_context_json"`

	// SignalsHash is the idempotency key component derived from Signals;
	// stored so the (run_id, step, retry_index, primary_class,
	// signals_hash) uniqueness check doesn't need to recompute a hash of
	// an array column at ingest time.
	SignalsHash string `bun:"signals_hash,notnull" json:"signals_hash"`
}
