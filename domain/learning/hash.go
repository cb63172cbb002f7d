package learning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// ActiveInvariants is the startup-frozen list of invariant names the
// engine currently enforces. It changes only on deploy, never at
// runtime, which is what lets InterpretationContext be a stable snapshot
// rather than a moving target.
var ActiveInvariants = []string{
	"completed_steps_no_duplicates",
	"completed_steps_topological_order",
	"retries_le_max_retries",
	"one_primary_class_one_scope",
	"context_hash_immutable",
}

const ScopeSemanticsVersion = "v1"

// NewInterpretationContext captures the frozen snapshot used at ingest
// time. It is never recomputed for an existing FailureRecord.
func NewInterpretationContext() InterpretationContext {
	sorted := append([]string(nil), ActiveInvariants...)
	sort.Strings(sorted)

	return InterpretationContext{
		ExtractorVersion:    SignalExtractorVersion,
		RulesHash:           RulesHash,
		CanonVersion:        CanonVersion,
		ScopeSemanticsVer:   ScopeSemanticsVersion,
		ActiveInvariants:    sorted,
		ActiveInvariantHash: hashStrings(sorted),
	}
}

// Hash deterministically hashes the context:
// H(extractor_version || rules_hash || canon_version ||
// scope_semantics_version || active_invariants_hash).
func (c InterpretationContext) Hash() string {
	parts := strings.Join([]string{
		c.ExtractorVersion,
		c.RulesHash,
		c.CanonVersion,
		c.ScopeSemanticsVer,
		c.ActiveInvariantHash,
	}, "||")
	sum := sha256.Sum256([]byte(parts))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// JSON serializes the context for the interpretation_context_json column,
// preserved for reconstruction independent of the hash.
func (c InterpretationContext) JSON() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func hashStrings(values []string) string {
	sum := sha256.Sum256([]byte(strings.Join(values, "|")))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// HashSignals produces the signals_hash component of the idempotency key
// (run_id, step, retry_index, primary_class, signals_hash). Two retries
// that extract the same signal list hash identically, which is what lets
// the engine detect "two consecutive retries with the same signal hash"
// and promote a failure to is_hard_failure (spec §4.1 retry policy).
func HashSignals(signals []string) string {
	sorted := append([]string(nil), signals...)
	sort.Strings(sorted)
	return hashStrings(sorted)
}
