package learning

import "testing"

func TestInterpretationContext_HashDeterministic(t *testing.T) {
	a := NewInterpretationContext()
	b := NewInterpretationContext()

	if a.Hash() != b.Hash() {
		t.Fatalf("interpretation context hash not stable across construction: %q vs %q", a.Hash(), b.Hash())
	}
}

func TestInterpretationContext_HashChangesWithInvariants(t *testing.T) {
	a := NewInterpretationContext()

	b := a
	b.ActiveInvariants = append(append([]string{}, a.ActiveInvariants...), "a_new_invariant")
	b.ActiveInvariantHash = hashStrings(b.ActiveInvariants)

	if a.Hash() == b.Hash() {
		t.Fatal("expected hash to change when active invariants change")
	}
}

func TestHashSignals_OrderIndependent(t *testing.T) {
	forward := HashSignals([]string{"TypeError", "ValueError", "models.py:42"})
	reversed := HashSignals([]string{"models.py:42", "ValueError", "TypeError"})

	if forward != reversed {
		t.Errorf("expected signal hash to be order-independent, got %q vs %q", forward, reversed)
	}
}

func TestHashSignals_EmptyIsStable(t *testing.T) {
	if HashSignals(nil) != HashSignals([]string{}) {
		t.Error("expected nil and empty signal slices to hash identically")
	}
}

func TestCanon_RetryableAndScope(t *testing.T) {
	cases := []struct {
		class     FailureClass
		retryable bool
		scope     Scope
	}{
		{F1InvariantViolation, true, ScopeEntityLocal},
		{F2ParseFailure, true, ScopeStepLocal},
		{F3Truncation, true, ScopeStepLocal},
		{F4QualityRejection, true, ScopeEntityLocal},
		{F5Timeout, true, ScopeSystemic},
		{F6DependencyMissing, false, ScopeCrossStep},
		{F7RuntimeException, false, ScopeSystemic},
		{F8SemanticConflict, true, ScopeCrossStep},
		{F9ExternalFailure, true, ScopeSystemic},
	}

	for _, tc := range cases {
		t.Run(string(tc.class), func(t *testing.T) {
			if got := Retryable(tc.class); got != tc.retryable {
				t.Errorf("Retryable(%s) = %v, want %v", tc.class, got, tc.retryable)
			}
			if got := DefaultScope(tc.class); got != tc.scope {
				t.Errorf("DefaultScope(%s) = %v, want %v", tc.class, got, tc.scope)
			}
		})
	}
}
