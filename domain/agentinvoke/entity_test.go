package agentinvoke

import "testing"

func TestMaxTokensFor_BackendImplementationIs20000(t *testing.T) {
	got, ok := MaxTokensFor("backend_implementation")
	if !ok {
		t.Fatal("expected backend_implementation to be in the token policy table")
	}
	if got != 20000 {
		t.Errorf("expected 20000, got %d", got)
	}
}

func TestMaxTokensFor_FullCatalog(t *testing.T) {
	want := map[string]int{
		"analysis":               8000,
		"architecture":           12000,
		"frontend_mock":          12000,
		"screenshot_verify":      4000,
		"contracts":              8000,
		"backend_implementation": 20000,
		"system_integration":     6000,
		"testing_backend":        8000,
		"frontend_integration":   12000,
		"testing_frontend":       8000,
		"preview":                2000,
	}

	for step, budget := range want {
		got, ok := MaxTokensFor(step)
		if !ok {
			t.Errorf("expected %q in token policy table", step)
			continue
		}
		if got != budget {
			t.Errorf("%q: expected %d, got %d", step, budget, got)
		}
	}
}

func TestMaxTokensFor_UnknownStep(t *testing.T) {
	if _, ok := MaxTokensFor("not_a_real_step"); ok {
		t.Error("expected unknown step to report not-found rather than a default budget")
	}
}
