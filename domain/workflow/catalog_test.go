package workflow

import (
	"errors"
	"testing"
)

func TestLoadCatalog_EmbeddedDefault(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Names()) != 11 {
		t.Fatalf("expected 11 steps in the default catalog, got %d: %v", len(c.Names()), c.Names())
	}
	if _, ok := c.Step("analysis"); !ok {
		t.Errorf("expected analysis step to be present")
	}
}

func TestLoadCatalog_MissingPathFallsBackToDefault(t *testing.T) {
	c, err := LoadCatalog("/does/not/exist.yaml")
	if err != nil {
		t.Fatalf("unexpected error falling back to default: %v", err)
	}
	if len(c.Names()) != 11 {
		t.Fatalf("expected default catalog on missing path, got %d steps", len(c.Names()))
	}
}

func TestNewCatalog_RejectsUnknownDependency(t *testing.T) {
	_, err := newCatalog([]Step{
		{Name: "a", DependsOn: nil},
		{Name: "b", DependsOn: []string{"ghost"}},
	})
	if err == nil {
		t.Fatal("expected an error for an unknown depends_on reference")
	}
	var dep *DependencyMissing
	if !errors.As(err, &dep) {
		t.Fatalf("expected a *DependencyMissing, got %T: %v", err, err)
	}
}

func TestCatalog_Eligible(t *testing.T) {
	c, err := newCatalog([]Step{
		{Name: "analysis", DependsOn: nil},
		{Name: "architecture", DependsOn: []string{"analysis"}},
		{Name: "contracts", DependsOn: []string{"architecture"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eligible := c.eligible(map[string]bool{})
	if len(eligible) != 1 || eligible[0] != "analysis" {
		t.Fatalf("expected only analysis eligible with nothing completed, got %v", eligible)
	}

	eligible = c.eligible(map[string]bool{"analysis": true})
	if len(eligible) != 1 || eligible[0] != "architecture" {
		t.Fatalf("expected only architecture eligible after analysis, got %v", eligible)
	}

	eligible = c.eligible(map[string]bool{"analysis": true, "architecture": true, "contracts": true})
	if len(eligible) != 0 {
		t.Fatalf("expected nothing eligible once all steps are completed, got %v", eligible)
	}
}

func TestCatalog_EligibleSortedDeterministically(t *testing.T) {
	c, err := newCatalog([]Step{
		{Name: "zeta", DependsOn: nil},
		{Name: "alpha", DependsOn: nil},
		{Name: "mid", DependsOn: nil},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eligible := c.eligible(map[string]bool{})
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if eligible[i] != name {
			t.Fatalf("expected lexicographic order %v, got %v", want, eligible)
		}
	}
}

