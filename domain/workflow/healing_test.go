package workflow

import (
	"testing"

	"github.com/emergent-company/codeforge/domain/agentinvoke"
)

func artifactWith(content string) agentinvoke.Artifact {
	return agentinvoke.Artifact{Files: []agentinvoke.FileBlock{{Path: "out.py", Content: content}}}
}

func TestDiscoverEntity_PrefersOwnArtifact(t *testing.T) {
	own := artifactWith("class Invoice:\n    pass\n")
	contracts := artifactWith("class Order:\n    pass\n")
	name, ok := discoverEntity(own, contracts, agentinvoke.Artifact{})
	if !ok || name != "Invoice" {
		t.Fatalf("expected Invoice from own artifact, got %q, %v", name, ok)
	}
}

func TestDiscoverEntity_FallsBackToContractsThenArchitecture(t *testing.T) {
	name, ok := discoverEntity(
		agentinvoke.Artifact{},
		artifactWith("interface Order {}\n"),
		artifactWith("model Shipment"),
	)
	if !ok || name != "Order" {
		t.Fatalf("expected Order from contracts, got %q, %v", name, ok)
	}

	name, ok = discoverEntity(agentinvoke.Artifact{}, agentinvoke.Artifact{}, artifactWith("model Shipment"))
	if !ok || name != "Shipment" {
		t.Fatalf("expected Shipment from architecture, got %q, %v", name, ok)
	}
}

func TestDiscoverEntity_NeverGuesses(t *testing.T) {
	name, ok := discoverEntity(
		artifactWith("# no entity declared here, just prose about the item\n"),
		agentinvoke.Artifact{},
		agentinvoke.Artifact{},
	)
	if ok {
		t.Fatalf("expected no match rather than a guessed name, got %q", name)
	}
}

func TestFirstEntityName_OnlyMatchesCapitalizedDeclarations(t *testing.T) {
	if _, ok := firstEntityName(artifactWith("class invoice:\n    pass\n")); ok {
		t.Error("expected a lowercase class name not to match")
	}
	if name, ok := firstEntityName(artifactWith("class Invoice(Base):\n    pass\n")); !ok || name != "Invoice" {
		t.Errorf("expected Invoice, got %q, %v", name, ok)
	}
}
