package agentinvoke

import (
	"strings"
	"testing"
)

func TestAssemble_ContractsAlwaysIncludedInFull(t *testing.T) {
	a, err := NewAssembler()
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}

	prior := map[string]Artifact{
		"contracts": {
			Step:  "contracts",
			Files: []FileBlock{{Path: "openapi.yaml", Content: "paths: {}"}},
		},
	}

	messages, err := a.Assemble(PromptInput{
		Step:           "backend_implementation",
		AgentRole:      "backend_implementation",
		Description:    "A notes app",
		PriorArtifacts: prior,
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	var userMsg string
	for _, m := range messages {
		if m.Role == "user" {
			userMsg = m.Content
		}
	}
	if !strings.Contains(userMsg, "openapi.yaml") {
		t.Errorf("expected contracts artifact to be inlined in full, got:\n%s", userMsg)
	}
}

func TestAssemble_UnknownRoleFallsBackWithoutError(t *testing.T) {
	a, err := NewAssembler()
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}

	_, err = a.Assemble(PromptInput{Step: "backend_implementation", AgentRole: "not_a_role", Description: "x"})
	if err != nil {
		t.Fatalf("expected unknown role to fall back rather than error, got %v", err)
	}
}

func TestAssemble_RetryHintIncludedWhenPresent(t *testing.T) {
	a, err := NewAssembler()
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}

	messages, err := a.Assemble(PromptInput{
		Step:        "backend_implementation",
		AgentRole:   "backend_implementation",
		Description: "A notes app",
		RetryHint:   "the previous attempt omitted the Note model",
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	var userMsg string
	for _, m := range messages {
		if m.Role == "user" {
			userMsg = m.Content
		}
	}
	if !strings.Contains(userMsg, "omitted the Note model") {
		t.Errorf("expected retry hint in rendered prompt, got:\n%s", userMsg)
	}
}
