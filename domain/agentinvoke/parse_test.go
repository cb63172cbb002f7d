package agentinvoke

import (
	"errors"
	"testing"
)

func TestParseResponse_CompleteBlocks(t *testing.T) {
	text := "=== models.py ===\nclass Note:\n    pass\n=== routers.py ===\ndef list_notes():\n    return []\n"

	artifact, err := parseResponse("backend_implementation", text, "stop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Truncated {
		t.Error("expected a complete response not to be flagged truncated")
	}
	if len(artifact.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(artifact.Files))
	}
}

func TestParseResponse_EmptyBodyIsParseFailure(t *testing.T) {
	_, err := parseResponse("analysis", "   ", "stop")
	var parseFailure *ParseFailure
	if !errors.As(err, &parseFailure) {
		t.Fatalf("expected *ParseFailure, got %v", err)
	}
}

func TestParseResponse_SalvagesFirstCompleteBlockOnTruncation(t *testing.T) {
	// models.py is complete; routers.py is cut off mid-function (unbalanced
	// braces/unterminated fence) — this is spec scenario 2.
	text := "=== models.py ===\n" +
		"class Note:\n    title: str\n    body: str\n" +
		"=== routers.py ===\n" +
		"def list_notes(\n    db: Session"

	artifact, err := parseResponse("backend_implementation", text, "length")

	var truncation *Truncation
	if !errors.As(err, &truncation) {
		t.Fatalf("expected *Truncation, got %v", err)
	}
	if !truncation.Partial.Truncated {
		t.Error("expected salvaged artifact to be flagged truncated")
	}
	if len(truncation.Partial.Files) != 1 {
		t.Fatalf("expected exactly 1 salvaged file, got %d", len(truncation.Partial.Files))
	}
	if truncation.Partial.Files[0].Path != "models.py" {
		t.Errorf("expected salvaged file to be models.py, got %s", truncation.Partial.Files[0].Path)
	}
}

func TestParseResponse_NoSalvageableBlocksIsParseFailure(t *testing.T) {
	text := "=== routers.py ===\ndef list_notes(\n    db: Session"

	_, err := parseResponse("backend_implementation", text, "length")
	var parseFailure *ParseFailure
	if !errors.As(err, &parseFailure) {
		t.Fatalf("expected *ParseFailure when nothing salvages cleanly, got %v", err)
	}
}

func TestLooksTruncated_StopReasonLength(t *testing.T) {
	if !looksTruncated("=== a.py ===\nok", "length") {
		t.Error("expected stop_reason=length to be treated as truncated")
	}
}

func TestLooksTruncated_UnbalancedBraces(t *testing.T) {
	if !looksTruncated("=== a.py ===\ndef f(:", "stop") {
		t.Error("expected unbalanced braces to be treated as truncated")
	}
}

func TestLooksTruncated_CompleteResponse(t *testing.T) {
	if looksTruncated("=== a.py ===\ndef f():\n    return 1\n", "stop") {
		t.Error("expected a structurally complete response not to be treated as truncated")
	}
}
