package testutil

import (
	"context"
	"fmt"

	"github.com/emergent-company/codeforge/pkg/llmprovider"
)

// FakeProvider is an llmprovider.Provider that never leaves the process.
// It returns one well-formed file block per Complete call so the
// assembler/invoker/engine path can be exercised without a real model
// backend, and its Responses queue lets a test script a sequence of
// outputs (e.g. a first attempt that fails validation, then one that
// passes) the way a real model's retries would differ.
type FakeProvider struct {
	// Responses, when non-empty, is consumed one at a time per Complete
	// call; the last entry repeats once exhausted. Leave nil to use the
	// default single-file response for every call.
	Responses []llmprovider.Response

	calls int
}

// NewFakeProvider constructs a FakeProvider with the default response.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

func (p *FakeProvider) Complete(ctx context.Context, req llmprovider.Request) (llmprovider.Response, error) {
	p.calls++

	if len(p.Responses) == 0 {
		return llmprovider.Response{
			Text:         fmt.Sprintf("=== output.txt ===\nstub output for step call %d\n", p.calls),
			StopReason:   "stop",
			InputTokens:  len(req.Messages),
			OutputTokens: 1,
		}, nil
	}

	idx := p.calls - 1
	if idx >= len(p.Responses) {
		idx = len(p.Responses) - 1
	}
	return p.Responses[idx], nil
}

// Calls returns how many times Complete has been invoked.
func (p *FakeProvider) Calls() int {
	return p.calls
}
