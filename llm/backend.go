package llm

import (
	"context"
	"fmt"

	"github.com/llmgate/llmgate/types"
)

// Backend candidate identifiers, in default preference order.
const (
	BackendKernel = "kernel"
	BackendAzure  = "azure"
	BackendOpenAI = "openai"
)

// Backend families selectable through configuration.
const (
	FamilyAzure  = "azure"
	FamilyOpenAI = "openai"
)

// Capability describes what a backend can structurally honor.
type Capability struct {
	// SupportsSchema reports whether the backend can enforce structured
	// output, natively or via prompt guidance.
	SupportsSchema bool
}

// Backend executes a single chat completion against one provider.
type Backend interface {
	// Complete performs one model invocation. Implementations classify
	// failures into *types.Error so retry and fallback decisions hold.
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the candidate identifier.
	Name() string

	// Capabilities reports what the backend can honor.
	Capabilities() Capability
}

// Candidate is one entry in the ordered fallback chain.
type Candidate struct {
	ID         string
	Capability Capability
}

// BackendFactory constructs backend clients lazily, so a candidate that is
// never reached never pays its setup cost.
type BackendFactory interface {
	Create(ctx context.Context, id string) (Backend, error)
}

// CandidatesForFamily returns the ordered fallback chain for a model family.
// The kernel orchestration path leads both chains; direct SDK paths follow.
func CandidatesForFamily(family string) ([]Candidate, error) {
	switch family {
	case FamilyAzure:
		return []Candidate{
			{ID: BackendKernel, Capability: Capability{SupportsSchema: true}},
			{ID: BackendAzure, Capability: Capability{SupportsSchema: true}},
			{ID: BackendOpenAI, Capability: Capability{SupportsSchema: true}},
		}, nil
	case FamilyOpenAI:
		return []Candidate{
			{ID: BackendKernel, Capability: Capability{SupportsSchema: true}},
			{ID: BackendOpenAI, Capability: Capability{SupportsSchema: true}},
		}, nil
	default:
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("unknown backend family %q", family))
	}
}
