package llm

import (
	"github.com/llmgate/llmgate/structured"
	"github.com/llmgate/llmgate/types"
)

// ChatRequest is the canonical request passed to every backend.
type ChatRequest struct {
	// TraceID correlates log lines and errors across one execution.
	TraceID string

	Model       string
	Messages    types.ChatHistory
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string

	// Schema, when set, demands schema-conformant JSON output.
	Schema *structured.Contract

	// StrictSchema demands native constrained decoding from the backend.
	// Backends that can only approximate enforcement must refuse the
	// request rather than silently downgrade it.
	StrictSchema bool
}

// WantsSchema reports whether the request demands structured output.
func (r *ChatRequest) WantsSchema() bool {
	return r.Schema != nil
}

// ChatUsage reports token consumption for one backend call.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatChoice is one completion alternative returned by a backend.
type ChatChoice struct {
	Index        int           `json:"index"`
	Message      types.Message `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ChatResponse is the canonical response shape every backend normalizes to.
type ChatResponse struct {
	ID      string       `json:"id,omitempty"`
	Model   string       `json:"model,omitempty"`
	Backend string       `json:"backend"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}
