package backends

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/llm"
)

const openaiDefaultBaseURL = "https://api.openai.com"

// OpenAI is the direct OpenAI chat-completions backend. Structured output
// rides on the native json_schema response format with strict decoding.
type OpenAI struct {
	*Client
}

// NewOpenAI creates the OpenAI backend.
func NewOpenAI(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) (*OpenAI, error) {
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	client, err := NewClient(Config{
		Name:         llm.BackendOpenAI,
		APIKey:       apiKey,
		BaseURL:      baseURL,
		Model:        model,
		EndpointPath: "/v1/chat/completions",
		Timeout:      timeout,
		BuildHeaders: func(h http.Header, apiKey string) {
			h.Set("Authorization", "Bearer "+apiKey)
		},
	}, logger)
	if err != nil {
		return nil, err
	}
	return &OpenAI{Client: client}, nil
}

// Capabilities implements llm.Backend.
func (o *OpenAI) Capabilities() llm.Capability {
	return llm.Capability{SupportsSchema: true}
}

// Complete implements llm.Backend.
func (o *OpenAI) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body := o.BuildBody(req)
	if req.WantsSchema() {
		body.ResponseFormat = nativeSchemaFormat(req)
	}
	return o.Do(ctx, body)
}

// nativeSchemaFormat builds the strict json_schema response format shared by
// the OpenAI and Azure dialects.
func nativeSchemaFormat(req *llm.ChatRequest) *responseFormat {
	payload := req.Schema.Payload
	name, _ := payload["title"].(string)
	if name == "" {
		name = "structured_output"
	}
	return &responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchemaFormat{
			Name:   name,
			Strict: true,
			Schema: payload,
		},
	}
}

var _ llm.Backend = (*OpenAI)(nil)
