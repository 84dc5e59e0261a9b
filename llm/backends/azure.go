package backends

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/llm"
)

const azureDefaultAPIVersion = "2024-12-01-preview"

// Azure is the direct Azure OpenAI backend. It speaks the deployments
// dialect: the model name addresses a deployment in the URL and auth uses
// the api-key header.
type Azure struct {
	*Client
}

// NewAzure creates the Azure OpenAI backend.
func NewAzure(apiKey, model, endpoint, apiVersion string, timeout time.Duration, logger *zap.Logger) (*Azure, error) {
	if apiVersion == "" {
		apiVersion = azureDefaultAPIVersion
	}
	client, err := NewClient(Config{
		Name:         llm.BackendAzure,
		APIKey:       apiKey,
		BaseURL:      strings.TrimRight(endpoint, "/"),
		Model:        model,
		APIVersion:   apiVersion,
		EndpointPath: fmt.Sprintf("/openai/deployments/%s/chat/completions", model),
		Timeout:      timeout,
		BuildHeaders: func(h http.Header, apiKey string) {
			h.Set("api-key", apiKey)
		},
	}, logger)
	if err != nil {
		return nil, err
	}
	return &Azure{Client: client}, nil
}

// Capabilities implements llm.Backend.
func (a *Azure) Capabilities() llm.Capability {
	return llm.Capability{SupportsSchema: true}
}

// Complete implements llm.Backend.
func (a *Azure) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body := a.BuildBody(req)
	if req.WantsSchema() {
		body.ResponseFormat = nativeSchemaFormat(req)
	}
	return a.Do(ctx, body)
}

var _ llm.Backend = (*Azure)(nil)
