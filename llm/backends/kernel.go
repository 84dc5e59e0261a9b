package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/llm"
	"github.com/llmgate/llmgate/types"
)

// Kernel is the orchestration backend, the preferred head of the fallback
// chain. It reaches the same provider as the direct backends but enforces
// structured output by guidance: the schema is embedded in a system message
// and the provider is asked for generic JSON mode. That is best effort, so
// requests that demand native strict decoding are refused up front and the
// orchestrator advances to a direct backend.
type Kernel struct {
	*Client
}

// NewKernel creates the kernel backend for the given family. The family
// decides the wire dialect: deployments URL and api-key header for azure,
// Bearer auth for openai.
func NewKernel(family, apiKey, model, endpoint, apiVersion string, timeout time.Duration, logger *zap.Logger) (*Kernel, error) {
	cfg := Config{
		Name:    llm.BackendKernel,
		APIKey:  apiKey,
		Model:   model,
		Timeout: timeout,
	}

	switch family {
	case llm.FamilyAzure:
		if apiVersion == "" {
			apiVersion = azureDefaultAPIVersion
		}
		cfg.BaseURL = strings.TrimRight(endpoint, "/")
		cfg.APIVersion = apiVersion
		cfg.EndpointPath = fmt.Sprintf("/openai/deployments/%s/chat/completions", model)
		cfg.BuildHeaders = func(h http.Header, apiKey string) {
			h.Set("api-key", apiKey)
		}
	case llm.FamilyOpenAI:
		if endpoint == "" {
			endpoint = openaiDefaultBaseURL
		}
		cfg.BaseURL = strings.TrimRight(endpoint, "/")
		cfg.EndpointPath = "/v1/chat/completions"
		cfg.BuildHeaders = func(h http.Header, apiKey string) {
			h.Set("Authorization", "Bearer "+apiKey)
		}
	default:
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("unknown backend family %q", family))
	}

	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Kernel{Client: client}, nil
}

// Capabilities implements llm.Backend.
func (k *Kernel) Capabilities() llm.Capability {
	return llm.Capability{SupportsSchema: true}
}

// Complete implements llm.Backend.
func (k *Kernel) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body := k.BuildBody(req)

	if req.WantsSchema() {
		if req.StrictSchema {
			return nil, types.NewError(types.ErrBackendIncompatible,
				"orchestration path cannot guarantee native schema enforcement").
				WithBackend(k.Name())
		}
		guidance, err := schemaGuidance(req)
		if err != nil {
			return nil, err
		}
		body.Messages = append([]wireMessage{{Role: string(types.RoleSystem), Content: guidance}}, body.Messages...)
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	return k.Do(ctx, body)
}

// schemaGuidance renders the contract payload into a system instruction.
func schemaGuidance(req *llm.ChatRequest) (string, error) {
	payload, err := json.MarshalIndent(req.Schema.Payload, "", "  ")
	if err != nil {
		return "", types.NewError(types.ErrSchema, "schema payload is not serializable").WithCause(err)
	}
	return fmt.Sprintf(
		"You must respond with a single JSON object that conforms to this JSON Schema. "+
			"Do not include any text outside the JSON object.\n\n%s", payload), nil
}

var _ llm.Backend = (*Kernel)(nil)
