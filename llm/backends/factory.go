package backends

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/llm"
	"github.com/llmgate/llmgate/types"
)

// FactoryConfig carries the provider settings the factory needs to build any
// candidate in the chain.
type FactoryConfig struct {
	Family     string
	Endpoint   string
	APIKey     string
	Model      string
	APIVersion string
	Timeout    time.Duration

	// Cross-provider fallback credentials for the direct OpenAI candidate
	// when the family is azure.
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
}

// Factory builds backend clients on demand, so candidates that are never
// reached never construct a client.
type Factory struct {
	cfg    FactoryConfig
	logger *zap.Logger
}

// NewFactory creates a Factory.
func NewFactory(cfg FactoryConfig, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{cfg: cfg, logger: logger}
}

// Create implements llm.BackendFactory.
func (f *Factory) Create(ctx context.Context, id string) (llm.Backend, error) {
	switch id {
	case llm.BackendKernel:
		return NewKernel(f.cfg.Family, f.cfg.APIKey, f.cfg.Model, f.cfg.Endpoint,
			f.cfg.APIVersion, f.cfg.Timeout, f.logger)
	case llm.BackendAzure:
		return NewAzure(f.cfg.APIKey, f.cfg.Model, f.cfg.Endpoint,
			f.cfg.APIVersion, f.cfg.Timeout, f.logger)
	case llm.BackendOpenAI:
		if f.cfg.Family == llm.FamilyAzure {
			model := f.cfg.OpenAIModel
			if model == "" {
				model = f.cfg.Model
			}
			return NewOpenAI(f.cfg.OpenAIKey, model, f.cfg.OpenAIBaseURL,
				f.cfg.Timeout, f.logger)
		}
		return NewOpenAI(f.cfg.APIKey, f.cfg.Model, f.cfg.Endpoint,
			f.cfg.Timeout, f.logger)
	default:
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("unknown backend candidate %q", id))
	}
}

var _ llm.BackendFactory = (*Factory)(nil)
