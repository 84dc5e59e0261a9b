// Package llmgate is the one-shot entry point: load a configuration, build
// the backend chain, and run a single chat task with structured-output
// enforcement and fallback.
package llmgate

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/llmgate/llmgate/config"
	"github.com/llmgate/llmgate/internal/metrics"
	"github.com/llmgate/llmgate/llm"
	"github.com/llmgate/llmgate/llm/backends"
	"github.com/llmgate/llmgate/structured"
	"github.com/llmgate/llmgate/types"
)

// Options configures a single run.
type Options struct {
	Config *config.Config

	// History is the conversation to execute.
	History types.ChatHistory

	// Schema, when non-nil, is compiled into a contract and enforced on
	// every attempt. Nil runs in text mode.
	Schema map[string]any

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Registry receives execution metrics. Nil uses a private registry.
	Registry prometheus.Registerer
}

// Run executes one chat task through the configured backend chain and
// returns the first valid result.
func Run(ctx context.Context, opts Options) (*llm.Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.FromEnv()
	}
	cfg.Normalize(logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var contract *structured.Contract
	if opts.Schema != nil {
		var err error
		contract, err = structured.BuildContract(opts.Schema)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := cfg.Candidates()
	if err != nil {
		return nil, err
	}

	factory := backends.NewFactory(backends.FactoryConfig{
		Family:        cfg.Family,
		Endpoint:      cfg.Endpoint,
		APIKey:        cfg.APIKey,
		Model:         cfg.Model,
		APIVersion:    cfg.APIVersion,
		OpenAIKey:     cfg.OpenAIFallback.APIKey,
		OpenAIModel:   cfg.OpenAIFallback.Model,
		OpenAIBaseURL: cfg.OpenAIFallback.BaseURL,
	}, logger)

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	orchestrator := llm.NewOrchestrator(factory, candidates, logger,
		llm.WithExecutionPolicy(cfg.ExecutionPolicy()),
		llm.WithSetupPolicy(cfg.SetupPolicy()),
		llm.WithCollector(metrics.NewCollector(registry)),
	)

	req := &llm.ChatRequest{
		TraceID:      uuid.NewString(),
		Model:        cfg.Model,
		Messages:     opts.History,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		Schema:       contract,
		StrictSchema: cfg.StrictSchema,
	}
	return orchestrator.Execute(ctx, req)
}
