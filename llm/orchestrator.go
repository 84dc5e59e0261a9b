package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/llmgate/llmgate/internal/metrics"
	"github.com/llmgate/llmgate/llm/retry"
	"github.com/llmgate/llmgate/types"
)

// execState tracks orchestrator progress through the candidate chain.
type execState string

const (
	stateNotStarted execState = "NOT_STARTED"
	stateTrying     execState = "TRYING"
	stateSucceeded  execState = "SUCCEEDED"
	stateFailed     execState = "FAILED"
)

// Result modes.
const (
	ModeText       = "text"
	ModeStructured = "structured"
)

// Result is the outcome of a successful execution.
type Result struct {
	// Mode is "structured" when a schema contract was enforced, "text"
	// otherwise.
	Mode string `json:"mode"`

	// Text is the raw content the backend produced.
	Text string `json:"text"`

	// Value is the decoded, schema-validated output. For text mode it
	// equals Text.
	Value any `json:"value"`

	Backend  string    `json:"backend"`
	Attempts int       `json:"attempts"`
	Model    string    `json:"model,omitempty"`
	Usage    ChatUsage `json:"usage"`
	TraceID  string    `json:"trace_id,omitempty"`
}

// Orchestrator drives an ordered chain of backend candidates. Each candidate
// receives a full retry budget before the orchestrator advances; structurally
// incompatible candidates are skipped without consuming attempts.
type Orchestrator struct {
	factory     BackendFactory
	candidates  []Candidate
	execPolicy  retry.Policy
	setupPolicy retry.Policy
	logger      *zap.Logger
	collector   *metrics.Collector

	// clients caches constructed backends across candidates of one run and
	// across runs. The orchestrator serves one execution at a time.
	clients map[string]Backend
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithExecutionPolicy overrides the per-candidate retry policy.
func WithExecutionPolicy(p retry.Policy) OrchestratorOption {
	return func(o *Orchestrator) { o.execPolicy = p }
}

// WithSetupPolicy overrides the client-construction retry policy.
func WithSetupPolicy(p retry.Policy) OrchestratorOption {
	return func(o *Orchestrator) { o.setupPolicy = p }
}

// WithCollector attaches Prometheus instrumentation.
func WithCollector(c *metrics.Collector) OrchestratorOption {
	return func(o *Orchestrator) { o.collector = c }
}

// NewOrchestrator creates an orchestrator over the given candidate chain.
func NewOrchestrator(factory BackendFactory, candidates []Candidate, logger *zap.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		factory:     factory,
		candidates:  candidates,
		execPolicy:  retry.DefaultExecutionPolicy(),
		setupPolicy: retry.DefaultSetupPolicy(),
		logger:      logger,
		clients:     make(map[string]Backend),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.collector == nil {
		o.collector = metrics.NewCollector(prometheus.NewRegistry())
	}
	return o
}

// Execute runs the request through the candidate chain and returns the first
// valid result. Fatal errors propagate immediately; anything else exhausts
// the chain and surfaces as a terminal execution error carrying the last
// candidate's failure.
func (o *Orchestrator) Execute(ctx context.Context, req *ChatRequest) (*Result, error) {
	if err := types.ValidateHistory(req.Messages); err != nil {
		return nil, err
	}
	if len(o.candidates) == 0 {
		return nil, types.NewError(types.ErrConfiguration, "no backend candidates configured")
	}

	state := stateNotStarted
	var lastErr error
	var lastBackend string
	var lastAttempts int

	for i, candidate := range o.candidates {
		if req.WantsSchema() && !candidate.Capability.SupportsSchema {
			o.logger.Info("skipping candidate without schema support",
				zap.String("backend", candidate.ID),
				zap.String("trace_id", req.TraceID),
			)
			continue
		}

		state = stateTrying
		o.logger.Info("trying backend candidate",
			zap.String("state", string(state)),
			zap.String("backend", candidate.ID),
			zap.Int("position", i),
			zap.String("trace_id", req.TraceID),
		)

		result, attempts, err := o.tryCandidate(ctx, candidate, req)
		if err == nil {
			state = stateSucceeded
			result.Attempts = attempts
			o.logger.Info("execution succeeded",
				zap.String("state", string(state)),
				zap.String("backend", candidate.ID),
				zap.Int("attempts", attempts),
				zap.String("trace_id", req.TraceID),
			)
			return result, nil
		}

		if types.IsFatal(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}

		lastErr = err
		lastBackend = candidate.ID
		lastAttempts = attempts
		o.collector.Fallbacks.Inc()
		o.logger.Warn("candidate exhausted, advancing",
			zap.String("backend", candidate.ID),
			zap.Int("attempts", attempts),
			zap.String("error_code", string(types.GetErrorCode(err))),
			zap.String("trace_id", req.TraceID),
			zap.Error(err),
		)
	}

	state = stateFailed
	o.logger.Error("execution failed",
		zap.String("state", string(state)),
		zap.String("last_backend", lastBackend),
		zap.String("trace_id", req.TraceID),
		zap.Error(lastErr),
	)

	if lastErr == nil {
		// Every candidate was skipped for capability reasons.
		return nil, types.NewError(types.ErrExecution,
			"no backend candidate supports the requested output shape")
	}
	return nil, types.NewError(types.ErrExecution,
		fmt.Sprintf("all backend candidates exhausted; last backend %q failed after %d attempts",
			lastBackend, lastAttempts)).WithCause(lastErr)
}

// tryCandidate runs one candidate under the execution retry policy and
// returns the attempt count alongside the outcome.
func (o *Orchestrator) tryCandidate(ctx context.Context, candidate Candidate, req *ChatRequest) (*Result, int, error) {
	backend, err := o.client(ctx, candidate.ID)
	if err != nil {
		return nil, 0, err
	}

	attempts := 0
	policy := o.execPolicy
	policy.Classify = func(err error) bool {
		if types.GetErrorCode(err) == types.ErrBackendIncompatible {
			return false
		}
		return types.IsRetryable(err)
	}
	retryer := retry.NewRetryer(policy, o.logger.With(zap.String("backend", candidate.ID)))

	result, err := retry.DoValue(ctx, retryer, func(ctx context.Context) (*Result, error) {
		attempts++
		return o.attempt(ctx, backend, req)
	})
	return result, attempts, err
}

// attempt performs one backend call with extraction and contract validation.
func (o *Orchestrator) attempt(ctx context.Context, backend Backend, req *ChatRequest) (*Result, error) {
	start := time.Now()
	resp, err := backend.Complete(ctx, req)
	o.collector.Latency.WithLabelValues(backend.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		o.collector.Attempts.WithLabelValues(backend.Name(), metrics.OutcomeError).Inc()
		return nil, err
	}

	text, err := ExtractContent(resp)
	if err != nil {
		o.collector.Attempts.WithLabelValues(backend.Name(), metrics.OutcomeError).Inc()
		return nil, err
	}

	value, err := DecodeValue(text, req.Schema)
	if err != nil {
		o.collector.Attempts.WithLabelValues(backend.Name(), metrics.OutcomeError).Inc()
		o.collector.ValidationFailures.WithLabelValues(backend.Name()).Inc()
		return nil, err
	}

	o.collector.Attempts.WithLabelValues(backend.Name(), metrics.OutcomeSuccess).Inc()

	mode := ModeText
	if req.WantsSchema() {
		mode = ModeStructured
	}
	return &Result{
		Mode:    mode,
		Text:    text,
		Value:   value,
		Backend: backend.Name(),
		Model:   resp.Model,
		Usage:   resp.Usage,
		TraceID: req.TraceID,
	}, nil
}

// client returns a cached backend or constructs one under the setup policy.
func (o *Orchestrator) client(ctx context.Context, id string) (Backend, error) {
	if backend, ok := o.clients[id]; ok {
		return backend, nil
	}

	retryer := retry.NewRetryer(o.setupPolicy, o.logger.With(zap.String("backend", id)))
	backend, err := retry.DoValue(ctx, retryer, func(ctx context.Context) (Backend, error) {
		return o.factory.Create(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	o.clients[id] = backend
	return backend, nil
}
