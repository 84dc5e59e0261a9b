// Package config loads and validates runner settings from files and the
// environment. Invalid tuning values are clamped to defaults with a warning;
// only missing credentials and unknown families are hard errors.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/llmgate/llmgate/llm"
	"github.com/llmgate/llmgate/llm/retry"
	"github.com/llmgate/llmgate/types"
)

// Defaults for generation and resilience tuning.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096

	DefaultMaxAttempts      = 3
	DefaultMinWait          = 1 * time.Second
	DefaultMaxWait          = 30 * time.Second
	DefaultMultiplier       = 2.0
	DefaultExecutionTimeout = 120 * time.Second
	DefaultSetupTimeout     = 10 * time.Second
)

// RetryConfig tunes the resilience policies.
type RetryConfig struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	MinWait          time.Duration `yaml:"min_wait"`
	MaxWait          time.Duration `yaml:"max_wait"`
	Multiplier       float64       `yaml:"multiplier"`
	ExecutionTimeout time.Duration `yaml:"execution_timeout"`
	SetupTimeout     time.Duration `yaml:"setup_timeout"`
}

// UnmarshalYAML accepts "2s" style duration strings and leaves fields absent
// from the document at their current values, so file settings layer over
// defaults.
func (r *RetryConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		MaxAttempts      int     `yaml:"max_attempts"`
		MinWait          string  `yaml:"min_wait"`
		MaxWait          string  `yaml:"max_wait"`
		Multiplier       float64 `yaml:"multiplier"`
		ExecutionTimeout string  `yaml:"execution_timeout"`
		SetupTimeout     string  `yaml:"setup_timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.MaxAttempts != 0 {
		r.MaxAttempts = raw.MaxAttempts
	}
	if raw.Multiplier != 0 {
		r.Multiplier = raw.Multiplier
	}
	for _, field := range []struct {
		value  string
		target *time.Duration
		name   string
	}{
		{raw.MinWait, &r.MinWait, "min_wait"},
		{raw.MaxWait, &r.MaxWait, "max_wait"},
		{raw.ExecutionTimeout, &r.ExecutionTimeout, "execution_timeout"},
		{raw.SetupTimeout, &r.SetupTimeout, "setup_timeout"},
	} {
		if field.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(field.value)
		if err != nil {
			return fmt.Errorf("retry.%s: %w", field.name, err)
		}
		*field.target = parsed
	}
	return nil
}

// Config is the full runner configuration.
type Config struct {
	// Family selects the backend fallback chain: "azure" or "openai".
	Family string `yaml:"family"`

	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	APIVersion string `yaml:"api_version"`

	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// StrictSchema demands native constrained decoding; the orchestration
	// path refuses such requests and the chain advances to a direct backend.
	StrictSchema bool `yaml:"strict_schema"`

	// OpenAIFallback holds optional direct-OpenAI credentials used as the
	// last candidate when the family is azure. Without them the azure chain
	// stops at the direct Azure backend.
	OpenAIFallback OpenAIFallback `yaml:"openai_fallback"`

	Retry RetryConfig `yaml:"retry"`
}

// OpenAIFallback configures the cross-provider last resort.
type OpenAIFallback struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Default returns a configuration with all tuning fields set to defaults.
// Credentials are left empty and must come from a file or the environment.
func Default() *Config {
	return &Config{
		Family:      llm.FamilyAzure,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Retry: RetryConfig{
			MaxAttempts:      DefaultMaxAttempts,
			MinWait:          DefaultMinWait,
			MaxWait:          DefaultMaxWait,
			Multiplier:       DefaultMultiplier,
			ExecutionTimeout: DefaultExecutionTimeout,
			SetupTimeout:     DefaultSetupTimeout,
		},
	}
}

// FromEnv builds a configuration from environment variables. Azure variables
// win when both providers are configured, matching the fallback chain order.
func FromEnv() *Config {
	cfg := Default()

	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		cfg.Family = llm.FamilyAzure
		cfg.Endpoint = endpoint
		cfg.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		cfg.Model = os.Getenv("AZURE_OPENAI_MODEL")
		cfg.APIVersion = os.Getenv("AZURE_OPENAI_API_VERSION")
		cfg.OpenAIFallback = OpenAIFallback{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   os.Getenv("OPENAI_MODEL"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		}
		return cfg
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Family = llm.FamilyOpenAI
		cfg.APIKey = key
		cfg.Model = os.Getenv("OPENAI_MODEL")
		cfg.Endpoint = os.Getenv("OPENAI_BASE_URL")
	}
	return cfg
}

// LoadFile reads a YAML configuration file over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("cannot read config file %s", path)).WithCause(err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("cannot parse config file %s", path)).WithCause(err)
	}
	return cfg, nil
}

// Normalize clamps out-of-range tuning values back to defaults, logging each
// correction. It never fails: bad tuning is recoverable, bad credentials are
// not.
func (c *Config) Normalize(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if c.Retry.MaxAttempts < 1 {
		logger.Warn("invalid retry.max_attempts, using default",
			zap.Int("value", c.Retry.MaxAttempts), zap.Int("default", DefaultMaxAttempts))
		c.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if c.Retry.MinWait <= 0 {
		logger.Warn("invalid retry.min_wait, using default",
			zap.Duration("value", c.Retry.MinWait), zap.Duration("default", DefaultMinWait))
		c.Retry.MinWait = DefaultMinWait
	}
	if c.Retry.MaxWait < c.Retry.MinWait {
		logger.Warn("retry.max_wait below retry.min_wait, using default",
			zap.Duration("value", c.Retry.MaxWait), zap.Duration("default", DefaultMaxWait))
		c.Retry.MaxWait = DefaultMaxWait
	}
	if c.Retry.Multiplier < 1 {
		logger.Warn("invalid retry.multiplier, using default",
			zap.Float64("value", c.Retry.Multiplier), zap.Float64("default", DefaultMultiplier))
		c.Retry.Multiplier = DefaultMultiplier
	}
	if c.Retry.ExecutionTimeout <= 0 {
		logger.Warn("invalid retry.execution_timeout, using default",
			zap.Duration("value", c.Retry.ExecutionTimeout), zap.Duration("default", DefaultExecutionTimeout))
		c.Retry.ExecutionTimeout = DefaultExecutionTimeout
	}
	if c.Retry.SetupTimeout <= 0 {
		logger.Warn("invalid retry.setup_timeout, using default",
			zap.Duration("value", c.Retry.SetupTimeout), zap.Duration("default", DefaultSetupTimeout))
		c.Retry.SetupTimeout = DefaultSetupTimeout
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		logger.Warn("invalid temperature, using default",
			zap.Float64("value", c.Temperature), zap.Float64("default", DefaultTemperature))
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		logger.Warn("invalid max_tokens, using default",
			zap.Int("value", c.MaxTokens), zap.Int("default", DefaultMaxTokens))
		c.MaxTokens = DefaultMaxTokens
	}
}

// Validate checks that the configuration can reach a backend at all.
func (c *Config) Validate() error {
	switch c.Family {
	case llm.FamilyAzure:
		if c.Endpoint == "" {
			return types.NewError(types.ErrConfiguration, "azure family requires an endpoint")
		}
	case llm.FamilyOpenAI:
		// Endpoint defaults to the public API.
	default:
		return types.NewError(types.ErrConfiguration,
			fmt.Sprintf("unknown backend family %q", c.Family))
	}
	if c.APIKey == "" {
		return types.NewError(types.ErrConfiguration, "missing API key")
	}
	if c.Model == "" {
		return types.NewError(types.ErrConfiguration, "missing model")
	}
	return nil
}

// Candidates returns the ordered backend chain for this configuration. The
// cross-provider OpenAI fallback joins the azure chain only when its
// credentials are present.
func (c *Config) Candidates() ([]llm.Candidate, error) {
	chain, err := llm.CandidatesForFamily(c.Family)
	if err != nil {
		return nil, err
	}
	if c.Family == llm.FamilyAzure && c.OpenAIFallback.APIKey == "" {
		filtered := make([]llm.Candidate, 0, len(chain))
		for _, candidate := range chain {
			if candidate.ID != llm.BackendOpenAI {
				filtered = append(filtered, candidate)
			}
		}
		chain = filtered
	}
	return chain, nil
}

// ExecutionPolicy builds the retry policy for model invocations.
func (c *Config) ExecutionPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		MinWait:     c.Retry.MinWait,
		MaxWait:     c.Retry.MaxWait,
		Multiplier:  c.Retry.Multiplier,
		Jitter:      true,
		Timeout:     c.Retry.ExecutionTimeout,
	}
}

// SetupPolicy builds the retry policy for client construction.
func (c *Config) SetupPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		MinWait:     c.Retry.MinWait,
		MaxWait:     c.Retry.MaxWait,
		Multiplier:  c.Retry.Multiplier,
		Jitter:      true,
		Timeout:     c.Retry.SetupTimeout,
	}
}
