package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/llmgate/llmgate/llm"
	"github.com/llmgate/llmgate/types"
)

func TestDefaultTuning(t *testing.T) {
	cfg := Default()

	assert.Equal(t, llm.FamilyAzure, cfg.Family)
	assert.Equal(t, DefaultTemperature, cfg.Temperature)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	assert.Equal(t, DefaultMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, DefaultMinWait, cfg.Retry.MinWait)
	assert.Equal(t, DefaultMaxWait, cfg.Retry.MaxWait)
	assert.Equal(t, DefaultMultiplier, cfg.Retry.Multiplier)
}

func TestFromEnvAzureWins(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_API_KEY", "azkey")
	t.Setenv("AZURE_OPENAI_MODEL", "gpt4-deploy")
	t.Setenv("AZURE_OPENAI_API_VERSION", "2024-12-01-preview")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg := FromEnv()
	assert.Equal(t, llm.FamilyAzure, cfg.Family)
	assert.Equal(t, "https://example.openai.azure.com", cfg.Endpoint)
	assert.Equal(t, "azkey", cfg.APIKey)
	assert.Equal(t, "gpt4-deploy", cfg.Model)
	assert.Equal(t, "2024-12-01-preview", cfg.APIVersion)
	assert.Equal(t, "sk-fallback", cfg.OpenAIFallback.APIKey)
}

func TestFromEnvOpenAIOnly(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-test")

	cfg := FromEnv()
	assert.Equal(t, llm.FamilyOpenAI, cfg.Family)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "gpt-test", cfg.Model)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
family: openai
api_key: sk-file
model: gpt-file
temperature: 0.1
retry:
  max_attempts: 5
  min_wait: 2s
  execution_timeout: 90s
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, llm.FamilyOpenAI, cfg.Family)
	assert.Equal(t, "sk-file", cfg.APIKey)
	assert.Equal(t, 0.1, cfg.Temperature)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.MinWait)
	assert.Equal(t, 90*time.Second, cfg.Retry.ExecutionTimeout)
	// Fields absent from the file keep defaults
	assert.Equal(t, DefaultMaxWait, cfg.Retry.MaxWait)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("family: [unclosed"), 0o600))
	_, err = LoadFile(path)
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}

func TestNormalizeClampsInvalidValues(t *testing.T) {
	cfg := &Config{
		Temperature: 9,
		MaxTokens:   -1,
		Retry: RetryConfig{
			MaxAttempts: 0,
			MinWait:     -time.Second,
			MaxWait:     time.Millisecond,
			Multiplier:  0.5,
		},
	}

	cfg.Normalize(zap.NewNop())

	assert.Equal(t, DefaultTemperature, cfg.Temperature)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	assert.Equal(t, DefaultMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, DefaultMinWait, cfg.Retry.MinWait)
	assert.Equal(t, DefaultMaxWait, cfg.Retry.MaxWait)
	assert.Equal(t, DefaultMultiplier, cfg.Retry.Multiplier)
	assert.Equal(t, DefaultExecutionTimeout, cfg.Retry.ExecutionTimeout)
	assert.Equal(t, DefaultSetupTimeout, cfg.Retry.SetupTimeout)
}

func TestNormalizeWarnsOnInvalidTimeouts(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	cfg := Default()
	cfg.Retry.ExecutionTimeout = 0
	cfg.Retry.SetupTimeout = -time.Second
	cfg.Normalize(zap.New(core))

	assert.Equal(t, DefaultExecutionTimeout, cfg.Retry.ExecutionTimeout)
	assert.Equal(t, DefaultSetupTimeout, cfg.Retry.SetupTimeout)
	assert.Equal(t, 1, logs.FilterMessage("invalid retry.execution_timeout, using default").Len())
	assert.Equal(t, 1, logs.FilterMessage("invalid retry.setup_timeout, using default").Len())
}

func TestNormalizeKeepsValidValues(t *testing.T) {
	cfg := Default()
	cfg.Retry.MaxAttempts = 7
	cfg.Temperature = 0

	cfg.Normalize(zap.NewNop())
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, 0.0, cfg.Temperature)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid azure", func(c *Config) {
			c.Endpoint = "https://example.openai.azure.com"
			c.APIKey = "k"
			c.Model = "m"
		}, false},
		{"azure missing endpoint", func(c *Config) {
			c.APIKey = "k"
			c.Model = "m"
		}, true},
		{"missing api key", func(c *Config) {
			c.Endpoint = "https://example.openai.azure.com"
			c.Model = "m"
		}, true},
		{"missing model", func(c *Config) {
			c.Endpoint = "https://example.openai.azure.com"
			c.APIKey = "k"
		}, true},
		{"openai without endpoint is fine", func(c *Config) {
			c.Family = llm.FamilyOpenAI
			c.APIKey = "k"
			c.Model = "m"
		}, false},
		{"unknown family", func(c *Config) {
			c.Family = "bedrock"
			c.APIKey = "k"
			c.Model = "m"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCandidatesFiltering(t *testing.T) {
	cfg := Default()
	chain, err := cfg.Candidates()
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, llm.BackendKernel, chain[0].ID)
	assert.Equal(t, llm.BackendAzure, chain[1].ID)

	cfg.OpenAIFallback.APIKey = "sk-fallback"
	chain, err = cfg.Candidates()
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, llm.BackendOpenAI, chain[2].ID)

	cfg = Default()
	cfg.Family = llm.FamilyOpenAI
	chain, err = cfg.Candidates()
	require.NoError(t, err)
	require.Len(t, chain, 2)
}

func TestPolicyBuilders(t *testing.T) {
	cfg := Default()
	exec := cfg.ExecutionPolicy()
	assert.Equal(t, DefaultMaxAttempts, exec.MaxAttempts)
	assert.Equal(t, DefaultExecutionTimeout, exec.Timeout)
	assert.True(t, exec.Jitter)

	setup := cfg.SetupPolicy()
	assert.Equal(t, DefaultSetupTimeout, setup.Timeout)
}
