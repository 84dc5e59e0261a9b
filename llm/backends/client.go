package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/llm"
	"github.com/llmgate/llmgate/types"
)

// Config configures the embeddable HTTP client.
type Config struct {
	// Name is the candidate identifier, used in errors and logs.
	Name string

	APIKey  string
	BaseURL string
	Model   string

	// APIVersion is appended as a query parameter when set (Azure dialect).
	APIVersion string

	// EndpointPath is the request path relative to BaseURL.
	EndpointPath string

	// BuildHeaders sets the provider's auth headers on each request.
	BuildHeaders func(h http.Header, apiKey string)

	// Timeout bounds the underlying HTTP transport. The per-attempt retry
	// deadline usually fires first.
	Timeout time.Duration
}

// Client is the shared chat-completion HTTP client that concrete backends
// embed. It owns the wire encoding, transport errors, and status mapping;
// embedders own the request shaping (schema mode, prompt guidance).
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a Client. Missing endpoint or model is a configuration
// error surfaced at construction, before any network traffic.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("%s backend requires an endpoint", cfg.Name))
	}
	if cfg.Model == "" {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("%s backend requires a model", cfg.Name))
	}
	if cfg.APIKey == "" {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("%s backend requires an API key", cfg.Name))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Name returns the candidate identifier.
func (c *Client) Name() string { return c.cfg.Name }

// Model returns the configured model or deployment name.
func (c *Client) Model() string { return c.cfg.Model }

// Do posts a chat completion request and normalizes the response.
func (c *Client) Do(ctx context.Context, body *chatCompletionRequest) (*llm.ChatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "failed to encode request").
			WithBackend(c.cfg.Name).WithCause(err)
	}

	url := c.cfg.BaseURL + c.cfg.EndpointPath
	if c.cfg.APIVersion != "" {
		url += "?api-version=" + c.cfg.APIVersion
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "failed to build request").
			WithBackend(c.cfg.Name).WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.BuildHeaders != nil {
		c.cfg.BuildHeaders(req.Header, c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// Deadline classification happens at the retry layer, which
			// knows whether the parent context is still alive.
			return nil, err
		}
		return nil, types.NewError(types.ErrNetwork,
			fmt.Sprintf("%s request failed: %v", c.cfg.Name, err)).
			WithRetryable(true).WithBackend(c.cfg.Name).WithCause(err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call completed",
		zap.String("backend", c.cfg.Name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, MapHTTPError(c.cfg.Name, resp.StatusCode, ReadErrorMessage(resp.Body))
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, types.NewError(types.ErrUpstream,
			fmt.Sprintf("%s returned a malformed response body", c.cfg.Name)).
			WithRetryable(true).WithBackend(c.cfg.Name).WithCause(err)
	}

	out := &llm.ChatResponse{
		ID:      decoded.ID,
		Model:   decoded.Model,
		Backend: c.cfg.Name,
		Usage: llm.ChatUsage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
		},
	}
	for _, choice := range decoded.Choices {
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index: choice.Index,
			Message: types.Message{
				Role:    types.Role(choice.Message.Role),
				Content: choice.Message.Content,
				Name:    choice.Message.Name,
			},
			FinishReason: choice.FinishReason,
		})
	}
	return out, nil
}

// BuildBody assembles the wire request from the canonical one, leaving the
// response_format for the embedding backend to set.
func (c *Client) BuildBody(req *llm.ChatRequest) *chatCompletionRequest {
	body := &chatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, wireMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
			Name:    msg.Name,
		})
	}
	return body
}
