// Package llms provides gateways to remote text-generation endpoints. Every
// gateway exposes the same contract: a blocking Call that retries a bounded
// number of times and returns a schema-valid fallback string instead of an
// error, so downstream JSON parsing always has a safe default.
package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/errors"
	"github.com/step2-technology/ga-llm-search/pkg/logging"
)

// Gateway calls an OpenAI-compatible chat-completions endpoint directly over
// HTTP. The wire shape is fixed: {model, messages:[{role:"user", content}],
// temperature} with a bearer-token header.
type Gateway struct {
	config     *GatewayConfig
	httpClient *http.Client
}

// GatewayOption is a functional option for configuring the gateway.
type GatewayOption func(*GatewayConfig)

// GatewayConfig holds configuration for the HTTP gateway.
type GatewayConfig struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
	retries     int
	retryDelay  time.Duration
	httpClient  *http.Client
}

// WithBaseURL sets the full chat-completions endpoint URL.
func WithBaseURL(url string) GatewayOption {
	return func(c *GatewayConfig) { c.baseURL = url }
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) GatewayOption {
	return func(c *GatewayConfig) { c.apiKey = key }
}

// WithModel sets the model name sent in the request body.
func WithModel(model string) GatewayOption {
	return func(c *GatewayConfig) { c.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) GatewayOption {
	return func(c *GatewayConfig) { c.temperature = temp }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) GatewayOption {
	return func(c *GatewayConfig) { c.timeout = timeout }
}

// WithRetries sets how many times a failed attempt is retried. The total
// attempt count is retries+1.
func WithRetries(retries int) GatewayOption {
	return func(c *GatewayConfig) { c.retries = retries }
}

// WithRetryDelay sets the fixed delay between attempts.
func WithRetryDelay(delay time.Duration) GatewayOption {
	return func(c *GatewayConfig) { c.retryDelay = delay }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(c *GatewayConfig) { c.httpClient = client }
}

// NewGateway creates a gateway with sane defaults: 120s per-attempt timeout,
// 2 retries, 2s fixed inter-attempt delay.
func NewGateway(opts ...GatewayOption) *Gateway {
	config := &GatewayConfig{
		baseURL:     "https://api.openai.com/v1/chat/completions",
		model:       "gpt-4o-mini",
		temperature: 0.7,
		timeout:     120 * time.Second,
		retries:     2,
		retryDelay:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(config)
	}

	client := config.httpClient
	if client == nil {
		client = &http.Client{}
	}

	return &Gateway{config: config, httpClient: client}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Call sends the prompt and returns the first choice's message content. On
// exhaustion of retries it returns core.FallbackResponse. Timeouts,
// connection failures and non-2xx statuses are all logged and treated
// identically; the only inter-attempt behavior is a fixed delay.
func (g *Gateway) Call(ctx context.Context, prompt string) string {
	logger := logging.GetLogger()

	for attempt := 0; attempt <= g.config.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(g.config.retryDelay):
			case <-ctx.Done():
				logger.Warn(ctx, "LLM call abandoned: %v", ctx.Err())
				return core.FallbackResponse
			}
		}

		content, err := g.attempt(ctx, prompt)
		if err == nil {
			return content
		}
		logger.Warn(ctx, "LLM request failed (attempt %d/%d): %v",
			attempt+1, g.config.retries+1, err)
	}

	return core.FallbackResponse
}

// Caller adapts the gateway to the engine's LLM seam.
func (g *Gateway) Caller() core.LLMCaller {
	return g.Call
}

func (g *Gateway) attempt(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.config.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: g.config.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: g.config.temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.Transport, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, g.config.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.Transport, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if g.config.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.config.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.Transport, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.WithFields(
			errors.New(errors.Transport, "unexpected status code"),
			errors.Fields{"status": resp.StatusCode})
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.Transport, "failed to read response body")
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", errors.Wrap(err, errors.Format, "failed to decode response")
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New(errors.Format, "no choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}

// String describes the gateway for logs.
func (g *Gateway) String() string {
	return fmt.Sprintf("gateway(model=%s, url=%s)", g.config.model, g.config.baseURL)
}
