package llms

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/errors"
	"github.com/step2-technology/ga-llm-search/pkg/logging"
)

// AnthropicGateway satisfies the same Call contract as Gateway over the
// Anthropic Messages API.
type AnthropicGateway struct {
	client      *anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
	retries     int
	retryDelay  time.Duration
}

// AnthropicOption configures an AnthropicGateway.
type AnthropicOption func(*AnthropicGateway)

// WithAnthropicMaxTokens sets the completion token budget.
func WithAnthropicMaxTokens(n int64) AnthropicOption {
	return func(g *AnthropicGateway) { g.maxTokens = n }
}

// WithAnthropicTemperature sets the sampling temperature.
func WithAnthropicTemperature(temp float64) AnthropicOption {
	return func(g *AnthropicGateway) { g.temperature = temp }
}

// WithAnthropicRetries sets the retry count.
func WithAnthropicRetries(retries int) AnthropicOption {
	return func(g *AnthropicGateway) { g.retries = retries }
}

// WithAnthropicRetryDelay sets the fixed delay between attempts.
func WithAnthropicRetryDelay(delay time.Duration) AnthropicOption {
	return func(g *AnthropicGateway) { g.retryDelay = delay }
}

// NewAnthropicGateway creates a gateway backed by the Anthropic SDK.
func NewAnthropicGateway(apiKey string, model anthropic.Model, opts ...AnthropicOption) (*AnthropicGateway, error) {
	if apiKey == "" {
		return nil, errors.New(errors.InvalidInput, "Anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	g := &AnthropicGateway{
		client:      &client,
		model:       model,
		maxTokens:   2048,
		temperature: 0.7,
		retries:     2,
		retryDelay:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Call sends the prompt and returns the first text block of the response,
// or core.FallbackResponse after exhausting retries.
func (g *AnthropicGateway) Call(ctx context.Context, prompt string) string {
	logger := logging.GetLogger()

	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(g.retryDelay):
			case <-ctx.Done():
				logger.Warn(ctx, "LLM call abandoned: %v", ctx.Err())
				return core.FallbackResponse
			}
		}

		message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model: g.model,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(prompt),
				),
			},
			MaxTokens:   g.maxTokens,
			Temperature: anthropic.Float(g.temperature),
		})
		if err != nil {
			var apiErr *anthropic.Error
			if stderrors.As(err, &apiErr) {
				logger.Warn(ctx, "Anthropic API error (attempt %d/%d): status %d",
					attempt+1, g.retries+1, apiErr.StatusCode)
			} else {
				logger.Warn(ctx, "Anthropic request failed (attempt %d/%d): %v",
					attempt+1, g.retries+1, err)
			}
			continue
		}

		for _, block := range message.Content {
			if block.Type == "text" {
				return block.Text
			}
		}
		logger.Warn(ctx, "Anthropic response contained no text block (attempt %d/%d)",
			attempt+1, g.retries+1)
	}

	return core.FallbackResponse
}

// Caller adapts the gateway to the engine's LLM seam.
func (g *AnthropicGateway) Caller() core.LLMCaller {
	return g.Call
}
