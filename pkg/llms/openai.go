package llms

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/logging"
)

// OpenAIGateway satisfies the same Call contract as Gateway through the
// go-openai client, which handles streaming, organization headers and other
// endpoint quirks the hand-rolled client does not. Works against any
// OpenAI-compatible endpoint via a custom base URL.
type OpenAIGateway struct {
	client      *openai.Client
	model       string
	temperature float32
	retries     int
	retryDelay  time.Duration
}

// OpenAIOption configures an OpenAIGateway.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL     string
	model       string
	temperature float32
	retries     int
	retryDelay  time.Duration
}

// WithOpenAIBaseURL points the client at an OpenAI-compatible endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithOpenAIModel sets the model name.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIConfig) { c.model = model }
}

// WithOpenAITemperature sets the sampling temperature.
func WithOpenAITemperature(temp float32) OpenAIOption {
	return func(c *openAIConfig) { c.temperature = temp }
}

// WithOpenAIRetries sets the retry count.
func WithOpenAIRetries(retries int) OpenAIOption {
	return func(c *openAIConfig) { c.retries = retries }
}

// WithOpenAIRetryDelay sets the fixed delay between attempts.
func WithOpenAIRetryDelay(delay time.Duration) OpenAIOption {
	return func(c *openAIConfig) { c.retryDelay = delay }
}

// NewOpenAIGateway creates a gateway backed by go-openai.
func NewOpenAIGateway(apiKey string, opts ...OpenAIOption) *OpenAIGateway {
	cfg := &openAIConfig{
		model:       openai.GPT4oMini,
		temperature: 0.7,
		retries:     2,
		retryDelay:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		clientConfig.BaseURL = cfg.baseURL
	}

	return &OpenAIGateway{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.model,
		temperature: cfg.temperature,
		retries:     cfg.retries,
		retryDelay:  cfg.retryDelay,
	}
}

// Call sends the prompt and returns the first choice's message content, or
// core.FallbackResponse after exhausting retries.
func (g *OpenAIGateway) Call(ctx context.Context, prompt string) string {
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

		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: g.temperature,
		})
		if err != nil {
			logger.Warn(ctx, "OpenAI request failed (attempt %d/%d): %v",
				attempt+1, g.retries+1, err)
			continue
		}
		if len(resp.Choices) == 0 {
			logger.Warn(ctx, "OpenAI response had no choices (attempt %d/%d)",
				attempt+1, g.retries+1)
			continue
		}

		return resp.Choices[0].Message.Content
	}

	return core.FallbackResponse
}

// Caller adapts the gateway to the engine's LLM seam.
func (g *OpenAIGateway) Caller() core.LLMCaller {
	return g.Call
}
