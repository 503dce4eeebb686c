package core

import "context"

// LLMCaller is the single seam between the engine and a text-generation
// model. Implementations are synchronous and never fail: after exhausting
// their retry budget they return a well-formed sentinel (an always-parseable
// JSON string) so downstream parsing has a safe default.
type LLMCaller func(ctx context.Context, prompt string) string

// FallbackResponse is the schema-valid sentinel returned when every attempt
// against the model has failed.
const FallbackResponse = `{"error": "llm call failed after retries"}`
