// Package adapter defines the uniform interface over heterogeneous AI
// providers, the concrete adapters for each upstream service, and the
// registry that resolves model names to configured adapters.
package adapter

import "context"

// GenerateRequest carries one generation call to a provider.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Usage captures provider-reported token usage. Adapters leave it nil
// when the upstream response carries no usage block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the normalized output of a provider call.
type Response struct {
	Content string
	Model   string
	Usage   *Usage
}

// Adapter is the interface every provider integration implements.
type Adapter interface {
	// Generate sends the prompt to the provider and returns the response.
	// The context carries the caller's cancellation and deadline.
	Generate(ctx context.Context, req GenerateRequest) (*Response, error)

	// Name returns the provider identifier, e.g. "openai" or "anthropic".
	Name() string

	// Models returns the models this adapter is known to serve.
	Models() []string
}
