package adapter

import "context"

// Usage reports tokens consumed and cost charged by a single call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostMicros       int64
}

// GenerateOptions tune a single generation call.
type GenerateOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Generation is the successful result of one provider call.
type Generation struct {
	Content string
	Model   string
	Usage   Usage
}

// ContentProvider is the port for long-form text generation. Implemented
// once per provider and supplied to the fallback engine in priority order.
type ContentProvider interface {
	// Name identifies the provider ("openai", "gemini", "anthropic", ...).
	Name() string

	// Generate produces content for the prompt. Failures must be returned
	// as *ProviderError so callers can classify them for retry/fallback.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Generation, error)
}
