package provider

import (
	"context"
	"errors"

	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/adapter"

	"google.golang.org/genai"
)

var _ adapter.ContentProvider = (*GeminiProvider)(nil)

const geminiMicrosPer1KTokens = 350

// GeminiProvider implements adapter.ContentProvider using the official
// Gemini SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
	maxOut int
}

func NewGeminiProvider(ctx context.Context, apiKey, baseURL, defaultModel string, maxOut int) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.0-flash"
	}
	return &GeminiProvider{client: c, model: defaultModel, maxOut: maxOut}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts adapter.GenerateOptions) (*adapter.Generation, error) {
	m := opts.Model
	if m == "" {
		m = g.model
	}

	cfg := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	} else if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}

	resp, err := g.client.Models.GenerateContent(ctx, m, genai.Text(prompt), cfg)
	if err != nil {
		return nil, g.wrap(err)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			text = t
		}
	}
	if text == "" {
		return nil, adapter.NewProviderError(g.Name(), model.ErrorClassTransient, errors.New("empty candidate content"))
	}

	usage := adapter.Usage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	usage = fillUsage(usage, "gpt-4o", prompt, text) // tiktoken has no gemini table; nearest encoding
	usage.CostMicros = int64(usage.TotalTokens) * geminiMicrosPer1KTokens / 1000

	return &adapter.Generation{Content: text, Model: m, Usage: usage}, nil
}

func (g *GeminiProvider) wrap(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return adapter.NewProviderError(g.Name(), classifyStatus(apiErr.Code), err)
	}
	return adapter.NewProviderError(g.Name(), classify(err), err)
}
