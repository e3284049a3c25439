package provider

import (
	"context"
	"errors"
	"strings"

	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/adapter"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var _ adapter.ContentProvider = (*AnthropicProvider)(nil)

const anthropicMicrosPer1KTokens = 900

// AnthropicProvider implements adapter.ContentProvider on the Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

func NewAnthropicProvider(apiKey, defaultModel string, maxTokens int) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key empty")
	}
	if defaultModel == "" {
		defaultModel = "claude-sonnet-4-20250514"
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &AnthropicProvider{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     defaultModel,
		maxTokens: maxTokens,
	}, nil
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

func (a *AnthropicProvider) Generate(ctx context.Context, prompt string, opts adapter.GenerateOptions) (*adapter.Generation, error) {
	m := opts.Model
	if m == "" {
		m = a.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, a.wrap(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		sb.WriteString(block.Text)
	}
	text := sb.String()
	if text == "" {
		return nil, adapter.NewProviderError(a.Name(), model.ErrorClassTransient, errors.New("empty message content"))
	}

	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	usage = fillUsage(usage, "gpt-4o", prompt, text)
	usage.CostMicros = int64(usage.TotalTokens) * anthropicMicrosPer1KTokens / 1000

	return &adapter.Generation{Content: text, Model: m, Usage: usage}, nil
}

func (a *AnthropicProvider) wrap(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return adapter.NewProviderError(a.Name(), classifyStatus(apiErr.StatusCode), err)
	}
	return adapter.NewProviderError(a.Name(), classify(err), err)
}
