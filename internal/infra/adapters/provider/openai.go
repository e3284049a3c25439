package provider

import (
	"context"
	"errors"

	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/adapter"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ContentProvider = (*OpenAIProvider)(nil)

// Micro-credits per 1K tokens; close enough for budget accounting.
const openAIMicrosPer1KTokens = 600

// OpenAIProvider implements adapter.ContentProvider on the Chat
// Completions API.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, defaultModel string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  defaultModel,
	}, nil
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, opts adapter.GenerateOptions) (*adapter.Generation, error) {
	m := opts.Model
	if m == "" {
		m = o.model
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, o.wrap(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, adapter.NewProviderError(o.Name(), model.ErrorClassTransient, errors.New("no choice content"))
	}

	content := resp.Choices[0].Message.Content
	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	usage = fillUsage(usage, m, prompt, content)
	usage.CostMicros = int64(usage.TotalTokens) * openAIMicrosPer1KTokens / 1000

	return &adapter.Generation{Content: content, Model: m, Usage: usage}, nil
}

func (o *OpenAIProvider) wrap(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return adapter.NewProviderError(o.Name(), classifyStatus(apiErr.StatusCode), err)
	}
	return adapter.NewProviderError(o.Name(), classify(err), err)
}
