package provider

import (
	"context"
	"fmt"
	"strings"

	"ai-content-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.ContentProvider = (*NoopProvider)(nil)

// NoopProvider returns canned content. Useful in dev mode and as the last
// candidate in test deployments.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (n *NoopProvider) Name() string { return "noop" }

func (n *NoopProvider) Generate(ctx context.Context, prompt string, opts adapter.GenerateOptions) (*adapter.Generation, error) {
	content := fmt.Sprintf("# Draft\n\n%s\n\n(placeholder content)", strings.TrimSpace(prompt))
	return &adapter.Generation{
		Content: content,
		Model:   "noop",
		Usage: adapter.Usage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      (len(prompt) + len(content)) / 4,
		},
	}, nil
}
