package provider

import (
	"context"

	"ai-content-orchestrator/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ContentProvider = (*limitedProvider)(nil)

type limitedProvider struct {
	inner adapter.ContentProvider
	sem   chan struct{}
}

// NewLimitedProvider caps concurrent Generate calls against one backend.
func NewLimitedProvider(inner adapter.ContentProvider, maxConcurrent int) adapter.ContentProvider {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedProvider{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedProvider) Name() string { return l.inner.Name() }

func (l *limitedProvider) Generate(ctx context.Context, prompt string, opts adapter.GenerateOptions) (*adapter.Generation, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, prompt, opts)
}
