package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// stubProvider fails a scripted number of times, then succeeds.
type stubProvider struct {
	name     string
	failWith *adapter.ProviderError
	result   *adapter.Generation
	calls    int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts adapter.GenerateOptions) (*adapter.Generation, error) {
	s.calls++
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.result, nil
}

func failTransient(name string, tokens int) *adapter.ProviderError {
	return &adapter.ProviderError{
		Provider: name,
		Class:    model.ErrorClassTransient,
		Usage:    adapter.Usage{TotalTokens: tokens},
		Err:      errors.New("upstream 503"),
	}
}

func newTestEngine(priority []string, providers ...adapter.ContentProvider) *FallbackEngine {
	logger := zerolog.Nop()
	caller := NewResilientCaller(RetryPolicy{MaxRetries: 1, Base: time.Millisecond}, &logger)
	caller.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return NewFallbackEngine(providers, priority, caller, &logger)
}

func TestCandidates_PreferredPinnedAndDeduplicated(t *testing.T) {
	t.Parallel()

	e := newTestEngine([]string{"a", "b", "c"},
		&stubProvider{name: "a"}, &stubProvider{name: "b"}, &stubProvider{name: "c"})

	got := e.Candidates("b")
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidates = %v, want %v", got, want)
		}
	}

	// unknown preferred is dropped, not attempted
	got = e.Candidates("mystery")
	if len(got) != 3 || got[0] != "a" {
		t.Fatalf("candidates with unknown preferred = %v", got)
	}
}

func TestGenerate_FallsBackToFirstSuccess(t *testing.T) {
	t.Parallel()

	a := &stubProvider{name: "a", failWith: failTransient("a", 0)}
	b := &stubProvider{name: "b", failWith: failTransient("b", 0)}
	c := &stubProvider{name: "c", result: &adapter.Generation{
		Content: "article body", Model: "m",
		Usage: adapter.Usage{TotalTokens: 700, CostMicros: 420},
	}}
	e := newTestEngine([]string{"a", "b", "c"}, a, b, c)

	res, err := e.Generate(context.Background(), "write about go", adapter.GenerateOptions{}, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.FinalProvider != "c" {
		t.Fatalf("finalProvider = %s, want c", res.FinalProvider)
	}
	if len(res.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(res.Attempts))
	}
	if res.Attempts[0].Success || res.Attempts[1].Success || !res.Attempts[2].Success {
		t.Fatalf("attempt success flags wrong: %+v", res.Attempts)
	}
}

func TestGenerate_ExhaustionCarriesAttemptsAndLastError(t *testing.T) {
	t.Parallel()

	a := &stubProvider{name: "a", failWith: failTransient("a", 0)}
	b := &stubProvider{name: "b", failWith: &adapter.ProviderError{
		Provider: "b", Class: model.ErrorClassPermanent, Err: errors.New("invalid key"),
	}}
	e := newTestEngine([]string{"a", "b"}, a, b)

	_, err := e.Generate(context.Background(), "x", adapter.GenerateOptions{}, "")
	if err == nil {
		t.Fatalf("expected exhaustion error")
	}
	if !errors.Is(err, domain.ErrProvidersExhausted) {
		t.Fatalf("exhaustion must match domain.ErrProvidersExhausted, got %v", err)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("want *ExhaustedError, got %T", err)
	}
	if len(ex.Attempts) != 2 {
		t.Fatalf("attempts = %d, want number of candidates (2)", len(ex.Attempts))
	}
	var pe *adapter.ProviderError
	if !errors.As(ex.Last, &pe) || pe.Provider != "b" {
		t.Fatalf("last error must be the final attempt's, got %v", ex.Last)
	}
}

func TestGenerate_TotalsSumOverFailedAttempts(t *testing.T) {
	t.Parallel()

	// p1 burns 120 billable tokens before failing; p2 succeeds with 500.
	p1 := &stubProvider{name: "p1", failWith: failTransient("p1", 120)}
	p2 := &stubProvider{name: "p2", result: &adapter.Generation{
		Content: "body", Model: "m",
		Usage: adapter.Usage{TotalTokens: 500, CostMicros: 10000},
	}}
	e := newTestEngine([]string{"p1", "p2"}, p1, p2)

	res, err := e.Generate(context.Background(), "x", adapter.GenerateOptions{}, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.TotalTokens != 620 {
		t.Fatalf("totalTokens = %d, want 620 (failed attempts included)", res.TotalTokens)
	}
	if res.TotalCostMicros != 10000 {
		t.Fatalf("totalCost = %d, want 10000", res.TotalCostMicros)
	}
}

func TestGenerate_EndToEndConvention(t *testing.T) {
	t.Parallel()

	// Spec'd reference scenario: p1 transient-fails, p2 succeeds with
	// tokens=500 / cost=10000 micros, p3 never reached.
	p1 := &stubProvider{name: "p1", failWith: failTransient("p1", 0)}
	p2 := &stubProvider{name: "p2", result: &adapter.Generation{
		Content: "done", Model: "m",
		Usage: adapter.Usage{TotalTokens: 500, CostMicros: 10000},
	}}
	p3 := &stubProvider{name: "p3", result: &adapter.Generation{Content: "unused"}}
	e := newTestEngine([]string{"p1", "p2", "p3"}, p1, p2, p3)

	res, err := e.Generate(context.Background(), "x", adapter.GenerateOptions{}, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Attempts) != 2 || res.Attempts[0].Success || !res.Attempts[1].Success {
		t.Fatalf("attempts = %+v, want [{p1,false},{p2,true}]", res.Attempts)
	}
	if res.FinalProvider != "p2" || res.TotalTokens != 500 {
		t.Fatalf("finalProvider=%s totalTokens=%d", res.FinalProvider, res.TotalTokens)
	}
	if p3.calls != 0 {
		t.Fatalf("fallback must stop at first success; p3 called %d times", p3.calls)
	}
}

func TestGenerate_PreferredProviderTriedFirst(t *testing.T) {
	t.Parallel()

	a := &stubProvider{name: "a", result: &adapter.Generation{Content: "from a"}}
	b := &stubProvider{name: "b", result: &adapter.Generation{Content: "from b"}}
	e := newTestEngine([]string{"a", "b"}, a, b)

	res, err := e.Generate(context.Background(), "x", adapter.GenerateOptions{}, "b")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.FinalProvider != "b" || a.calls != 0 {
		t.Fatalf("pinned provider must run first: final=%s aCalls=%d", res.FinalProvider, a.calls)
	}
}
