package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/adapter"
	"ai-content-orchestrator/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// FallbackResult aggregates a successful fallback sequence. TotalTokens
// and TotalCostMicros are summed over EVERY recorded attempt, including
// failed ones that still consumed billable tokens before failing.
type FallbackResult struct {
	Content         string
	Model           string
	FinalProvider   string
	Attempts        []model.ProviderAttempt
	TotalTokens     int
	TotalCostMicros int64
}

// ExhaustedError is returned when every candidate failed. It carries the
// full attempts list and the error of the last attempt.
type ExhaustedError struct {
	Attempts []model.ProviderAttempt
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d providers failed, last: %v", len(e.Attempts), e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func (e *ExhaustedError) Is(target error) bool { return target == domain.ErrProvidersExhausted }

// FallbackEngine tries an ordered list of generation providers, one at a
// time, through the resilient caller, until one succeeds or the list is
// exhausted. Candidates run sequentially, never in parallel: that keeps
// the ordering semantics and avoids paying several providers at once.
type FallbackEngine struct {
	byName   map[string]adapter.ContentProvider
	priority []string
	caller   *ResilientCaller
	log      *zerolog.Logger
}

func NewFallbackEngine(providers []adapter.ContentProvider, priority []string, caller *ResilientCaller, logger *zerolog.Logger) *FallbackEngine {
	byName := make(map[string]adapter.ContentProvider, len(providers))
	for _, p := range providers {
		byName[strings.ToLower(p.Name())] = p
	}
	l := logger.With().Str("component", "FallbackEngine").Logger()
	return &FallbackEngine{
		byName:   byName,
		priority: priority,
		caller:   caller,
		log:      &l,
	}
}

// Candidates returns the attempt order: the pinned preferred provider
// first (when configured), then the default priority, de-duplicated.
// Names without a configured provider are dropped.
func (e *FallbackEngine) Candidates(preferred string) []string {
	seen := make(map[string]struct{}, len(e.priority)+1)
	out := make([]string, 0, len(e.priority)+1)
	add := func(name string) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		if _, ok := e.byName[name]; !ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	add(preferred)
	for _, name := range e.priority {
		add(name)
	}
	return out
}

// Generate runs the fallback sequence for one prompt. Individual provider
// failures never escape directly; they accumulate into the attempts list
// and only the exhausted outcome is surfaced.
func (e *FallbackEngine) Generate(ctx context.Context, prompt string, opts adapter.GenerateOptions, preferred string) (*FallbackResult, error) {
	candidates := e.Candidates(preferred)
	if len(candidates) == 0 {
		return nil, domain.ErrInvalidArgument
	}

	attempts := make([]model.ProviderAttempt, 0, len(candidates))
	var lastErr error

	for _, name := range candidates {
		p := e.byName[name]
		start := time.Now()
		gen, calls, err := e.caller.Call(ctx, func(ctx context.Context) (*adapter.Generation, error) {
			return p.Generate(ctx, prompt, opts)
		})
		latency := time.Since(start)

		if err != nil {
			lastErr = err
			class := classify(err)
			usage := billedUsage(err)
			attempts = append(attempts, model.ProviderAttempt{
				Provider:   name,
				Success:    false,
				ErrorClass: class,
				Error:      err.Error(),
				Tokens:     usage.TotalTokens,
				CostMicros: usage.CostMicros,
				Latency:    latency,
			})
			metrics.ObserveProviderAttempt(name, string(class), usage.TotalTokens, usage.CostMicros, int(latency/time.Millisecond), false)
			e.log.Warn().Err(err).Str("provider", name).Int("calls", calls).Msg("provider failed, falling back")

			if ctx.Err() != nil {
				break // the job is gone; stop burning candidates
			}
			continue
		}

		attempts = append(attempts, model.ProviderAttempt{
			Provider:   name,
			Success:    true,
			Tokens:     gen.Usage.TotalTokens,
			CostMicros: gen.Usage.CostMicros,
			Latency:    latency,
		})
		metrics.ObserveProviderAttempt(name, "success", gen.Usage.TotalTokens, gen.Usage.CostMicros, int(latency/time.Millisecond), true)

		tokens, cost := model.SumUsage(attempts)
		e.log.Info().Str("provider", name).Int("attempts", len(attempts)).Int("tokens", tokens).Msg("generation succeeded")
		return &FallbackResult{
			Content:         gen.Content,
			Model:           gen.Model,
			FinalProvider:   name,
			Attempts:        attempts,
			TotalTokens:     tokens,
			TotalCostMicros: cost,
		}, nil
	}

	metrics.IncFallbackExhausted()
	return nil, &ExhaustedError{Attempts: attempts, Last: lastErr}
}
