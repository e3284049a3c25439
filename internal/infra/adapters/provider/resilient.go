package provider

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// RetryPolicy configures the resilient caller.
type RetryPolicy struct {
	MaxRetries int           // extra attempts after the first (default 3)
	Base       time.Duration // backoff base
	MaxDelay   time.Duration // cap on a single backoff delay
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.Base <= 0 {
		p.Base = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	return p
}

// ResilientCaller executes exactly one outbound call, classifies the
// failure, and retries transient / rate-limited classes with exponential
// backoff plus jitter. A permanent classification results in exactly one
// attempt. The backoff sleep blocks only the owning job's worker.
type ResilientCaller struct {
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
	log    *zerolog.Logger
}

func NewResilientCaller(policy RetryPolicy, logger *zerolog.Logger) *ResilientCaller {
	l := logger.With().Str("component", "ResilientCaller").Logger()
	return &ResilientCaller{
		policy: policy.withDefaults(),
		sleep:  sleepCtx,
		jitter: rand.Float64,
		log:    &l,
	}
}

// Delay returns the backoff before retry i (1-indexed):
// base * 2^(i-1) plus up to 10% jitter, capped at MaxDelay.
func (c *ResilientCaller) Delay(retry int) time.Duration {
	d := c.policy.Base << (retry - 1)
	d += time.Duration(float64(d) * 0.10 * c.jitter())
	if d > c.policy.MaxDelay {
		d = c.policy.MaxDelay
	}
	return d
}

// Call runs fn until it succeeds, fails permanently, or retries are
// exhausted. It returns the result, the number of attempts made, and the
// last error annotated with that count.
func (c *ResilientCaller) Call(ctx context.Context, fn func(ctx context.Context) (*adapter.Generation, error)) (*adapter.Generation, int, error) {
	var lastErr error
	attempts := 0

	for retry := 0; retry <= c.policy.MaxRetries; retry++ {
		if retry > 0 {
			delay := c.Delay(retry)
			c.log.Debug().Int("retry", retry).Dur("delay", delay).Msg("backing off before retry")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, attempts, fmt.Errorf("after %d attempts: %w", attempts, err)
			}
		}

		attempts++
		gen, err := fn(ctx)
		if err == nil {
			return gen, attempts, nil
		}
		lastErr = err

		class := classify(err)
		if class == model.ErrorClassPermanent {
			c.log.Debug().Err(err).Msg("permanent failure, not retrying")
			return nil, attempts, fmt.Errorf("after %d attempts: %w", attempts, err)
		}
		c.log.Debug().Err(err).Str("class", string(class)).Int("attempt", attempts).Msg("retryable failure")
	}

	return nil, attempts, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
