package ratelimit

import (
	"math/rand"
	"sync"
	"time"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/infra/metrics"
)

type entry struct {
	count       int
	windowStart time.Time
}

// Limiter is a fixed-window admission gate in front of job creation,
// keyed by a caller token (session or IP). State is process-local: it
// does not survive restarts and is not shared across instances — a
// best-effort gate, not a strict distributed limiter.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*entry

	now     func() time.Time
	reclaim func() bool
}

func NewLimiter(window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
		// Expired entries are reclaimed opportunistically on ~1% of
		// checks instead of by a dedicated sweep goroutine.
		reclaim: func() bool { return rand.Intn(100) == 0 },
	}
}

// Allow admits the request when the token's window has budget left.
// A fresh or expired window starts at count=1; a full window rejects
// without incrementing.
func (l *Limiter) Allow(token string, limit int) bool {
	if limit <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.reclaim() {
		l.sweepLocked(now)
	}

	e, ok := l.entries[token]
	if !ok || now.Sub(e.windowStart) >= l.window {
		l.entries[token] = &entry{count: 1, windowStart: now}
		return true
	}
	if e.count < limit {
		e.count++
		return true
	}
	metrics.IncRateLimitRejection()
	return false
}

// Check is Allow for callers that propagate errors: a rejected request
// surfaces as domain.ErrRateLimited.
func (l *Limiter) Check(token string, limit int) error {
	if l.Allow(token, limit) {
		return nil
	}
	return domain.ErrRateLimited
}

func (l *Limiter) sweepLocked(now time.Time) {
	for token, e := range l.entries {
		if now.Sub(e.windowStart) >= l.window {
			delete(l.entries, token)
		}
	}
}
