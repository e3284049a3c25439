package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/domain/ports/usecase"
	"ai-content-orchestrator/internal/infra/redis"
)

const cleanupLockKey = "lock:jobs:cleanup"

// CleanupWorker periodically deletes terminal jobs past the retention age.
// A redis lock keeps the sweep to one instance at a time when several
// replicas run against the same database.
type CleanupWorker struct {
	interval time.Duration
	genUC    usecase.GenerationManager
	locker   redis.Locker
	log      *zerolog.Logger
}

func NewCleanupWorker(interval time.Duration, genUC usecase.GenerationManager, locker redis.Locker, logger *zerolog.Logger) *CleanupWorker {
	l := logger.With().Str("component", "CleanupWorker").Logger()
	return &CleanupWorker{
		interval: interval,
		genUC:    genUC,
		locker:   locker,
		log:      &l,
	}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting cleanup worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping cleanup worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *CleanupWorker) sweep(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, cleanupLockKey, w.interval)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			w.log.Debug().Msg("another instance holds the cleanup lock")
		} else {
			w.log.Error().Err(err).Msg("cleanup lock error")
		}
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, cleanupLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("cleanup unlock failed")
		}
	}()

	n, err := w.genUC.CleanupExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("cleanup sweep error")
		return
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("terminal jobs cleaned")
	}
}
