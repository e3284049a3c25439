package repository

import (
	"context"
	"time"

	"ai-content-orchestrator/internal/domain/model"
)

// GenerationJobRepository is the only component allowed to make job state
// durable. Writes are read-after-write consistent for the same id: a poll
// immediately after a worker's Save must observe the update.
type GenerationJobRepository interface {
	// Save upserts the job, assigning an id when empty.
	Save(ctx context.Context, tx Tx, job *model.GenerationJob) error

	// FindByID returns the job or domain.ErrNotFound.
	FindByID(ctx context.Context, tx Tx, id string) (*model.GenerationJob, error)

	// FindByIDForUpdate reads the job with a row lock held for the rest of
	// the transaction, so a check-then-write (cancel, phase transition)
	// cannot interleave with a concurrent writer committing in between.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.GenerationJob, error)

	// FetchAndMarkRunning atomically claims the oldest queued job and
	// advances it to the analyzing phase so no other worker picks it up.
	// Returns domain.ErrNotFound when the queue is empty.
	FetchAndMarkRunning(ctx context.Context) (*model.GenerationJob, error)

	// ListStale returns terminal jobs whose completion is older than the
	// cutoff, for the retention sweep.
	ListStale(ctx context.Context, olderThan time.Time) ([]*model.GenerationJob, error)

	// DeleteOlderThan removes terminal jobs past the cutoff and reports
	// how many rows went away.
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int, error)
}
