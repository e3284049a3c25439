package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/repository"
	"ai-content-orchestrator/internal/infra/metrics"
)

var _ repository.GenerationJobRepository = (*jobSnapshotCache)(nil)

// jobSnapshotCache decorates the job repository with a short-lived redis
// cache for the poll path. Every Save invalidates the entry, so a poll
// immediately after a worker's update still sees the update; the TTL only
// trims redundant reads from clients polling on a fixed interval.
type jobSnapshotCache struct {
	inner repository.GenerationJobRepository
	cache RedisClient
	ttl   time.Duration
}

func NewJobSnapshotCache(inner repository.GenerationJobRepository, cache RedisClient, ttl time.Duration) repository.GenerationJobRepository {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &jobSnapshotCache{inner: inner, cache: cache, ttl: ttl}
}

func jobKey(id string) string { return fmt.Sprintf("job:%s", id) }

func (d *jobSnapshotCache) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	// Transactional reads (worker re-checks) must bypass the cache.
	if tx == nil {
		val, err := d.cache.Get(ctx, jobKey(id))
		if err == nil {
			var job model.GenerationJob
			if json.Unmarshal([]byte(val), &job) == nil {
				metrics.IncCacheRequest("job", "hit")
				return &job, nil
			}
		}
		// redis.Nil and real errors both fall through to the store
		metrics.IncCacheRequest("job", "miss")
	}

	job, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		if b, err := json.Marshal(job); err == nil {
			_ = d.cache.Set(ctx, jobKey(id), b, d.ttl)
		}
	}
	return job, nil
}

// FindByIDForUpdate is a locking read inside a transaction; it never
// touches the cache.
func (d *jobSnapshotCache) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	return d.inner.FindByIDForUpdate(ctx, tx, id)
}

func (d *jobSnapshotCache) Save(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	if err := d.inner.Save(ctx, tx, job); err != nil {
		return err
	}
	// Evict only once the write is visible. A pre-commit Del would let a
	// concurrent poll re-fill the cache with the old row and serve it for
	// a full TTL after the commit.
	id := job.ID
	repository.AfterCommit(ctx, func() {
		_ = d.cache.Del(context.Background(), jobKey(id))
	})
	return nil
}

func (d *jobSnapshotCache) FetchAndMarkRunning(ctx context.Context) (*model.GenerationJob, error) {
	job, err := d.inner.FetchAndMarkRunning(ctx)
	if err != nil {
		return nil, err
	}
	_ = d.cache.Del(ctx, jobKey(job.ID))
	return job, nil
}

func (d *jobSnapshotCache) ListStale(ctx context.Context, olderThan time.Time) ([]*model.GenerationJob, error) {
	return d.inner.ListStale(ctx, olderThan)
}

func (d *jobSnapshotCache) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int, error) {
	return d.inner.DeleteOlderThan(ctx, olderThan)
}
