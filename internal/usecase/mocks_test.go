package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/repository"
)

// memJobRepo is a small in-memory implementation used by unit tests.
type memJobRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.GenerationJob
	nextID    int
	saveErr   error // used by tests to simulate save failures
	listCalls int
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.GenerationJob)}
}

func (m *memJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		m.nextID++
		job.ID = fmt.Sprintf("job-%d", m.nextID)
	}
	cp := *job
	m.store[job.ID] = &cp
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	return m.FindByID(ctx, tx, id)
}

func (m *memJobRepo) FetchAndMarkRunning(ctx context.Context) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *model.GenerationJob
	for _, j := range m.store {
		if j.Phase != model.PhaseQueued {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	if err := oldest.AdvanceTo(model.PhaseAnalyzing); err != nil {
		return nil, err
	}
	cp := *oldest
	return &cp, nil
}

func (m *memJobRepo) ListStale(ctx context.Context, olderThan time.Time) ([]*model.GenerationJob, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.GenerationJob
	for _, j := range m.store {
		if j.Terminal() && j.CompletedAt.Before(olderThan) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJobRepo) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, j := range m.store {
		if j.Terminal() && j.CompletedAt.Before(olderThan) {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

// memArticleRepo stores articles in memory for tests.
type memArticleRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Article
}

func newMemArticleRepo() *memArticleRepo {
	return &memArticleRepo{store: make(map[string]*model.Article)}
}

func (m *memArticleRepo) Save(ctx context.Context, tx repository.Tx, a *model.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = fmt.Sprintf("article-%d", len(m.store)+1)
	}
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *memArticleRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// nopTxManager runs the callback without a real transaction; the in-memory
// repos ignore the tx handle anyway.
type nopTxManager struct{}

func (nopTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}
