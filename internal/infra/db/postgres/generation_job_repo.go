package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/repository"
)

var _ repository.GenerationJobRepository = (*generationJobRepo)(nil)

type generationJobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewGenerationJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *generationJobRepo {
	return &generationJobRepo{pool: pool, tm: tm}
}

const jobColumns = `id, topic_id, article_id, request_data, status, phase, percentage, current_step,
provider_used, cost_micros, word_count, seo_score, attempts, max_attempts, last_error,
created_at, started_at, completed_at, updated_at`

func (r *generationJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	if job.ID == "" {
		// ULIDs sort by creation time, which keeps the claim query cheap.
		job.ID = ulid.Make().String()
	}
	job.UpdatedAt = time.Now()

	reqData, err := json.Marshal(job.RequestData)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO generation_jobs (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (id) DO UPDATE SET
  article_id = EXCLUDED.article_id,
  status = EXCLUDED.status,
  phase = EXCLUDED.phase,
  percentage = EXCLUDED.percentage,
  current_step = EXCLUDED.current_step,
  provider_used = EXCLUDED.provider_used,
  cost_micros = EXCLUDED.cost_micros,
  word_count = EXCLUDED.word_count,
  seo_score = EXCLUDED.seo_score,
  attempts = EXCLUDED.attempts,
  last_error = EXCLUDED.last_error,
  started_at = EXCLUDED.started_at,
  completed_at = EXCLUDED.completed_at,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.TopicID, job.ArticleID, reqData, string(job.Status), string(job.Phase),
		job.Percentage, job.CurrentStep, job.ProviderUsed, job.CostMicros, job.WordCount,
		job.SEOScore, job.Attempts, job.MaxAttempts, job.LastError,
		job.CreatedAt, job.StartedAt, job.CompletedAt, job.UpdatedAt)
	if err != nil {
		return errors.Join(domain.ErrPersistence, err)
	}
	return nil
}

func (r *generationJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

// FindByIDForUpdate locks the row until the transaction ends. A concurrent
// writer (a cancel, another transition) either committed before the lock is
// granted and is visible here, or waits until this transaction is done.
func (r *generationJobRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1 FOR UPDATE;`, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

// FetchAndMarkRunning atomically claims the oldest queued job and advances
// it to analyzing, so no other worker picks it up.
func (r *generationJobRepo) FetchAndMarkRunning(ctx context.Context) (*model.GenerationJob, error) {
	var job *model.GenerationJob

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const fetchQuery = `
SELECT ` + jobColumns + `
FROM generation_jobs
WHERE phase = 'queued'
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, fetchQuery)
		if err != nil {
			return err
		}
		fetched, err := scanJob(row)
		if err != nil {
			return err
		}
		if err := fetched.AdvanceTo(model.PhaseAnalyzing); err != nil {
			return err
		}
		if err := r.Save(ctx, tx, fetched); err != nil {
			return err
		}
		job = fetched
		return nil
	})

	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

func (r *generationJobRepo) ListStale(ctx context.Context, olderThan time.Time) ([]*model.GenerationJob, error) {
	const q = `
SELECT ` + jobColumns + `
FROM generation_jobs
WHERE phase IN ('completed', 'error') AND completed_at < $1
ORDER BY completed_at;`

	rows, err := pickRows(ctx, r.pool, nil, q, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.GenerationJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *generationJobRepo) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := execSQL(ctx, r.pool, nil,
		`DELETE FROM generation_jobs WHERE phase IN ('completed', 'error') AND completed_at < $1;`, olderThan)
	if err != nil {
		return 0, errors.Join(domain.ErrPersistence, err)
	}
	return int(tag.RowsAffected()), nil
}

func scanJob(row pgx.Row) (*model.GenerationJob, error) {
	var j model.GenerationJob
	var statusStr, phaseStr string
	var reqData []byte

	err := row.Scan(
		&j.ID, &j.TopicID, &j.ArticleID, &reqData, &statusStr, &phaseStr, &j.Percentage,
		&j.CurrentStep, &j.ProviderUsed, &j.CostMicros, &j.WordCount, &j.SEOScore,
		&j.Attempts, &j.MaxAttempts, &j.LastError,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	j.Status = model.JobStatus(statusStr)
	j.Phase = model.Phase(phaseStr)
	if len(reqData) > 0 {
		if err := json.Unmarshal(reqData, &j.RequestData); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &j, nil
}
