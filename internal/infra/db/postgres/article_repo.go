package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/repository"
)

var _ repository.ArticleRepository = (*articleRepo)(nil)

type articleRepo struct {
	pool *pgxpool.Pool
}

func NewArticleRepo(pool *pgxpool.Pool) *articleRepo {
	return &articleRepo{pool: pool}
}

func (r *articleRepo) Save(ctx context.Context, tx repository.Tx, article *model.Article) error {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}

	const q = `
INSERT INTO articles (id, job_id, topic_id, title, body, word_count, seo_score, provider, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	_, err := execSQL(ctx, r.pool, tx, q,
		article.ID, article.JobID, article.TopicID, article.Title, article.Body,
		article.WordCount, article.SEOScore, article.Provider, article.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation on job_id
			return domain.ErrAlreadyExists
		}
		return errors.Join(domain.ErrPersistence, err)
	}
	return nil
}

func (r *articleRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Article, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT id, job_id, topic_id, title, body, word_count, seo_score, provider, created_at
FROM articles WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}

	var a model.Article
	err = row.Scan(&a.ID, &a.JobID, &a.TopicID, &a.Title, &a.Body, &a.WordCount, &a.SEOScore, &a.Provider, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &a, nil
}
