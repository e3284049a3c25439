package repository

import (
	"context"

	"ai-content-orchestrator/internal/domain/model"
)

// ArticleRepository materializes generated content. Invoked only after a
// job's pipeline succeeds; the stored article id is written back to the job.
type ArticleRepository interface {
	Save(ctx context.Context, tx Tx, article *model.Article) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Article, error)
}
