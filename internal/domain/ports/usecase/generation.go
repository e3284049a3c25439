package usecase

import (
	"context"

	"ai-content-orchestrator/internal/domain/model"
)

// GenerationManager defines the job-lifecycle operations needed by external
// components like the HTTP layer and background workers.
type GenerationManager interface {
	Create(ctx context.Context, topicID string, req model.GenerationRequest) (*model.GenerationJob, error)
	Status(ctx context.Context, jobID string) (*model.GenerationJob, error)
	Cancel(ctx context.Context, jobID string) error
	Article(ctx context.Context, articleID string) (*model.Article, error)
	CleanupExpired(ctx context.Context) (int, error)
}
