package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/repository"
	ucport "ai-content-orchestrator/internal/domain/ports/usecase"
	"ai-content-orchestrator/internal/infra/logging"
	"ai-content-orchestrator/internal/infra/metrics"
)

var _ ucport.GenerationManager = (*GenerationUseCase)(nil)

// maxTargetWords bounds a single request so one job cannot ask for a
// book-sized completion.
const maxTargetWords = 20000

// GenerationUseCase drives the job lifecycle from the API side: admission,
// status snapshots, cooperative cancellation and retention cleanup. Phase
// execution itself belongs to the pipeline worker.
type GenerationUseCase struct {
	jobs     repository.GenerationJobRepository
	articles repository.ArticleRepository
	tm       repository.TransactionManager

	maxAttempts  int
	retentionAge time.Duration
	log          *zerolog.Logger
}

func NewGenerationUseCase(
	jobs repository.GenerationJobRepository,
	articles repository.ArticleRepository,
	tm repository.TransactionManager,
	maxAttempts int,
	retentionAge time.Duration,
	logger *zerolog.Logger,
) *GenerationUseCase {
	l := logger.With().Str("component", "GenerationUseCase").Logger()
	return &GenerationUseCase{
		jobs:         jobs,
		articles:     articles,
		tm:           tm,
		maxAttempts:  maxAttempts,
		retentionAge: retentionAge,
		log:          &l,
	}
}

// Create validates the request and enqueues a new job. The returned job
// already carries its durable id, so the caller can poll immediately.
func (uc *GenerationUseCase) Create(ctx context.Context, topicID string, req model.GenerationRequest) (*model.GenerationJob, error) {
	defer logging.TraceDuration(uc.log, "GenerationUC.Create")()

	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return nil, fmt.Errorf("%w: topic is required", domain.ErrInvalidArgument)
	}
	if req.TargetWords < 0 || req.TargetWords > maxTargetWords {
		return nil, fmt.Errorf("%w: target_words must be between 0 and %d", domain.ErrInvalidArgument, maxTargetWords)
	}
	if topicID == "" {
		topicID = req.Topic
	}

	job := model.NewGenerationJob(topicID, req, uc.maxAttempts)
	if err := uc.jobs.Save(ctx, nil, job); err != nil {
		return nil, err
	}
	uc.log.Info().Str("job_id", job.ID).Str("topic", req.Topic).Msg("job enqueued")
	return job, nil
}

// Status returns the current snapshot of the job, or domain.ErrNotFound.
func (uc *GenerationUseCase) Status(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	return uc.jobs.FindByID(ctx, nil, jobID)
}

// Cancel flips the job to its terminal cancelled state. The owning worker
// observes the flip at its next phase boundary and discards any in-flight
// result. Cancelling an already-cancelled job is a no-op; cancelling a job
// that finished some other way returns domain.ErrJobTerminal.
func (uc *GenerationUseCase) Cancel(ctx context.Context, jobID string) error {
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		job, err := uc.jobs.FindByIDForUpdate(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if job.Cancelled() {
			return nil
		}
		if err := job.Cancel(); err != nil {
			return err
		}
		return uc.jobs.Save(ctx, tx, job)
	})
	if err == nil {
		uc.log.Info().Str("job_id", jobID).Msg("job cancelled")
	}
	return err
}

// Article fetches a materialized article by id.
func (uc *GenerationUseCase) Article(ctx context.Context, articleID string) (*model.Article, error) {
	return uc.articles.FindByID(ctx, nil, articleID)
}

// CleanupExpired removes terminal jobs older than the retention age and
// reports how many were deleted.
func (uc *GenerationUseCase) CleanupExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-uc.retentionAge)
	if stale, err := uc.jobs.ListStale(ctx, cutoff); err != nil {
		uc.log.Warn().Err(err).Msg("could not list stale jobs before sweep")
	} else if len(stale) > 0 {
		uc.log.Debug().Int("candidates", len(stale)).Time("cutoff", cutoff).Msg("retention sweep starting")
	}
	n, err := uc.jobs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddJobsCleaned(n)
		uc.log.Info().Int("deleted", n).Time("cutoff", cutoff).Msg("retention sweep removed jobs")
	}
	return n, nil
}
