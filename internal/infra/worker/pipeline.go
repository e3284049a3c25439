package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/adapter"
	"ai-content-orchestrator/internal/domain/ports/repository"
	"ai-content-orchestrator/internal/infra/adapters/provider"
	"ai-content-orchestrator/internal/infra/metrics"
)

// contentEngine is what the pipeline needs from the fallback engine.
type contentEngine interface {
	Generate(ctx context.Context, prompt string, opts adapter.GenerateOptions, preferred string) (*provider.FallbackResult, error)
}

// errRequeued marks a pipeline run that ended with the job reset for
// another whole-pipeline attempt rather than a terminal outcome.
var errRequeued = errors.New("job requeued for another attempt")

// persistRetries bounds how often a phase transition is retried against a
// flaky store before the run is abandoned at its last persisted phase.
const persistRetries = 3

// PipelineWorker claims queued jobs and drives them through the phase
// sequence. Cancellation is cooperative: the worker re-reads the job inside
// a transaction at every phase boundary and discards in-flight results when
// the record turned terminal underneath it.
type PipelineWorker struct {
	jobs     repository.GenerationJobRepository
	articles repository.ArticleRepository
	engine   contentEngine
	tm       repository.TransactionManager

	opts            adapter.GenerateOptions
	defaultProvider string
	pollInterval    time.Duration
	log             *zerolog.Logger
}

func NewPipelineWorker(
	jobs repository.GenerationJobRepository,
	articles repository.ArticleRepository,
	engine contentEngine,
	tm repository.TransactionManager,
	opts adapter.GenerateOptions,
	defaultProvider string,
	pollInterval time.Duration,
	logger *zerolog.Logger,
) *PipelineWorker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	l := logger.With().Str("component", "PipelineWorker").Logger()
	return &PipelineWorker{
		jobs:            jobs,
		articles:        articles,
		engine:          engine,
		tm:              tm,
		opts:            opts,
		defaultProvider: defaultProvider,
		pollInterval:    pollInterval,
		log:             &l,
	}
}

// Start runs the claim loop until the context is cancelled. Each tick
// submits one claim attempt to the pool; an empty queue is not an error.
func (w *PipelineWorker) Start(ctx context.Context, pool *Pool) {
	w.log.Info().Dur("poll_interval", w.pollInterval).Msg("pipeline worker started")
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("pipeline worker stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				w.processOne(ctx)
				return nil
			})
		}
	}
}

func (w *PipelineWorker) processOne(ctx context.Context) {
	job, err := w.jobs.FetchAndMarkRunning(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			w.log.Error().Err(err).Msg("failed to claim a job")
		}
		return
	}

	metrics.JobStarted()
	defer metrics.JobFinished()
	w.log.Info().Str("job_id", job.ID).Int("attempt", job.Attempts+1).Msg("processing job")
	start := time.Now()

	err = w.run(ctx, job)
	switch {
	case err == nil:
		metrics.IncJobProcessed(string(model.JobStatusReady))
		w.log.Info().Str("job_id", job.ID).Dur("duration", time.Since(start)).Msg("job completed")
	case errors.Is(err, domain.ErrCancelled):
		metrics.IncJobProcessed("cancelled")
		w.log.Info().Str("job_id", job.ID).Msg("job cancelled, result discarded")
	case errors.Is(err, errRequeued):
		w.log.Warn().Str("job_id", job.ID).Msg("job requeued after failure")
	default:
		metrics.IncJobProcessed(string(model.JobStatusFailed))
		w.log.Error().Err(err).Str("job_id", job.ID).Msg("job failed")
	}
}

// run drives one claimed job from analyzing to completed. The claim already
// persisted the analyzing phase; every later transition goes through
// advance, which enforces the boundary cancellation check.
func (w *PipelineWorker) run(ctx context.Context, job *model.GenerationJob) error {
	req := job.RequestData
	keywords := analyzeKeywords(req)

	if err := w.advance(ctx, job, model.PhaseStructuring); err != nil {
		return err
	}
	outline := buildOutline(req, keywords)

	if err := w.advance(ctx, job, model.PhaseWriting); err != nil {
		return err
	}
	// The request's preferred provider pins the first candidate; absent
	// that, the configured default does.
	preferred := req.PreferredProvider
	if preferred == "" {
		preferred = w.defaultProvider
	}
	res, err := w.engine.Generate(ctx, buildPrompt(req, outline, keywords), w.opts, preferred)
	if err != nil {
		return w.failOrRequeue(ctx, job, err)
	}
	job.ProviderUsed = res.FinalProvider
	job.CostMicros += res.TotalCostMicros
	job.WordCount = countWords(res.Content)

	if req.SkipOptimize {
		if err := w.advance(ctx, job, model.PhaseFinalizing); err != nil {
			return err
		}
	} else {
		if err := w.advance(ctx, job, model.PhaseOptimizing); err != nil {
			return err
		}
		job.SEOScore = scoreSEO(res.Content, keywords, req.TargetWords)
		if err := w.advance(ctx, job, model.PhaseFinalizing); err != nil {
			return err
		}
	}

	return w.finalize(ctx, job, res)
}

// advance persists a single phase transition. Inside the transaction the
// job is re-read with a row lock: a cancel that committed first is visible
// here, and one that is waiting behind the lock sees our write and refuses
// its own. A record that turned terminal means the run stops and any
// pending result is discarded. Transient persistence failures are retried a
// bounded number of times; after that the job stays at its last persisted
// phase for a later claim or manual intervention.
func (w *PipelineWorker) advance(ctx context.Context, job *model.GenerationJob, next model.Phase) error {
	var lastErr error
	for attempt := 0; attempt < persistRetries; attempt++ {
		err := w.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			cur, err := w.jobs.FindByIDForUpdate(ctx, tx, job.ID)
			if err != nil {
				return err
			}
			if cur.Cancelled() {
				return domain.ErrCancelled
			}
			if cur.Terminal() {
				return domain.ErrJobTerminal
			}
			// Already applied in memory when a previous Save attempt failed.
			if job.Phase != next {
				if err := job.AdvanceTo(next); err != nil {
					return err
				}
			}
			return w.jobs.Save(ctx, tx, job)
		})
		switch {
		case err == nil:
			metrics.IncPhaseTransition(string(next))
			return nil
		case errors.Is(err, domain.ErrCancelled),
			errors.Is(err, domain.ErrJobTerminal),
			errors.Is(err, domain.ErrInvalidTransition),
			errors.Is(err, domain.ErrNotFound):
			return err
		}
		lastErr = err
		w.log.Warn().Err(err).Str("job_id", job.ID).Str("phase", string(next)).Int("attempt", attempt+1).Msg("transition persist failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
		}
	}
	return errors.Join(domain.ErrPersistence, lastErr)
}

// finalize materializes the article and completes the job in one
// transaction, so a completed job always has its article.
func (w *PipelineWorker) finalize(ctx context.Context, job *model.GenerationJob, res *provider.FallbackResult) error {
	article := &model.Article{
		JobID:     job.ID,
		TopicID:   job.TopicID,
		Title:     titleFor(job.RequestData.Topic),
		Body:      res.Content,
		WordCount: job.WordCount,
		SEOScore:  job.SEOScore,
		Provider:  res.FinalProvider,
	}

	var lastErr error
	for attempt := 0; attempt < persistRetries; attempt++ {
		err := w.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			cur, err := w.jobs.FindByIDForUpdate(ctx, tx, job.ID)
			if err != nil {
				return err
			}
			if cur.Cancelled() {
				return domain.ErrCancelled
			}
			if cur.Terminal() {
				return domain.ErrJobTerminal
			}
			if err := w.articles.Save(ctx, tx, article); err != nil {
				return err
			}
			job.ArticleID = article.ID
			if job.Phase != model.PhaseCompleted {
				if err := job.AdvanceTo(model.PhaseCompleted); err != nil {
					return err
				}
			}
			return w.jobs.Save(ctx, tx, job)
		})
		switch {
		case err == nil:
			metrics.IncPhaseTransition(string(model.PhaseCompleted))
			return nil
		case errors.Is(err, domain.ErrCancelled),
			errors.Is(err, domain.ErrJobTerminal),
			errors.Is(err, domain.ErrInvalidTransition),
			errors.Is(err, domain.ErrNotFound):
			return err
		}
		lastErr = err
		w.log.Warn().Err(err).Str("job_id", job.ID).Int("attempt", attempt+1).Msg("finalize persist failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
		}
	}
	return errors.Join(domain.ErrPersistence, lastErr)
}

// failOrRequeue handles an exhausted generation: the job is reset for
// another whole-pipeline attempt while attempts remain, otherwise it fails
// terminally with the last provider error as the reason.
func (w *PipelineWorker) failOrRequeue(ctx context.Context, job *model.GenerationJob, cause error) error {
	outcome := cause
	err := w.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := w.jobs.FindByIDForUpdate(ctx, tx, job.ID)
		if err != nil {
			return err
		}
		if cur.Cancelled() {
			outcome = domain.ErrCancelled
			return nil
		}
		if cur.Terminal() {
			outcome = domain.ErrJobTerminal
			return nil
		}
		if resetErr := job.Reset(); resetErr == nil {
			outcome = errRequeued
			return w.jobs.Save(ctx, tx, job)
		}
		if failErr := job.Fail(truncateReason(cause.Error())); failErr != nil {
			return failErr
		}
		return w.jobs.Save(ctx, tx, job)
	})
	if err != nil {
		w.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist failure outcome")
		return fmt.Errorf("persist failure outcome: %w", err)
	}
	return outcome
}

// truncateReason keeps LastError readable in job listings.
func truncateReason(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max]
}
