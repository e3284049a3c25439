package model

import (
	"time"

	"ai-content-orchestrator/internal/domain"
)

// JobStatus is the coarse lifecycle tag derived from the current phase.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusGenerating JobStatus = "generating"
	JobStatusFailed     JobStatus = "failed"
	JobStatusReady      JobStatus = "ready"
)

// CancelledReason is written to LastError when a job is cancelled
// cooperatively; the worker uses it to tell cancellation apart from
// genuine failures.
const CancelledReason = "cancelled"

// GenerationRequest is the original request payload, stored verbatim on
// the job for replay and audit.
type GenerationRequest struct {
	Topic             string   `json:"topic"`
	Keywords          []string `json:"keywords,omitempty"`
	Tone              string   `json:"tone,omitempty"`
	TargetWords       int      `json:"target_words,omitempty"`
	PreferredProvider string   `json:"preferred_provider,omitempty"`
	// SkipOptimize marks the optimizing phase as a no-op for this
	// request (documented per-deployment behaviour, never implicit).
	SkipOptimize bool `json:"skip_optimize,omitempty"`
}

// GenerationJob is one request to generate an article, tracked through
// phases to a terminal outcome. A job has exactly one writer (the worker
// that claimed it); readers are unrestricted.
type GenerationJob struct {
	ID          string
	TopicID     string
	ArticleID   string
	RequestData GenerationRequest

	Status      JobStatus
	Phase       Phase
	Percentage  int
	CurrentStep string

	ProviderUsed string
	CostMicros   int64
	WordCount    int
	SEOScore     int

	Attempts    int
	MaxAttempts int
	LastError   string

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	UpdatedAt   time.Time
}

// NewGenerationJob builds a queued job for the given request.
// The ID is assigned by the repository on first Save.
func NewGenerationJob(topicID string, req GenerationRequest, maxAttempts int) *GenerationJob {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	now := time.Now()
	return &GenerationJob{
		TopicID:     topicID,
		RequestData: req,
		Status:      JobStatusPending,
		Phase:       PhaseQueued,
		Percentage:  PhaseQueued.Floor(),
		CurrentStep: PhaseQueued.Step(),
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// statusForPhase derives the coarse status tag from a phase.
func statusForPhase(p Phase) JobStatus {
	switch p {
	case PhaseQueued:
		return JobStatusPending
	case PhaseCompleted:
		return JobStatusReady
	case PhaseError:
		return JobStatusFailed
	default:
		return JobStatusGenerating
	}
}

// Terminal reports whether the job reached a final phase.
func (j *GenerationJob) Terminal() bool { return j.Phase.Terminal() }

// Cancelled reports whether the job ended via cooperative cancellation.
func (j *GenerationJob) Cancelled() bool {
	return j.Phase == PhaseError && j.LastError == CancelledReason
}

// AdvanceTo moves the job one phase forward (or one documented skip).
// Percentage snaps to the new floor and never decreases.
func (j *GenerationJob) AdvanceTo(p Phase) error {
	if j.Terminal() {
		return domain.ErrJobTerminal
	}
	if !CanTransition(j.Phase, p, j.RequestData.SkipOptimize) {
		return domain.ErrInvalidTransition
	}
	j.Phase = p
	j.Status = statusForPhase(p)
	j.CurrentStep = p.Step()
	if f := p.Floor(); f > j.Percentage {
		j.Percentage = f
	}
	now := time.Now()
	if p == PhaseAnalyzing && j.StartedAt.IsZero() {
		j.StartedAt = now
	}
	if p == PhaseCompleted {
		j.CompletedAt = now
	}
	j.UpdatedAt = now
	return nil
}

// Fail transitions the job to the terminal error phase with a readable
// reason. Percentage is left where it was.
func (j *GenerationJob) Fail(reason string) error {
	if j.Terminal() {
		return domain.ErrJobTerminal
	}
	j.Phase = PhaseError
	j.Status = JobStatusFailed
	j.CurrentStep = PhaseError.Step()
	j.LastError = reason
	now := time.Now()
	j.CompletedAt = now
	j.UpdatedAt = now
	return nil
}

// Cancel requests cooperative cancellation: the record flips to error
// immediately; the owning worker discards any in-flight result it later
// receives for this job.
func (j *GenerationJob) Cancel() error { return j.Fail(CancelledReason) }

// Reset re-queues a non-terminal job for another whole-pipeline attempt.
// MaxAttempts counts total runs, so the failed run being recorded here must
// leave at least one more. Percentage may only drop when the job never
// started; once a client could have observed progress, the number holds
// steady across the requeue (queued's floor is 0, so any value satisfies it).
func (j *GenerationJob) Reset() error {
	if j.Terminal() {
		return domain.ErrJobTerminal
	}
	if j.Attempts+1 >= j.MaxAttempts {
		return domain.ErrInvalidArgument
	}
	j.Attempts++
	j.Phase = PhaseQueued
	j.Status = JobStatusPending
	if j.StartedAt.IsZero() {
		j.Percentage = PhaseQueued.Floor()
	}
	j.CurrentStep = PhaseQueued.Step()
	j.UpdatedAt = time.Now()
	return nil
}

// EstimatedTimeRemaining extrapolates from elapsed time and current
// percentage; zero when the job is terminal or has not started.
func (j *GenerationJob) EstimatedTimeRemaining(now time.Time) time.Duration {
	if j.Terminal() || j.StartedAt.IsZero() || j.Percentage <= 0 {
		return 0
	}
	elapsed := now.Sub(j.StartedAt)
	if elapsed <= 0 {
		return 0
	}
	total := time.Duration(float64(elapsed) * 100 / float64(j.Percentage))
	return total - elapsed
}
