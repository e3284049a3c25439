package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/domain/model"
)

type jobCreateRequest struct {
	TopicID           string   `json:"topic_id"`
	Topic             string   `json:"topic"`
	Keywords          []string `json:"keywords,omitempty"`
	Tone              string   `json:"tone,omitempty"`
	TargetWords       int      `json:"target_words,omitempty"`
	PreferredProvider string   `json:"preferred_provider,omitempty"`
	SkipOptimize      bool     `json:"skip_optimize,omitempty"`
}

// jobSnapshot is the poll payload. EstimatedTimeRemaining is whole seconds.
type jobSnapshot struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Phase       string `json:"phase"`
	Percentage  int    `json:"percentage"`
	CurrentStep string `json:"current_step"`

	ArticleID    string `json:"article_id,omitempty"`
	ProviderUsed string `json:"provider_used,omitempty"`
	WordCount    int    `json:"word_count,omitempty"`
	SEOScore     int    `json:"seo_score,omitempty"`
	Error        string `json:"error,omitempty"`

	EstimatedTimeRemaining int64 `json:"estimated_time_remaining_seconds"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func snapshotOf(job *model.GenerationJob) jobSnapshot {
	snap := jobSnapshot{
		JobID:                  job.ID,
		Status:                 string(job.Status),
		Phase:                  string(job.Phase),
		Percentage:             job.Percentage,
		CurrentStep:            job.CurrentStep,
		ArticleID:              job.ArticleID,
		ProviderUsed:           job.ProviderUsed,
		WordCount:              job.WordCount,
		SEOScore:               job.SEOScore,
		Error:                  job.LastError,
		EstimatedTimeRemaining: int64(job.EstimatedTimeRemaining(time.Now()) / time.Second),
		CreatedAt:              job.CreatedAt,
	}
	if !job.StartedAt.IsZero() {
		t := job.StartedAt
		snap.StartedAt = &t
	}
	if !job.CompletedAt.IsZero() {
		t := job.CompletedAt
		snap.CompletedAt = &t
	}
	return snap
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Check(clientToken(r), s.limit); errors.Is(err, domain.ErrRateLimited) {
		w.Header().Set("Retry-After", strconv.Itoa(60))
		http.Error(w, "Too many generation requests", http.StatusTooManyRequests)
		return
	}

	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := s.genUC.Create(r.Context(), req.TopicID, model.GenerationRequest{
		Topic:             req.Topic,
		Keywords:          req.Keywords,
		Tone:              req.Tone,
		TargetWords:       req.TargetWords,
		PreferredProvider: req.PreferredProvider,
		SkipOptimize:      req.SkipOptimize,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error().Err(err).Msg("job create failed")
		http.Error(w, "Failed to create job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, snapshotOf(job))
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.genUC.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Msg("job status failed")
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snapshotOf(job))
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	err := s.genUC.Cancel(r.Context(), chi.URLParam(r, "jobID"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Job not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrJobTerminal):
		http.Error(w, "Job already finished", http.StatusConflict)
	default:
		s.log.Error().Err(err).Msg("job cancel failed")
		http.Error(w, "Failed to cancel job", http.StatusInternalServerError)
	}
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.genUC.Article(r.Context(), chi.URLParam(r, "articleID"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Article not found", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Msg("article fetch failed")
		http.Error(w, "Failed to load article", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *Server) handleAdminCleanup(w http.ResponseWriter, r *http.Request) {
	n, err := s.genUC.CleanupExpired(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("manual cleanup failed")
		http.Error(w, "Cleanup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
