package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-content-orchestrator/internal/domain"
	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/infra/ratelimit"
)

type stubGenUC struct {
	jobs      map[string]*model.GenerationJob
	articles  map[string]*model.Article
	cancelled []string
	cleaned   int
}

func newStubGenUC() *stubGenUC {
	return &stubGenUC{jobs: make(map[string]*model.GenerationJob), articles: make(map[string]*model.Article)}
}

func (s *stubGenUC) Create(ctx context.Context, topicID string, req model.GenerationRequest) (*model.GenerationJob, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, domain.ErrInvalidArgument
	}
	job := model.NewGenerationJob(topicID, req, 3)
	job.ID = "j-created"
	s.jobs[job.ID] = job
	return job, nil
}

func (s *stubGenUC) Status(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

func (s *stubGenUC) Cancel(ctx context.Context, jobID string) error {
	j, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Terminal() && !j.Cancelled() {
		return domain.ErrJobTerminal
	}
	s.cancelled = append(s.cancelled, jobID)
	return nil
}

func (s *stubGenUC) Article(ctx context.Context, id string) (*model.Article, error) {
	a, ok := s.articles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (s *stubGenUC) CleanupExpired(ctx context.Context) (int, error) {
	s.cleaned++
	return 4, nil
}

func newTestServer(uc *stubGenUC, limit int) http.Handler {
	logger := zerolog.Nop()
	return NewServer(uc, ratelimit.NewLimiter(time.Minute), limit, "s3cret", &logger).Router()
}

func TestCreateJob_ReturnsSnapshot(t *testing.T) {
	t.Parallel()
	h := newTestServer(newStubGenUC(), 10)

	body := `{"topic_id":"t-1","topic":"database indexing","target_words":800}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}
	var snap jobSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.JobID == "" || snap.Phase != "queued" || snap.Percentage != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestCreateJob_BadRequests(t *testing.T) {
	t.Parallel()
	h := newTestServer(newStubGenUC(), 10)

	for name, body := range map[string]string{
		"malformed json": `{`,
		"empty topic":    `{"topic":"  "}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestCreateJob_RateLimited(t *testing.T) {
	t.Parallel()
	h := newTestServer(newStubGenUC(), 1)

	body := `{"topic":"burst"}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	first.Header.Set("X-Client-ID", "client-a")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first request: %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	second.Header.Set("X-Client-ID", "client-a")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("429 must carry Retry-After")
	}

	// A different client still has budget.
	third := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	third.Header.Set("X-Client-ID", "client-b")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, third)
	if rec.Code != http.StatusCreated {
		t.Fatalf("other client: %d, want 201", rec.Code)
	}
}

func TestJobStatus_FoundAndNotFound(t *testing.T) {
	t.Parallel()
	uc := newStubGenUC()
	job := model.NewGenerationJob("t-1", model.GenerationRequest{Topic: "x"}, 3)
	job.ID = "j-1"
	_ = job.AdvanceTo(model.PhaseAnalyzing)
	_ = job.AdvanceTo(model.PhaseStructuring)
	uc.jobs[job.ID] = job
	h := newTestServer(uc, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/j-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap jobSnapshot
	_ = json.Unmarshal(rec.Body.Bytes(), &snap)
	if snap.Phase != "structuring" || snap.Percentage != 30 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.StartedAt == nil {
		t.Fatal("started job must expose started_at")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing job: %d, want 404", rec.Code)
	}
}

func TestCancelJob_Statuses(t *testing.T) {
	t.Parallel()
	uc := newStubGenUC()
	running := model.NewGenerationJob("t-1", model.GenerationRequest{Topic: "x"}, 3)
	running.ID = "j-run"
	uc.jobs[running.ID] = running

	done := model.NewGenerationJob("t-1", model.GenerationRequest{Topic: "x"}, 3)
	done.ID = "j-done"
	for _, p := range []model.Phase{
		model.PhaseAnalyzing, model.PhaseStructuring, model.PhaseWriting,
		model.PhaseOptimizing, model.PhaseFinalizing, model.PhaseCompleted,
	} {
		_ = done.AdvanceTo(p)
	}
	uc.jobs[done.ID] = done
	h := newTestServer(uc, 10)

	cases := []struct {
		id   string
		want int
	}{
		{"j-run", http.StatusNoContent},
		{"j-done", http.StatusConflict},
		{"missing", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+tc.id, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("cancel %s: status = %d, want %d", tc.id, rec.Code, tc.want)
		}
	}
	if len(uc.cancelled) != 1 || uc.cancelled[0] != "j-run" {
		t.Fatalf("cancelled = %v", uc.cancelled)
	}
}

func TestGetArticle(t *testing.T) {
	t.Parallel()
	uc := newStubGenUC()
	uc.articles["a-1"] = &model.Article{ID: "a-1", Title: "Indexing", Body: "..."}
	h := newTestServer(uc, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles/a-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/articles/a-2", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing article: %d", rec.Code)
	}
}

func TestAdminCleanup_Auth(t *testing.T) {
	t.Parallel()
	uc := newStubGenUC()
	h := newTestServer(uc, 10)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/cleanup", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/cleanup", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bad token: %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/cleanup", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("good token: %d, want 200", rec.Code)
	}
	if uc.cleaned != 1 {
		t.Fatalf("cleanups = %d", uc.cleaned)
	}
}
