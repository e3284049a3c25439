package web

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-content-orchestrator/internal/domain/ports/usecase"
	"ai-content-orchestrator/internal/infra/ratelimit"
)

// Server exposes the job API: create, poll, cancel, plus article retrieval
// and the operational endpoints.
type Server struct {
	genUC    usecase.GenerationManager
	limiter  *ratelimit.Limiter
	limit    int
	adminKey string
	log      *zerolog.Logger
}

func NewServer(genUC usecase.GenerationManager, limiter *ratelimit.Limiter, limit int, adminKey string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		genUC:    genUC,
		limiter:  limiter,
		limit:    limit,
		adminKey: adminKey,
		log:      &l,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/{jobID}", s.handleJobStatus)
		r.Delete("/jobs/{jobID}", s.handleCancelJob)
		r.Get("/articles/{articleID}", s.handleGetArticle)

		r.Group(func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Post("/admin/cleanup", s.handleAdminCleanup)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// adminAuth is simple Bearer auth for operational endpoints.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if parts[1] != s.adminKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientToken identifies the caller for rate limiting: an explicit client
// id when supplied, otherwise the remote address.
func clientToken(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Client-ID")); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
