// Package server provides the HTTP API with lifecycle management.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/soretetsu/discovery-go/internal/config"
	"github.com/soretetsu/discovery-go/internal/embedding"
	"github.com/soretetsu/discovery-go/internal/recommend"
	"github.com/soretetsu/discovery-go/internal/service"
	"github.com/soretetsu/discovery-go/internal/source"
)

// Server wraps the HTTP API with dependencies and lifecycle management.
type Server struct {
	cfg       *config.Config
	discovery *service.DiscoveryService
	ingest    *service.IngestService
	jobs      *service.JobManager
	logger    *slog.Logger
	version   string
	http      *http.Server
}

// New creates a new API server.
func New(addr, version string, cfg *config.Config, discovery *service.DiscoveryService, ingest *service.IngestService, jobs *service.JobManager, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		discovery: discovery,
		ingest:    ingest,
		jobs:      jobs,
		logger:    logger,
		version:   version,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(logger)(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.discovery.EnsureReady(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", s.http.Addr, "version", s.version)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/discover", s.handleDiscover)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/sync", s.handleSync)
	mux.HandleFunc("POST /api/embed", s.handleEmbed)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	return mux
}

// discoverRequest is the request body for POST /api/discover.
type discoverRequest struct {
	Philosophers []string `json:"philosophers"`
	Themes       []string `json:"themes"`
	SearchText   string   `json:"search_text"`
}

// errorResponse is the error body for all endpoints.
type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("decode body: %v", err))
		return
	}

	result, err := s.discovery.Discover(r.Context(), recommend.Query{
		Philosophers: req.Philosophers,
		Themes:       req.Themes,
		SearchText:   strings.TrimSpace(req.SearchText),
	})
	if err != nil {
		s.writeDiscoverError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeDiscoverError maps domain errors to HTTP status codes. Unknown errors
// never leak their details to the client.
func (s *Server) writeDiscoverError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_query", "query needs at least one tag or search text")
	case errors.Is(err, service.ErrNoVocabularyMatch):
		writeError(w, http.StatusBadRequest, "no_vocabulary_match", "no query tag matched the vocabulary")
	case errors.Is(err, service.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "not_ready", "catalog is still loading")
	default:
		s.logger.Error("discover failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	episodes, err := s.discovery.SearchCatalog(r.Context(), q, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, "invalid_query", "search needs a non-empty q parameter")
			return
		}
		s.logger.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": episodes})
}

// syncRequest is the request body for POST /api/sync.
type syncRequest struct {
	DatabaseID string `json:"database_id"`
	WithBodies bool   `json:"with_bodies"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("decode body: %v", err))
			return
		}
	}

	databaseID := req.DatabaseID
	if databaseID == "" {
		databaseID = s.cfg.SourceDatabaseID
	}
	if databaseID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "no source database ID configured")
		return
	}
	if s.cfg.SourceToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "no source token configured")
		return
	}

	src := source.New(s.cfg.SourceURL, s.cfg.SourceToken)
	job := s.jobs.CreateJob("sync", 0)

	ctx := context.WithoutCancel(r.Context())
	go func() {
		result, err := s.ingest.SyncCatalog(ctx, src, databaseID, req.WithBodies, s.jobs, job)
		if err != nil {
			s.jobs.Fail(job, err)
			return
		}
		s.jobs.Complete(job, result)
		if err := s.discovery.Reload(ctx); err != nil {
			s.logger.Error("catalog reload after sync failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, toJobView(job.Snapshot()))
}

// embedRequest is the request body for POST /api/embed.
type embedRequest struct {
	Limit int `json:"limit"`
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("decode body: %v", err))
			return
		}
	}

	job := s.jobs.CreateJob("embed", 0)

	ctx := context.WithoutCancel(r.Context())
	go func() {
		embedder, err := embedding.NewEmbedder(ctx, s.cfg)
		if err != nil {
			s.jobs.Fail(job, err)
			return
		}
		result, err := s.ingest.EmbedMissing(ctx, embedder, req.Limit, s.jobs, job)
		if err != nil {
			s.jobs.Fail(job, err)
			return
		}
		s.jobs.Complete(job, result)
		if err := s.discovery.Reload(ctx); err != nil {
			s.logger.Error("catalog reload after embed failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, toJobView(job.Snapshot()))
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	philosophers, themes := s.discovery.Vocabularies()
	status := s.discovery.Ready()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":       s.version,
		"philosophers":  philosophers,
		"themes":        themes,
		"episode_count": status.EpisodeCount,
		"ready":         status.State == service.StateReady,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.discovery.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.discovery.Ready()
	code := http.StatusOK
	if status.State != service.StateReady {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// jobView is the API shape of a background job.
type jobView struct {
	ID          string                `json:"id"`
	Type        string                `json:"type"`
	Status      service.JobStatus     `json:"status"`
	Progress    int                   `json:"progress"`
	Total       int                   `json:"total"`
	Result      *service.IngestResult `json:"result,omitempty"`
	Error       string                `json:"error,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
}

func toJobView(snap service.Job) jobView {
	return jobView{
		ID:          snap.ID,
		Type:        snap.Type,
		Status:      snap.Status,
		Progress:    snap.Progress,
		Total:       snap.Total,
		Result:      snap.Result,
		Error:       snap.Error,
		StartedAt:   snap.StartedAt,
		CompletedAt: snap.CompletedAt,
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := s.jobs.ListJobs()
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, toJobView(job.Snapshot()))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.GetJob(r.PathValue("id"))
	if job == nil {
		writeError(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	writeJSON(w, http.StatusOK, toJobView(job.Snapshot()))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, errorResponse{Code: errCode, Error: msg})
}
