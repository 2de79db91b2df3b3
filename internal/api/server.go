// Package api exposes the pipeline over HTTP: health, metrics, trend
// listing, run triggering and the public article counters.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/observability"
	"github.com/IshaanNene/radarbr/internal/pipeline"
	"github.com/IshaanNene/radarbr/internal/storage"
	"github.com/IshaanNene/radarbr/internal/types"
)

// Run states.
const (
	RunQueued  = "queued"
	RunRunning = "running"
	RunDone    = "done"
)

const maxTopicsPerRun = 20

// Runner processes a batch of topics.
type Runner interface {
	RunBatch(ctx context.Context, topics []string, opts pipeline.Options) *pipeline.RunSummary
}

// Run tracks a batch started through the API.
type Run struct {
	ID         string               `json:"id"`
	Status     string               `json:"status"`
	Topics     []string             `json:"topics"`
	DryRun     bool                 `json:"dry_run"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Summary    *pipeline.RunSummary `json:"summary,omitempty"`
}

// Deps are the collaborators of a Server. Runner, Trends and Store may be
// nil; their routes then answer 503. Dashboard, when set, is served at /.
type Deps struct {
	Runner    Runner
	Trends    pipeline.TrendLister
	Store     storage.Store
	Metrics   *observability.Metrics
	Dashboard http.Handler
}

// Server is the HTTP front of radarbr.
type Server struct {
	router *chi.Mux
	deps   Deps
	logger *slog.Logger

	// runs outlive the request that started them and stop with baseCtx.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	runs   map[string]*Run
	runsMu sync.RWMutex

	// batchMu lets one batch run at a time; later runs wait queued.
	batchMu sync.Mutex
}

// NewServer creates a Server and registers its routes.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics(logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:  chi.NewRouter(),
		deps:    deps,
		logger:  logger.With("component", "api_server"),
		baseCtx: ctx,
		cancel:  cancel,
		runs:    make(map[string]*Run),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	if s.deps.Dashboard != nil {
		s.router.Method(http.MethodGet, "/", s.deps.Dashboard)
	}
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.deps.Metrics)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/trends", s.handleTrends)

		r.Post("/runs", s.handleCreateRun)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)

		r.Get("/articles/{slug}", s.handleGetArticle)
		r.Post("/articles/{slug}/{counter}", s.handleCount)
	})
}

// Router returns the chi router.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down and
// stops the runs still in flight.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close cancels in-flight runs and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status":  "ok",
		"version": config.Version,
	}
	if s.deps.Store != nil {
		resp["store"] = s.deps.Store.Name()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.deps.Metrics.Snapshot())
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if s.deps.Trends == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "trends not configured")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	s.jsonResponse(w, http.StatusOK, s.deps.Trends.GetAll(r.Context(), limit))
}

type runRequest struct {
	Topics []string `json:"topics"`
	Words  int      `json:"words"`
	Force  bool     `json:"force"`
	DryRun bool     `json:"dry_run"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runner == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}
	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	var topics []string
	for _, t := range body.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	switch {
	case len(topics) == 0:
		s.errorResponse(w, http.StatusBadRequest, "topics required")
		return
	case len(topics) > maxTopicsPerRun:
		s.errorResponse(w, http.StatusBadRequest, "too many topics")
		return
	case body.Words < 0:
		s.errorResponse(w, http.StatusBadRequest, "words must not be negative")
		return
	}

	run := &Run{
		ID:        uuid.NewString(),
		Status:    RunQueued,
		Topics:    topics,
		DryRun:    body.DryRun,
		StartedAt: time.Now(),
	}
	s.runsMu.Lock()
	s.runs[run.ID] = run
	s.runsMu.Unlock()

	opts := pipeline.Options{Words: body.Words, Force: body.Force, DryRun: body.DryRun}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.batchMu.Lock()
		defer s.batchMu.Unlock()

		s.runsMu.Lock()
		run.Status = RunRunning
		s.runsMu.Unlock()
		sum := s.deps.Runner.RunBatch(s.baseCtx, topics, opts)
		finished := time.Now()
		s.runsMu.Lock()
		run.Status = RunDone
		run.FinishedAt = &finished
		run.Summary = sum
		s.runsMu.Unlock()
		s.logger.Info("run finished", "id", run.ID, "summary", sum.String())
	}()

	s.logger.Info("run queued", "id", run.ID, "topics", len(topics), "dry_run", body.DryRun)
	s.jsonResponse(w, http.StatusAccepted, s.snapshot(run))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	s.runsMu.RLock()
	runs := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, *run)
	}
	s.runsMu.RUnlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	s.jsonResponse(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	s.runsMu.RLock()
	run, ok := s.runs[chi.URLParam(r, "id")]
	s.runsMu.RUnlock()
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "run not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, s.snapshot(run))
}

// snapshot copies run under the lock so it can be encoded safely.
func (s *Server) snapshot(run *Run) Run {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()
	return *run
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	a, err := s.deps.Store.GetArticleBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, a)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	var inc func(context.Context, string) error
	switch chi.URLParam(r, "counter") {
	case "view":
		inc = s.deps.Store.IncrementViews
	case "click":
		inc = s.deps.Store.IncrementClicks
	case "share":
		inc = s.deps.Store.IncrementShares
	default:
		s.errorResponse(w, http.StatusNotFound, "unknown counter")
		return
	}

	ctx := r.Context()
	a, err := s.deps.Store.GetArticleBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	if err := inc(ctx, a.ID); err != nil {
		s.storeError(w, err)
		return
	}
	if a, err = s.deps.Store.GetArticleBySlug(ctx, a.Slug); err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"views":          a.Views,
		"clicks":         a.Clicks,
		"shares":         a.Shares,
		"trending_score": a.TrendingScore,
	})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, types.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "article not found")
		return
	}
	s.logger.Error("store error", "error", err)
	s.errorResponse(w, http.StatusInternalServerError, "store error")
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, msg string) {
	s.jsonResponse(w, status, map[string]string{"error": msg})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("encode response", "error", err)
	}
}
