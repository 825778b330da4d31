// Package api exposes the read-only query service and the run trigger.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/store"
)

// RecordQuerier is the read side of the record store.
type RecordQuerier interface {
	Query(ctx context.Context, p store.QueryParams) ([]ingest.Record, error)
	CountBySource(ctx context.Context, p store.QueryParams) ([]store.SourceCount, error)
	CountByDay(ctx context.Context, p store.QueryParams) ([]store.DayCount, error)
}

// RunReader reads persisted run reports.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*ingest.RunReport, error)
	LatestRun(ctx context.Context) (*ingest.RunReport, error)
}

// RunTrigger starts a pipeline run. Implemented by the orchestrator.
type RunTrigger interface {
	Trigger(ctx context.Context) (*ingest.RunReport, error)
	Running() bool
}

// Server wires HTTP handlers to the record store and the orchestrator.
type Server struct {
	router  chi.Router
	records RecordQuerier
	runs    RunReader
	trigger RunTrigger
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. trigger may be
// nil for a query-only deployment; the runs routes then return 503.
func NewServer(records RecordQuerier, runs RunReader, trigger RunTrigger, logger *zap.Logger) *Server {
	s := &Server{
		records: records,
		runs:    runs,
		trigger: trigger,
		logger:  logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(metricsMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(timeoutMiddleware(30 * time.Second)).Group(func(r chi.Router) {
			r.Get("/records", s.listRecords)
			r.Route("/aggregates", func(r chi.Router) {
				r.Get("/sources", s.aggregateSources)
				r.Get("/daily", s.aggregateDaily)
			})
			r.Get("/runs/latest", s.latestRun)
			r.Get("/runs/{run_id}", s.getRun)
		})
		// Runs are long; the trigger endpoint gets its own generous budget.
		r.With(timeoutMiddleware(20 * time.Minute)).Post("/runs", s.triggerRun)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// A trivially filtered count exercises the database connection.
	if _, err := s.records.CountBySource(r.Context(), store.QueryParams{}); err != nil {
		writeError(s.logger, w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(s.logger, w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}
