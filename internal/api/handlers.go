package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/orchestrator"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/store"
)

// listRecords serves GET /v1/records.
//
// Single-source listings include untranslated rows so fresh captures are
// visible immediately. Cross-source listings (no source filter, or more than
// one) require the comparison rendering, since mixing languages defeats the
// point of the comparison view. translated_only=true forces the strict
// behavior either way.
func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	params, err := parseQueryParams(r)
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.records.Query(r.Context(), params)
	if err != nil {
		s.logger.Error("record query failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "query failed")
		return
	}
	if records == nil {
		records = []ingest.Record{}
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// aggregateSources serves GET /v1/aggregates/sources. Counts cover translated
// records only, so every source is measured on the same comparable corpus.
func (s *Server) aggregateSources(w http.ResponseWriter, r *http.Request) {
	params, err := parseQueryParams(r)
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	params.RequireTranslated = true
	counts, err := s.records.CountBySource(r.Context(), params)
	if err != nil {
		s.logger.Error("source aggregate failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "query failed")
		return
	}
	if counts == nil {
		counts = []store.SourceCount{}
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"sources": counts})
}

// aggregateDaily serves GET /v1/aggregates/daily.
func (s *Server) aggregateDaily(w http.ResponseWriter, r *http.Request) {
	params, err := parseQueryParams(r)
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	params.RequireTranslated = true
	counts, err := s.records.CountByDay(r.Context(), params)
	if err != nil {
		s.logger.Error("daily aggregate failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "query failed")
		return
	}
	if counts == nil {
		counts = []store.DayCount{}
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"days": counts})
}

// triggerRun serves POST /v1/runs. The run executes synchronously and the
// response is the finalized report; the external caller branches on its
// status field.
func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeError(s.logger, w, http.StatusServiceUnavailable, "run trigger not configured")
		return
	}
	report, err := s.trigger.Trigger(r.Context())
	if err != nil {
		if errors.Is(err, orchestrator.ErrRunInProgress) {
			writeError(s.logger, w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("run trigger failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "run failed to start")
		return
	}
	status := http.StatusOK
	if report.Status == ingest.RunStatusFailed {
		status = http.StatusInternalServerError
	}
	writeJSON(s.logger, w, status, report)
}

func (s *Server) latestRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.runs.LatestRun(r.Context())
	if err != nil {
		s.logger.Error("latest run lookup failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "query failed")
		return
	}
	if report == nil {
		writeError(s.logger, w, http.StatusNotFound, "no runs recorded")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, report)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "run_id")
	report, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		s.logger.Error("run lookup failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "query failed")
		return
	}
	if report == nil {
		writeError(s.logger, w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, report)
}

func parseQueryParams(r *http.Request) (store.QueryParams, error) {
	q := r.URL.Query()
	var p store.QueryParams

	for _, raw := range q["source"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id := ingest.SourceID(part)
			if !id.Valid() {
				return p, fmt.Errorf("unknown source %q", part)
			}
			p.Sources = append(p.Sources, id)
		}
	}

	since, err := parseTimeParam(q.Get("since"))
	if err != nil {
		return p, fmt.Errorf("invalid since: %w", err)
	}
	p.Since = since

	until, err := parseTimeParam(q.Get("until"))
	if err != nil {
		return p, fmt.Errorf("invalid until: %w", err)
	}
	p.Until = until

	p.TextQuery = q.Get("q")
	p.Language = q.Get("language")

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid limit %q", v)
		}
		p.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid offset %q", v)
		}
		p.Offset = n
	}

	p.RequireTranslated = len(p.Sources) != 1
	if v := q.Get("translated_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("invalid translated_only %q", v)
		}
		if b {
			p.RequireTranslated = true
		}
	}
	return p, nil
}

// parseTimeParam accepts RFC 3339 timestamps and plain dates.
func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("want RFC 3339 or YYYY-MM-DD, got %q", v)
	}
	t = t.UTC()
	return &t, nil
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
