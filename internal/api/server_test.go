package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/orchestrator"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/store"
)

type fakeQuerier struct {
	lastParams store.QueryParams
	records    []ingest.Record
	sourceAgg  []store.SourceCount
	dayAgg     []store.DayCount
}

func (f *fakeQuerier) Query(_ context.Context, p store.QueryParams) ([]ingest.Record, error) {
	f.lastParams = p
	return f.records, nil
}

func (f *fakeQuerier) CountBySource(_ context.Context, p store.QueryParams) ([]store.SourceCount, error) {
	f.lastParams = p
	return f.sourceAgg, nil
}

func (f *fakeQuerier) CountByDay(_ context.Context, p store.QueryParams) ([]store.DayCount, error) {
	f.lastParams = p
	return f.dayAgg, nil
}

type fakeRunReader struct {
	latest *ingest.RunReport
	byID   map[string]*ingest.RunReport
}

func (f *fakeRunReader) GetRun(_ context.Context, id string) (*ingest.RunReport, error) {
	return f.byID[id], nil
}

func (f *fakeRunReader) LatestRun(context.Context) (*ingest.RunReport, error) {
	return f.latest, nil
}

type fakeTrigger struct {
	report *ingest.RunReport
	err    error
}

func (f *fakeTrigger) Trigger(context.Context) (*ingest.RunReport, error) {
	return f.report, f.err
}

func (f *fakeTrigger) Running() bool { return false }

func newTestServer(q *fakeQuerier, runs *fakeRunReader, trigger RunTrigger) *Server {
	if q == nil {
		q = &fakeQuerier{}
	}
	if runs == nil {
		runs = &fakeRunReader{}
	}
	return NewServer(q, runs, trigger, zap.NewNop())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(nil, nil, nil), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListRecordsSingleSourceIncludesUntranslated(t *testing.T) {
	q := &fakeQuerier{records: []ingest.Record{{Source: ingest.SourceWeibo, ExternalID: "1"}}}
	rec := get(t, newTestServer(q, nil, nil), "/v1/records?source=weibo&limit=10")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []ingest.SourceID{ingest.SourceWeibo}, q.lastParams.Sources)
	require.False(t, q.lastParams.RequireTranslated, "a single-source listing shows fresh captures")
	require.Equal(t, 10, q.lastParams.Limit)
}

func TestListRecordsCrossSourceRequiresTranslation(t *testing.T) {
	q := &fakeQuerier{}
	rec := get(t, newTestServer(q, nil, nil), "/v1/records?source=weibo,wsj")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, q.lastParams.Sources, 2)
	require.True(t, q.lastParams.RequireTranslated)

	rec = get(t, newTestServer(q, nil, nil), "/v1/records")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, q.lastParams.RequireTranslated, "no source filter means all sources")
}

func TestListRecordsDateFilters(t *testing.T) {
	q := &fakeQuerier{}
	rec := get(t, newTestServer(q, nil, nil), "/v1/records?since=2026-03-01&until=2026-03-05T12:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, q.lastParams.Since)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *q.lastParams.Since)
	require.NotNil(t, q.lastParams.Until)
	require.Equal(t, 12, q.lastParams.Until.Hour())
}

func TestListRecordsRejectsBadInput(t *testing.T) {
	s := newTestServer(nil, nil, nil)
	require.Equal(t, http.StatusBadRequest, get(t, s, "/v1/records?source=reddit").Code)
	require.Equal(t, http.StatusBadRequest, get(t, s, "/v1/records?since=tomorrow").Code)
	require.Equal(t, http.StatusBadRequest, get(t, s, "/v1/records?limit=-2").Code)
}

func TestAggregatesAlwaysRequireTranslation(t *testing.T) {
	q := &fakeQuerier{sourceAgg: []store.SourceCount{{Source: ingest.SourceWSJ, Count: 3}}}
	rec := get(t, newTestServer(q, nil, nil), "/v1/aggregates/sources")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, q.lastParams.RequireTranslated)

	rec = get(t, newTestServer(q, nil, nil), "/v1/aggregates/daily?source=weibo")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, q.lastParams.RequireTranslated)
}

func TestTriggerRunReturnsReport(t *testing.T) {
	report := ingest.NewRunReport("run-9", time.Now().UTC())
	report.Finalize(time.Now().UTC(), false)
	s := newTestServer(nil, nil, &fakeTrigger{report: report})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got ingest.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "run-9", got.ID)
	require.Equal(t, ingest.RunStatusSuccess, got.Status)
}

func TestTriggerRunConflictWhileRunning(t *testing.T) {
	s := newTestServer(nil, nil, &fakeTrigger{err: orchestrator.ErrRunInProgress})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestTriggerRunFailedReportMapsTo500(t *testing.T) {
	report := ingest.NewRunReport("run-10", time.Now().UTC())
	report.Finalize(time.Now().UTC(), true)
	s := newTestServer(nil, nil, &fakeTrigger{report: report})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunLookups(t *testing.T) {
	report := ingest.NewRunReport("run-11", time.Now().UTC())
	runs := &fakeRunReader{latest: report, byID: map[string]*ingest.RunReport{"run-11": report}}
	s := newTestServer(nil, runs, nil)

	require.Equal(t, http.StatusOK, get(t, s, "/v1/runs/latest").Code)
	require.Equal(t, http.StatusOK, get(t, s, "/v1/runs/run-11").Code)
	require.Equal(t, http.StatusNotFound, get(t, s, "/v1/runs/unknown").Code)

	empty := newTestServer(nil, &fakeRunReader{}, nil)
	require.Equal(t, http.StatusNotFound, get(t, empty, "/v1/runs/latest").Code)
}

func TestMetricsEndpointServes(t *testing.T) {
	rec := get(t, newTestServer(nil, nil, nil), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
}
