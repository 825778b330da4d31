package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/governor"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/normalize"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/translate"
)

type fakeSession struct{}

func (fakeSession) Identity() string { return "test" }
func (fakeSession) Navigate(context.Context, string) (ingest.PageSnapshot, error) {
	return ingest.PageSnapshot{}, nil
}
func (fakeSession) ScrollBottom(context.Context, int, time.Duration) error { return nil }
func (fakeSession) Content(context.Context) (ingest.PageSnapshot, error) {
	return ingest.PageSnapshot{}, nil
}
func (fakeSession) Close() {}

type fakePool struct{}

func (fakePool) Acquire(context.Context, ingest.SourceID) (ingest.Session, error) {
	return fakeSession{}, nil
}

func (fakePool) Rotate(context.Context, ingest.SourceID, ingest.Session) (ingest.Session, error) {
	return fakeSession{}, nil
}

type stubAdapter struct {
	source ingest.SourceID
	items  []ingest.CandidateItem
	err    error
}

func (a stubAdapter) Source() ingest.SourceID { return a.source }

func (a stubAdapter) Scan(context.Context, ingest.Session, ingest.RunContext) ([]ingest.CandidateItem, error) {
	return a.items, a.err
}

type memRecordStore struct {
	mu      sync.Mutex
	records map[string]*ingest.Record
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{records: make(map[string]*ingest.Record)}
}

func (m *memRecordStore) Upsert(_ context.Context, rec ingest.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(rec.Source) + "/" + rec.ExternalID
	_, exists := m.records[k]
	m.records[k] = &rec
	return !exists, nil
}

func (m *memRecordStore) FindByExternalID(_ context.Context, source ingest.SourceID, externalID string) (*ingest.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[string(source)+"/"+externalID], nil
}

func (m *memRecordStore) HasRecentHash(context.Context, ingest.SourceID, string, time.Time) (bool, error) {
	return false, nil
}

func (m *memRecordStore) ListUntranslated(_ context.Context, limit int) ([]ingest.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ingest.Record
	for _, rec := range m.records {
		if rec.Translated() {
			continue
		}
		out = append(out, *rec)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memRecordStore) SetTranslation(_ context.Context, source ingest.SourceID, externalID, title, text, language string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[string(source)+"/"+externalID]
	if !ok {
		return errors.New("not found")
	}
	rec.TranslatedTitle = title
	rec.TranslatedText = text
	rec.TranslatedLanguage = language
	return nil
}

type memRunStore struct {
	mu        sync.Mutex
	created   map[string]*ingest.RunReport
	finalized map[string]*ingest.RunReport
}

func newMemRunStore() *memRunStore {
	return &memRunStore{
		created:   make(map[string]*ingest.RunReport),
		finalized: make(map[string]*ingest.RunReport),
	}
}

func (m *memRunStore) CreateRun(_ context.Context, r *ingest.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created[r.ID] = r
	return nil
}

func (m *memRunStore) FinalizeRun(_ context.Context, r *ingest.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.created[r.ID]; !ok {
		return errors.New("unknown run")
	}
	m.finalized[r.ID] = r
	return nil
}

func (m *memRunStore) GetRun(_ context.Context, id string) (*ingest.RunReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalized[id], nil
}

func (m *memRunStore) LatestRun(context.Context) (*ingest.RunReport, error) { return nil, nil }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct{ n int }

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return "run-fixed", nil
}

type echoTranslator struct{}

func (echoTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return "pt:" + text, nil
}

type refusingTranslator struct{}

func (refusingTranslator) Translate(context.Context, string, string, string) (string, error) {
	return "", ingest.TranslationUnavailable(errors.New("provider down"))
}

func newTestOrchestrator(adapters []ingest.SourceAdapter, records *memRecordStore, runs RunStore) *Orchestrator {
	return newTestOrchestratorWith(adapters, records, runs, echoTranslator{})
}

func newTestOrchestratorWith(adapters []ingest.SourceAdapter, records *memRecordStore, runs RunStore, tr ingest.Translator) *Orchestrator {
	logger := zap.NewNop()
	gov := governor.New(governor.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}, fakePool{}, logger)
	normalizer := normalize.New(records, nil, 14*24*time.Hour, logger)
	batch := translate.NewBatch(records, tr, 10, "pt", logger)
	return New(adapters, gov, normalizer, batch, runs,
		fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}, &seqIDs{},
		Options{RunTimeout: time.Minute, DaysBack: 1}, logger)
}

func candidate(id, text string) ingest.CandidateItem {
	return ingest.CandidateItem{ExternalID: id, Text: text}
}

func TestTriggerAllSourcesSucceed(t *testing.T) {
	records := newMemRecordStore()
	runs := newMemRunStore()
	adapters := []ingest.SourceAdapter{
		stubAdapter{source: ingest.SourcePeoplesDaily, items: []ingest.CandidateItem{candidate("p1", "经济运行总体平稳")}},
		stubAdapter{source: ingest.SourceWSJ, items: []ingest.CandidateItem{candidate("j1", "rates held steady")}},
		stubAdapter{source: ingest.SourceWeibo, items: []ingest.CandidateItem{candidate("w1", "市场反应积极向好")}},
		stubAdapter{source: ingest.SourceTwitter, items: []ingest.CandidateItem{candidate("t1", "supply chains shifting")}},
	}
	o := newTestOrchestrator(adapters, records, runs)

	report, err := o.Trigger(context.Background())
	require.NoError(t, err)
	require.Equal(t, ingest.RunStatusSuccess, report.Status)
	require.NotNil(t, report.FinishedAt)
	require.Len(t, records.records, 4)

	for _, rec := range records.records {
		require.True(t, rec.Translated(), "the translation pass covers every stored record")
	}
	require.Contains(t, runs.finalized, report.ID)
	require.False(t, o.Running())
}

func TestTriggerIsolatesSingleSourceFailure(t *testing.T) {
	records := newMemRecordStore()
	runs := newMemRunStore()
	adapters := []ingest.SourceAdapter{
		stubAdapter{source: ingest.SourcePeoplesDaily, items: []ingest.CandidateItem{candidate("p1", "经济运行总体平稳")}},
		stubAdapter{source: ingest.SourceWSJ, err: ingest.Structural(errors.New("layout changed"))},
		stubAdapter{source: ingest.SourceWeibo, items: []ingest.CandidateItem{candidate("w1", "市场反应积极向好")}},
		stubAdapter{source: ingest.SourceTwitter, items: []ingest.CandidateItem{candidate("t1", "supply chains shifting")}},
	}
	o := newTestOrchestrator(adapters, records, runs)

	report, err := o.Trigger(context.Background())
	require.NoError(t, err)
	require.Equal(t, ingest.RunStatusPartial, report.Status)
	require.Contains(t, report.Errors[ingest.SourceWSJ], "layout changed")
	require.Len(t, records.records, 3, "healthy sources commit despite the broken one")
}

func TestTriggerAllSourcesFailedIsFailedRun(t *testing.T) {
	records := newMemRecordStore()
	runs := newMemRunStore()
	var adapters []ingest.SourceAdapter
	for _, s := range ingest.AllSources() {
		adapters = append(adapters, stubAdapter{source: s, err: ingest.Transient(errors.New("network down"))})
	}
	o := newTestOrchestrator(adapters, records, runs)

	report, err := o.Trigger(context.Background())
	require.NoError(t, err)
	require.Equal(t, ingest.RunStatusFailed, report.Status)
	require.Empty(t, records.records)
}

func TestTriggerReportsDeferredTranslations(t *testing.T) {
	records := newMemRecordStore()
	runs := newMemRunStore()
	adapters := []ingest.SourceAdapter{
		stubAdapter{source: ingest.SourceWeibo, items: []ingest.CandidateItem{candidate("w1", "市场反应积极向好")}},
	}
	o := newTestOrchestratorWith(adapters, records, runs, refusingTranslator{})

	report, err := o.Trigger(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Sources[ingest.SourceWeibo].TranslationsDeferred,
		"the trigger reads deferrals off the report, not the logs")
	require.False(t, records.records["weibo/w1"].Translated())

	final := runs.finalized[report.ID]
	require.NotNil(t, final)
	require.Equal(t, 1, final.Sources[ingest.SourceWeibo].TranslationsDeferred)
}

func TestTriggerZeroYieldIsNotAFailure(t *testing.T) {
	records := newMemRecordStore()
	runs := newMemRunStore()
	adapters := []ingest.SourceAdapter{
		stubAdapter{source: ingest.SourcePeoplesDaily, items: []ingest.CandidateItem{candidate("p1", "经济运行总体平稳")}},
		stubAdapter{source: ingest.SourceWSJ, err: ingest.EmptyResult("no matches today")},
		stubAdapter{source: ingest.SourceWeibo, items: []ingest.CandidateItem{candidate("w1", "市场反应积极向好")}},
		stubAdapter{source: ingest.SourceTwitter, items: []ingest.CandidateItem{candidate("t1", "supply chains shifting")}},
	}
	o := newTestOrchestrator(adapters, records, runs)

	report, err := o.Trigger(context.Background())
	require.NoError(t, err)
	require.Equal(t, ingest.RunStatusSuccess, report.Status)
	require.Empty(t, report.Errors)
}

func TestTriggerRunContextWindow(t *testing.T) {
	var got ingest.RunContext
	capture := captureAdapter{source: ingest.SourceWSJ, sink: &got}
	records := newMemRecordStore()
	o := newTestOrchestrator([]ingest.SourceAdapter{capture}, records, newMemRunStore())

	_, err := o.Trigger(context.Background())
	require.NoError(t, err)
	require.Equal(t, "run-fixed", got.RunID)
	require.Equal(t, time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC), got.Since)
	require.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), got.Until)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got.BatchDate, "captures share the batch day")
}

type captureAdapter struct {
	source ingest.SourceID
	sink   *ingest.RunContext
}

func (a captureAdapter) Source() ingest.SourceID { return a.source }

func (a captureAdapter) Scan(_ context.Context, _ ingest.Session, run ingest.RunContext) ([]ingest.CandidateItem, error) {
	*a.sink = run
	return nil, ingest.EmptyResult("capture only")
}
