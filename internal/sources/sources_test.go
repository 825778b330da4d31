package sources

import (
	"context"
	"time"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// fakeSession serves canned page snapshots keyed by URL. A fallback snapshot
// covers scroll re-reads and unkeyed navigations.
type fakeSession struct {
	pages    map[string]ingest.PageSnapshot
	fallback ingest.PageSnapshot
	navErr   error
	visited  []string
}

func (s *fakeSession) Identity() string { return "test" }

func (s *fakeSession) Navigate(_ context.Context, url string) (ingest.PageSnapshot, error) {
	s.visited = append(s.visited, url)
	if s.navErr != nil {
		return ingest.PageSnapshot{}, s.navErr
	}
	if snap, ok := s.pages[url]; ok {
		return snap, nil
	}
	return s.fallback, nil
}

func (s *fakeSession) ScrollBottom(context.Context, int, time.Duration) error { return nil }

func (s *fakeSession) Content(context.Context) (ingest.PageSnapshot, error) {
	return s.fallback, nil
}

func (s *fakeSession) Close() {}

func snapshotOf(url, body string) ingest.PageSnapshot {
	return ingest.PageSnapshot{URL: url, FinalURL: url, StatusCode: 200, Body: []byte(body)}
}

func testRunContext() ingest.RunContext {
	return ingest.RunContext{
		RunID: "run-test",
		Since: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}
