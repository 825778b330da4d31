package sources

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

const wsjBase = "https://www.wsj.com"

// WSJ extracts articles from the Wall Street Journal search results page.
type WSJ struct {
	opts     Options
	probe    *Probe
	detector *Detector
	logger   *zap.Logger
}

// NewWSJ builds the WSJ adapter.
func NewWSJ(opts Options, deps Deps) *WSJ {
	return &WSJ{
		opts:     opts,
		probe:    deps.Probe,
		detector: NewDetector(4096, []string{`a[data-testid="flexcard-headline"]`}),
		logger:   deps.Logger.Named("wsj"),
	}
}

// Source returns the adapter's source id.
func (a *WSJ) Source() ingest.SourceID {
	return ingest.SourceWSJ
}

// Scan loads the search page and extracts headline cards. Timestamps come as
// relative strings ("42 min ago"); the normalizer resolves them against the
// capture time.
func (a *WSJ) Scan(ctx context.Context, session ingest.Session, run ingest.RunContext) ([]ingest.CandidateItem, error) {
	snap, err := loadPage(ctx, session, a.probe, a.detector, a.opts.SearchURL, a.logger)
	if err != nil {
		return nil, err
	}
	doc, err := parseDoc(snap.Body)
	if err != nil {
		return nil, err
	}

	headlines := doc.Find(`a[data-testid="flexcard-headline"]`)
	if headlines.Length() == 0 {
		if item, ok := bestEffortItem(snap.FinalURL, snap.Body); ok {
			a.logger.Warn("expected anchors missing, degraded to best-effort extraction")
			return []ingest.CandidateItem{item}, nil
		}
		return nil, ingest.Structural(fmt.Errorf("no flexcard-headline anchors on %s", snap.FinalURL))
	}

	limit := itemCap(a.opts, run)
	items := make([]ingest.CandidateItem, 0, headlines.Length())
	headlines.EachWithBreak(func(i int, link *goquery.Selection) bool {
		if len(items) >= limit {
			return false
		}
		title := collapseSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}
		url := absoluteURL(wsjBase, href)

		// Snippet and timestamp sit next to the headline inside the card.
		card := link.Closest("div")
		item := ingest.CandidateItem{
			ExternalID:   url,
			Title:        title,
			Text:         collapseSpace(card.Find(`p[data-testid="flexcard-text"]`).First().Text()),
			RawHTML:      outerHTML(card),
			PublishedRaw: collapseSpace(card.Find(`p[data-testid="timestamp-text"]`).First().Text()),
			Position:     i,
			Metadata: map[string]string{
				"url": url,
			},
		}
		items = append(items, item)
		return true
	})

	if len(items) == 0 {
		return nil, ingest.EmptyResult("page loaded but no parsable headline cards")
	}
	a.logger.Info("scan complete", zap.Int("items", len(items)))
	return items, nil
}
