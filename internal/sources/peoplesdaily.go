package sources

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

const peoplesDailyBase = "https://data.people.com.cn"

// PeoplesDaily extracts articles from the People's Daily search results page.
type PeoplesDaily struct {
	opts     Options
	probe    *Probe
	detector *Detector
	logger   *zap.Logger
}

// NewPeoplesDaily builds the People's Daily adapter.
func NewPeoplesDaily(opts Options, deps Deps) *PeoplesDaily {
	return &PeoplesDaily{
		opts:  opts,
		probe: deps.Probe,
		// Result cards live in div.sreach_li (sic, site's own typo).
		detector: NewDetector(2048, []string{"div.sreach_li"}),
		logger:   deps.Logger.Named("peoples_daily"),
	}
}

// Source returns the adapter's source id.
func (a *PeoplesDaily) Source() ingest.SourceID {
	return ingest.SourcePeoplesDaily
}

// Scan loads the search page and extracts article cards.
func (a *PeoplesDaily) Scan(ctx context.Context, session ingest.Session, run ingest.RunContext) ([]ingest.CandidateItem, error) {
	snap, err := loadPage(ctx, session, a.probe, a.detector, a.opts.SearchURL, a.logger)
	if err != nil {
		return nil, err
	}
	doc, err := parseDoc(snap.Body)
	if err != nil {
		return nil, err
	}

	cards := doc.Find("div.sreach_li")
	if cards.Length() == 0 {
		if item, ok := bestEffortItem(snap.FinalURL, snap.Body); ok {
			a.logger.Warn("expected anchors missing, degraded to best-effort extraction")
			return []ingest.CandidateItem{item}, nil
		}
		return nil, ingest.Structural(fmt.Errorf("no div.sreach_li cards on %s", snap.FinalURL))
	}

	limit := itemCap(a.opts, run)
	items := make([]ingest.CandidateItem, 0, cards.Length())
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if len(items) >= limit {
			return false
		}
		titleLink := card.Find("h3 a.open_detail_link").First()
		title := collapseSpace(titleLink.Text())
		href, _ := titleLink.Attr("href")
		if title == "" || href == "" {
			return true
		}
		url := absoluteURL(peoplesDailyBase, href)

		item := ingest.CandidateItem{
			ExternalID:   url,
			Title:        title,
			Text:         collapseSpace(card.Find("div.incon_text p").First().Text()),
			RawHTML:      outerHTML(card),
			PublishedRaw: collapseSpace(card.Find("div.listinfo").First().Text()),
			Position:     i,
			Metadata: map[string]string{
				"url": url,
			},
		}
		items = append(items, item)
		return true
	})

	if len(items) == 0 {
		return nil, ingest.EmptyResult("page loaded but no parsable article cards")
	}
	a.logger.Info("scan complete", zap.Int("items", len(items)))
	return items, nil
}

func outerHTML(sel *goquery.Selection) string {
	html, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	return html
}
