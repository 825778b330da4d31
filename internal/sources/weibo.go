package sources

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// maxStalePages is how many consecutive result pages may yield nothing new
// before the scan stops; hot search results repeat once exhausted.
const maxStalePages = 2

// Weibo extracts posts from the Weibo search result pages. Search is
// paginated; the adapter walks pages until the cap or the results go stale.
type Weibo struct {
	opts   Options
	logger *zap.Logger
}

// NewWeibo builds the Weibo adapter. Weibo search never renders without JS,
// so there is no probe path.
func NewWeibo(opts Options, deps Deps) *Weibo {
	return &Weibo{opts: opts, logger: deps.Logger.Named("weibo")}
}

// Source returns the adapter's source id.
func (a *Weibo) Source() ingest.SourceID {
	return ingest.SourceWeibo
}

// Scan walks paginated search results, extracting post cards.
func (a *Weibo) Scan(ctx context.Context, session ingest.Session, run ingest.RunContext) ([]ingest.CandidateItem, error) {
	limit := itemCap(a.opts, run)
	maxPages := a.opts.ScrollTimes
	if maxPages <= 0 {
		maxPages = 10
	}

	var (
		items      []ingest.CandidateItem
		seen       = make(map[string]struct{})
		stalePages int
		sawAnchors bool
	)
	for page := 1; page <= maxPages && len(items) < limit; page++ {
		url := fmt.Sprintf("%s&page=%d", a.opts.SearchURL, page)
		snap, err := session.Navigate(ctx, url)
		if err != nil {
			if len(items) > 0 {
				// Keep what earlier pages yielded.
				a.logger.Warn("pagination aborted", zap.Int("page", page), zap.Error(err))
				break
			}
			return nil, err
		}
		if BlockSignals(snap.Body, snap.FinalURL, snap.StatusCode) {
			if len(items) > 0 {
				break
			}
			return nil, ingest.Blocked(fmt.Errorf("anti-bot challenge at %s (status %d)", snap.FinalURL, snap.StatusCode))
		}

		doc, err := parseDoc(snap.Body)
		if err != nil {
			return nil, err
		}
		cards := doc.Find(`div.card-wrap[action-type="feed_list_item"]`)
		if cards.Length() > 0 {
			sawAnchors = true
		}

		added := 0
		cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
			if len(items) >= limit {
				return false
			}
			item, ok := a.parseCard(card, len(items))
			if !ok {
				return true
			}
			key := item.ExternalID
			if _, dup := seen[key]; dup {
				return true
			}
			seen[key] = struct{}{}
			items = append(items, item)
			added++
			return true
		})

		if added == 0 {
			stalePages++
			if stalePages >= maxStalePages {
				break
			}
		} else {
			stalePages = 0
		}
	}

	if !sawAnchors {
		return nil, ingest.Structural(fmt.Errorf("no feed_list_item cards in %d pages", maxPages))
	}
	if len(items) == 0 {
		return nil, ingest.EmptyResult("feed loaded but no parsable posts")
	}
	a.logger.Info("scan complete", zap.Int("items", len(items)))
	return items, nil
}

func (a *Weibo) parseCard(card *goquery.Selection, position int) (ingest.CandidateItem, bool) {
	content := card.Find(`p[node-type="feed_list_content"]`).First()
	if content.Length() == 0 {
		content = card.Find("p.txt").First()
	}
	if content.Length() == 0 {
		return ingest.CandidateItem{}, false
	}
	text := collapseSpace(content.Text())
	if len([]rune(text)) < 10 {
		return ingest.CandidateItem{}, false
	}

	mid, ok := card.Attr("mid")
	if !ok || mid == "" {
		mid, _ = card.Attr("data-mid")
	}
	if mid == "" {
		return ingest.CandidateItem{}, false
	}

	userLink := card.Find("a.name").First()
	userURL, _ := userLink.Attr("href")

	item := ingest.CandidateItem{
		ExternalID:   mid,
		Text:         text,
		RawHTML:      outerHTML(content),
		PublishedRaw: collapseSpace(card.Find("div.from a").First().Text()),
		Position:     position,
		Metadata: map[string]string{
			"author":     collapseSpace(userLink.Text()),
			"author_url": absoluteURL("https://weibo.com", userURL),
			"region":     collapseSpace(card.Find(".region_name").First().Text()),
			"likes":      fmt.Sprintf("%d", parseCount(card.Find(".woo-like-count").First().Text())),
		},
	}
	return item, true
}
