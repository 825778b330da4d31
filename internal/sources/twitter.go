package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

var statusIDPattern = regexp.MustCompile(`/status/(\d+)`)

// Twitter extracts posts from an X/Twitter search timeline. The timeline is
// an infinite feed: the adapter scrolls and re-reads the DOM each round.
type Twitter struct {
	opts   Options
	logger *zap.Logger
}

// NewTwitter builds the Twitter adapter. The timeline is JS-only, no probe.
func NewTwitter(opts Options, deps Deps) *Twitter {
	return &Twitter{opts: opts, logger: deps.Logger.Named("twitter")}
}

// Source returns the adapter's source id.
func (a *Twitter) Source() ingest.SourceID {
	return ingest.SourceTwitter
}

// Scan navigates the search URL with the run's date window, scrolls the feed
// and extracts tweet articles.
func (a *Twitter) Scan(ctx context.Context, session ingest.Session, run ingest.RunContext) ([]ingest.CandidateItem, error) {
	url := a.searchURL(run)
	snap, err := session.Navigate(ctx, url)
	if err != nil {
		return nil, err
	}
	if BlockSignals(snap.Body, snap.FinalURL, snap.StatusCode) {
		return nil, ingest.Blocked(fmt.Errorf("anti-bot challenge at %s (status %d)", snap.FinalURL, snap.StatusCode))
	}

	limit := itemCap(a.opts, run)
	scrolls := a.opts.ScrollTimes
	if scrolls <= 0 {
		scrolls = 10
	}
	pause := a.opts.ScrollPause
	if pause <= 0 {
		pause = 2 * time.Second
	}

	var (
		items      []ingest.CandidateItem
		seen       = make(map[string]struct{})
		sawAnchors bool
	)
	for round := 0; round <= scrolls && len(items) < limit; round++ {
		if round > 0 {
			if err := session.ScrollBottom(ctx, 1, pause); err != nil {
				break
			}
			if snap, err = session.Content(ctx); err != nil {
				break
			}
		}
		doc, err := parseDoc(snap.Body)
		if err != nil {
			return nil, err
		}
		articles := doc.Find("article")
		if articles.Length() > 0 {
			sawAnchors = true
		}
		articles.EachWithBreak(func(_ int, art *goquery.Selection) bool {
			if len(items) >= limit {
				return false
			}
			item, ok := a.parseTweet(art, len(items))
			if !ok {
				return true
			}
			if _, dup := seen[item.ExternalID]; dup {
				return true
			}
			seen[item.ExternalID] = struct{}{}
			items = append(items, item)
			return true
		})
	}

	if !sawAnchors {
		return nil, ingest.Structural(fmt.Errorf("no article elements in timeline at %s", snap.FinalURL))
	}
	if len(items) == 0 {
		return nil, ingest.EmptyResult("timeline loaded but no parsable tweets")
	}
	a.logger.Info("scan complete", zap.Int("items", len(items)))
	return items, nil
}

// searchURL substitutes the run window into the configured template. The
// template uses {since} and {until} placeholders (YYYY-MM-DD).
func (a *Twitter) searchURL(run ingest.RunContext) string {
	url := a.opts.SearchURL
	url = strings.ReplaceAll(url, "{since}", run.Since.Format("2006-01-02"))
	url = strings.ReplaceAll(url, "{until}", run.Until.Format("2006-01-02"))
	return url
}

func (a *Twitter) parseTweet(art *goquery.Selection, position int) (ingest.CandidateItem, bool) {
	textDiv := art.Find(`div[data-testid="tweetText"]`).First()
	text := collapseSpace(textDiv.Text())
	if text == "" {
		// Media-only or ad slot.
		return ingest.CandidateItem{}, false
	}

	timeTag := art.Find("time").First()
	publishedISO, _ := timeTag.Attr("datetime")

	likes := 0
	if aria, ok := art.Find(`button[data-testid="like"]`).First().Attr("aria-label"); ok {
		likes = parseCount(aria)
	}

	// Prefer the stable status id from the permalink; the datetime+likes key
	// is a last resort for detached quote renders.
	externalID := ""
	art.Find(`a[href*="/status/"]`).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if m := statusIDPattern.FindStringSubmatch(href); m != nil {
			externalID = m[1]
			return false
		}
		return true
	})
	if externalID == "" {
		if publishedISO == "" {
			return ingest.CandidateItem{}, false
		}
		externalID = fmt.Sprintf("%s#%d", publishedISO, likes)
	}

	author := ""
	if handle, ok := art.Find(`div[data-testid="User-Name"] a`).First().Attr("href"); ok {
		author = strings.TrimPrefix(handle, "/")
	}

	return ingest.CandidateItem{
		ExternalID:   externalID,
		Text:         text,
		RawHTML:      outerHTML(art),
		PublishedRaw: publishedISO,
		Position:     position,
		Metadata: map[string]string{
			"author": author,
			"likes":  fmt.Sprintf("%d", likes),
		},
	}, true
}
