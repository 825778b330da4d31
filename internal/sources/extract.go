package sources

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

func parseDoc(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, ingest.Structural(fmt.Errorf("parse document: %w", err))
	}
	return doc, nil
}

// bestEffortItem runs readability over the whole page when the expected
// semantic anchors are gone. Minor layout drift then degrades to a single
// sparse item instead of failing the adapter outright.
func bestEffortItem(pageURL string, body []byte) (ingest.CandidateItem, bool) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ingest.CandidateItem{}, false
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return ingest.CandidateItem{}, false
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return ingest.CandidateItem{}, false
	}
	return ingest.CandidateItem{
		ExternalID: pageURL,
		Title:      strings.TrimSpace(article.Title),
		Text:       text,
		RawHTML:    article.Content,
		Metadata:   map[string]string{"extraction": "best_effort"},
	}, true
}

// absoluteURL completes a relative href against the site base.
func absoluteURL(base, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}

var numberPattern = regexp.MustCompile(`[\d.,]+`)

// parseCount parses an engagement count, handling comma separators and the
// Chinese 万 (×10 000) suffix used on Weibo.
func parseCount(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	match := numberPattern.FindString(text)
	if match == "" {
		return 0
	}
	match = strings.ReplaceAll(match, ",", "")
	if strings.Contains(text, "万") {
		var f float64
		if _, err := fmt.Sscanf(match, "%f", &f); err != nil {
			return 0
		}
		return int(f * 10000)
	}
	var n float64
	if _, err := fmt.Sscanf(match, "%f", &n); err != nil {
		return 0
	}
	return int(n)
}

// collapseSpace reduces all whitespace runs to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
