// Package normalize turns raw candidate items into canonical records.
package normalize

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// chromeSelectors are boilerplate blocks stripped before text extraction.
var chromeSelectors = []string{
	"script", "style", "noscript", "nav", "header", "footer", "aside",
	"form", "iframe", "[aria-hidden='true']",
}

// CleanText strips markup and boilerplate from raw HTML and collapses
// whitespace. Plain text input passes through with whitespace collapsed.
func CleanText(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	if !strings.Contains(rawHTML, "<") {
		return collapse(rawHTML)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(rawHTML)))
	if err != nil {
		return collapse(rawHTML)
	}
	for _, sel := range chromeSelectors {
		doc.Find(sel).Remove()
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
