package sources

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockKeywords are markers of an explicit anti-bot challenge. Checked
// case-insensitively against the page body.
var blockKeywords = []string{
	"captcha",
	"unusual traffic",
	"verify you are a human",
	"access denied",
	"请输入验证码",
	"环境异常",
	"账号异常",
}

// loginMarkers indicate the session was bounced to an auth wall, which the
// pipeline treats the same as a block: the identity is burned.
var loginMarkers = []string{
	"/login",
	"passport.weibo",
	"x.com/i/flow/login",
	"twitter.com/i/flow/login",
}

// Detector decides whether a probe response warrants promotion to a full
// browser render, and whether a page shows anti-bot signals.
type Detector struct {
	minHTMLBytes int
	selectors    []string
}

// NewDetector constructs a Detector with the configured thresholds. selectors
// are the semantic anchors expected on a healthy result page.
func NewDetector(minBytes int, selectors []string) *Detector {
	return &Detector{minHTMLBytes: minBytes, selectors: selectors}
}

// NeedsBrowser inspects the probe body for signals that the content only
// materializes under JS rendering.
func (d *Detector) NeedsBrowser(body []byte) bool {
	if d == nil {
		return true
	}
	if d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes {
		return true
	}
	return d.missingSelectors(body)
}

func (d *Detector) missingSelectors(body []byte) bool {
	if len(d.selectors) == 0 || len(body) == 0 {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return true
	}
	for _, sel := range d.selectors {
		if sel == "" {
			continue
		}
		if doc.Find(sel).Length() == 0 {
			return true
		}
	}
	return false
}

// BlockSignals reports whether the page body or final URL shows an explicit
// anti-bot challenge or an auth-wall redirect.
func BlockSignals(body []byte, finalURL string, statusCode int) bool {
	if statusCode == 403 || statusCode == 429 {
		return true
	}
	lowerURL := strings.ToLower(finalURL)
	for _, marker := range loginMarkers {
		if strings.Contains(lowerURL, marker) {
			return true
		}
	}
	lowerBody := bytes.ToLower(body)
	for _, kw := range blockKeywords {
		if bytes.Contains(lowerBody, bytes.ToLower([]byte(kw))) {
			return true
		}
	}
	return false
}
