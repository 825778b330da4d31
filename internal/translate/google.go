// Package translate renders records into the comparison language.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// GoogleConfig configures the translation HTTP client.
type GoogleConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// GoogleClient calls the public Google translate endpoint (the same free
// single-call surface the gtx client uses). No API key, best effort.
type GoogleClient struct {
	endpoint string
	client   *http.Client
}

// NewGoogleClient builds a GoogleClient.
func NewGoogleClient(cfg GoogleConfig) *GoogleClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://translate.googleapis.com/translate_a/single"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &GoogleClient{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Translate renders text into targetLang. sourceLang may be "auto".
func (c *GoogleClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == "" {
		sourceLang = "auto"
	}
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", ingest.TranslationUnavailable(fmt.Errorf("build request: %w", err))
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", ingest.TranslationUnavailable(fmt.Errorf("call translator: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ingest.TranslationUnavailable(fmt.Errorf("translator status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", ingest.TranslationUnavailable(fmt.Errorf("read response: %w", err))
	}
	out, err := decodeSegments(body)
	if err != nil {
		return "", ingest.TranslationUnavailable(err)
	}
	return out, nil
}

// decodeSegments unpacks the nested-array payload: the first element is a
// list of [translatedSegment, originalSegment, ...] tuples.
func decodeSegments(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		return "", fmt.Errorf("unexpected translator payload")
	}
	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("unexpected segment list")
	}
	out := ""
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var piece string
		if err := json.Unmarshal(seg[0], &piece); err != nil {
			continue
		}
		out += piece
	}
	return out, nil
}
