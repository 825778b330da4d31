// Package sources implements the four site-specific extraction adapters.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// ProbeConfig controls the lightweight HTTP probe.
type ProbeConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// Probe performs a plain HTTP fetch via Colly before the news adapters commit
// to a full browser render. Social feeds never probe; they are JS-only.
type Probe struct {
	cfg           ProbeConfig
	baseCollector *colly.Collector
}

// NewProbe builds a Probe.
func NewProbe(cfg ProbeConfig) *Probe {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &Probe{cfg: cfg, baseCollector: c}
}

// Fetch executes a single GET and returns the body as a page snapshot.
func (p *Probe) Fetch(ctx context.Context, url string) (ingest.PageSnapshot, error) {
	collector := p.baseCollector.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.SetRequestTimeout(p.cfg.Timeout)

	var (
		result   ingest.PageSnapshot
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		result = ingest.PageSnapshot{
			URL:        url,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			result = ingest.PageSnapshot{
				URL:        url,
				FinalURL:   r.Request.URL.String(),
				StatusCode: r.StatusCode,
				Body:       r.Body,
			}
			return
		}
		fetchErr = err
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := collector.Visit(url); err != nil && fetchErr == nil && result.StatusCode == 0 {
			fetchErr = err
		}
		collector.Wait()
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ingest.PageSnapshot{}, ingest.Transient(fmt.Errorf("probe canceled: %w", ctx.Err()))
	}

	if fetchErr != nil {
		return ingest.PageSnapshot{}, ingest.Transient(fmt.Errorf("probe %s: %w", url, fetchErr))
	}
	if result.StatusCode == 0 {
		result.StatusCode = http.StatusOK
	}
	return result, nil
}
