package sources

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// Options carries the per-source scan parameters loaded from configuration.
type Options struct {
	SearchURL   string
	MaxItems    int
	ScrollTimes int
	ScrollPause time.Duration
}

// Deps are the shared collaborators injected into every adapter.
type Deps struct {
	Probe  *Probe
	Logger *zap.Logger
}

// New returns the adapter for a source. The source set is fixed; an unknown
// id is a programming error surfaced as such.
func New(source ingest.SourceID, opts Options, deps Deps) (ingest.SourceAdapter, error) {
	switch source {
	case ingest.SourcePeoplesDaily:
		return NewPeoplesDaily(opts, deps), nil
	case ingest.SourceWSJ:
		return NewWSJ(opts, deps), nil
	case ingest.SourceWeibo:
		return NewWeibo(opts, deps), nil
	case ingest.SourceTwitter:
		return NewTwitter(opts, deps), nil
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

// itemCap resolves the effective per-scan item ceiling.
func itemCap(opts Options, run ingest.RunContext) int {
	cap := opts.MaxItems
	if cap <= 0 || (run.MaxItems > 0 && run.MaxItems < cap) {
		cap = run.MaxItems
	}
	if cap <= 0 {
		cap = 100
	}
	return cap
}

// loadPage fetches a page, probing over plain HTTP first when a probe and
// detector are available and falling back to the browser session when the
// probe body looks JS-starved. Block signals are classified here so every
// adapter shares one notion of "we got challenged".
func loadPage(
	ctx context.Context,
	session ingest.Session,
	probe *Probe,
	detector *Detector,
	url string,
	logger *zap.Logger,
) (ingest.PageSnapshot, error) {
	var snap ingest.PageSnapshot
	promoted := true
	if probe != nil && detector != nil {
		probeSnap, err := probe.Fetch(ctx, url)
		if err == nil && !detector.NeedsBrowser(probeSnap.Body) && !BlockSignals(probeSnap.Body, probeSnap.FinalURL, probeSnap.StatusCode) {
			snap = probeSnap
			promoted = false
		} else if err != nil {
			logger.Debug("probe failed, promoting to browser", zap.String("url", url), zap.Error(err))
		}
	}
	if promoted {
		var err error
		snap, err = session.Navigate(ctx, url)
		if err != nil {
			return ingest.PageSnapshot{}, err
		}
	}
	if BlockSignals(snap.Body, snap.FinalURL, snap.StatusCode) {
		return ingest.PageSnapshot{}, ingest.Blocked(fmt.Errorf("anti-bot challenge at %s (status %d)", snap.FinalURL, snap.StatusCode))
	}
	return snap, nil
}
