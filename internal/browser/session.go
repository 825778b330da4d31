// Package browser drives chromedp sessions bound to rotatable identities.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// Config controls the behavior of browser sessions.
type Config struct {
	Headless   bool
	UserAgent  string
	NavTimeout time.Duration
	ProfileDir string
}

// Identity is one browser profile/credential set. Distinct identities spread
// load across accounts and reduce block risk.
type Identity struct {
	Name       string
	CookieFile string
}

// Session implements ingest.Session on top of a dedicated Chrome profile.
// One session holds exactly one tab; adapters drive it sequentially.
type Session struct {
	identity    Identity
	navTimeout  time.Duration
	logger      *zap.Logger
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	meta        *responseMeta
}

// NewSession launches a browser on the identity's profile and loads its
// cookies. The caller must Close the session on every exit path.
func NewSession(cfg Config, identity Identity, logger *zap.Logger) (*Session, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.UserDataDir(filepath.Join(cfg.ProfileDir, identity.Name)),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		identity:    identity,
		navTimeout:  cfg.NavTimeout,
		logger:      logger,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		meta:        newResponseMeta(),
	}
	chromedp.ListenTarget(tabCtx, s.meta.captureEvent)

	warmup := []chromedp.Action{network.Enable()}
	if cfg.UserAgent != "" {
		warmup = append(warmup, emulation.SetUserAgentOverride(cfg.UserAgent))
	}
	if identity.CookieFile != "" {
		cookieAction, err := loadCookiesAction(identity.CookieFile)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("load cookies for %s: %w", identity.Name, err)
		}
		warmup = append(warmup, cookieAction)
	}
	if err := chromedp.Run(tabCtx, warmup...); err != nil {
		s.Close()
		return nil, ingest.Transient(fmt.Errorf("browser warmup: %w", err))
	}
	return s, nil
}

// Identity names the profile backing the session.
func (s *Session) Identity() string {
	return s.identity.Name
}

// Navigate loads a URL and returns the rendered document.
func (s *Session) Navigate(ctx context.Context, url string) (ingest.PageSnapshot, error) {
	runCtx, cancel := context.WithTimeout(s.tabCtx, s.navTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	s.meta.reset()

	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return ingest.PageSnapshot{}, ingest.Transient(fmt.Errorf("navigate %s: %w", url, err))
	}

	status := s.meta.status()
	if status == 0 {
		status = http.StatusOK
	}
	if finalURL == "" {
		finalURL = url
	}
	return ingest.PageSnapshot{
		URL:        url,
		FinalURL:   finalURL,
		StatusCode: status,
		Body:       []byte(html),
	}, nil
}

// ScrollBottom scrolls the tab n times, pausing between scrolls so lazy feeds
// load more items.
func (s *Session) ScrollBottom(ctx context.Context, n int, pause time.Duration) error {
	runCtx, cancel := context.WithTimeout(s.tabCtx, s.navTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	for i := 0; i < n; i++ {
		actions := []chromedp.Action{
			chromedp.Evaluate(`window.scrollBy(0, 3000)`, nil),
			chromedp.Sleep(pause),
		}
		if err := chromedp.Run(runCtx, actions...); err != nil {
			return ingest.Transient(fmt.Errorf("scroll %d/%d: %w", i+1, n, err))
		}
	}
	return nil
}

// Content returns the current DOM snapshot without navigating.
func (s *Session) Content(ctx context.Context) (ingest.PageSnapshot, error) {
	runCtx, cancel := context.WithTimeout(s.tabCtx, s.navTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var (
		html     string
		location string
	)
	actions := []chromedp.Action{
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return ingest.PageSnapshot{}, ingest.Transient(fmt.Errorf("read content: %w", err))
	}
	status := s.meta.status()
	if status == 0 {
		status = http.StatusOK
	}
	return ingest.PageSnapshot{
		URL:        location,
		FinalURL:   location,
		StatusCode: status,
		Body:       []byte(html),
	}, nil
}

// Close tears down the tab and the allocator owning the profile. Safe to call
// more than once.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// responseMeta records the main document response of the latest navigation.
type responseMeta struct {
	mu         sync.Mutex
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) reset() {
	m.mu.Lock()
	m.statusCode = 0
	m.mu.Unlock()
}

func (m *responseMeta) status() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCode
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(resp.Response.Status)
	m.mu.Unlock()
}
