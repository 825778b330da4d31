package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// cookieFile matches the JSON exported by browser cookie extensions, which is
// how credentials reach the scrapers. Field variants (expiry vs
// expirationDate) are all accepted.
type cookieFile []struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain"`
	Host           string  `json:"host"`
	Path           string  `json:"path"`
	Expiry         float64 `json:"expiry"`
	ExpirationDate float64 `json:"expirationDate"`
	HTTPOnly       bool    `json:"httpOnly"`
	Secure         bool    `json:"secure"`
	SameSite       string  `json:"sameSite"`
}

// loadCookiesAction reads a cookie export and returns a chromedp action that
// installs every cookie into the session.
func loadCookiesAction(path string) (chromedp.Action, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	var cookies cookieFile
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, fmt.Errorf("parse cookie file: %w", err)
	}

	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			domain := c.Domain
			if domain == "" {
				domain = c.Host
			}
			if c.Name == "" || domain == "" {
				continue
			}
			path := c.Path
			if path == "" {
				path = "/"
			}
			param := network.SetCookie(c.Name, c.Value).
				WithDomain(domain).
				WithPath(path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if exp := cookieExpiry(c.Expiry, c.ExpirationDate); exp != nil {
				param = param.WithExpires(exp)
			}
			if ss := normalizeSameSite(c.SameSite); ss != "" {
				param = param.WithSameSite(ss)
			}
			if err := param.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}), nil
}

func cookieExpiry(expiry, expirationDate float64) *cdp.TimeSinceEpoch {
	secs := expiry
	if secs == 0 {
		secs = expirationDate
	}
	if secs == 0 {
		return nil
	}
	t := cdp.TimeSinceEpoch(time.Unix(int64(secs), 0))
	return &t
}

// normalizeSameSite drops values Chrome rejects rather than failing the whole
// cookie load.
func normalizeSameSite(v string) network.CookieSameSite {
	switch v {
	case "Strict", "strict":
		return network.CookieSameSiteStrict
	case "Lax", "lax":
		return network.CookieSameSiteLax
	case "None", "none", "no_restriction":
		return network.CookieSameSiteNone
	default:
		return ""
	}
}
