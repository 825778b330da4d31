package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 15*time.Minute, cfg.RunTimeout())
	require.Equal(t, 14*24*time.Hour, cfg.DedupWindow())
	require.Equal(t, 3, cfg.Governor.MaxAttempts)
	require.Equal(t, 0.5, cfg.Governor.OriginQPS)
	require.Equal(t, "pt", cfg.Translator.TargetLanguage)
	require.Equal(t, "data/records.db", cfg.Store.Path)
	require.True(t, cfg.Browser.Headless)
	require.True(t, cfg.Snapshots.Enabled)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
normalizer:
  dedup_window_days: 7
sources:
  weibo:
    search_url: "https://s.weibo.com/weibo?q=test"
    cookie_files: ["cookies/weibo-a.json", "cookies/weibo-b.json"]
    max_items: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 7*24*time.Hour, cfg.DedupWindow())

	weibo, ok := cfg.Sources["weibo"]
	require.True(t, ok)
	require.Equal(t, "https://s.weibo.com/weibo?q=test", weibo.SearchURL)
	require.Len(t, weibo.CookieFiles, 2)
	require.Equal(t, 30, weibo.MaxItems)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Governor.JitterFraction = 1.5
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Normalizer.DedupWindowDays = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Store.Path = ""
	require.Error(t, cfg.Validate())
}
