// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper. It is
// loaded once per run; nothing here is hot-reloaded.
type Config struct {
	Server     ServerConfig            `mapstructure:"server"`
	Run        RunConfig               `mapstructure:"run"`
	Governor   GovernorConfig          `mapstructure:"governor"`
	Browser    BrowserConfig           `mapstructure:"browser"`
	Normalizer NormalizerConfig        `mapstructure:"normalizer"`
	Translator TranslatorConfig        `mapstructure:"translator"`
	Store      StoreConfig             `mapstructure:"store"`
	Snapshots  SnapshotsConfig         `mapstructure:"snapshots"`
	Sources    map[string]SourceConfig `mapstructure:"sources"`
	Logging    LoggingConfig           `mapstructure:"logging"`
}

// ServerConfig controls the query service HTTP listener.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// RunConfig bounds one orchestrator invocation.
type RunConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	DaysBack       int `mapstructure:"days_back"`
	MaxItems       int `mapstructure:"max_items"`
}

// GovernorConfig governs retry, backoff and pacing around adapter calls.
type GovernorConfig struct {
	MaxAttempts          int     `mapstructure:"max_attempts"`
	BaseDelayMs          int     `mapstructure:"base_delay_ms"`
	MaxDelayMs           int     `mapstructure:"max_delay_ms"`
	JitterFraction       float64 `mapstructure:"jitter_fraction"`
	BlockedCooldownMs    int     `mapstructure:"blocked_cooldown_ms"`
	MaxSessionsPerSource int     `mapstructure:"max_concurrent_sessions_per_source"`
	OriginQPS            float64 `mapstructure:"origin_qps"`
}

// BrowserConfig configures the chromedp-driven session layer.
type BrowserConfig struct {
	Headless          bool   `mapstructure:"headless"`
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	ProfileDir        string `mapstructure:"profile_dir"`
}

// NormalizerConfig bounds the dedup window. The window is time-based.
type NormalizerConfig struct {
	DedupWindowDays int `mapstructure:"dedup_window_days"`
}

// TranslatorConfig configures the translation client.
type TranslatorConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	BatchSize      int    `mapstructure:"batch_size"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	TargetLanguage string `mapstructure:"target_language"`
}

// StoreConfig locates the embedded relational store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// SnapshotsConfig controls raw HTML archiving.
type SnapshotsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseDir string `mapstructure:"base_dir"`
}

// SourceConfig holds per-source session material and scan parameters.
type SourceConfig struct {
	SearchURL   string   `mapstructure:"search_url"`
	CookieFiles []string `mapstructure:"cookie_files"`
	MaxItems    int      `mapstructure:"max_items"`
	ScrollTimes int      `mapstructure:"scroll_times"`
	ScrollPause int      `mapstructure:"scroll_pause_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWSPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("run.timeout_seconds", 900)
	v.SetDefault("run.days_back", 1)
	v.SetDefault("run.max_items", 200)
	v.SetDefault("governor.max_attempts", 3)
	v.SetDefault("governor.base_delay_ms", 500)
	v.SetDefault("governor.max_delay_ms", 30000)
	v.SetDefault("governor.jitter_fraction", 0.25)
	v.SetDefault("governor.blocked_cooldown_ms", 60000)
	v.SetDefault("governor.max_concurrent_sessions_per_source", 1)
	v.SetDefault("governor.origin_qps", 0.5)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome Safari")
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("browser.profile_dir", "profiles")
	v.SetDefault("normalizer.dedup_window_days", 14)
	v.SetDefault("translator.endpoint", "https://translate.googleapis.com/translate_a/single")
	v.SetDefault("translator.batch_size", 25)
	v.SetDefault("translator.timeout_seconds", 15)
	v.SetDefault("translator.target_language", "pt")
	v.SetDefault("store.path", "data/records.db")
	v.SetDefault("snapshots.enabled", true)
	v.SetDefault("snapshots.base_dir", "data/snapshots")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Run.TimeoutSeconds <= 0 {
		return fmt.Errorf("run.timeout_seconds must be > 0")
	}
	if c.Governor.MaxAttempts <= 0 {
		return fmt.Errorf("governor.max_attempts must be > 0")
	}
	if c.Governor.JitterFraction < 0 || c.Governor.JitterFraction > 1 {
		return fmt.Errorf("governor.jitter_fraction must be in [0,1]")
	}
	if c.Governor.MaxSessionsPerSource <= 0 {
		return fmt.Errorf("governor.max_concurrent_sessions_per_source must be > 0")
	}
	if c.Normalizer.DedupWindowDays <= 0 {
		return fmt.Errorf("normalizer.dedup_window_days must be > 0")
	}
	if c.Translator.BatchSize <= 0 {
		return fmt.Errorf("translator.batch_size must be > 0")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must be set")
	}
	return nil
}

// RunTimeout returns the run budget as a duration.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Run.TimeoutSeconds) * time.Second
}

// DedupWindow returns the trailing dedup window as a duration.
func (c Config) DedupWindow() time.Duration {
	return time.Duration(c.Normalizer.DedupWindowDays) * 24 * time.Hour
}
