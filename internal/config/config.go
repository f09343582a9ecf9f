package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Strategy selects the fetch strategy.
type Strategy string

const (
	// StrategyHTTP issues plain GET requests; no script execution.
	StrategyHTTP Strategy = "http"

	// StrategyBrowser drives a headless Chromium session with a stealth profile.
	StrategyBrowser Strategy = "browser"

	// StrategyAuto picks the browser when a local Chromium is installed and
	// falls back to plain HTTP otherwise.
	StrategyAuto Strategy = "auto"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyHTTP || s == StrategyBrowser || s == StrategyAuto
}

// Default configuration values.
const (
	// DefaultJobID is used when JOB_ID is not set.
	DefaultJobID = "unknown"

	// DefaultMaxPages is the page budget for full crawls when MAX_PAGES is unset.
	DefaultMaxPages = 10

	// DefaultFetchTimeout bounds a single plain-HTTP fetch.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultPageLoadTimeout bounds a browser navigation including the wait
	// for network quiescence.
	DefaultPageLoadTimeout = 60 * time.Second

	// DefaultCallbackTimeout bounds the report callback POST.
	DefaultCallbackTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// AppName is the application name used for XDG directory paths.
	AppName = "sitecrawl"
)

// DelayRange is an inclusive range from which a random delay is drawn.
type DelayRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// Valid reports whether the range is non-negative and ordered.
func (r DelayRange) Valid() bool {
	return r.Min >= 0 && r.Max >= 0 && r.Min <= r.Max
}

// Politeness delay defaults.
var (
	// DefaultPageDelay is the pause between successive page fetches.
	DefaultPageDelay = DelayRange{Min: 2 * time.Second, Max: 5 * time.Second}

	// DefaultReadDelay is the simulated reading pause before a browser navigation.
	DefaultReadDelay = DelayRange{Min: 1 * time.Second, Max: 3 * time.Second}

	// DefaultScrollPause is the pause after the simulated scroll, before extraction.
	DefaultScrollPause = DelayRange{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}
)

// Config holds all configuration for one crawl run.
//
// Design decision: As with the rest of the codebase we keep a single flat
// struct; it is populated by Load and CLI flags and then passed explicitly
// rather than read from globals.
type Config struct {
	// TargetURL is the raw seed URL as configured.
	TargetURL string

	// JobID identifies the run in logs and in the report.
	JobID string

	// Mode is single or full.
	Mode model.Mode

	// MaxPages is the page budget for full mode.
	MaxPages int

	// ContentTypes are the extractor toggles.
	ContentTypes model.ContentTypes

	// CallbackURL receives the report as a JSON POST when set.
	CallbackURL string

	// FetchStrategy selects plain HTTP, browser, or auto.
	FetchStrategy Strategy

	// OutputDir receives <job_id>.json when set.
	OutputDir string

	// MarkdownReport is the path of a Markdown crawl summary when set.
	MarkdownReport string

	// ArchiveDir holds the SQLite report archive when set.
	ArchiveDir string

	// ConfigFilePath is the optional YAML site configuration file.
	ConfigFilePath string

	// Verbose enables debug logging.
	Verbose bool

	// Site holds request customization and delay overrides for the seed host.
	Site SiteConfig

	// FetchTimeout bounds each plain-HTTP fetch.
	FetchTimeout time.Duration

	// PageLoadTimeout bounds each browser navigation.
	PageLoadTimeout time.Duration

	// CallbackTimeout bounds the callback POST.
	CallbackTimeout time.Duration

	// MaxBodySize limits response body reads.
	MaxBodySize int64

	// PageDelay is the politeness delay between page fetches.
	PageDelay DelayRange

	// ReadDelay is the browser's simulated reading delay before navigation.
	ReadDelay DelayRange

	// ScrollPause is the browser's pause after the simulated scroll.
	ScrollPause DelayRange

	// Warnings collects non-fatal configuration problems (such as a
	// malformed CONTENT_TYPES value) for logging once the logger exists.
	Warnings []string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		JobID:           DefaultJobID,
		Mode:            model.ModeSingle,
		MaxPages:        DefaultMaxPages,
		ContentTypes:    model.DefaultContentTypes(),
		FetchStrategy:   StrategyAuto,
		FetchTimeout:    DefaultFetchTimeout,
		PageLoadTimeout: DefaultPageLoadTimeout,
		CallbackTimeout: DefaultCallbackTimeout,
		MaxBodySize:     DefaultMaxBodySize,
		PageDelay:       DefaultPageDelay,
		ReadDelay:       DefaultReadDelay,
		ScrollPause:     DefaultScrollPause,
	}
}

// XDGDataDir returns the XDG data directory for sitecrawl, used as the
// default report archive location.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TargetURL) == "" {
		return ErrNoTargetURL
	}
	if _, err := ParseSeedURL(c.TargetURL); err != nil {
		return err
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if c.Mode == model.ModeFull && c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if !c.FetchStrategy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, c.FetchStrategy)
	}
	if c.FetchTimeout <= 0 || c.PageLoadTimeout <= 0 || c.CallbackTimeout <= 0 {
		return ErrInvalidTimeout
	}
	for _, r := range []DelayRange{c.PageDelay, c.ReadDelay, c.ScrollPause} {
		if !r.Valid() {
			return ErrInvalidDelay
		}
	}
	return nil
}

// Job builds the immutable crawl job. The config must be valid.
func (c *Config) Job() (*model.CrawlJob, error) {
	seed, err := ParseSeedURL(c.TargetURL)
	if err != nil {
		return nil, err
	}
	return model.NewCrawlJob(seed, c.JobID, c.Mode, c.MaxPages, c.ContentTypes, c.CallbackURL), nil
}

// ParseSeedURL parses the configured target into an absolute http(s) URL.
// A value without a scheme is treated as https. The fragment is dropped and
// an empty path becomes "/".
func ParseSeedURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoTargetURL
	}
	if !strings.Contains(raw, "://") {
		if hasOpaqueScheme(raw) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTargetURL, raw)
		}
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTargetURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTargetURL, raw)
	}

	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// hasOpaqueScheme reports whether a value without "://" still names a
// scheme, as in "mailto:a@b.com". A bare "host:port" is not a scheme.
func hasOpaqueScheme(raw string) bool {
	prefix, rest, ok := strings.Cut(raw, ":")
	if !ok || strings.Contains(prefix, ".") || strings.Contains(prefix, "/") {
		return false
	}
	port, _, _ := strings.Cut(rest, "/")
	if port == "" {
		return true
	}
	for _, r := range port {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}
