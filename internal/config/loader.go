package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file looked up in the working directory.
const DefaultConfigFile = ".sitecrawl.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrInvalidConfigFile wraps every problem found while decoding or checking
// a configuration file.
var ErrInvalidConfigFile = errors.New("invalid configuration file")

// LoadConfigFile reads the YAML file at path.
//
// Unknown keys are rejected so that a misspelled "ignorePattern" fails the
// run instead of silently crawling /logout. Site keys are lowercased and may
// be written with a scheme or port; both are dropped. An empty file is valid.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cf, err := decodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfigFile, path, err)
	}
	return cf, nil
}

func decodeFile(data []byte) (*File, error) {
	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	sites := make(map[string]SiteConfig, len(cf.Sites))
	for key, site := range cf.Sites {
		host := SiteKey(key)
		if host == "" {
			return nil, fmt.Errorf("empty site key %q", key)
		}
		if _, dup := sites[host]; dup {
			return nil, fmt.Errorf("site %q is configured twice", host)
		}
		if err := site.check(); err != nil {
			return nil, fmt.Errorf("site %s: %w", host, err)
		}
		sites[host] = site
	}
	if err := cf.Defaults.check(); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	cf.Sites = sites
	return &cf, nil
}

// SiteKey reduces "https://Example.com:8443/" to "example.com".
func SiteKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, rest, ok := strings.Cut(key, "://"); ok {
		key = rest
	}
	key, _, _ = strings.Cut(key, "/")
	if host, _, ok := strings.Cut(key, ":"); ok {
		key = host
	}
	return key
}

// check rejects malformed globs and delay ranges before the crawl starts.
func (s SiteConfig) check() error {
	for _, p := range append(append([]string{}, s.IgnorePatterns...), s.FollowPatterns...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("pattern %q: %w", p, err)
		}
	}
	if s.Delay != nil && !s.Delay.Valid() {
		return fmt.Errorf("delay: %w", ErrInvalidDelay)
	}
	if s.ReadDelay != nil && !s.ReadDelay.Valid() {
		return fmt.Errorf("readDelay: %w", ErrInvalidDelay)
	}
	return nil
}

// FindConfigFile returns the configuration file to load, or "" when there
// is none. An explicit configPath is used only if it exists. Otherwise
// ./.sitecrawl.yaml wins over $XDG_CONFIG_HOME/sitecrawl/config.yaml.
func FindConfigFile(configPath string) string {
	candidates := []string{configPath}
	if configPath == "" {
		candidates = []string{
			DefaultConfigFile,
			filepath.Join(xdg.ConfigHome, AppName, "config.yaml"),
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(c); err == nil {
				return abs
			}
			return c
		}
	}
	return ""
}
