package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Environment variable names read by Load.
const (
	EnvTargetURL      = "TARGET_URL"
	EnvJobID          = "JOB_ID"
	EnvExtractionMode = "EXTRACTION_MODE"
	EnvMaxPages       = "MAX_PAGES"
	EnvContentTypes   = "CONTENT_TYPES"
	EnvCallbackURL    = "CALLBACK_URL"
	EnvFetchStrategy  = "FETCH_STRATEGY"
	EnvOutputDir      = "OUTPUT_DIR"
	EnvMarkdownReport = "MARKDOWN_REPORT"
	EnvArchiveDir     = "ARCHIVE_DIR"
	EnvConfigFile     = "CONFIG_FILE"
	EnvLogLevel       = "LOG_LEVEL"
)

// dotEnvFiles are the optional files overlaid onto the process environment.
var dotEnvFiles = []string{".env.local", ".env"}

// LoadDotEnv loads the optional .env files that exist in the working
// directory. Variables already present in the process environment win.
// It returns the files that were loaded.
func LoadDotEnv() ([]string, error) {
	var loaded []string
	for _, f := range dotEnvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, fmt.Errorf("failed to load %s: %w", f, err)
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}

// Load builds a Config from environment variables looked up with getenv.
// Unset variables keep their defaults. Malformed EXTRACTION_MODE and
// MAX_PAGES values are errors; a malformed CONTENT_TYPES value falls back to
// the default toggles and is recorded in Config.Warnings.
//
// Design decision: getenv is injected (usually os.Getenv) so tests can run
// in parallel without mutating the process environment.
func Load(getenv func(string) string) (*Config, error) {
	cfg := NewConfig()

	cfg.TargetURL = strings.TrimSpace(getenv(EnvTargetURL))

	if v := strings.TrimSpace(getenv(EnvJobID)); v != "" {
		cfg.JobID = v
	}

	if v := strings.TrimSpace(getenv(EnvExtractionMode)); v != "" {
		mode := model.Mode(strings.ToLower(v))
		if !mode.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMode, v)
		}
		cfg.Mode = mode
	}

	// Single mode always fetches one page, so MAX_PAGES is not even parsed.
	if v := strings.TrimSpace(getenv(EnvMaxPages)); v != "" && cfg.Mode == model.ModeFull {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMaxPages, v)
		}
		cfg.MaxPages = n
	}

	if v := strings.TrimSpace(getenv(EnvContentTypes)); v != "" {
		types, err := ParseContentTypes(v)
		if err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%v; using default content types", err))
		} else {
			cfg.ContentTypes = types
		}
	}

	cfg.CallbackURL = strings.TrimSpace(getenv(EnvCallbackURL))

	if v := strings.TrimSpace(getenv(EnvFetchStrategy)); v != "" {
		s := Strategy(strings.ToLower(v))
		if !s.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, v)
		}
		cfg.FetchStrategy = s
	}

	cfg.OutputDir = strings.TrimSpace(getenv(EnvOutputDir))
	cfg.MarkdownReport = strings.TrimSpace(getenv(EnvMarkdownReport))
	cfg.ArchiveDir = strings.TrimSpace(getenv(EnvArchiveDir))
	cfg.ConfigFilePath = strings.TrimSpace(getenv(EnvConfigFile))
	cfg.Verbose = strings.EqualFold(strings.TrimSpace(getenv(EnvLogLevel)), "debug")

	return cfg, nil
}

// ParseContentTypes decodes a JSON object of content type name to boolean.
// Keys missing from the object keep their default value. Unknown keys and
// non-boolean values are rejected as a whole so a typo never silently
// disables an extractor.
func ParseContentTypes(raw string) (model.ContentTypes, error) {
	types := model.DefaultContentTypes()

	var values map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return types, fmt.Errorf("%w: %v", ErrInvalidContentTypes, err)
	}
	if values == nil {
		return types, fmt.Errorf("%w: not a JSON object", ErrInvalidContentTypes)
	}

	known := make(map[model.ContentType]bool, len(model.AllContentTypes))
	for _, ct := range model.AllContentTypes {
		known[ct] = true
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		ct := model.ContentType(k)
		if !known[ct] {
			errs = append(errs, fmt.Errorf("unknown content type %q", k))
			continue
		}
		var enabled bool
		if string(values[k]) == "null" {
			errs = append(errs, fmt.Errorf("content type %q must be a boolean", k))
			continue
		}
		if err := json.Unmarshal(values[k], &enabled); err != nil {
			errs = append(errs, fmt.Errorf("content type %q must be a boolean", k))
			continue
		}
		types.Set(ct, enabled)
	}
	if len(errs) > 0 {
		return model.DefaultContentTypes(), fmt.Errorf("%w: %w", ErrInvalidContentTypes, errors.Join(errs...))
	}
	return types, nil
}
