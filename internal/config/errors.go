package config

import "errors"

// Configuration validation errors.
// These errors are returned by Load and Config.Validate and let the CLI
// report a precise message before any crawling starts.
//
// Design decision: We use package-level sentinel errors so callers can use
// errors.Is() while dynamic details are added with fmt.Errorf wrapping.
var (
	// ErrNoTargetURL is returned when TARGET_URL is missing or blank.
	ErrNoTargetURL = errors.New("TARGET_URL required")

	// ErrInvalidTargetURL is returned when TARGET_URL cannot be parsed or
	// does not use the http or https scheme.
	ErrInvalidTargetURL = errors.New("invalid TARGET_URL: must be an absolute http(s) URL")

	// ErrInvalidMode is returned when EXTRACTION_MODE is neither single nor full.
	ErrInvalidMode = errors.New("invalid EXTRACTION_MODE: must be single or full")

	// ErrInvalidMaxPages is returned when MAX_PAGES is not a positive integer.
	ErrInvalidMaxPages = errors.New("invalid MAX_PAGES: must be a positive integer")

	// ErrInvalidStrategy is returned when FETCH_STRATEGY is not http, browser or auto.
	ErrInvalidStrategy = errors.New("invalid FETCH_STRATEGY: must be http, browser or auto")

	// ErrInvalidDelay is returned when a delay range is negative or inverted.
	ErrInvalidDelay = errors.New("invalid delay range: min and max must be non-negative and min <= max")

	// ErrInvalidTimeout is returned when a fetch or callback timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidContentTypes is returned by ParseContentTypes for malformed
	// input. Load never fails with it; it falls back to the defaults instead.
	ErrInvalidContentTypes = errors.New("invalid CONTENT_TYPES")
)
