package fetch

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"strings"
)

// Sentinel errors for strategy lifecycle problems.
var (
	// ErrSessionNotOpen is returned by Fetch when Open has not succeeded.
	ErrSessionNotOpen = errors.New("fetch session is not open")

	// ErrNoBrowser is returned when the browser strategy is requested but no
	// Chromium binary can be found or downloaded.
	ErrNoBrowser = errors.New("no Chromium browser available")

	// ErrNotHTML is the cause of a KindContent failure.
	ErrNotHTML = errors.New("response is not an HTML document")
)

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	// KindNetwork covers DNS, connection and protocol failures.
	KindNetwork ErrorKind = "network"

	// KindTimeout means the fetch exceeded its time bound.
	KindTimeout ErrorKind = "timeout"

	// KindStatus means the server answered with a non-2xx status.
	KindStatus ErrorKind = "status"

	// KindContent means the response was not an HTML document, such as a
	// linked PDF or archive. The page is skipped like a status failure.
	KindContent ErrorKind = "content"

	// KindSetup means the fetch session itself is unusable.
	// Unlike the other kinds it aborts the run.
	KindSetup ErrorKind = "setup"
)

// FetchError describes why a page could not be fetched.
//
// Design decision: A single typed error with a Kind field keeps the
// orchestrator's skip-or-abort decision to one errors.As call, while Err
// still carries the underlying cause for logging.
type FetchError struct {
	// URL is the page that failed.
	URL string

	// Kind classifies the failure.
	Kind ErrorKind

	// StatusCode is the HTTP status for KindStatus failures.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the failure makes the session unusable.
func (e *FetchError) Fatal() bool {
	return e.Kind == KindSetup
}

// IsFatal reports whether err ends the crawl rather than skipping a page.
// Errors that are not a *FetchError are treated as fatal.
func IsFatal(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Fatal()
	}
	return err != nil
}

// classify wraps a transport error into a FetchError of the right kind.
func classify(rawURL string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, ErrSessionNotOpen) {
		return &FetchError{URL: rawURL, Kind: KindSetup, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{URL: rawURL, Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{URL: rawURL, Kind: KindTimeout, Err: err}
	}
	return &FetchError{URL: rawURL, Kind: KindNetwork, Err: err}
}

// contentError returns a KindContent error when contentType names a media
// type other than HTML. A missing or unparsable header is accepted and the
// body is sniffed as HTML.
func contentError(rawURL, contentType string) error {
	if strings.TrimSpace(contentType) == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return nil
	}
	return &FetchError{URL: rawURL, Kind: KindContent, Err: fmt.Errorf("%w: %s", ErrNotHTML, mediaType)}
}

// statusError returns a KindStatus error for non-2xx codes and nil otherwise.
// A zero code means the status is unknown and is accepted.
func statusError(rawURL string, code int) error {
	if code == 0 || (code >= 200 && code < 300) {
		return nil
	}
	return &FetchError{URL: rawURL, Kind: KindStatus, StatusCode: code}
}
