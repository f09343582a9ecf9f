package fetch

import (
	"context"
	"fmt"

	"github.com/nao1215/sitecrawl/internal/config"
)

// Strategy fetches pages for one crawl run.
// Open is called once before the first Fetch and Close exactly once at
// the end of the run, even when Open failed.
type Strategy interface {
	// Name identifies the strategy in logs and in the report.
	Name() string

	// Open prepares the session (HTTP client or browser).
	Open(ctx context.Context) error

	// Fetch retrieves one page. Failures are returned as *FetchError.
	Fetch(ctx context.Context, rawURL string) (*Page, error)

	// Close releases every resource held by the session.
	Close() error
}

// Page is the raw result of a successful fetch.
type Page struct {
	// URL is the URL that was requested.
	URL string

	// FinalURL is the URL after redirects; relative links resolve against it.
	FinalURL string

	// StatusCode is the HTTP status, or 0 when the browser could not report it.
	StatusCode int

	// ContentType is the response Content-Type header when known.
	ContentType string

	// HTML is the decoded document. For the browser strategy it is the
	// serialized DOM after scripts ran.
	HTML string

	// Rendered holds values only a live browser can compute. It is nil for
	// the plain-HTTP strategy.
	Rendered *Rendering
}

// Base returns the URL relative links on the page resolve against.
func (p *Page) Base() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// Rendering is a snapshot of rendered values captured from the live DOM.
type Rendering struct {
	// Text is the visible body text with navigation chrome removed.
	Text string `json:"text"`

	// Images are the document's images with natural sizes.
	Images []RenderedImage `json:"images"`
}

// RenderedImage is an image as the browser resolved and decoded it.
type RenderedImage struct {
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Resolve turns the configured strategy into a concrete one. Auto picks the
// browser when lookPath finds a local Chromium and plain HTTP otherwise.
func Resolve(s config.Strategy, lookPath func() (string, bool)) config.Strategy {
	if s != config.StrategyAuto {
		return s
	}
	if lookPath != nil {
		if _, ok := lookPath(); ok {
			return config.StrategyBrowser
		}
	}
	return config.StrategyHTTP
}

// New builds the strategy named by kind. kind must already be resolved.
func New(kind config.Strategy, httpOpts []HTTPOption, browserOpts []BrowserOption) (Strategy, error) {
	switch kind {
	case config.StrategyHTTP:
		return NewHTTPStrategy(httpOpts...), nil
	case config.StrategyBrowser:
		return NewBrowserStrategy(browserOpts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStrategy, kind)
	}
}
