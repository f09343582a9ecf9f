package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/stealth"
)

// HTTPStrategy fetches pages with plain GET requests.
//
// Design decision: The client gets a cookie jar so that a site which sets a
// session cookie on the first page sees it again on later pages, which is
// what a real browser visit looks like.
type HTTPStrategy struct {
	// client performs the requests. Built in Open when not injected.
	client *http.Client

	// profile supplies the User-Agent and language headers.
	profile stealth.Profile

	// headers are extra headers from the site configuration.
	headers map[string]string

	// cookie is a raw Cookie header from the site configuration.
	cookie string

	// timeout bounds each fetch.
	timeout time.Duration

	// maxBodySize limits how much of each body is read.
	maxBodySize int64

	logger *slog.Logger

	mu   sync.Mutex
	open bool
}

// HTTPOption configures an HTTPStrategy.
type HTTPOption func(*HTTPStrategy)

// WithHTTPClient sets the HTTP client. Tests use this to talk to httptest servers.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPStrategy) {
		s.client = client
	}
}

// WithProfile sets the fingerprint used for request headers.
func WithProfile(p stealth.Profile) HTTPOption {
	return func(s *HTTPStrategy) {
		s.profile = p
	}
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(s *HTTPStrategy) {
		s.headers = headers
	}
}

// WithCookie sets a raw Cookie header sent with every request.
func WithCookie(cookie string) HTTPOption {
	return func(s *HTTPStrategy) {
		s.cookie = cookie
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPStrategy) {
		s.timeout = d
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(n int64) HTTPOption {
	return func(s *HTTPStrategy) {
		s.maxBodySize = n
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(s *HTTPStrategy) {
		s.logger = logger
	}
}

// NewHTTPStrategy creates a plain-HTTP strategy.
func NewHTTPStrategy(opts ...HTTPOption) *HTTPStrategy {
	s := &HTTPStrategy{
		profile:     stealth.NewProfile(stealth.UserAgents[0]),
		timeout:     config.DefaultFetchTimeout,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Strategy.
func (s *HTTPStrategy) Name() string {
	return string(config.StrategyHTTP)
}

// Open implements Strategy. It builds a client with a cookie jar unless one
// was injected.
func (s *HTTPStrategy) Open(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return &FetchError{Kind: KindSetup, Err: fmt.Errorf("failed to create cookie jar: %w", err)}
		}
		s.client = &http.Client{Jar: jar}
	}
	s.open = true

	s.logger.Debug("http session opened", "user_agent", s.profile.UserAgent)
	return nil
}

// Fetch implements Strategy.
func (s *HTTPStrategy) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	s.mu.Lock()
	client, open := s.client, s.open
	s.mu.Unlock()
	if !open {
		return nil, classify(rawURL, ErrSessionNotOpen)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Kind: KindNetwork, Err: err}
	}
	req.Header = s.profile.RequestHeaders()
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	if s.cookie != "" {
		req.Header.Set("Cookie", s.cookie)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	defer resp.Body.Close()

	if err := statusError(rawURL, resp.StatusCode); err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if err := contentError(rawURL, contentType); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, classify(rawURL, err)
	}

	body, err := decodeBody(raw, contentType)
	if err != nil {
		s.logger.Debug("charset decoding failed, using raw body", "url", rawURL, "error", err)
		body = string(raw)
	}

	return &Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		HTML:        body,
	}, nil
}

// Close implements Strategy.
func (s *HTTPStrategy) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	s.open = false
	return nil
}

// decodeBody converts the body to UTF-8 using the Content-Type charset,
// a <meta> declaration, or content sniffing, in that order.
func decodeBody(raw []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
