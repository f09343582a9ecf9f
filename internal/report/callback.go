package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/nao1215/sitecrawl/internal/model"
)

// ErrCallbackRejected is returned when the callback endpoint answers with
// a non-2xx status that is not worth retrying.
var ErrCallbackRejected = errors.New("callback rejected the report")

// Callback delivery defaults.
const (
	// DefaultCallbackRetries is the number of retries after the first attempt.
	DefaultCallbackRetries = 2

	// DefaultCallbackBaseDelay is the first backoff delay.
	DefaultCallbackBaseDelay = 500 * time.Millisecond

	// DefaultCallbackMaxDelay caps the backoff delay.
	DefaultCallbackMaxDelay = 5 * time.Second
)

// CallbackSender POSTs the report as JSON to a configured endpoint.
//
// Design decision: Delivery goes through a failsafe-go retry policy that
// retries network errors, 429 and 5xx with jittered backoff. A callback
// failure is returned to the caller to log; it never changes the report.
type CallbackSender struct {
	url        string
	client     *http.Client
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// CallbackOption configures a CallbackSender.
type CallbackOption func(*CallbackSender)

// WithCallbackClient sets the HTTP client.
func WithCallbackClient(client *http.Client) CallbackOption {
	return func(s *CallbackSender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithCallbackTimeout sets the per-attempt timeout of the default client.
func WithCallbackTimeout(d time.Duration) CallbackOption {
	return func(s *CallbackSender) {
		if d > 0 {
			s.client = &http.Client{Timeout: d}
		}
	}
}

// WithRetries sets the retry count and backoff bounds.
func WithRetries(maxRetries int, baseDelay, maxDelay time.Duration) CallbackOption {
	return func(s *CallbackSender) {
		s.maxRetries = maxRetries
		s.baseDelay = baseDelay
		s.maxDelay = maxDelay
	}
}

// WithCallbackLogger sets the logger for retry notices.
func WithCallbackLogger(logger *slog.Logger) CallbackOption {
	return func(s *CallbackSender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCallbackSender creates a sender for the given endpoint.
func NewCallbackSender(url string, opts ...CallbackOption) *CallbackSender {
	s := &CallbackSender{
		url:        url,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		maxRetries: DefaultCallbackRetries,
		baseDelay:  DefaultCallbackBaseDelay,
		maxDelay:   DefaultCallbackMaxDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	if s.baseDelay <= 0 {
		s.baseDelay = DefaultCallbackBaseDelay
	}
	if s.maxDelay < s.baseDelay {
		s.maxDelay = s.baseDelay
	}
	return s
}

// ShouldRetry reports whether a callback attempt should be retried.
// Retries on network errors, server errors (5xx), and rate limits (429).
func ShouldRetry(resp *http.Response, err error) bool {
	if err != nil || resp == nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}

// Send delivers report. It returns nil once the endpoint answers 2xx.
//
//nolint:bodyclose // bodies are closed inside the attempt; only the status is kept
func (s *CallbackSender) Send(ctx context.Context, report *model.CrawlReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	policy := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(ShouldRetry).
		WithBackoff(s.baseDelay, s.maxDelay).
		WithJitterFactor(0.1).
		WithMaxRetries(s.maxRetries).
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			s.logger.Warn("retrying callback", "url", s.url, "attempt", e.Attempts())
		}).
		Build()

	resp, err := failsafe.With(policy).WithContext(ctx).Get(func() (*http.Response, error) {
		return s.post(ctx, data)
	})
	if err != nil {
		return fmt.Errorf("failed to deliver report to callback: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrCallbackRejected, resp.StatusCode)
	}
	return nil
}

// post performs one attempt. The body is drained and closed before
// returning so retried responses do not leak connections.
func (s *CallbackSender) post(ctx context.Context, data []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	return resp, nil
}
