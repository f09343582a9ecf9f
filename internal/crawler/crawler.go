package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/fetch"
	"github.com/nao1215/sitecrawl/internal/model"
)

// State is the lifecycle state of a Crawler.
type State int32

const (
	// StateIdle means Run has not started the fetch session yet.
	StateIdle State = iota

	// StateRunning means the session is open and pages are being fetched.
	StateRunning

	// StateDraining means the loop has ended and resources are being released.
	StateDraining

	// StateDone means the report has been produced.
	StateDone
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Extractor turns a fetched page into a record and the raw hrefs found on it.
// extract.Pipeline implements it.
type Extractor interface {
	Extract(page *fetch.Page) (*model.PageRecord, []string, error)
}

// Crawler runs one crawl job.
//
// Design decision: The Crawler owns every piece of mutable run state (the
// Frontier and the Aggregator are created inside Run and never escape), so
// two runs can never observe each other and traversal order can be tested
// with a fake Strategy.
type Crawler struct {
	job       *model.CrawlJob
	strategy  fetch.Strategy
	extractor Extractor

	logger    *slog.Logger
	delayer   fetch.Delayer
	pageDelay config.DelayRange
	filter    *PathFilter
	now       func() time.Time

	state atomic.Int32
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger for progress lines.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDelayer sets how the politeness delay is waited.
func WithDelayer(d fetch.Delayer) Option {
	return func(c *Crawler) {
		c.delayer = d
	}
}

// WithPageDelay sets the range of the delay between page fetches.
func WithPageDelay(r config.DelayRange) Option {
	return func(c *Crawler) {
		c.pageDelay = r
	}
}

// WithPathFilter restricts which discovered links are enqueued.
// The seed URL is always fetched.
func WithPathFilter(f *PathFilter) Option {
	return func(c *Crawler) {
		c.filter = f
	}
}

// WithClock sets the clock used to measure elapsed time.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Crawler for job.
func New(job *model.CrawlJob, strategy fetch.Strategy, extractor Extractor, opts ...Option) *Crawler {
	c := &Crawler{
		job:       job,
		strategy:  strategy,
		extractor: extractor,
		logger:    slog.Default(),
		delayer:   fetch.NewRandomDelayer(nil),
		pageDelay: config.DefaultPageDelay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Crawler) State() State {
	return State(c.state.Load())
}

func (c *Crawler) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debug("crawler state changed", "state", s.String())
}

// Run executes the job and returns its report. It never returns nil.
//
// The fetch strategy is closed before Run returns, whatever the outcome.
// A session setup failure, a fatal fetch error or a cancelled ctx end the
// run with status error; the pages captured until then are kept.
func (c *Crawler) Run(ctx context.Context) *model.CrawlReport {
	seed := c.job.Seed().String()
	if u, ok := Normalize(seed, nil); ok {
		seed = u
	}
	budget := c.job.MaxPages()
	agg := NewAggregator(c.job, c.now)

	c.logger.Info("starting crawl",
		"status", "starting",
		"target_url", seed,
		"extraction_mode", string(c.job.Mode()),
		"max_pages", budget,
		"fetch_strategy", c.strategy.Name(),
		"content_types", contentTypeNames(c.job.ContentTypes()))

	var runErr error
	if err := c.strategy.Open(ctx); err != nil {
		runErr = fmt.Errorf("failed to open %s session: %w", c.strategy.Name(), err)
		c.logger.Error("fetch session setup failed", "error", err)
	} else {
		c.setState(StateRunning)
		runErr = c.loop(ctx, seed, budget, agg)
	}

	c.setState(StateDraining)
	if err := c.strategy.Close(); err != nil {
		c.logger.Warn("failed to close fetch session", "error", err)
	}

	report := agg.Report(runErr, c.strategy.Name())
	c.setState(StateDone)

	c.logger.Info("crawl finished",
		"status", string(report.Status),
		"pages_count", report.PagesCount,
		"elapsed", report.Elapsed)
	return report
}

// loop visits pages until the queue drains or the budget is spent.
// It returns a non-nil error only when the run must stop early.
func (c *Crawler) loop(ctx context.Context, seed string, budget int, agg *Aggregator) error {
	frontier := NewFrontier(seed)
	scope := NewScope(c.job.Seed())
	politeness := NewPoliteness(c.delayer, c.pageDelay)

	for frontier.Len() > 0 && frontier.HasCapacity(agg.Count(), budget) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("crawl interrupted: %w", err)
		}

		next, _ := frontier.Pop()
		if frontier.Visited(next) {
			continue
		}
		frontier.MarkVisited(next)

		c.logger.Info("fetching page", "url", next, "page", agg.Count()+1, "max_pages", budget)
		page, err := c.strategy.Fetch(ctx, next)
		switch {
		case err == nil:
			c.capture(page, frontier, scope, agg)
		case ctx.Err() != nil:
			return fmt.Errorf("crawl interrupted: %w", ctx.Err())
		case fetch.IsFatal(err):
			return fmt.Errorf("fetch session failed: %w", err)
		default:
			c.logFetchError(next, err)
		}

		if err := politeness.Between(ctx, agg.Count(), budget, frontier.Len()); err != nil {
			return fmt.Errorf("crawl interrupted: %w", err)
		}
	}
	return nil
}

// capture extracts the page, records it and, in full mode, enqueues its
// in-scope links.
func (c *Crawler) capture(page *fetch.Page, frontier *Frontier, scope Scope, agg *Aggregator) {
	rec, hrefs, err := c.extractor.Extract(page)
	if err != nil {
		c.logger.Error("extraction failed", "url", page.URL, "error", err)
		return
	}
	agg.Add(rec)

	added := 0
	if c.job.Mode() == model.ModeFull {
		added = c.enqueueLinks(page, hrefs, frontier, scope)
	}
	c.logger.Info("page captured",
		"url", page.URL,
		"title", rec.Title,
		"pages_count", agg.Count(),
		"links_queued", added,
		"queue_size", frontier.Len())
}

// enqueueLinks offers every in-scope link that passes the path filter.
func (c *Crawler) enqueueLinks(page *fetch.Page, hrefs []string, frontier *Frontier, scope Scope) int {
	base, err := url.Parse(page.Base())
	if err != nil {
		return 0
	}
	added := 0
	for _, href := range hrefs {
		u, ok := Normalize(href, base)
		if !ok || !scope.Contains(u) || !c.filter.Allow(u) {
			continue
		}
		if frontier.Enqueue(u) {
			added++
		}
	}
	return added
}

func (c *Crawler) logFetchError(rawURL string, err error) {
	attrs := []any{"url", rawURL, "error", err}
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		attrs = append(attrs, "kind", string(fe.Kind))
		if fe.StatusCode != 0 {
			attrs = append(attrs, "status_code", fe.StatusCode)
		}
	}
	c.logger.Error("failed to fetch page", attrs...)
}

func contentTypeNames(types model.ContentTypes) []string {
	enabled := types.EnabledTypes()
	names := make([]string, len(enabled))
	for i, ct := range enabled {
		names[i] = string(ct)
	}
	return names
}
