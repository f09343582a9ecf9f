package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/extract"
	"github.com/nao1215/sitecrawl/internal/fetch"
	"github.com/nao1215/sitecrawl/internal/model"
)

// fakeStrategy serves pages from a render function and records every call.
type fakeStrategy struct {
	mu       sync.Mutex
	render   func(rawURL string) (string, error)
	openErr  error
	closeErr error
	onFetch  func(rawURL string)
	fetched  []string
	opened   int
	closed   int
}

func (f *fakeStrategy) Name() string { return "fake" }

func (f *fakeStrategy) Open(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	return f.openErr
}

func (f *fakeStrategy) Fetch(_ context.Context, rawURL string) (*fetch.Page, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, rawURL)
	f.mu.Unlock()

	if f.onFetch != nil {
		f.onFetch(rawURL)
	}
	html, err := f.render(rawURL)
	if err != nil {
		return nil, err
	}
	return &fetch.Page{URL: rawURL, StatusCode: 200, HTML: html}, nil
}

func (f *fakeStrategy) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

// site renders a fixed link graph keyed by URL path. Unknown paths are 404.
func site(graph map[string][]string) func(string) (string, error) {
	return func(rawURL string) (string, error) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", err
		}
		links, ok := graph[u.Path]
		if !ok {
			return "", &fetch.FetchError{URL: rawURL, Kind: fetch.KindStatus, StatusCode: 404}
		}
		var b strings.Builder
		fmt.Fprintf(&b, "<html><head><title>%s</title></head><body>", u.Path)
		for _, l := range links {
			fmt.Fprintf(&b, `<a href="%s">%s</a>`, l, l)
		}
		b.WriteString("</body></html>")
		return b.String(), nil
	}
}

// countingDelayer counts politeness waits without sleeping.
type countingDelayer struct {
	mu    sync.Mutex
	calls int
}

func (d *countingDelayer) Delay(ctx context.Context, _ config.DelayRange) error {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return ctx.Err()
}

func newJob(t *testing.T, seed string, mode model.Mode, maxPages int) *model.CrawlJob {
	t.Helper()

	u, err := url.Parse(seed)
	if err != nil {
		t.Fatalf("bad seed %q: %v", seed, err)
	}
	return model.NewCrawlJob(u, "job-1", mode, maxPages, model.DefaultContentTypes(), "")
}

func newCrawler(job *model.CrawlJob, s fetch.Strategy, logs io.Writer, opts ...Option) *Crawler {
	if logs == nil {
		logs = io.Discard
	}
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	base := []Option{WithLogger(logger), WithDelayer(fetch.NoDelay{})}
	return New(job, s, extract.NewPipeline(job.ContentTypes(), extract.WithLogger(logger)), append(base, opts...)...)
}

func pageURLs(report *model.CrawlReport) []string {
	urls := make([]string, len(report.Pages))
	for i, p := range report.Pages {
		urls[i] = p.URL
	}
	return urls
}

func TestCrawler_Run(t *testing.T) {
	t.Parallel()

	t.Run("visits pages in discovery order", func(t *testing.T) {
		t.Parallel()

		s := &fakeStrategy{render: site(map[string][]string{
			"/":   {"/p1", "/p2"},
			"/p1": {"/l1", "/l2", "/"},
			"/p2": {"/l3", "/p1"},
			"/l1": nil, "/l2": nil, "/l3": nil,
		})}
		report := newCrawler(newJob(t, "https://example.com/", model.ModeFull, 10), s, nil).Run(t.Context())

		want := []string{
			"https://example.com/",
			"https://example.com/p1",
			"https://example.com/p2",
			"https://example.com/l1",
			"https://example.com/l2",
			"https://example.com/l3",
		}
		if got := pageURLs(report); strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("visit order = %v, want %v", got, want)
		}
		if report.Status != model.StatusCompleted || report.PagesCount != len(want) {
			t.Errorf("unexpected report status=%s pages=%d", report.Status, report.PagesCount)
		}
		if len(s.fetched) != len(want) {
			t.Errorf("each URL must be fetched once, got %v", s.fetched)
		}
	})

	t.Run("stops at the page budget", func(t *testing.T) {
		t.Parallel()

		// Every page links to two fresh pages, so the graph never runs out.
		s := &fakeStrategy{render: func(rawURL string) (string, error) {
			u, _ := url.Parse(rawURL)
			dir := strings.TrimSuffix(u.Path, "/")
			return fmt.Sprintf(`<a href="%s/a">a</a><a href="%s/b">b</a>`, dir, dir), nil
		}}
		delayer := &countingDelayer{}
		report := newCrawler(newJob(t, "https://example.com/", model.ModeFull, 3), s, nil, WithDelayer(delayer)).Run(t.Context())

		if report.PagesCount != 3 || len(s.fetched) != 3 {
			t.Errorf("expected exactly 3 pages, got %d records and %d fetches", report.PagesCount, len(s.fetched))
		}
		if delayer.calls != 2 {
			t.Errorf("expected 2 delays between 3 pages, got %d", delayer.calls)
		}
		if report.Config.MaxPages != 3 {
			t.Errorf("config echo max_pages = %d", report.Config.MaxPages)
		}
	})

	t.Run("single mode captures only the seed", func(t *testing.T) {
		t.Parallel()

		s := &fakeStrategy{render: site(map[string][]string{"/": {"/a", "/b"}, "/a": nil, "/b": nil})}
		delayer := &countingDelayer{}
		report := newCrawler(newJob(t, "https://example.com/", model.ModeSingle, 50), s, nil, WithDelayer(delayer)).Run(t.Context())

		if report.PagesCount != 1 || report.Pages[0].URL != "https://example.com/" {
			t.Errorf("unexpected pages %v", pageURLs(report))
		}
		if report.Status != model.StatusCompleted {
			t.Errorf("unexpected status %s", report.Status)
		}
		if delayer.calls != 0 {
			t.Errorf("no delay after the final page, got %d", delayer.calls)
		}
	})

	t.Run("seed with a default port is fetched once", func(t *testing.T) {
		t.Parallel()

		s := &fakeStrategy{render: site(map[string][]string{
			"/":  {"https://example.com/", "/a"},
			"/a": {"https://example.com:443/"},
		})}
		report := newCrawler(newJob(t, "https://example.com:443/", model.ModeFull, 10), s, nil).Run(t.Context())

		want := []string{"https://example.com/", "https://example.com/a"}
		if got := pageURLs(report); strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("pages = %v, want %v", got, want)
		}
		if len(s.fetched) != 2 {
			t.Errorf("expected 2 fetches, got %v", s.fetched)
		}
	})

	t.Run("skips pages that fail to fetch", func(t *testing.T) {
		t.Parallel()

		render := site(map[string][]string{"/": {"/slow", "/ok"}, "/ok": nil})
		s := &fakeStrategy{render: func(rawURL string) (string, error) {
			if strings.HasSuffix(rawURL, "/slow") {
				return "", &fetch.FetchError{URL: rawURL, Kind: fetch.KindTimeout, Err: context.DeadlineExceeded}
			}
			return render(rawURL)
		}}
		var logs bytes.Buffer
		report := newCrawler(newJob(t, "https://example.com/", model.ModeFull, 10), s, &logs).Run(t.Context())

		want := []string{"https://example.com/", "https://example.com/ok"}
		if got := pageURLs(report); strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("pages = %v, want %v", got, want)
		}
		if report.Status != model.StatusCompleted {
			t.Errorf("a fetch failure must not fail the run, got %s", report.Status)
		}
		if !strings.Contains(logs.String(), `"msg":"failed to fetch page"`) ||
			!strings.Contains(logs.String(), `"kind":"timeout"`) ||
			!strings.Contains(logs.String(), `"url":"https://example.com/slow"`) {
			t.Errorf("expected an error log for the timeout, got %s", logs.String())
		}
	})

	t.Run("failed fetches do not consume the budget", func(t *testing.T) {
		t.Parallel()

		s := &fakeStrategy{render: site(map[string][]string{"/": {"/gone", "/a", "/b"}, "/a": nil, "/b": nil})}
		report := newCrawler(newJob(t, "https://example.com/", model.ModeFull, 3), s, nil).Run(t.Context())

		if report.PagesCount != 3 {
			t.Errorf("expected 3 records, got %v", pageURLs(report))
		}
		if len(s.fetched) != 4 {
			t.Errorf("expected 4 fetch attempts, got %v", s.fetched)
		}
	})

	t.Run("keeps the crawl on the seed host", func(t *testing.T) {
		t.Parallel()

		s := &fakeStrategy{render: site(map[string][]string{
			"/":  {"/a", "https://example.com/b", "https://other.com/c", "#frag", "https://sub.example.com/d", "mailto:x@example.com"},
			"/a": nil, "/b": nil,
		})}
		report := newCrawler(newJob(t, "https://example.com/", model.ModeFull, 10), s, nil).Run(t.Context())

		want := []string{"https://example.com/", "https://example.com/a", "https://example.com/b"}
		if got := s.fetched; strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("fetched = %v, want %v", got, want)
		}
		if report.PagesCount != 3 {
			t.Errorf("unexpected pages_count %d", report.PagesCount)
		}
	})

	t.Run("applies the path filter to links only", func(t *testing.T) {
		t.Parallel()

		s := &fakeStrategy{render: site(map[string][]string{
			"/admin/": {"/admin/users", "/docs/a", "/docs/b.pdf", "/blog/x"},
			"/docs/a": nil,
		})}
		filter := NewPathFilter([]string{"*.pdf"}, []string{"/docs/*"})
		report := newCrawler(newJob(t, "https://example.com/admin/", model.ModeFull, 10), s, nil, WithPathFilter(filter)).Run(t.Context())

		want := []string{"https://example.com/admin/", "https://example.com/docs/a"}
		if got := pageURLs(report); strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("pages = %v, want %v", got, want)
		}
	})

	t.Run("setup failure reports error and still closes", func(t *testing.T) {
		t.Parallel()

		s := &fakeStrategy{openErr: &fetch.FetchError{Kind: fetch.KindSetup, Err: fetch.ErrNoBrowser}}
		c := newCrawler(newJob(t, "https://example.com/", model.ModeFull, 10), s, nil)
		report := c.Run(t.Context())

		if report.Status != model.StatusError || report.PagesCount != 0 {
			t.Errorf("unexpected report status=%s pages=%d", report.Status, report.PagesCount)
		}
		if !strings.Contains(report.Error, "failed to open fake session") {
			t.Errorf("unexpected error message %q", report.Error)
		}
		if s.closed != 1 {
			t.Errorf("Close() called %d times, want 1", s.closed)
		}
		if len(s.fetched) != 0 {
			t.Errorf("nothing must be fetched, got %v", s.fetched)
		}
		if c.State() != StateDone {
			t.Errorf("state = %s, want done", c.State())
		}
	})

	t.Run("fatal fetch error stops the run", func(t *testing.T) {
		t.Parallel()

		render := site(map[string][]string{"/": {"/a", "/b"}})
		s := &fakeStrategy{render: func(rawURL string) (string, error) {
			if strings.HasSuffix(rawURL, "/a") {
				return "", &fetch.FetchError{URL: rawURL, Kind: fetch.KindSetup, Err: errors.New("browser crashed")}
			}
			return render(rawURL)
		}}
		report := newCrawler(newJob(t, "https://example.com/", model.ModeFull, 10), s, nil).Run(t.Context())

		if report.Status != model.StatusError || report.PagesCount != 1 {
			t.Errorf("unexpected report status=%s pages=%d", report.Status, report.PagesCount)
		}
		if !strings.Contains(report.Error, "browser crashed") {
			t.Errorf("unexpected error %q", report.Error)
		}
		if s.closed != 1 {
			t.Errorf("Close() called %d times, want 1", s.closed)
		}
	})

	t.Run("cancellation keeps partial pages", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		s := &fakeStrategy{
			render: site(map[string][]string{"/": {"/a", "/b"}, "/a": nil, "/b": nil}),
			onFetch: func(rawURL string) {
				if strings.HasSuffix(rawURL, "/a") {
					cancel()
				}
			},
		}
		report := newCrawler(newJob(t, "https://example.com/", model.ModeFull, 10), s, nil).Run(ctx)

		if report.Status != model.StatusError {
			t.Errorf("expected error status, got %s", report.Status)
		}
		if !strings.Contains(report.Error, context.Canceled.Error()) {
			t.Errorf("unexpected error %q", report.Error)
		}
		if report.PagesCount < 1 || report.PagesCount > 2 {
			t.Errorf("expected partial pages, got %v", pageURLs(report))
		}
		for _, u := range s.fetched {
			if strings.HasSuffix(u, "/b") {
				t.Error("no page may be fetched after cancellation")
			}
		}
		if s.closed != 1 {
			t.Errorf("Close() called %d times, want 1", s.closed)
		}
	})

	t.Run("close failure does not change the status", func(t *testing.T) {
		t.Parallel()

		s := &fakeStrategy{
			render:   site(map[string][]string{"/": nil}),
			closeErr: errors.New("already gone"),
		}
		var logs bytes.Buffer
		report := newCrawler(newJob(t, "https://example.com/", model.ModeSingle, 1), s, &logs).Run(t.Context())

		if report.Status != model.StatusCompleted {
			t.Errorf("unexpected status %s", report.Status)
		}
		if !strings.Contains(logs.String(), "failed to close fetch session") {
			t.Errorf("expected a close warning, got %s", logs.String())
		}
	})
}

func TestCrawler_Logs(t *testing.T) {
	t.Parallel()

	s := &fakeStrategy{render: site(map[string][]string{"/": nil})}
	var logs bytes.Buffer
	newCrawler(newJob(t, "https://example.com/", model.ModeSingle, 1), s, &logs).Run(t.Context())

	out := logs.String()
	for _, want := range []string{
		`"msg":"starting crawl"`,
		`"status":"starting"`,
		`"target_url":"https://example.com/"`,
		`"extraction_mode":"single"`,
		`"fetch_strategy":"fake"`,
		`"msg":"page captured"`,
		`"msg":"crawl finished"`,
		`"status":"completed"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %s:\n%s", want, out)
		}
	}
}

// failingExtractor always fails to build a record.
type failingExtractor struct{}

func (failingExtractor) Extract(*fetch.Page) (*model.PageRecord, []string, error) {
	return nil, nil, errors.New("unparsable page")
}

func TestCrawler_ExtractionFailure(t *testing.T) {
	t.Parallel()

	s := &fakeStrategy{render: site(map[string][]string{"/": nil})}
	job := newJob(t, "https://example.com/", model.ModeSingle, 1)
	report := New(job, s, failingExtractor{}, WithDelayer(fetch.NoDelay{}), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).Run(t.Context())

	if report.Status != model.StatusCompleted || report.PagesCount != 0 {
		t.Errorf("unexpected report status=%s pages=%d", report.Status, report.PagesCount)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := map[State]string{
		StateIdle:     "idle",
		StateRunning:  "running",
		StateDraining: "draining",
		StateDone:     "done",
		State(9):      "state(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int32(s), got, want)
		}
	}

	c := New(newJob(t, "https://example.com/", model.ModeSingle, 1), &fakeStrategy{}, failingExtractor{})
	if c.State() != StateIdle {
		t.Errorf("a new crawler must be idle, got %s", c.State())
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse("https://example.com/docs/intro")

	tests := []struct {
		name string
		href string
		want string
		ok   bool
	}{
		{name: "absolute path", href: "/a", want: "https://example.com/a", ok: true},
		{name: "absolute URL", href: "https://example.com/b", want: "https://example.com/b", ok: true},
		{name: "relative path", href: "setup", want: "https://example.com/docs/setup", ok: true},
		{name: "parent path", href: "../about", want: "https://example.com/about", ok: true},
		{name: "keeps query", href: "/search?q=go&page=2", want: "https://example.com/search?q=go&page=2", ok: true},
		{name: "strips fragment", href: "/a#section", want: "https://example.com/a", ok: true},
		{name: "lowercases host", href: "HTTPS://Example.COM/Path", want: "https://example.com/Path", ok: true},
		{name: "adds root path", href: "https://example.com", want: "https://example.com/", ok: true},
		{name: "protocol relative", href: "//other.com/x", want: "https://other.com/x", ok: true},
		{name: "drops default port", href: "https://example.com:443/a", want: "https://example.com/a", ok: true},
		{name: "drops default http port", href: "http://example.com:80", want: "http://example.com/", ok: true},
		{name: "keeps other port", href: "https://example.com:8443/a", want: "https://example.com:8443/a", ok: true},
		{name: "drops default port on ipv6", href: "https://[::1]:443/a", want: "https://[::1]/a", ok: true},
		{name: "javascript", href: "javascript:alert(1)", ok: false},
		{name: "javascript upper", href: "JavaScript:void(0)", ok: false},
		{name: "mailto", href: "mailto:a@b.com", ok: false},
		{name: "tel", href: "tel:+1555", ok: false},
		{name: "data", href: "data:text/html,hi", ok: false},
		{name: "fragment", href: "#top", ok: false},
		{name: "empty", href: "   ", ok: false},
		{name: "ftp", href: "ftp://example.com/file", ok: false},
		{name: "malformed", href: "http://[::1", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Normalize(tt.href, base)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("Normalize(%q) = %q, %v; want %q, %v", tt.href, got, ok, tt.want, tt.ok)
			}
			if !ok {
				return
			}
			again, ok := Normalize(got, base)
			if !ok || again != got {
				t.Errorf("Normalize is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestScope(t *testing.T) {
	t.Parallel()

	seed, _ := url.Parse("https://Example.com:8443/")
	scope := NewScope(seed)

	tests := map[string]bool{
		"https://example.com/a":      true,
		"http://example.com/b":       true,
		"https://example.com:9000/c": true,
		"https://EXAMPLE.com/d":      true,
		"https://sub.example.com/e":  false,
		"https://other.com/f":        false,
		"https://example.com.evil/g": false,
	}
	for u, want := range tests {
		if got := scope.Contains(u); got != want {
			t.Errorf("Contains(%q) = %v, want %v", u, got, want)
		}
	}
	if scope.Host() != "example.com" {
		t.Errorf("Host() = %q", scope.Host())
	}
}

func TestDiscoveredLinksScoping(t *testing.T) {
	t.Parallel()

	seed, _ := url.Parse("https://example.com/")
	scope := NewScope(seed)
	frontier := NewFrontier()

	for _, href := range []string{"/a", "https://example.com/b", "https://other.com/c", "#frag"} {
		if u, ok := Normalize(href, seed); ok && scope.Contains(u) {
			frontier.Enqueue(u)
		}
	}

	var got []string
	for frontier.Len() > 0 {
		u, _ := frontier.Pop()
		got = append(got, u)
	}
	if strings.Join(got, " ") != "https://example.com/a https://example.com/b" {
		t.Errorf("enqueued %v", got)
	}
}

func TestFrontier(t *testing.T) {
	t.Parallel()

	t.Run("FIFO order", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier("p1", "p2")
		f.Enqueue("l1")
		f.Enqueue("l2")

		for _, want := range []string{"p1", "p2", "l1", "l2"} {
			got, ok := f.Pop()
			if !ok || got != want {
				t.Fatalf("Pop() = %q, %v; want %q", got, ok, want)
			}
		}
		if _, ok := f.Pop(); ok {
			t.Error("Pop() on an empty frontier must report false")
		}
	})

	t.Run("enqueue of visited URL is a no-op", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.MarkVisited("a")
		if f.Enqueue("a") {
			t.Error("Enqueue of a visited URL must report false")
		}
		if f.Len() != 0 {
			t.Errorf("Len() = %d, want 0", f.Len())
		}
	})

	t.Run("enqueue of pending URL is a no-op", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier("a")
		if f.Enqueue("a") {
			t.Error("duplicate Enqueue must report false")
		}
		if f.Len() != 1 {
			t.Errorf("Len() = %d, want 1", f.Len())
		}

		// Once popped but not yet visited, the URL may be queued again.
		f.Pop()
		if !f.Enqueue("a") {
			t.Error("a popped URL that was never visited can be queued again")
		}
	})

	t.Run("mark visited is idempotent", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.MarkVisited("a")
		f.MarkVisited("a")
		if !f.Visited("a") || f.VisitedCount() != 1 {
			t.Errorf("unexpected visited state: %v %d", f.Visited("a"), f.VisitedCount())
		}
	})

	t.Run("capacity", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		if !f.HasCapacity(2, 3) || f.HasCapacity(3, 3) || f.HasCapacity(4, 3) {
			t.Error("HasCapacity must be true only while count < budget")
		}
	})
}

func TestPoliteness_Between(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		count   int
		budget  int
		pending int
		want    int
	}{
		{name: "more work", count: 1, budget: 3, pending: 2, want: 1},
		{name: "budget spent", count: 3, budget: 3, pending: 2, want: 0},
		{name: "queue empty", count: 1, budget: 3, pending: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := &countingDelayer{}
			p := NewPoliteness(d, config.DefaultPageDelay)
			if err := p.Between(t.Context(), tt.count, tt.budget, tt.pending); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.calls != tt.want {
				t.Errorf("delays = %d, want %d", d.calls, tt.want)
			}
		})
	}

	t.Run("cancelled wait", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if err := NewPoliteness(nil, config.DefaultPageDelay).Between(ctx, 0, 2, 1); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestAggregator(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }

	job := newJob(t, "https://example.com/", model.ModeFull, 5)
	agg := NewAggregator(job, clock)
	agg.Add(&model.PageRecord{URL: "https://example.com/"})
	agg.Add(&model.PageRecord{URL: "https://example.com/a"})
	now = start.Add(1234 * time.Millisecond)

	report := agg.Report(nil, "http")
	if report.Status != model.StatusCompleted || report.PagesCount != 2 || report.Error != "" {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Elapsed != 1.23 {
		t.Errorf("Elapsed = %v, want 1.23", report.Elapsed)
	}
	if report.JobID != "job-1" || report.Config.FetchStrategy != "http" {
		t.Errorf("unexpected echo %+v", report.Config)
	}

	failed := agg.Report(errors.New("session lost"), "http")
	if failed.Status != model.StatusError || failed.Error != "session lost" || failed.PagesCount != 2 {
		t.Errorf("unexpected error report %+v", failed)
	}
}

func TestPathFilter_Allow(t *testing.T) {
	t.Parallel()

	t.Run("nil and empty filters allow everything", func(t *testing.T) {
		t.Parallel()

		var f *PathFilter
		if !f.Allow("https://example.com/any/path") {
			t.Error("nil filter must allow")
		}
		if !NewPathFilter(nil, nil).Allow("https://example.com/any/path") {
			t.Error("empty filter must allow")
		}
	})

	t.Run("ignore patterns", func(t *testing.T) {
		t.Parallel()

		f := NewPathFilter([]string{"/admin/*", "*.pdf", "/logout"}, nil)
		tests := map[string]bool{
			"https://example.com/admin/users":  false,
			"https://example.com/docs/a.pdf":   false,
			"https://example.com/logout":       false,
			"https://example.com/docs/":        true,
			"https://example.com/":             true,
			"https://example.com/administrate": true,
		}
		for u, want := range tests {
			if got := f.Allow(u); got != want {
				t.Errorf("Allow(%q) = %v, want %v", u, got, want)
			}
		}
	})

	t.Run("follow patterns", func(t *testing.T) {
		t.Parallel()

		f := NewPathFilter(nil, []string{"/docs/*", "/api/v?/*"})
		tests := map[string]bool{
			"https://example.com/docs/intro":    true,
			"https://example.com/api/v1/users":  true,
			"https://example.com/blog/post":     false,
			"https://example.com":               false,
			"https://example.com/api/v10/users": false,
		}
		for u, want := range tests {
			if got := f.Allow(u); got != want {
				t.Errorf("Allow(%q) = %v, want %v", u, got, want)
			}
		}
	})

	t.Run("ignore wins over follow", func(t *testing.T) {
		t.Parallel()

		f := NewPathFilter([]string{"/docs/private/*"}, []string{"/docs/*"})
		if f.Allow("https://example.com/docs/private/keys") {
			t.Error("ignored path must be rejected")
		}
		if !f.Allow("https://example.com/docs/public") {
			t.Error("followed path must be allowed")
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		t.Parallel()

		if NewPathFilter(nil, nil).Allow("http://[::1") {
			t.Error("invalid URL must be rejected")
		}
	})
}

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"prefix match", "/admin/*", "/admin/dashboard", true},
		{"prefix exact", "/admin/*", "/admin", true},
		{"prefix nested", "/admin/*", "/admin/users/edit", true},
		{"prefix no match", "/admin/*", "/user/profile", false},
		{"prefix partial no match", "/admin/*", "/administrator", false},
		{"root no match prefix", "/admin/*", "/", false},
		{"extension", "*.pdf", "/docs/file.pdf", true},
		{"extension nested", "*.pdf", "/a/b/c/report.pdf", true},
		{"extension no match", "*.pdf", "/docs/file.txt", false},
		{"exact match", "/logout", "/logout", true},
		{"exact no match", "/logout", "/login", false},
		{"single char wildcard", "/api/v?/users", "/api/v1/users", true},
		{"single char wildcard no match", "/api/v?/users", "/api/v10/users", false},
		{"segment name", "draft-*", "/blog/draft-one", true},
		{"root path", "/", "/", true},
		{"bad pattern", "[", "/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := matchPattern(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}
