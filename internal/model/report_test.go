package model

import (
	"net/url"
	"testing"
	"time"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

// TestNewCrawlJob tests job construction rules.
func TestNewCrawlJob(t *testing.T) {
	t.Parallel()

	t.Run("single mode forces budget of one", func(t *testing.T) {
		t.Parallel()

		job := NewCrawlJob(mustParse(t, "https://example.com/"), "j1", ModeSingle, 25, DefaultContentTypes(), "")
		if job.MaxPages() != 1 {
			t.Errorf("expected max pages 1, got %d", job.MaxPages())
		}
	})

	t.Run("full mode keeps budget", func(t *testing.T) {
		t.Parallel()

		job := NewCrawlJob(mustParse(t, "https://example.com/"), "j1", ModeFull, 25, DefaultContentTypes(), "")
		if job.MaxPages() != 25 {
			t.Errorf("expected max pages 25, got %d", job.MaxPages())
		}
	})

	t.Run("seed is copied", func(t *testing.T) {
		t.Parallel()

		seed := mustParse(t, "https://example.com/")
		job := NewCrawlJob(seed, "j1", ModeFull, 5, DefaultContentTypes(), "")
		seed.Host = "other.com"
		got := job.Seed()
		got.Path = "/mutated"

		if job.Seed().String() != "https://example.com/" {
			t.Errorf("expected job seed to be immutable, got %s", job.Seed())
		}
	})
}

// TestContentTypes tests extractor toggles.
func TestContentTypes(t *testing.T) {
	t.Parallel()

	defaults := DefaultContentTypes()
	want := map[ContentType]bool{
		ContentText: true, ContentImages: true, ContentCode: true, ContentLinks: false,
		ContentJSON: true, ContentTables: true, ContentMedia: true, ContentFiles: false,
	}
	for ct, enabled := range want {
		if defaults.Enabled(ct) != enabled {
			t.Errorf("default %s: expected %v", ct, enabled)
		}
	}

	var c ContentTypes
	c.Set(ContentFiles, true)
	if got := c.EnabledTypes(); len(got) != 1 || got[0] != ContentFiles {
		t.Errorf("expected only files enabled, got %v", got)
	}
	if c.Enabled(ContentType("bogus")) {
		t.Error("unknown content type must never be enabled")
	}
}

// TestNewCrawlReport tests report assembly.
func TestNewCrawlReport(t *testing.T) {
	t.Parallel()

	job := NewCrawlJob(mustParse(t, "https://example.com/"), "job-7", ModeFull, 3, DefaultContentTypes(), "")
	pages := []*PageRecord{{URL: "https://example.com/"}, {URL: "https://example.com/a"}}

	report := NewCrawlReport(job, StatusCompleted, pages, 1234567*time.Microsecond, "http")
	pages[0] = nil

	if report.PagesCount != 2 || report.Pages[0] == nil {
		t.Fatalf("expected an independent copy of 2 pages, got %+v", report.Pages)
	}
	if report.Elapsed != 1.23 {
		t.Errorf("expected elapsed 1.23, got %v", report.Elapsed)
	}
	if report.Config.MaxPages != 3 || report.Config.FetchStrategy != "http" {
		t.Errorf("unexpected config echo: %+v", report.Config)
	}
	if !report.Completed() {
		t.Error("expected completed report")
	}
	if report.JobID != "job-7" || report.ExtractionMode != ModeFull {
		t.Errorf("unexpected identity fields: %+v", report)
	}
}
