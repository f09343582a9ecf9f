package database

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// setupTestArchive creates a temporary archive with a deterministic clock.
func setupTestArchive(t *testing.T) *Archive {
	t.Helper()

	a, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	a.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	return a
}

func testReport(jobID, target string, pages int) *model.CrawlReport {
	seed, _ := url.Parse(target)
	job := model.NewCrawlJob(seed, jobID, model.ModeFull, 10, model.DefaultContentTypes(), "")
	records := make([]*model.PageRecord, pages)
	for i := range records {
		records[i] = &model.PageRecord{
			URL:         target,
			Title:       "Page",
			ExtractedAt: time.Date(2026, 5, 1, 12, 0, i, 0, time.UTC),
			Text:        &model.TextSection{Text: "hello", Length: 5},
		}
	}
	return model.NewCrawlReport(job, model.StatusCompleted, records, 1500*time.Millisecond, "http")
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates archive in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "newdir", "subdir")
		a, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open archive: %v", err)
		}
		defer a.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); os.IsNotExist(err) {
			t.Error("archive file was not created")
		}
		if a.Path() != filepath.Join(dir, FileName) {
			t.Errorf("Path() = %q", a.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when archive does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error for missing archive")
		}
	})

	t.Run("CreateIfNotExists=false opens existing archive", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		a, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create archive: %v", err)
		}
		_ = a.Close()

		a, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen archive: %v", err)
		}
		_ = a.Close()
	})
}

func TestArchive_SaveAndGetReport(t *testing.T) {
	t.Parallel()

	a := setupTestArchive(t)
	ctx := t.Context()

	report := testReport("job-1", "https://example.com/", 2)
	id, err := a.SaveReport(ctx, report)
	if err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if id == "" {
		t.Fatal("SaveReport() returned empty id")
	}

	got, err := a.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if got.JobID != "job-1" || got.PagesCount != 2 || len(got.Pages) != 2 {
		t.Errorf("GetReport() = %+v", got)
	}
	if got.Pages[0].Text == nil || got.Pages[0].Text.Text != "hello" {
		t.Errorf("page text not preserved: %+v", got.Pages[0].Text)
	}
	if got.Elapsed != 1.5 {
		t.Errorf("Elapsed = %v, want 1.5", got.Elapsed)
	}

	if _, err := a.GetReport(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReport(missing) error = %v, want ErrNotFound", err)
	}
}

func TestArchive_SaveReportNil(t *testing.T) {
	t.Parallel()

	a := setupTestArchive(t)
	if _, err := a.SaveReport(t.Context(), nil); err == nil {
		t.Error("expected error for nil report")
	}
}

func TestArchive_GetLatestReport(t *testing.T) {
	t.Parallel()

	a := setupTestArchive(t)
	ctx := t.Context()

	for _, pages := range []int{1, 2, 3} {
		if _, err := a.SaveReport(ctx, testReport("job", "https://example.com/", pages)); err != nil {
			t.Fatalf("SaveReport() error = %v", err)
		}
	}
	if _, err := a.SaveReport(ctx, testReport("job", "https://other.example/", 5)); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	got, err := a.GetLatestReport(ctx, "https://example.com/")
	if err != nil {
		t.Fatalf("GetLatestReport() error = %v", err)
	}
	if got.PagesCount != 3 {
		t.Errorf("latest PagesCount = %d, want 3", got.PagesCount)
	}

	if _, err := a.GetLatestReport(ctx, "https://never.example/"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestArchive_ListReports(t *testing.T) {
	t.Parallel()

	a := setupTestArchive(t)
	ctx := t.Context()

	failed := testReport("job-b", "https://example.com/", 0)
	failed.Status = model.StatusError
	failed.Error = "crawl interrupted"

	for _, r := range []*model.CrawlReport{
		testReport("job-a", "https://example.com/", 1),
		failed,
		testReport("job-a", "https://example.com/", 4),
	} {
		if _, err := a.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		jobID     string
		wantPages []int
	}{
		{name: "filters by job", jobID: "job-a", wantPages: []int{4, 1}},
		{name: "error runs are archived", jobID: "job-b", wantPages: []int{0}},
		{name: "empty job lists all", jobID: "", wantPages: []int{4, 0, 1}},
		{name: "unknown job", jobID: "nope", wantPages: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := a.ListReports(ctx, tt.jobID)
			if err != nil {
				t.Fatalf("ListReports() error = %v", err)
			}
			if len(got) != len(tt.wantPages) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.wantPages))
			}
			for i, meta := range got {
				if meta.PagesCount != tt.wantPages[i] {
					t.Errorf("[%d] PagesCount = %d, want %d", i, meta.PagesCount, tt.wantPages[i])
				}
				if meta.CreatedAt.IsZero() {
					t.Errorf("[%d] CreatedAt not parsed", i)
				}
				if meta.ID == "" {
					t.Errorf("[%d] empty ID", i)
				}
			}
		})
	}

	all, err := a.ListReports(ctx, "job-b")
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if all[0].Status != model.StatusError {
		t.Errorf("Status = %q, want error", all[0].Status)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "archive layout", input: "2026-05-01T12:00:01.000000000Z", want: time.Date(2026, 5, 1, 12, 0, 1, 0, time.UTC)},
		{name: "RFC3339", input: "2026-05-01T12:00:01Z", want: time.Date(2026, 5, 1, 12, 0, 1, 0, time.UTC)},
		{name: "SQLite default", input: "2026-05-01 12:00:01", want: time.Date(2026, 5, 1, 12, 0, 1, 0, time.UTC)},
		{name: "invalid", input: "yesterday", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
