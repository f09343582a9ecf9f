package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
)

// WriterStep writes the report with a report.Writer to an already open
// stream, such as stdout.
type WriterStep struct {
	name   string
	writer report.Writer
}

// NewWriterStep creates a step that writes the report with w.
func NewWriterStep(name string, w report.Writer) *WriterStep {
	return &WriterStep{name: name, writer: w}
}

// Name implements Step.
func (s *WriterStep) Name() string {
	return s.name
}

// Do implements Step.
func (s *WriterStep) Do(_ context.Context, r *model.CrawlReport) error {
	_, err := s.writer.Write(r)
	return err
}

// FileStep writes the report to a file.
//
// Design decision: The path is resolved per report rather than at
// construction time, so the JSON file can be named after the job ID the
// report carries.
type FileStep struct {
	name      string
	pathFor   func(*model.CrawlReport) string
	newWriter func(io.Writer) report.Writer
	logger    *slog.Logger
}

// NewJSONFileStep creates a step that writes the indented report JSON to
// <dir>/<job_id>.json.
func NewJSONFileStep(dir string, logger *slog.Logger) *FileStep {
	return &FileStep{
		name: "json-file",
		pathFor: func(r *model.CrawlReport) string {
			return filepath.Join(dir, report.JSONFileName(r.JobID))
		},
		newWriter: func(w io.Writer) report.Writer {
			return report.NewJSONWriter(w, report.WithPrettyPrint())
		},
		logger: loggerOrDefault(logger),
	}
}

// NewMarkdownFileStep creates a step that writes the Markdown crawl
// summary to path.
func NewMarkdownFileStep(path string, logger *slog.Logger) *FileStep {
	return &FileStep{
		name:    "markdown-file",
		pathFor: func(*model.CrawlReport) string { return path },
		newWriter: func(w io.Writer) report.Writer {
			return report.NewMarkdownWriter(w)
		},
		logger: loggerOrDefault(logger),
	}
}

// Name implements Step.
func (s *FileStep) Name() string {
	return s.name
}

// Do implements Step.
func (s *FileStep) Do(_ context.Context, r *model.CrawlReport) error {
	path := s.pathFor(r)
	if err := report.WriteFile(path, r, s.newWriter); err != nil {
		return err
	}
	s.logger.Info("report file written", "step", s.name, "path", path)
	return nil
}

// ArchiveStep stores the report in the SQLite archive.
// The archive is opened and closed per delivery; a run archives exactly
// one report.
type ArchiveStep struct {
	dir    string
	opts   database.Options
	logger *slog.Logger
}

// NewArchiveStep creates a step that archives into <dir>/sitecrawl.db.
func NewArchiveStep(dir string, logger *slog.Logger) *ArchiveStep {
	return &ArchiveStep{
		dir:    dir,
		opts:   database.DefaultOptions(),
		logger: loggerOrDefault(logger),
	}
}

// Name implements Step.
func (s *ArchiveStep) Name() string {
	return "archive"
}

// Do implements Step.
func (s *ArchiveStep) Do(ctx context.Context, r *model.CrawlReport) (err error) {
	archive, err := database.Open(s.dir, s.opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := archive.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close archive: %w", cerr)
		}
	}()

	id, err := archive.SaveReport(ctx, r)
	if err != nil {
		return err
	}
	s.logger.Info("report archived", "archive_id", id, "path", archive.Path())
	return nil
}

// Sender delivers a report to a remote receiver.
// report.CallbackSender implements it.
type Sender interface {
	Send(ctx context.Context, r *model.CrawlReport) error
}

// CallbackStep POSTs the report to the configured callback URL.
type CallbackStep struct {
	url    string
	sender Sender
	logger *slog.Logger
}

// NewCallbackStep creates a step that delivers through sender.
// url is only used for logging.
func NewCallbackStep(url string, sender Sender, logger *slog.Logger) *CallbackStep {
	return &CallbackStep{
		url:    url,
		sender: sender,
		logger: loggerOrDefault(logger),
	}
}

// Name implements Step.
func (s *CallbackStep) Name() string {
	return "callback"
}

// Do implements Step.
func (s *CallbackStep) Do(ctx context.Context, r *model.CrawlReport) error {
	if err := s.sender.Send(ctx, r); err != nil {
		return err
	}
	s.logger.Info("report delivered to callback", "callback_url", s.url)
	return nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
