package pipeline

import (
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/sitecrawl/internal/report"
)

// DeliveryConfig selects the sinks of a delivery pipeline.
// Empty fields disable the corresponding sink.
type DeliveryConfig struct {
	// OutputDir receives <job_id>.json.
	OutputDir string

	// MarkdownPath is the path of the Markdown crawl summary.
	MarkdownPath string

	// ArchiveDir holds the SQLite archive.
	ArchiveDir string

	// CallbackURL receives the report as a JSON POST.
	CallbackURL string

	// CallbackTimeout bounds each callback attempt.
	CallbackTimeout time.Duration

	// Stdout receives the sentinel line and the compact report JSON.
	Stdout io.Writer

	// Summary receives a human-readable summary after the sentinel block.
	Summary io.Writer

	// Verbose lists every captured page in the summary.
	Verbose bool
}

// DefaultPipeline builds the delivery pipeline for cfg.
//
// Files, archive and callback run concurrently in one Group. The stdout
// block always comes last so a log parser that stops reading at the
// sentinel has already seen every sink's log line.
func DefaultPipeline(cfg DeliveryConfig, logger *slog.Logger) *Pipeline {
	logger = loggerOrDefault(logger)

	var sinks []Step
	if cfg.OutputDir != "" {
		sinks = append(sinks, NewJSONFileStep(cfg.OutputDir, logger))
	}
	if cfg.MarkdownPath != "" {
		sinks = append(sinks, NewMarkdownFileStep(cfg.MarkdownPath, logger))
	}
	if cfg.ArchiveDir != "" {
		sinks = append(sinks, NewArchiveStep(cfg.ArchiveDir, logger))
	}
	if cfg.CallbackURL != "" {
		sender := report.NewCallbackSender(cfg.CallbackURL,
			report.WithCallbackTimeout(cfg.CallbackTimeout),
			report.WithCallbackLogger(logger),
		)
		sinks = append(sinks, NewCallbackStep(cfg.CallbackURL, sender, logger))
	}

	p := New(WithLogger(logger), WithContinueOnError(true))
	if len(sinks) > 0 {
		p.AddStep(NewGroup("sinks", sinks, WithGroupLogger(logger)))
	}

	if cfg.Stdout != nil {
		writers := []report.Writer{report.NewSentinelWriter(cfg.Stdout)}
		if cfg.Summary != nil {
			writers = append(writers, report.NewSimpleWriter(cfg.Summary, report.WithVerbose(cfg.Verbose)))
		}
		p.AddStep(NewWriterStep("results", report.NewMultiWriter(writers...)))
	}

	return p
}
