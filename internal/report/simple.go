package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitecrawl/internal/model"
)

// SimpleWriter outputs a short human-readable summary of a run.
// This format is designed for terminal display next to the JSON log stream,
// so the CLI sends it to stderr.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so the summary stays readable when redirected to a file.
type SimpleWriter struct {
	baseWriter

	// verbose adds one line per captured page.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables one line per captured page.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "sitecrawl: %s\n", report.TargetURL)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Job:      %s\n", report.JobID)
	fmt.Fprintf(&sb, "Mode:     %s\n", report.ExtractionMode)
	fmt.Fprintf(&sb, "Status:   %s\n", report.Status)
	if report.Error != "" {
		fmt.Fprintf(&sb, "Error:    %s\n", report.Error)
	}
	fmt.Fprintf(&sb, "Pages:    %d of %d\n", report.PagesCount, report.Config.MaxPages)
	fmt.Fprintf(&sb, "Elapsed:  %.2fs\n", report.Elapsed)

	totals := contentTotals(report)
	var parts []string
	for _, ct := range report.Config.ContentTypes.EnabledTypes() {
		if ct == model.ContentText {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", ct, totals[ct]))
	}
	if len(parts) > 0 {
		fmt.Fprintf(&sb, "Content:  %s\n", strings.Join(parts, " "))
	}

	if w.verbose && len(report.Pages) > 0 {
		sb.WriteString("\n")
		for i, p := range report.Pages {
			title := p.Title
			if title == "" {
				title = "(no title)"
			}
			fmt.Fprintf(&sb, "  [%d] %s  %s\n", i+1, p.URL, truncateString(title, 50))
		}
	}

	return io.WriteString(w.output, sb.String())
}
