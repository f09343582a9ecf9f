package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Writer defines the interface for report output.
//
// Design decision: We use an interface so the same report can go to stdout,
// files or buffers in tests through one API.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.CrawlReport) (int, error)
}

// MultiWriter writes to multiple Writers in order.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface writes reports, not
// raw bytes, and each writer renders its own format.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// FilePerm is the permission of report files. Reports may contain
// page content and configured cookies are reflected in captured pages, so
// they are readable by the owner only.
const FilePerm os.FileMode = 0o600

// WriteFile renders report with the writer built by newWriter into path,
// creating parent directories as needed.
func WriteFile(path string, report *model.CrawlReport, newWriter func(io.Writer) Writer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, FilePerm)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if _, err := newWriter(f).Write(report); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}

// JSONFileName returns the report file name for a job. Path separators in
// the job ID cannot escape the output directory.
func JSONFileName(jobID string) string {
	name := filepath.Base(filepath.Clean("/" + jobID))
	if name == "/" || name == "." || name == ".." {
		name = "unknown"
	}
	return name + ".json"
}
