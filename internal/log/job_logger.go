package log

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// Field names of every log line.
const (
	KeyTimestamp = "timestamp"
	KeyLevel     = "level"
	KeyMessage   = "message"
	KeyJobID     = "job_id"
)

// NewJobLogger creates the process logger for one crawl job.
// Lines are JSON objects with timestamp, level (lowercase), message and
// job_id keys, sanitized by a SecureHandler.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stdout)
//   - jobID: The job identifier attached to every line
//   - verbose: If true, sets log level to Debug; otherwise Info
func NewJobLogger(w io.Writer, jobID string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceJobAttr,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	return slog.New(NewSecureHandler(jsonHandler)).With(KeyJobID, jobID)
}

// replaceJobAttr renames the built-in slog keys to the job log layout.
func replaceJobAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}

	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			return slog.String(KeyTimestamp, t.UTC().Format(time.RFC3339Nano))
		}
		a.Key = KeyTimestamp
	case slog.LevelKey:
		return slog.String(KeyLevel, strings.ToLower(a.Value.String()))
	case slog.MessageKey:
		a.Key = KeyMessage
	}
	return a
}
