package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/sitecrawl/internal/model"
)

// ResultsSentinel precedes the report JSON on stdout. Consumers that parse
// the log stream take the first line after it as the report.
const ResultsSentinel = "---SCRAPER_RESULTS---"

// JSONWriter writes the report as one JSON document.
//
// Design decision: encoding/json is enough here. The report types fix their
// wire layout with struct tags and MarshalJSON, and the one knob we need,
// leaving <, > and & unescaped so captured HTML stays readable, is on
// json.Encoder.
type JSONWriter struct {
	baseWriter
	prefix string
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values with indent, each line starting with prefix.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix, w.indent = prefix, indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter. Output is compact unless an indent
// option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer. The document ends with a newline.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	data, err := encodeReport(report, w.prefix, w.indent)
	if err != nil {
		return 0, err
	}
	return w.output.Write(data)
}

// SentinelWriter writes ResultsSentinel on its own line and the compact
// report on the next.
type SentinelWriter struct {
	baseWriter
}

// NewSentinelWriter creates a SentinelWriter.
func NewSentinelWriter(output io.Writer) *SentinelWriter {
	return &SentinelWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer. Nothing is written if the report cannot be
// encoded, so a sentinel line is never left without its JSON.
func (w *SentinelWriter) Write(report *model.CrawlReport) (int, error) {
	data, err := encodeReport(report, "", "")
	if err != nil {
		return 0, err
	}
	return w.output.Write(append([]byte(ResultsSentinel+"\n"), data...))
}

// encodeReport returns the newline-terminated JSON of report.
func encodeReport(report *model.CrawlReport, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
