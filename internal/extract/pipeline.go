package extract

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitecrawl/internal/fetch"
	"github.com/nao1215/sitecrawl/internal/model"
)

// Pipeline runs the enabled extractors against one page at a time.
type Pipeline struct {
	extractors []Extractor
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for extractor warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithExtractors replaces the default extractor set. Extractors whose
// content type is disabled are still skipped.
func WithExtractors(extractors ...Extractor) Option {
	return func(p *Pipeline) {
		p.extractors = extractors
	}
}

// WithClock sets the clock used for ExtractedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline creates a pipeline that runs the extractors enabled in types.
func NewPipeline(types model.ContentTypes, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractors: Defaults(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	enabled := make([]Extractor, 0, len(p.extractors))
	for _, e := range p.extractors {
		if types.Enabled(e.Type()) {
			enabled = append(enabled, e)
		}
	}
	p.extractors = enabled
	return p
}

// Extract builds the record for page and returns the raw hrefs found on it.
// An error is returned only when the page cannot be parsed at all; extractor
// failures leave an empty section and are logged.
func (p *Pipeline) Extract(page *fetch.Page) (*model.PageRecord, []string, error) {
	doc, err := NewDocument(page)
	if err != nil {
		return nil, nil, err
	}

	rec := &model.PageRecord{
		URL:         page.URL,
		Title:       doc.Title(),
		ExtractedAt: p.now().UTC(),
	}
	for _, e := range p.extractors {
		if err := runExtractor(e, doc, rec); err != nil {
			rec.SetEmpty(e.Type())
			p.logger.Warn("extractor failed",
				"url", page.URL,
				"content_type", string(e.Type()),
				"error", err)
		}
	}
	return rec, doc.OutboundLinks(), nil
}

// runExtractor calls e and converts a panic into an error.
func runExtractor(e Extractor, doc *Document, rec *model.PageRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor %s panicked: %v", e.Type(), r)
		}
	}()
	return e.Extract(doc, rec)
}
