package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Sample caps applied by the extraction pipeline.
// Counts in a PageRecord are always the true totals; only the returned
// samples are cut to these sizes (as a prefix in document order).
const (
	// MaxTextRunes is the number of characters of visible text kept in a record.
	MaxTextRunes = 100_000

	// MaxImages is the image sample size.
	MaxImages = 100

	// MaxCodeBlocks is the code block sample size.
	MaxCodeBlocks = 50

	// MaxCodeRunes caps the content of each code block.
	MaxCodeRunes = 5_000

	// MaxLinks is the link sample size.
	MaxLinks = 500

	// MaxLinkTextRunes caps the anchor text stored with each link.
	MaxLinkTextRunes = 100

	// MaxTables is the table sample size.
	MaxTables = 20

	// MaxTableRows caps the rows kept for each sampled table.
	MaxTableRows = 100

	// MaxMedia is the embedded media sample size.
	MaxMedia = 50

	// MaxFiles is the downloadable file sample size.
	MaxFiles = 100
)

// Image describes an <img> element.
type Image struct {
	// Src is the absolute image URL.
	Src string `json:"src"`

	// Alt is the alt text.
	Alt string `json:"alt"`

	// Width is the rendered (natural) width in pixels when a live DOM was
	// available, otherwise the declared width attribute. Zero when unknown.
	Width int `json:"width"`

	// Height follows the same rules as Width.
	Height int `json:"height"`
}

// CodeBlock describes a pre, code or highlight-marked element.
type CodeBlock struct {
	// Tag is the lowercase element name.
	Tag string `json:"tag"`

	// Language is the element's class attribute, or "unknown".
	Language string `json:"language"`

	// Content is the trimmed text, capped at MaxCodeRunes characters.
	Content string `json:"content"`
}

// Link describes an anchor with an absolute http(s) target.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Table holds the header and body cells of one <table>.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Media describes an embedded video, audio or video-sharing iframe.
type Media struct {
	// Type is the element name: video, audio or iframe.
	Type string `json:"type"`

	// Src is the media source; for video/audio without a src attribute the
	// first <source> child is used.
	Src string `json:"src"`

	// Poster is the poster image of a video, if any.
	Poster string `json:"poster,omitempty"`
}

// File describes a link to a downloadable document or archive.
type File struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Section is the result of one extractor: a capped sample plus the true count.
type Section[T any] struct {
	Items []T
	Count int
}

// NewSection builds a Section from the full match list, keeping the first
// limit items. A negative limit keeps everything.
func NewSection[T any](all []T, limit int) *Section[T] {
	count := len(all)
	if limit >= 0 && count > limit {
		all = all[:limit]
	}
	items := make([]T, len(all))
	copy(items, all)
	return &Section[T]{Items: items, Count: count}
}

// EmptySection returns a section with no items and a zero count.
func EmptySection[T any]() *Section[T] {
	return &Section[T]{Items: make([]T, 0)}
}

// TextSection holds the visible text of a page.
type TextSection struct {
	// Text is the first MaxTextRunes characters.
	Text string

	// Length is the full length in characters.
	Length int
}

// PageRecord is the extraction result for one successfully fetched page.
// A section pointer is nil when its extractor was disabled; it is non-nil
// (possibly empty) when the extractor ran, even if the extractor failed.
type PageRecord struct {
	URL         string
	Title       string
	ExtractedAt time.Time

	Text           *TextSection
	Images         *Section[Image]
	Code           *Section[CodeBlock]
	Links          *Section[Link]
	StructuredData *Section[any]
	Tables         *Section[Table]
	Media          *Section[Media]
	Files          *Section[File]
}

// SetEmpty replaces the section for ct with an empty one.
// The pipeline uses this when an extractor fails.
func (p *PageRecord) SetEmpty(ct ContentType) {
	switch ct {
	case ContentText:
		p.Text = &TextSection{}
	case ContentImages:
		p.Images = EmptySection[Image]()
	case ContentCode:
		p.Code = EmptySection[CodeBlock]()
	case ContentLinks:
		p.Links = EmptySection[Link]()
	case ContentJSON:
		p.StructuredData = EmptySection[any]()
	case ContentTables:
		p.Tables = EmptySection[Table]()
	case ContentMedia:
		p.Media = EmptySection[Media]()
	case ContentFiles:
		p.Files = EmptySection[File]()
	}
}

// Count returns the true item count of the section for ct. For text it is
// the full length in characters. It reports false when the section is nil,
// i.e. the extractor for ct did not run.
func (p *PageRecord) Count(ct ContentType) (int, bool) {
	switch ct {
	case ContentText:
		if p.Text == nil {
			return 0, false
		}
		return p.Text.Length, true
	case ContentImages:
		return sectionCount(p.Images)
	case ContentCode:
		return sectionCount(p.Code)
	case ContentLinks:
		return sectionCount(p.Links)
	case ContentJSON:
		return sectionCount(p.StructuredData)
	case ContentTables:
		return sectionCount(p.Tables)
	case ContentMedia:
		return sectionCount(p.Media)
	case ContentFiles:
		return sectionCount(p.Files)
	default:
		return 0, false
	}
}

func sectionCount[T any](s *Section[T]) (int, bool) {
	if s == nil {
		return 0, false
	}
	return s.Count, true
}

// pageRecordJSON is the wire layout of a PageRecord. Every optional field is
// a pointer so that an enabled-but-empty section still encodes as [] or 0
// while a disabled one is omitted.
type pageRecordJSON struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	ExtractedAt string `json:"extracted_at"`

	Text       *string `json:"text,omitempty"`
	TextLength *int    `json:"text_length,omitempty"`

	Images      *[]Image `json:"images,omitempty"`
	ImagesCount *int     `json:"images_count,omitempty"`

	CodeBlocks *[]CodeBlock `json:"code_blocks,omitempty"`
	CodeCount  *int         `json:"code_count,omitempty"`

	Links      *[]Link `json:"links,omitempty"`
	LinksCount *int    `json:"links_count,omitempty"`

	JSONLD    *[]any `json:"json_ld,omitempty"`
	JSONCount *int   `json:"json_count,omitempty"`

	Tables      *[]Table `json:"tables,omitempty"`
	TablesCount *int     `json:"tables_count,omitempty"`

	Media      *[]Media `json:"media,omitempty"`
	MediaCount *int     `json:"media_count,omitempty"`

	Files      *[]File `json:"files,omitempty"`
	FilesCount *int    `json:"files_count,omitempty"`
}

// sectionPointers returns wire pointers for a section, or nils when absent.
func sectionPointers[T any](s *Section[T]) (*[]T, *int) {
	if s == nil {
		return nil, nil
	}
	items := s.Items
	if items == nil {
		items = make([]T, 0)
	}
	count := s.Count
	return &items, &count
}

// sectionFromPointers is the inverse of sectionPointers.
func sectionFromPointers[T any](items *[]T, count *int) *Section[T] {
	if items == nil && count == nil {
		return nil
	}
	s := EmptySection[T]()
	if items != nil {
		s.Items = *items
	}
	if count != nil {
		s.Count = *count
	}
	return s
}

// MarshalJSON encodes the record in its flat wire layout.
func (p PageRecord) MarshalJSON() ([]byte, error) {
	w := pageRecordJSON{
		URL:         p.URL,
		Title:       p.Title,
		ExtractedAt: p.ExtractedAt.Format(time.RFC3339Nano),
	}
	if p.Text != nil {
		text, length := p.Text.Text, p.Text.Length
		w.Text, w.TextLength = &text, &length
	}
	w.Images, w.ImagesCount = sectionPointers(p.Images)
	w.CodeBlocks, w.CodeCount = sectionPointers(p.Code)
	w.Links, w.LinksCount = sectionPointers(p.Links)
	w.JSONLD, w.JSONCount = sectionPointers(p.StructuredData)
	w.Tables, w.TablesCount = sectionPointers(p.Tables)
	w.Media, w.MediaCount = sectionPointers(p.Media)
	w.Files, w.FilesCount = sectionPointers(p.Files)

	// Escaping is left to the outer encoder so writers can keep markup raw.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes the flat wire layout produced by MarshalJSON.
func (p *PageRecord) UnmarshalJSON(data []byte) error {
	var w pageRecordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*p = PageRecord{URL: w.URL, Title: w.Title}
	if w.ExtractedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, w.ExtractedAt)
		if err != nil {
			return err
		}
		p.ExtractedAt = ts
	}
	if w.Text != nil || w.TextLength != nil {
		p.Text = &TextSection{}
		if w.Text != nil {
			p.Text.Text = *w.Text
		}
		if w.TextLength != nil {
			p.Text.Length = *w.TextLength
		}
	}
	p.Images = sectionFromPointers(w.Images, w.ImagesCount)
	p.Code = sectionFromPointers(w.CodeBlocks, w.CodeCount)
	p.Links = sectionFromPointers(w.Links, w.LinksCount)
	p.StructuredData = sectionFromPointers(w.JSONLD, w.JSONCount)
	p.Tables = sectionFromPointers(w.Tables, w.TablesCount)
	p.Media = sectionFromPointers(w.Media, w.MediaCount)
	p.Files = sectionFromPointers(w.Files, w.FilesCount)
	return nil
}
