package extract

import (
	"encoding/json"
	"net/url"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Extractor fills the section of a PageRecord that belongs to one content
// type. Implementations must not modify the Document.
type Extractor interface {
	// Type returns the content type this extractor serves.
	Type() model.ContentType

	// Extract writes its section into rec.
	Extract(doc *Document, rec *model.PageRecord) error
}

// MinImageWidth is the width an image must exceed to be reported.
// Images whose width is unknown are kept.
const MinImageWidth = 50

// Defaults returns one extractor per content type, in report order.
func Defaults() []Extractor {
	return []Extractor{
		TextExtractor{},
		ImageExtractor{},
		CodeExtractor{},
		LinkExtractor{},
		StructuredDataExtractor{},
		TableExtractor{},
		MediaExtractor{},
		FileExtractor{},
	}
}

// TextExtractor collects the visible text of the page.
//
// Design decision: When the browser strategy produced a rendered snapshot
// the live-DOM text is used, since it reflects client-side rendering.
// Otherwise the parsed tree is walked with boilerplate containers skipped.
type TextExtractor struct{}

// Type implements Extractor.
func (TextExtractor) Type() model.ContentType { return model.ContentText }

// Extract implements Extractor.
func (TextExtractor) Extract(doc *Document, rec *model.PageRecord) error {
	var text string
	if doc.Rendered != nil && doc.Rendered.Text != "" {
		text = normalizeLines(doc.Rendered.Text)
	} else {
		text = visibleText(doc.Query.Selection.Nodes)
	}

	rec.Text = &model.TextSection{
		Text:   truncateRunes(text, model.MaxTextRunes),
		Length: utf8.RuneCountInString(text),
	}
	return nil
}

// skippedText lists elements whose text is never visible content.
var skippedText = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Template: true,
	atom.Head:     true,
}

// visibleText joins the non-empty text nodes under roots, one per line.
func visibleText(roots []*html.Node) string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedText[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			if s := cleanText(n.Data); s != "" {
				lines = append(lines, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return strings.Join(lines, "\n")
}

// normalizeLines collapses whitespace inside each line and drops blank lines.
func normalizeLines(s string) string {
	var lines []string
	for line := range strings.SplitSeq(s, "\n") {
		if line = cleanText(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// ImageExtractor collects <img> elements with a resolvable source.
type ImageExtractor struct{}

// Type implements Extractor.
func (ImageExtractor) Type() model.ContentType { return model.ContentImages }

// Extract implements Extractor.
func (ImageExtractor) Extract(doc *Document, rec *model.PageRecord) error {
	var images []model.Image
	if doc.Rendered != nil && len(doc.Rendered.Images) > 0 {
		for _, img := range doc.Rendered.Images {
			src, ok := doc.Resolve(img.Src)
			// The live DOM knows the natural width; 0 means broken or not loaded.
			if !ok || img.Width <= MinImageWidth {
				continue
			}
			images = append(images, model.Image{Src: src, Alt: img.Alt, Width: img.Width, Height: img.Height})
		}
	} else {
		doc.Query.Find("img").Each(func(_ int, s *goquery.Selection) {
			src, ok := doc.Resolve(s.AttrOr("src", ""))
			if !ok {
				return
			}
			width := dimension(s.AttrOr("width", ""))
			if !wideEnough(width) {
				return
			}
			images = append(images, model.Image{
				Src:    src,
				Alt:    strings.TrimSpace(s.AttrOr("alt", "")),
				Width:  width,
				Height: dimension(s.AttrOr("height", "")),
			})
		})
	}

	rec.Images = model.NewSection(images, model.MaxImages)
	return nil
}

// wideEnough reports whether an image with the given width attribute is
// reported. A missing attribute (0) is unknown and passes.
func wideEnough(width int) bool {
	return width == 0 || width > MinImageWidth
}

// dimension parses a width or height attribute such as "120" or "120px".
// It returns 0 when the value is missing or not a pixel count.
func dimension(raw string) int {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "px")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// CodeExtractor collects pre, code and highlight-marked blocks.
type CodeExtractor struct{}

// codeSelector matches the elements treated as code.
const codeSelector = "pre, code, .highlight, .code-block"

// minCodeRunes is the trimmed length a block must exceed.
const minCodeRunes = 10

// Type implements Extractor.
func (CodeExtractor) Type() model.ContentType { return model.ContentCode }

// Extract implements Extractor.
func (CodeExtractor) Extract(doc *Document, rec *model.PageRecord) error {
	var blocks []model.CodeBlock
	doc.Query.Find(codeSelector).Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(content) <= minCodeRunes {
			return
		}
		language := strings.TrimSpace(s.AttrOr("class", ""))
		if language == "" {
			language = "unknown"
		}
		blocks = append(blocks, model.CodeBlock{
			Tag:      goquery.NodeName(s),
			Language: language,
			Content:  truncateRunes(content, model.MaxCodeRunes),
		})
	})

	rec.Code = model.NewSection(blocks, model.MaxCodeBlocks)
	return nil
}

// LinkExtractor reports anchors with an absolute http(s) target.
type LinkExtractor struct{}

// Type implements Extractor.
func (LinkExtractor) Type() model.ContentType { return model.ContentLinks }

// Extract implements Extractor.
func (LinkExtractor) Extract(doc *Document, rec *model.PageRecord) error {
	var links []model.Link
	doc.Query.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := doc.Resolve(s.AttrOr("href", ""))
		if !ok {
			return
		}
		links = append(links, model.Link{
			Href: href,
			Text: truncateRunes(cleanText(s.Text()), model.MaxLinkTextRunes),
		})
	})

	rec.Links = model.NewSection(links, model.MaxLinks)
	return nil
}

// StructuredDataExtractor parses application/ld+json script blocks.
// Malformed blocks are skipped; they never fail the extractor.
type StructuredDataExtractor struct{}

// Type implements Extractor.
func (StructuredDataExtractor) Type() model.ContentType { return model.ContentJSON }

// Extract implements Extractor.
func (StructuredDataExtractor) Extract(doc *Document, rec *model.PageRecord) error {
	var blocks []any
	doc.Query.Find("script[type]").Each(func(_ int, s *goquery.Selection) {
		if !isLDJSON(s.AttrOr("type", "")) {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		blocks = append(blocks, v)
	})

	rec.StructuredData = model.NewSection(blocks, -1)
	return nil
}

func isLDJSON(scriptType string) bool {
	return strings.EqualFold(strings.TrimSpace(scriptType), "application/ld+json")
}

// TableExtractor collects header and body cells of each table.
type TableExtractor struct{}

// Type implements Extractor.
func (TableExtractor) Type() model.ContentType { return model.ContentTables }

// Extract implements Extractor.
func (TableExtractor) Extract(doc *Document, rec *model.PageRecord) error {
	tables := doc.Query.Find("table")
	count := tables.Length()

	sample := make([]model.Table, 0, min(count, model.MaxTables))
	tables.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= model.MaxTables {
			return false
		}
		sample = append(sample, readTable(s))
		return true
	})

	rec.Tables = &model.Section[model.Table]{Items: sample, Count: count}
	return nil
}

// readTable reads the th cells as headers and every row with td cells as
// a body row, keeping at most MaxTableRows rows.
func readTable(s *goquery.Selection) model.Table {
	table := model.Table{Headers: []string{}, Rows: [][]string{}}
	s.Find("th").Each(func(_ int, th *goquery.Selection) {
		table.Headers = append(table.Headers, cleanText(th.Text()))
	})
	s.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if len(table.Rows) >= model.MaxTableRows {
			return false
		}
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return true
		}
		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			row = append(row, cleanText(td.Text()))
		})
		table.Rows = append(table.Rows, row)
		return true
	})
	return table
}

// MediaExtractor collects video and audio elements plus iframes that embed
// a known video-sharing host.
type MediaExtractor struct{}

// embedHosts are the video-sharing hosts recognized in iframes.
var embedHosts = []string{
	"youtube.com",
	"youtube-nocookie.com",
	"youtu.be",
	"vimeo.com",
	"dailymotion.com",
}

// Type implements Extractor.
func (MediaExtractor) Type() model.ContentType { return model.ContentMedia }

// Extract implements Extractor.
func (MediaExtractor) Extract(doc *Document, rec *model.PageRecord) error {
	var media []model.Media
	doc.Query.Find("video, audio, iframe").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if tag == "iframe" {
			src, ok := doc.Resolve(s.AttrOr("src", ""))
			if !ok || !isEmbedHost(src) {
				return
			}
			media = append(media, model.Media{Type: tag, Src: src})
			return
		}

		raw := s.AttrOr("src", "")
		if raw == "" {
			raw = s.Find("source[src]").First().AttrOr("src", "")
		}
		item := model.Media{Type: tag, Src: resolveOrRaw(doc, raw)}
		if poster := s.AttrOr("poster", ""); poster != "" {
			item.Poster = resolveOrRaw(doc, poster)
		}
		media = append(media, item)
	})

	rec.Media = model.NewSection(media, model.MaxMedia)
	return nil
}

func isEmbedHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range embedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func resolveOrRaw(doc *Document, raw string) string {
	if abs, ok := doc.Resolve(raw); ok {
		return abs
	}
	return strings.TrimSpace(raw)
}

// FileExtractor collects links to downloadable documents and archives.
type FileExtractor struct{}

// fileExtensions are the recognized download extensions.
var fileExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".zip":  true,
	".rar":  true,
	".csv":  true,
}

// Type implements Extractor.
func (FileExtractor) Type() model.ContentType { return model.ContentFiles }

// Extract implements Extractor.
func (FileExtractor) Extract(doc *Document, rec *model.PageRecord) error {
	var files []model.File
	doc.Query.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := doc.Resolve(s.AttrOr("href", ""))
		if !ok || !isDownload(href) {
			return
		}
		files = append(files, model.File{
			Href: href,
			Text: truncateRunes(cleanText(s.Text()), model.MaxLinkTextRunes),
		})
	})

	rec.Files = model.NewSection(files, model.MaxFiles)
	return nil
}

// isDownload reports whether the URL path ends in a known file extension.
func isDownload(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return fileExtensions[strings.ToLower(path.Ext(u.Path))]
}
