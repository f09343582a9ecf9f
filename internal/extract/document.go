package extract

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitecrawl/internal/fetch"
)

// Document is the parsed, read-only view of a fetched page shared by all
// extractors.
type Document struct {
	// Query is the goquery document for selector-based extraction.
	Query *goquery.Document

	// Base is the URL relative references resolve against.
	Base *url.URL

	// Rendered holds live-DOM values from the browser strategy, or nil.
	Rendered *fetch.Rendering
}

// NewDocument parses the page HTML.
func NewDocument(page *fetch.Page) (*Document, error) {
	base, err := url.Parse(page.Base())
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", page.Base(), err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", page.URL, err)
	}

	return &Document{Query: doc, Base: base, Rendered: page.Rendered}, nil
}

// Title returns the trimmed <title> text.
func (d *Document) Title() string {
	return strings.TrimSpace(d.Query.Find("title").First().Text())
}

// OutboundLinks returns the raw href value of every anchor in document order.
func (d *Document) OutboundLinks() []string {
	var hrefs []string
	d.Query.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

// Resolve resolves ref against the document base and returns the absolute
// URL when it uses http or https.
func (d *Document) Resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	abs := d.Base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// cleanText trims s and collapses inner whitespace runs to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
