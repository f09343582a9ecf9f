package model

import (
	"net/url"
)

// Mode selects how far the crawl goes beyond the seed page.
type Mode string

const (
	// ModeSingle fetches only the seed page.
	ModeSingle Mode = "single"

	// ModeFull performs a breadth-first crawl of the seed's host up to the page budget.
	ModeFull Mode = "full"
)

// Valid reports whether m is a known traversal mode.
func (m Mode) Valid() bool {
	return m == ModeSingle || m == ModeFull
}

// ContentType names one extractor of the content extraction pipeline.
// The set is closed; unknown names are rejected at configuration load time.
type ContentType string

// Known content types. The string values are the keys accepted in the
// CONTENT_TYPES configuration object.
const (
	ContentText   ContentType = "text"
	ContentImages ContentType = "images"
	ContentCode   ContentType = "code"
	ContentLinks  ContentType = "links"
	ContentJSON   ContentType = "json"
	ContentTables ContentType = "tables"
	ContentMedia  ContentType = "media"
	ContentFiles  ContentType = "files"
)

// AllContentTypes lists every content type in pipeline order.
var AllContentTypes = []ContentType{
	ContentText,
	ContentImages,
	ContentCode,
	ContentLinks,
	ContentJSON,
	ContentTables,
	ContentMedia,
	ContentFiles,
}

// ContentTypes is the fixed set of extractor toggles for a crawl.
//
// Design decision: We use one named boolean per extractor instead of a
// free-form map so that typos in configuration are caught when the job is
// created rather than silently disabling an extractor.
type ContentTypes struct {
	Text   bool `json:"text" yaml:"text"`
	Images bool `json:"images" yaml:"images"`
	Code   bool `json:"code" yaml:"code"`
	Links  bool `json:"links" yaml:"links"`
	JSON   bool `json:"json" yaml:"json"`
	Tables bool `json:"tables" yaml:"tables"`
	Media  bool `json:"media" yaml:"media"`
	Files  bool `json:"files" yaml:"files"`
}

// DefaultContentTypes returns the built-in toggles: everything enabled
// except link and file reporting.
func DefaultContentTypes() ContentTypes {
	return ContentTypes{
		Text:   true,
		Images: true,
		Code:   true,
		Links:  false,
		JSON:   true,
		Tables: true,
		Media:  true,
		Files:  false,
	}
}

// Enabled reports whether the extractor for ct is switched on.
func (c ContentTypes) Enabled(ct ContentType) bool {
	switch ct {
	case ContentText:
		return c.Text
	case ContentImages:
		return c.Images
	case ContentCode:
		return c.Code
	case ContentLinks:
		return c.Links
	case ContentJSON:
		return c.JSON
	case ContentTables:
		return c.Tables
	case ContentMedia:
		return c.Media
	case ContentFiles:
		return c.Files
	default:
		return false
	}
}

// Set switches the extractor for ct on or off. Unknown types are ignored.
func (c *ContentTypes) Set(ct ContentType, enabled bool) {
	switch ct {
	case ContentText:
		c.Text = enabled
	case ContentImages:
		c.Images = enabled
	case ContentCode:
		c.Code = enabled
	case ContentLinks:
		c.Links = enabled
	case ContentJSON:
		c.JSON = enabled
	case ContentTables:
		c.Tables = enabled
	case ContentMedia:
		c.Media = enabled
	case ContentFiles:
		c.Files = enabled
	}
}

// EnabledTypes returns the enabled content types in pipeline order.
func (c ContentTypes) EnabledTypes() []ContentType {
	enabled := make([]ContentType, 0, len(AllContentTypes))
	for _, ct := range AllContentTypes {
		if c.Enabled(ct) {
			enabled = append(enabled, ct)
		}
	}
	return enabled
}

// CrawlJob is the immutable input of one crawl run.
// It is built once from configuration and never mutated afterwards;
// accessors return copies where a field is a reference type.
type CrawlJob struct {
	seed         *url.URL
	id           string
	mode         Mode
	maxPages     int
	contentTypes ContentTypes
	callbackURL  string
}

// NewCrawlJob creates a CrawlJob. In ModeSingle the page budget is forced
// to 1 regardless of maxPages.
func NewCrawlJob(seed *url.URL, id string, mode Mode, maxPages int, types ContentTypes, callbackURL string) *CrawlJob {
	if mode == ModeSingle || maxPages < 1 {
		maxPages = 1
	}
	s := *seed
	return &CrawlJob{
		seed:         &s,
		id:           id,
		mode:         mode,
		maxPages:     maxPages,
		contentTypes: types,
		callbackURL:  callbackURL,
	}
}

// Seed returns a copy of the seed URL.
func (j *CrawlJob) Seed() *url.URL {
	s := *j.seed
	return &s
}

// ID returns the job identifier.
func (j *CrawlJob) ID() string { return j.id }

// Mode returns the traversal mode.
func (j *CrawlJob) Mode() Mode { return j.mode }

// MaxPages returns the effective page budget (1 in single mode).
func (j *CrawlJob) MaxPages() int { return j.maxPages }

// ContentTypes returns the extractor toggles.
func (j *CrawlJob) ContentTypes() ContentTypes { return j.contentTypes }

// CallbackURL returns the optional report callback target.
func (j *CrawlJob) CallbackURL() string { return j.callbackURL }
