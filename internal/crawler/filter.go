package crawler

import (
	"net/url"
	"path"
	"strings"
)

// PathFilter restricts which in-scope URLs are enqueued based on glob
// patterns matched against the URL path. The zero value allows everything.
type PathFilter struct {
	// ignore are patterns whose matches are never crawled.
	ignore []string

	// follow, when non-empty, limits crawling to paths matching one of them.
	follow []string
}

// NewPathFilter creates a filter from ignore and follow patterns.
// Patterns use glob syntax, e.g. "/admin/*", "*.pdf" or "/api/v?".
func NewPathFilter(ignore, follow []string) *PathFilter {
	return &PathFilter{ignore: ignore, follow: follow}
}

// Allow reports whether rawURL passes the filter.
//
// Logic:
//  1. A path matching any ignore pattern is rejected, even if it also
//     matches a follow pattern.
//  2. With follow patterns set, a path must match at least one of them.
func (f *PathFilter) Allow(rawURL string) bool {
	if f == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range f.ignore {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(f.follow) == 0 {
		return true
	}
	for _, pattern := range f.follow {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern checks if a URL path matches a glob pattern.
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - other patterns use path.Match, and a pattern without a slash is
//     also tried against the last path segment
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[") {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}

	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}
	if strings.ContainsAny(pattern, "*?[") && !strings.Contains(pattern, "/") {
		matched, err := path.Match(pattern, path.Base(p))
		return err == nil && matched
	}
	return false
}
