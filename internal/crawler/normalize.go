package crawler

import (
	"net/url"
	"strings"
)

// rejectedPrefixes are href prefixes that never lead to a crawlable page.
var rejectedPrefixes = []string{
	"#",
	"javascript:",
	"mailto:",
	"tel:",
	"data:",
}

// Normalize resolves href against base and returns the absolute URL without
// its fragment. It reports false for empty hrefs, non-navigable schemes and
// anything that does not resolve to http or https.
//
// Normalize is idempotent: normalizing its own output returns it unchanged.
func Normalize(href string, base *url.URL) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, prefix := range rejectedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}

	u.Host = strings.ToLower(u.Host)
	dropDefaultPort(u)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), true
}

// defaultPorts are the ports a URL may omit without changing its meaning.
var defaultPorts = map[string]string{"http": "80", "https": "443"}

// dropDefaultPort removes an explicit default port so that
// "https://example.com:443/" and "https://example.com/" compare equal.
func dropDefaultPort(u *url.URL) {
	if port := u.Port(); port != "" && defaultPorts[u.Scheme] == port {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}
}

// Scope decides whether a URL belongs to the crawled site.
//
// Design decision: Only the host name is compared. Scheme and port are
// ignored so http and https variants of the site count as one, while
// subdomains are out of scope unless identical to the seed host.
type Scope struct {
	host string
}

// NewScope returns the scope of the given seed URL.
func NewScope(seed *url.URL) Scope {
	return Scope{host: strings.ToLower(seed.Hostname())}
}

// Contains reports whether rawURL is on the seed host.
func (s Scope) Contains(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), s.host)
}

// Host returns the host the scope is bound to.
func (s Scope) Host() string {
	return s.host
}
