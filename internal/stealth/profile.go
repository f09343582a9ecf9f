package stealth

import (
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// UserAgents is the pool of desktop browser identities a run picks from.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

// Accept is the Accept header sent by the plain-HTTP strategy.
const Accept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

// Viewport is the emulated screen size.
type Viewport struct {
	Width       int
	Height      int
	ScaleFactor float64
}

// Geolocation is the emulated device position.
type Geolocation struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Profile is the fingerprint bundle for one crawl run.
type Profile struct {
	// UserAgent is the User-Agent header and navigator.userAgent value.
	UserAgent string

	// Platform is navigator.platform, derived from UserAgent.
	Platform string

	// Viewport is the emulated window size.
	Viewport Viewport

	// Locale is the browser locale.
	Locale string

	// Languages is navigator.languages, most preferred first.
	Languages []string

	// Timezone is an IANA zone name.
	Timezone string

	// Geolocation is reported to pages that ask for it.
	Geolocation Geolocation

	// HardwareConcurrency is navigator.hardwareConcurrency.
	HardwareConcurrency int

	// DeviceMemory is navigator.deviceMemory in GiB.
	DeviceMemory int

	// WebGLVendor and WebGLRenderer are the unmasked WebGL identity strings.
	WebGLVendor   string
	WebGLRenderer string

	// NoiseSeed seeds the canvas and audio perturbation so the noise is
	// stable for the whole run but differs between runs.
	NoiseSeed uint32
}

// NewProfile returns the standard profile for the given user agent.
func NewProfile(userAgent string) Profile {
	return Profile{
		UserAgent: userAgent,
		Platform:  PlatformFor(userAgent),
		Viewport: Viewport{
			Width:       1920,
			Height:      1080,
			ScaleFactor: 1,
		},
		Locale:    "en-US",
		Languages: []string{"en-US", "en", "pt-BR"},
		Timezone:  "America/New_York",
		Geolocation: Geolocation{
			Latitude:  40.7128,
			Longitude: -74.0060,
			Accuracy:  100,
		},
		HardwareConcurrency: 8,
		DeviceMemory:        8,
		WebGLVendor:         "Intel Inc.",
		WebGLRenderer:       "Intel Iris OpenGL Engine",
	}
}

// RandomProfile picks a user agent from UserAgents and a noise seed using
// rng. A nil rng uses the global source.
func RandomProfile(rng *rand.Rand) Profile {
	return randomProfile(UserAgents, rng)
}

// RandomBrowserProfile is RandomProfile restricted to Chromium-family user
// agents. The browser strategy drives Chromium, so claiming Firefox or
// Safari there would contradict the engine the page can observe.
func RandomBrowserProfile(rng *rand.Rand) Profile {
	return randomProfile(ChromiumUserAgents(), rng)
}

func randomProfile(pool []string, rng *rand.Rand) Profile {
	var (
		idx  int
		seed uint32
	)
	if rng == nil {
		idx = rand.IntN(len(pool)) //nolint:gosec // fingerprint choice, not security sensitive
		seed = rand.Uint32()       //nolint:gosec // fingerprint noise, not security sensitive
	} else {
		idx = rng.IntN(len(pool))
		seed = rng.Uint32()
	}

	p := NewProfile(pool[idx])
	p.NoiseSeed = seed
	return p
}

// ChromiumUserAgents returns the members of UserAgents that identify a
// Chromium-based browser.
func ChromiumUserAgents() []string {
	var out []string
	for _, ua := range UserAgents {
		if IsChromium(ua) {
			out = append(out, ua)
		}
	}
	return out
}

// IsChromium reports whether userAgent names a Chromium-based browser
// (Chrome, Edge). Safari also carries "Safari/" but never "Chrome/".
func IsChromium(userAgent string) bool {
	return strings.Contains(userAgent, "Chrome/") && !strings.Contains(userAgent, "Firefox/")
}

// Chromium reports whether the profile's user agent is Chromium-based.
// Chrome-only script overrides are applied only in that case.
func (p Profile) Chromium() bool {
	return IsChromium(p.UserAgent)
}

// PlatformFor derives navigator.platform from a user agent so that the
// platform never contradicts the operating system named in the user agent.
func PlatformFor(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Windows"):
		return "Win32"
	case strings.Contains(userAgent, "Macintosh"), strings.Contains(userAgent, "Mac OS X"):
		return "MacIntel"
	case strings.Contains(userAgent, "Linux"):
		return "Linux x86_64"
	default:
		return "Win32"
	}
}

// AcceptLanguage formats Languages as an Accept-Language header value with
// descending quality weights, e.g. "en-US,en;q=0.9,pt-BR;q=0.8".
// Tags that do not parse are skipped.
func (p Profile) AcceptLanguage() string {
	parts := make([]string, 0, len(p.Languages))
	q := 9
	for _, raw := range p.Languages {
		tag, err := language.Parse(raw)
		if err != nil {
			continue
		}
		if len(parts) == 0 {
			parts = append(parts, tag.String())
		} else {
			parts = append(parts, tag.String()+";q=0."+strconv.Itoa(q))
		}
		if len(parts) > 1 && q > 1 {
			q--
		}
	}
	if len(parts) == 0 {
		return "en-US,en;q=0.9"
	}
	return strings.Join(parts, ",")
}

// RequestHeaders returns the browser-like header set sent by the plain-HTTP
// strategy.
func (p Profile) RequestHeaders() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", p.UserAgent)
	h.Set("Accept", Accept)
	h.Set("Accept-Language", p.AcceptLanguage())
	h.Set("DNT", "1")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}
