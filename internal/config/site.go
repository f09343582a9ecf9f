package config

import "maps"

// SiteConfig holds site-specific request and politeness settings.
// It lets an operator crawl a site that needs a session cookie, extra
// headers, or a gentler pace without touching the environment contract.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with every request to the site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers included in requests to the site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are path globs that are never enqueued.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict enqueuing to matching path globs when non-empty.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// Delay overrides the pause between page fetches.
	Delay *DelayRange `yaml:"delay,omitempty"`

	// ReadDelay overrides the browser's simulated reading pause.
	ReadDelay *DelayRange `yaml:"readDelay,omitempty"`
}

// File represents the structure of the sitecrawl YAML configuration file.
type File struct {
	// Sites maps hostnames to their site-specific configurations.
	// Keys are bare hostnames without scheme or port (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains site configuration applied to every site
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the defaults overlaid with the section for host.
// Headers merge key by key; every other non-empty site field replaces the
// default. The returned value shares no maps with cf.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	merged := cf.Defaults
	merged.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.Sites[SiteKey(host)]
	if !ok {
		return merged
	}

	if site.Cookie != "" {
		merged.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if merged.Headers == nil {
			merged.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(merged.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		merged.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		merged.FollowPatterns = site.FollowPatterns
	}
	if site.Delay != nil {
		merged.Delay = site.Delay
	}
	if site.ReadDelay != nil {
		merged.ReadDelay = site.ReadDelay
	}
	return merged
}

// ApplySite stores the site settings in the config and applies its
// delay overrides.
func (c *Config) ApplySite(site SiteConfig) {
	c.Site = site
	if site.Delay != nil {
		c.PageDelay = *site.Delay
	}
	if site.ReadDelay != nil {
		c.ReadDelay = *site.ReadDelay
	}
}
