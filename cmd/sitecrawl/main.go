// Package main provides the entry point for the sitecrawl CLI.
//
// sitecrawl crawls a single website from a seed URL, stays on the seed's
// host, and extracts structured content from every visited page. The run
// is configured through environment variables so it can be started by a
// job runner; progress is streamed as JSON log lines on stdout and the
// final report follows the ---SCRAPER_RESULTS--- sentinel line.
//
// Usage:
//
//	TARGET_URL=https://example.com sitecrawl
//	TARGET_URL=https://example.com EXTRACTION_MODE=full MAX_PAGES=20 sitecrawl crawl
//	sitecrawl history
//
// See --help for all available options.
package main

// main is the entry point for sitecrawl.
func main() {
	Execute()
}
