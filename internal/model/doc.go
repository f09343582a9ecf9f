// Package model defines the data structures shared across sitecrawl.
//
// It contains the immutable crawl input (CrawlJob), the per-page extraction
// result (PageRecord) with its descriptor types, and the final aggregate
// (CrawlReport). These types carry no behavior beyond small helpers and JSON
// encoding; crawling, fetching and extraction live in their own packages.
//
// The JSON layout of PageRecord and CrawlReport is a compatibility contract
// with downstream log parsers and callback receivers, so field names are
// fixed and a section only appears when its extractor was enabled.
package model
