// Package pipeline provides a framework for delivering a finished crawl
// report to its sinks.
//
// Once the crawl produces its CrawlReport, the report is handed to a
// sequence of steps: report files, the SQLite archive, the HTTP callback
// and, last, the sentinel block on stdout that downstream log parsers wait
// for. Each sink is a Step; independent sinks can be wrapped in a Group to
// run concurrently.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of sinks without modifying the CLI
// 2. It provides consistent error handling and logging across sinks
// 3. It supports cancellation via context for slow sinks such as the callback
//
// Steps receive the report read-only. A failing sink is logged and never
// changes the report, so the status a receiver sees does not depend on
// which other sinks succeeded.
package pipeline
