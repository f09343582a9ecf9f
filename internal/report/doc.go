// Package report delivers a finished CrawlReport.
//
// This package contains writers for different output formats:
//   - SentinelWriter: the results sentinel line followed by compact JSON,
//     the stdout contract for log-parsing consumers
//   - JSONWriter: structured JSON for files and tool integration
//   - MarkdownWriter: a crawl summary for humans
//   - SimpleWriter: a short plain-text summary for terminals
//
// and the CallbackSender, which POSTs the report to an HTTP endpoint.
//
// Design decision: Report data structures live in the model package and
// delivery lives here. Writers never modify the report, so the same value
// can be handed to every sink in any order.
package report
