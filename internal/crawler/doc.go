// Package crawler drives a single-site crawl from one seed URL.
//
// # Architecture
//
// The Crawler orchestrates one run. It owns a Frontier (the FIFO queue of
// pending URLs plus the visited set), asks a fetch.Strategy for each page,
// hands the page to an extraction pipeline and collects the resulting
// records in an Aggregator. Nothing in this package is shared between runs.
//
// Design decision: The run is strictly sequential. Exactly one page is in
// flight at any time, so pages are recorded in discovery order and the
// Frontier needs no locking. Parallel fetching would change the observable
// visit order and the request pattern seen by the target host.
//
// # Components
//
//   - Normalize and Scope: turn raw hrefs into absolute URLs on the seed host
//   - PathFilter: optional ignore/follow glob patterns on URL paths
//   - Frontier: breadth-first queue with deduplication
//   - Politeness: randomized delay between page fetches
//   - Aggregator: accumulates records and builds the CrawlReport
//   - Crawler: the Idle, Running, Draining, Done state machine
//
// # Usage
//
//	c := crawler.New(job, strategy, extract.NewPipeline(job.ContentTypes()),
//		crawler.WithLogger(logger))
//	report := c.Run(ctx)
//
// # Termination
//
// Only links whose host equals the seed host are enqueued and every URL is
// visited at most once, so the queue is finite. The loop also stops as soon
// as the page budget is reached. Fetch failures skip the page; only a
// session failure or context cancellation ends the run early.
package crawler
