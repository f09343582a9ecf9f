// Package database provides SQLite-based storage for finished crawl reports.
//
// The archive is a write-mostly history of CrawlReports, one row per run.
// The crawl itself never reads it: visited-URL tracking lives in memory for
// the duration of a single run, and the archive is only filled by the
// delivery pipeline after the report exists.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external service - the archive is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets a reader inspect the archive while a run writes to it
//
// Each row keeps a few summary columns for listing next to the complete
// report JSON, so the history can be browsed without decoding every report.
package database
