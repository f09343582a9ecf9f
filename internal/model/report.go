package model

import (
	"math"
	"time"
)

// Status is the overall outcome of a crawl run.
type Status string

const (
	// StatusCompleted means the crawl loop ran to its natural end.
	StatusCompleted Status = "completed"

	// StatusError means the run could not start (session setup failure)
	// or was interrupted. Pages captured before the interruption are kept.
	StatusError Status = "error"
)

// ReportConfig echoes the effective configuration of a run for traceability.
type ReportConfig struct {
	// ContentTypes are the extractor toggles the run used.
	ContentTypes ContentTypes `json:"content_types"`

	// MaxPages is the effective page budget (1 in single mode).
	MaxPages int `json:"max_pages"`

	// FetchStrategy names the fetch strategy that served the run.
	FetchStrategy string `json:"fetch_strategy,omitempty"`
}

// CrawlReport is the final aggregate of one run.
// It is produced exactly once, at the end of the run, and is not modified
// by the delivery sinks.
//
// Design decision: The report keeps the status as the single source of
// truth for success; delivery failures (callback, files) are logged but
// never reflected here, so a receiver sees the same report regardless of
// which sinks succeeded.
type CrawlReport struct {
	// JobID is the job identifier from configuration.
	JobID string `json:"job_id"`

	// Status is completed or error.
	Status Status `json:"status"`

	// Error describes why Status is error. Empty on completed runs.
	Error string `json:"error,omitempty"`

	// ExtractionMode is the traversal mode.
	ExtractionMode Mode `json:"extraction_mode"`

	// TargetURL is the normalized seed URL.
	TargetURL string `json:"target_url"`

	// PagesCount is len(Pages).
	PagesCount int `json:"pages_count"`

	// Pages are the page records in visit order.
	Pages []*PageRecord `json:"pages"`

	// Elapsed is the wall-clock duration in seconds, rounded to two decimals.
	Elapsed float64 `json:"elapsed"`

	// Config echoes the effective configuration.
	Config ReportConfig `json:"config"`
}

// NewCrawlReport assembles a report from the job and the captured pages.
// The pages slice is copied so later appends by the caller are not visible.
func NewCrawlReport(job *CrawlJob, status Status, pages []*PageRecord, elapsed time.Duration, strategy string) *CrawlReport {
	captured := make([]*PageRecord, len(pages))
	copy(captured, pages)

	return &CrawlReport{
		JobID:          job.ID(),
		Status:         status,
		ExtractionMode: job.Mode(),
		TargetURL:      job.Seed().String(),
		PagesCount:     len(captured),
		Pages:          captured,
		Elapsed:        RoundSeconds(elapsed),
		Config: ReportConfig{
			ContentTypes:  job.ContentTypes(),
			MaxPages:      job.MaxPages(),
			FetchStrategy: strategy,
		},
	}
}

// RoundSeconds converts d to seconds rounded to two decimal places.
func RoundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

// Completed reports whether the run finished with StatusCompleted.
func (r *CrawlReport) Completed() bool {
	return r.Status == StatusCompleted
}
