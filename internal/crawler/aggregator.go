package crawler

import (
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Aggregator collects page records during a run and assembles the final
// report once the run ends.
type Aggregator struct {
	job   *model.CrawlJob
	start time.Time
	now   func() time.Time
	pages []*model.PageRecord
}

// NewAggregator starts timing a run of job.
func NewAggregator(job *model.CrawlJob, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		job:   job,
		start: now(),
		now:   now,
		pages: make([]*model.PageRecord, 0, job.MaxPages()),
	}
}

// Add appends a record in visit order.
func (a *Aggregator) Add(rec *model.PageRecord) {
	a.pages = append(a.pages, rec)
}

// Count returns the number of records collected so far.
func (a *Aggregator) Count() int {
	return len(a.pages)
}

// Elapsed returns the time since the aggregator was created.
func (a *Aggregator) Elapsed() time.Duration {
	return a.now().Sub(a.start)
}

// Report builds the final report. runErr, when non-nil, turns the status
// into error and its message into the report's error field.
func (a *Aggregator) Report(runErr error, strategy string) *model.CrawlReport {
	status := model.StatusCompleted
	if runErr != nil {
		status = model.StatusError
	}
	report := model.NewCrawlReport(a.job, status, a.pages, a.Elapsed(), strategy)
	if runErr != nil {
		report.Error = runErr.Error()
	}
	return report
}
