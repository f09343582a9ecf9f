package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecrawl/internal/model"
)

// FileName is the name of the archive file inside the archive directory.
const FileName = "sitecrawl.db"

// timeLayout keeps a fixed fraction width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when no archived report matches the query.
var ErrNotFound = errors.New("report not found in archive")

// Archive stores finished crawl reports in SQLite.
//
// Design decision: Rows are keyed by a random UUID rather than the job ID,
// because the same job ID may legitimately be crawled many times and every
// run should stay in the history.
type Archive struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// path is the path to the SQLite database file.
	path string

	// now stamps archived rows.
	now func() time.Time
}

// Options configures Archive behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default archive options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the archive inside dir.
// If CreateIfNotExists is false and the file does not exist, an error is returned.
func Open(dir string, opts Options) (*Archive, error) {
	path := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("archive not found at %s (use CreateIfNotExists option to create)", path)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check archive path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := path + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = path + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	a := &Archive{
		db:   db,
		path: path,
		now:  time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := a.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return a, nil
}

// Path returns the path of the archive file.
func (a *Archive) Path() string {
	return a.path
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_reports (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		target_url TEXT NOT NULL,
		status TEXT NOT NULL,
		pages_count INTEGER NOT NULL DEFAULT 0,
		elapsed REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_job ON crawl_reports(job_id);
	CREATE INDEX IF NOT EXISTS idx_reports_target ON crawl_reports(target_url);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON crawl_reports(created_at);
	`

	_, err := a.db.ExecContext(context.Background(), schema)
	return err
}

// ReportMetadata is the summary of an archived report.
// This is used for listing history without loading the full report.
type ReportMetadata struct {
	// ID is the archive row identifier returned by SaveReport.
	ID string

	// JobID is the job identifier of the run.
	JobID string

	// TargetURL is the seed URL of the run.
	TargetURL string

	// Status is the run outcome.
	Status model.Status

	// PagesCount is the number of captured pages.
	PagesCount int

	// Elapsed is the run duration in seconds.
	Elapsed float64

	// CreatedAt is when the report was archived.
	CreatedAt time.Time
}

// SaveReport stores report and returns the new row ID.
func (a *Archive) SaveReport(ctx context.Context, report *model.CrawlReport) (string, error) {
	if report == nil {
		return "", errors.New("cannot archive a nil report")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}

	id := uuid.NewString()
	query := `
	INSERT INTO crawl_reports (id, job_id, target_url, status, pages_count, elapsed, created_at, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = a.db.ExecContext(ctx, query,
		id,
		report.JobID,
		report.TargetURL,
		string(report.Status),
		report.PagesCount,
		report.Elapsed,
		a.now().UTC().Format(timeLayout),
		string(data),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	return id, nil
}

// GetReport retrieves an archived report by its row ID.
func (a *Archive) GetReport(ctx context.Context, id string) (*model.CrawlReport, error) {
	var reportJSON string
	err := a.db.QueryRowContext(ctx, `SELECT report_json FROM crawl_reports WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return decodeReport(reportJSON)
}

// GetLatestReport retrieves the most recently archived report for targetURL.
func (a *Archive) GetLatestReport(ctx context.Context, targetURL string) (*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM crawl_reports
	WHERE target_url = ?
	ORDER BY created_at DESC
	LIMIT 1
	`

	var reportJSON string
	err := a.db.QueryRowContext(ctx, query, targetURL).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	return decodeReport(reportJSON)
}

// ListReports returns the metadata of every archived run of jobID,
// newest first. An empty jobID lists all runs.
func (a *Archive) ListReports(ctx context.Context, jobID string) ([]ReportMetadata, error) {
	query := `
	SELECT id, job_id, target_url, status, pages_count, elapsed, created_at
	FROM crawl_reports
	WHERE (? = '' OR job_id = ?)
	ORDER BY created_at DESC
	`

	rows, err := a.db.QueryContext(ctx, query, jobID, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var (
			meta      ReportMetadata
			status    string
			createdAt string
		)
		if err := rows.Scan(&meta.ID, &meta.JobID, &meta.TargetURL, &status, &meta.PagesCount, &meta.Elapsed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.Status = model.Status(status)
		meta.CreatedAt = parseTimestamp(createdAt)
		results = append(results, meta)
	}

	return results, rows.Err()
}

func decodeReport(reportJSON string) (*model.CrawlReport, error) {
	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// timestampFormats contains the timestamp formats the archive may hold.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse s using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
