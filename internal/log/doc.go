// Package log provides the structured job logger used by sitecrawl.
//
// Every line is a single JSON object on standard output carrying at least
// job_id, level, message and timestamp. External monitors follow a run by
// tailing these lines, so the field names are part of the tool's contract.
//
// # Security Features
//
// The logger is wrapped in a SecureHandler that masks sensitive values
// before they reach the output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Values that look like credentials (JWTs, bearer and basic tokens)
//   - Credential-looking query parameters inside logged URLs
//
// Operators can therefore configure session cookies or auth headers for a
// crawl without leaking them into shared log storage.
//
// # Usage
//
//	logger := log.NewJobLogger(os.Stdout, "job-42", false)
//	logger.Info("fetching page", "url", "https://example.com/docs")
//	// {"timestamp":"...","level":"info","message":"fetching page","job_id":"job-42","url":"https://example.com/docs"}
package log
