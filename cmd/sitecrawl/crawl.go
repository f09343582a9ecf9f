package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/extract"
	"github.com/nao1215/sitecrawl/internal/fetch"
	"github.com/nao1215/sitecrawl/internal/log"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/pipeline"
	"github.com/nao1215/sitecrawl/internal/stealth"
)

// NewCrawlCmd creates the crawl command. It behaves exactly like running
// sitecrawl without a subcommand.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the site named by TARGET_URL",
		Long: `Crawl fetches TARGET_URL and, in full mode, follows same-host links
breadth-first until MAX_PAGES pages have been captured.

Environment:
  TARGET_URL       seed URL (required)
  JOB_ID           job identifier echoed in logs and the report (default "unknown")
  EXTRACTION_MODE  single or full (default single)
  MAX_PAGES        page budget for full mode (default 10)
  CONTENT_TYPES    JSON object toggling text, images, code, links, json,
                   tables, media and files
  CALLBACK_URL     endpoint that receives the report as a JSON POST
  FETCH_STRATEGY   http, browser or auto (default auto)
  OUTPUT_DIR       write <job_id>.json into this directory
  MARKDOWN_REPORT  write a Markdown crawl summary to this path
  ARCHIVE_DIR      archive the report into <dir>/sitecrawl.db
  CONFIG_FILE      YAML site configuration (cookie, headers, patterns, delays)
  LOG_LEVEL        debug enables verbose logging

Examples:
  # Capture one page
  TARGET_URL=https://example.com sitecrawl crawl

  # Crawl up to 25 pages with plain HTTP and keep a Markdown summary
  TARGET_URL=https://example.com EXTRACTION_MODE=full MAX_PAGES=25 \
    sitecrawl crawl --strategy http --markdown summary.md

  # Archive the report in the default data directory
  TARGET_URL=https://example.com sitecrawl crawl --archive`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	addCrawlFlags(cmd)

	return cmd
}

// addCrawlFlags registers the flags shared by the root and crawl commands.
// Flags override the matching environment variables.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"YAML site configuration file (default: .sitecrawl.yaml or XDG config)")
	cmd.Flags().StringP("strategy", "s", "",
		"Fetch strategy: http, browser or auto (overrides FETCH_STRATEGY)")
	cmd.Flags().StringP("output-dir", "o", "",
		"Write <job_id>.json into this directory (overrides OUTPUT_DIR)")
	cmd.Flags().StringP("markdown", "m", "",
		"Write a Markdown crawl summary to this path (overrides MARKDOWN_REPORT)")
	cmd.Flags().StringP("archive", "a", "",
		"Archive the report into <dir>/sitecrawl.db (overrides ARCHIVE_DIR)")
	cmd.Flags().Lookup("archive").NoOptDefVal = config.XDGDataDir()
	cmd.Flags().Bool("summary", false,
		"Print a human-readable summary to stderr after the report")
}

// runCrawlCmd executes a crawl from the environment and flags.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	stdout := cmd.OutOrStdout()

	loaded, err := config.LoadDotEnv()
	if err != nil {
		return reportConfigError(stdout, err)
	}

	cfg, err := buildConfig(cmd, os.Getenv)
	if err != nil {
		return reportConfigError(stdout, err)
	}

	logger := log.NewJobLogger(stdout, cfg.JobID, cfg.Verbose)
	slog.SetDefault(logger)
	for _, f := range loaded {
		logger.Debug("loaded environment file", "path", f)
	}
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	if cfg.ConfigFilePath != "" {
		logger.Debug("site configuration loaded",
			"path", cfg.ConfigFilePath,
			"cookie", cfg.Site.Cookie,
			"headers", cfg.Site.Headers,
			"ignore_patterns", cfg.Site.IgnorePatterns,
			"follow_patterns", cfg.Site.FollowPatterns)
	}

	summary, err := cmd.Flags().GetBool("summary")
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runCrawl(ctx, cfg, logger, launcher.LookPath)
	if err != nil {
		return reportConfigError(stdout, err)
	}
	// A second signal during delivery terminates the process.
	stop()

	out := deliveryOutput{stdout: stdout}
	if summary {
		out.summary = cmd.ErrOrStderr()
	}
	deliver(ctx, cfg, report, out, logger)

	if !report.Completed() {
		return errReported
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the environment, overlays the command
// flags, validates it, and applies the site configuration for the seed host.
func buildConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	cfg, err := config.Load(getenv)
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"config", &cfg.ConfigFilePath},
		{"output-dir", &cfg.OutputDir},
		{"markdown", &cfg.MarkdownReport},
		{"archive", &cfg.ArchiveDir},
	}
	for _, o := range overrides {
		v, err := cmd.Flags().GetString(o.flag)
		if err != nil {
			return nil, err
		}
		if v != "" {
			*o.dst = v
		}
	}

	strategy, err := cmd.Flags().GetString("strategy")
	if err != nil {
		return nil, err
	}
	if strategy != "" {
		cfg.FetchStrategy = config.Strategy(strings.ToLower(strategy))
	}

	cfg.Verbose = cfg.Verbose || getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := applySiteConfig(cfg); err != nil {
		return nil, err
	}

	// Site delay overrides are validated too.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySiteConfig loads the YAML configuration file, if any, and applies
// the section for the seed host. A missing file is an error only when its
// path was given explicitly.
func applySiteConfig(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if explicit {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration file %s: %w", path, err)
	}

	seed, err := config.ParseSeedURL(cfg.TargetURL)
	if err != nil {
		return err
	}
	cfg.ApplySite(file.GetSiteConfig(seed.Hostname()))
	cfg.ConfigFilePath = path
	return nil
}

// reportConfigError prints the JSON error line the job runner expects and
// marks the failure as reported.
func reportConfigError(w io.Writer, err error) error {
	line := struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}{
		Status:  string(model.StatusError),
		Message: err.Error(),
	}
	_ = json.NewEncoder(w).Encode(line) //nolint:errcheck // nothing left to report to
	return errReported
}

// newStrategy builds the fetch strategy for cfg. Both strategies share one
// stealth profile so a run presents a single, consistent fingerprint; the
// browser only ever claims a Chromium identity.
func newStrategy(kind config.Strategy, cfg *config.Config, logger *slog.Logger) (fetch.Strategy, error) {
	profile := stealth.RandomProfile(nil)
	if kind == config.StrategyBrowser {
		profile = stealth.RandomBrowserProfile(nil)
	}

	httpOpts := []fetch.HTTPOption{
		fetch.WithProfile(profile),
		fetch.WithHeaders(cfg.Site.Headers),
		fetch.WithCookie(cfg.Site.Cookie),
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithHTTPLogger(logger),
	}
	browserOpts := []fetch.BrowserOption{
		fetch.WithBrowserProfile(profile),
		fetch.WithBrowserHeaders(cfg.Site.Headers),
		fetch.WithBrowserCookie(cfg.Site.Cookie),
		fetch.WithPageLoadTimeout(cfg.PageLoadTimeout),
		fetch.WithReadDelay(cfg.ReadDelay),
		fetch.WithScrollPause(cfg.ScrollPause),
		fetch.WithBrowserLogger(logger),
	}
	return fetch.New(kind, httpOpts, browserOpts)
}

// runCrawl builds the job and its collaborators and runs the crawl.
// lookPath reports a local Chromium for the auto strategy.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, lookPath func() (string, bool)) (*model.CrawlReport, error) {
	job, err := cfg.Job()
	if err != nil {
		return nil, err
	}

	kind := fetch.Resolve(cfg.FetchStrategy, lookPath)
	strategy, err := newStrategy(kind, cfg, logger)
	if err != nil {
		return nil, err
	}

	c := crawler.New(job, strategy,
		extract.NewPipeline(job.ContentTypes(), extract.WithLogger(logger)),
		crawler.WithLogger(logger),
		crawler.WithPageDelay(cfg.PageDelay),
		crawler.WithPathFilter(crawler.NewPathFilter(cfg.Site.IgnorePatterns, cfg.Site.FollowPatterns)),
	)
	return c.Run(ctx), nil
}

// deliveryOutput holds the streams the delivery pipeline writes to.
type deliveryOutput struct {
	stdout  io.Writer
	summary io.Writer
}

// deliver hands the report to every configured sink. Delivery is not
// cancelled with the crawl: an interrupted run still prints its partial
// report. Sink failures are logged and do not change the exit code.
func deliver(ctx context.Context, cfg *config.Config, report *model.CrawlReport, out deliveryOutput, logger *slog.Logger) {
	p := pipeline.DefaultPipeline(pipeline.DeliveryConfig{
		OutputDir:       cfg.OutputDir,
		MarkdownPath:    cfg.MarkdownReport,
		ArchiveDir:      cfg.ArchiveDir,
		CallbackURL:     cfg.CallbackURL,
		CallbackTimeout: cfg.CallbackTimeout,
		Stdout:          out.stdout,
		Summary:         out.summary,
		Verbose:         cfg.Verbose,
	}, logger)

	result := p.Run(context.WithoutCancel(ctx), report)
	if err := result.Err(); err != nil {
		logger.Warn("report delivery incomplete", "failed_steps", result.Failed(), "error", err)
	}
}
