package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
)

// NewHistoryCmd creates the history command.
// This command browses reports stored in the SQLite archive.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived crawl reports",
		Long: `History lists and prints crawl reports stored in the archive.

Reports are archived when a crawl runs with ARCHIVE_DIR set or with the
--archive flag. Without --archive-dir the XDG data directory is used.

Examples:
  # List every archived run
  sitecrawl history

  # List the runs of one job
  sitecrawl history --job nightly-docs

  # Print an archived report by its archive ID
  sitecrawl history --show 0b6c1f1e-1d4c-4c53-9a55-55f3a1c3f2d9

  # Print the latest report for a site as a Markdown summary
  sitecrawl history --latest https://example.com --markdown`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("archive-dir", "d", "",
		"Archive directory (default: XDG data directory)")
	cmd.Flags().StringP("job", "j", "",
		"Only list runs of this job ID")
	cmd.Flags().String("show", "",
		"Print the archived report with this archive ID")
	cmd.Flags().String("latest", "",
		"Print the latest archived report for this target URL")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print reports as a Markdown summary instead of JSON")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString("archive-dir")
	if err != nil {
		return err
	}
	if dir == "" {
		dir = config.XDGDataDir()
	}
	jobID, err := cmd.Flags().GetString("job")
	if err != nil {
		return err
	}
	showID, err := cmd.Flags().GetString("show")
	if err != nil {
		return err
	}
	latest, err := cmd.Flags().GetString("latest")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if showID != "" && latest != "" {
		return errors.New("--show and --latest cannot be used together")
	}

	// Never create an archive just to report that it is empty.
	archive, err := database.Open(dir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case showID != "":
		r, err := archive.GetReport(ctx, showID)
		if err != nil {
			return err
		}
		return printReport(out, r, asMarkdown)
	case latest != "":
		seed, err := config.ParseSeedURL(latest)
		if err != nil {
			return err
		}
		r, err := archive.GetLatestReport(ctx, seed.String())
		if err != nil {
			return err
		}
		return printReport(out, r, asMarkdown)
	default:
		runs, err := archive.ListReports(ctx, jobID)
		if err != nil {
			return err
		}
		return printHistory(out, runs, asMarkdown)
	}
}

// printReport writes an archived report as indented JSON or Markdown.
func printReport(w io.Writer, r *model.CrawlReport, asMarkdown bool) error {
	var writer report.Writer = report.NewJSONWriter(w, report.WithPrettyPrint())
	if asMarkdown {
		writer = report.NewMarkdownWriter(w)
	}
	_, err := writer.Write(r)
	return err
}

// printHistory writes the run list as plain text or a Markdown table.
func printHistory(w io.Writer, runs []database.ReportMetadata, asMarkdown bool) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No archived reports.")
		return err
	}

	if asMarkdown {
		rows := make([][]string, len(runs))
		for i, run := range runs {
			rows[i] = []string{
				"`" + run.ID + "`",
				run.CreatedAt.Format("2006-01-02 15:04:05"),
				run.JobID,
				run.TargetURL,
				string(run.Status),
				strconv.Itoa(run.PagesCount),
			}
		}
		md := markdown.NewMarkdown(w)
		md.H2("Archived Crawls")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"ID", "Archived", "Job", "Target", "Status", "Pages"},
			Rows:   rows,
		})
		return md.Build()
	}

	for _, run := range runs {
		if _, err := fmt.Fprintf(w, "%s  %s  %-10s %-9s %3d pages  %6.2fs  %s\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.JobID,
			run.Status,
			run.PagesCount,
			run.Elapsed,
			run.TargetURL,
		); err != nil {
			return err
		}
	}
	return nil
}
