package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errReported marks a failure that has already been reported on stdout
// (a JSON error line or an error status report). Execute exits 1 without
// printing it again.
var errReported = errors.New("failure already reported")

// NewRootCmd creates the root command for sitecrawl.
// Running the root command without a subcommand starts a crawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecrawl",
		Short: "Single-site crawler with structured content extraction",
		Long: `sitecrawl crawls one website starting from TARGET_URL, staying on the seed host,
and extracts text, images, code, links, JSON-LD, tables, media and files
from every visited page up to MAX_PAGES.

The crawl is configured through the environment (TARGET_URL, JOB_ID,
EXTRACTION_MODE, MAX_PAGES, CONTENT_TYPES, CALLBACK_URL, FETCH_STRATEGY).
A .env or .env.local file in the working directory is loaded first.

Running sitecrawl without a subcommand is the same as 'sitecrawl crawl'.`,
		Version:       readBuildInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runCrawlCmd,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	addCrawlFlags(cmd)

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
