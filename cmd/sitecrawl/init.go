package main

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
)

//go:embed templates/sitecrawl.yaml.tmpl
var configTemplateText string

var configTemplate = template.Must(template.New("sitecrawl.yaml").Parse(configTemplateText))

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter site configuration file",
		Long: `Init writes a .sitecrawl.yaml with the default politeness delays and,
for every --site given, a section for that host that already ignores /logout.
Without --site the file carries a commented example instead.

Examples:
  sitecrawl init
  sitecrawl init --site docs.example.com --site https://blog.example.com/
  sitecrawl init -o crawl/site.yaml -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile, "path of the file to write")
	cmd.Flags().BoolP("force", "f", false, "overwrite an existing file")
	cmd.Flags().StringSlice("site", nil, "host or URL to add a site section for (repeatable)")
	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	rawSites, err := cmd.Flags().GetStringSlice("site")
	if err != nil {
		return err
	}

	sites, err := siteKeys(rawSites)
	if err != nil {
		return err
	}

	if !force {
		_, err := os.Stat(outputPath)
		if err == nil {
			return fmt.Errorf("%s already exists (use -f to overwrite)", outputPath)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, struct{ Sites []string }{Sites: sites}); err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s", outputPath)
	if len(sites) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " with %d site section(s)", len(sites))
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

// siteKeys turns --site values into sorted, unique host keys.
func siteKeys(raw []string) ([]string, error) {
	keys := make([]string, 0, len(raw))
	for _, r := range raw {
		key := config.SiteKey(r)
		if key == "" {
			return nil, fmt.Errorf("invalid --site value %q", r)
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}
