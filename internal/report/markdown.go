package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitecrawl/internal/model"
)

// MarkdownWriter outputs a crawl summary in Markdown format.
// This format is designed for documentation and sharing; page content
// itself stays in the JSON report.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, which gives type-safe tables and GitHub-flavored alerts
// without hand-escaping.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report summary in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeAlert(md, report)
	w.writeContentSummary(md, report)
	w.writePages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Crawl Report")
	md.PlainText("")

	strategy := report.Config.FetchStrategy
	if strategy == "" {
		strategy = "-"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Job ID", "`" + report.JobID + "`"},
			{"Target URL", "`" + report.TargetURL + "`"},
			{"Extraction Mode", string(report.ExtractionMode)},
			{"Status", statusText(report)},
			{"Pages Captured", fmt.Sprintf("%d / %d", report.PagesCount, report.Config.MaxPages)},
			{"Elapsed", strconv.FormatFloat(report.Elapsed, 'f', 2, 64) + "s"},
			{"Fetch Strategy", strategy},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on report state.
func statusText(report *model.CrawlReport) string {
	if report.Completed() {
		return "✅ Completed"
	}
	if report.Error != "" {
		return "❌ Error - " + report.Error
	}
	return "❌ Error"
}

// writeAlert writes an alert matching the outcome of the run.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case !report.Completed():
		md.Cautionf("The crawl stopped early. %d page(s) were captured before it ended.", report.PagesCount)
	case report.PagesCount == 0:
		md.Warningf("No pages were captured from %s. Every fetch failed or was skipped.", report.TargetURL)
	default:
		md.Tip(fmt.Sprintf("Captured %d page(s) in %.2f seconds.", report.PagesCount, report.Elapsed))
	}
	md.PlainText("")
}

// writeContentSummary writes per content type totals across all pages.
func (w *MarkdownWriter) writeContentSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Content Summary")
	md.PlainText("")

	totals := contentTotals(report)
	rows := make([][]string, 0, len(model.AllContentTypes))
	for _, ct := range model.AllContentTypes {
		if !report.Config.ContentTypes.Enabled(ct) {
			rows = append(rows, []string{string(ct), "no", "-"})
			continue
		}
		total := strconv.Itoa(totals[ct])
		if ct == model.ContentText {
			total += " chars"
		}
		rows = append(rows, []string{string(ct), "yes", total})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Content Type", "Enabled", "Total"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, totals)
}

// writePieChart writes a mermaid pie chart of the item totals. Text is left
// out because its total is a character count, not an item count.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, totals map[model.ContentType]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Extracted Items"),
		piechart.WithShowData(true),
	)

	plotted := false
	for _, ct := range model.AllContentTypes {
		if ct == model.ContentText || totals[ct] == 0 {
			continue
		}
		chart.LabelAndIntValue(string(ct), uint64(totals[ct]))
		plotted = true
	}
	if !plotted {
		return
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes one table row per captured page.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages captured.")
		md.PlainText("")
		return
	}

	enabled := report.Config.ContentTypes.EnabledTypes()
	header := []string{"#", "URL", "Title"}
	for _, ct := range enabled {
		header = append(header, string(ct))
	}

	rows := make([][]string, len(report.Pages))
	for i, p := range report.Pages {
		title := p.Title
		if title == "" {
			title = "-"
		}
		row := []string{strconv.Itoa(i + 1), p.URL, truncateString(escapeCell(title), 60)}
		for _, ct := range enabled {
			if n, ok := p.Count(ct); ok {
				row = append(row, strconv.Itoa(n))
			} else {
				row = append(row, "-")
			}
		}
		rows[i] = row
	}

	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by sitecrawl*")
}

// contentTotals sums the true counts of every content type across pages.
func contentTotals(report *model.CrawlReport) map[model.ContentType]int {
	totals := make(map[model.ContentType]int, len(model.AllContentTypes))
	for _, p := range report.Pages {
		for _, ct := range model.AllContentTypes {
			if n, ok := p.Count(ct); ok {
				totals[ct] += n
			}
		}
	}
	return totals
}

// escapeCell keeps page titles from breaking the table layout.
func escapeCell(s string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(s), " "), "|", `\|`)
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
