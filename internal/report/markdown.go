package report

import (
	"io"
	"strconv"

	"github.com/nao1215/bakinscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs run summaries in Markdown format.
// This format is designed for documentation and sharing, for example
// pasting a crawl result into an issue or a project wiki.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(sum *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	// Header
	w.writeHeader(md, sum)

	// Extraction counts
	w.writeCounts(md, sum)

	// Failed items
	w.writeFailed(md, sum)

	// Skipped pages
	w.writeSkipped(md, sum)

	// Artifact paths
	w.writeArtifacts(md, sum)

	// Footer
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteRuns outputs the run history as a Markdown table, newest first.
func (w *MarkdownWriter) WriteRuns(runs []model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Run History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			formatTimestamp(run.StartedAt),
			statusText(&run),
			strconv.Itoa(run.DoneCount),
			strconv.Itoa(run.FailedCount),
			"`" + run.RootURL + "`",
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Started", "Status", "Done", "Failed", "Root URL"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}

// writeHeader writes the summary header with run identity.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, sum *model.Summary) {
	md.H1("Bakin Crawl Summary")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root URL", "`" + sum.RootURL + "`"},
			{"Run ID", "`" + sum.RunID + "`"},
			{"Started", formatTimestamp(sum.StartedAt)},
			{"Finished", formatTimestamp(sum.FinishedAt)},
			{"Status", w.getStatusText(sum)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on the run phase.
func (w *MarkdownWriter) getStatusText(sum *model.Summary) string {
	switch sum.Phase {
	case model.PhaseDone.String():
		return "✅ Complete"
	case model.PhaseDoneWithErrors.String():
		return "⚠️ Completed with errors"
	default:
		return "🔄 In progress (" + sum.Phase + ")"
	}
}

// writeCounts writes the extraction count section.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, sum *model.Summary) {
	md.H2("Extraction Counts")
	md.PlainText("")

	// Summary table
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Namespaces", strconv.Itoa(sum.TotalNamespaces)},
			{"Classes", strconv.Itoa(sum.TotalClasses)},
			{"Done (fetched)", strconv.Itoa(sum.FetchedCount)},
			{"Done (reused)", strconv.Itoa(sum.ReusedCount)},
			{"Failed", strconv.Itoa(sum.FailedCount)},
			{"Not found", strconv.Itoa(sum.NotFoundCount)},
			{"Warnings", strconv.Itoa(sum.WarningCount)},
			{"**Done total**", "**" + strconv.Itoa(sum.DoneCount) + "**"},
		},
	})
	md.PlainText("")

	// Add pie chart if anything completed
	if sum.DoneCount+sum.FailedCount+sum.NotFoundCount > 0 {
		w.writePieChart(md, sum)
	}

	// Add alert based on outcome
	w.writeAlert(md, sum)
}

// writePieChart writes a mermaid pie chart for outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, sum *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Extraction Outcomes"),
		piechart.WithShowData(true),
	)

	if sum.FetchedCount > 0 {
		chart.LabelAndIntValue("Fetched", uint64(sum.FetchedCount))
	}
	if sum.ReusedCount > 0 {
		chart.LabelAndIntValue("Reused", uint64(sum.ReusedCount))
	}
	if sum.FailedCount > 0 {
		chart.LabelAndIntValue("Failed", uint64(sum.FailedCount))
	}
	if sum.NotFoundCount > 0 {
		chart.LabelAndIntValue("Not found", uint64(sum.NotFoundCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the outcome counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, sum *model.Summary) {
	switch {
	case sum.FailedCount > 0:
		md.Warningf(
			"%d page(s) failed extraction; the dataset is missing their records.",
			sum.FailedCount,
		)
	case sum.NotFoundCount > 0:
		md.Note("Some linked pages were reported absent by the server and were skipped.")
	case sum.DoneCount > 0:
		md.Tip("Every discovered page produced a record.")
	}
	md.PlainText("")
}

// writeFailed writes the failed item section.
func (w *MarkdownWriter) writeFailed(md *markdown.Markdown, sum *model.Summary) {
	if len(sum.Failed) == 0 {
		return
	}

	md.H2("Failed Items")
	md.PlainText("")

	rows := make([][]string, len(sum.Failed))
	for i, item := range sum.Failed {
		msg := item.Message
		if msg == "" {
			msg = "-"
		}
		rows[i] = []string{
			string(item.Kind),
			"`" + item.URL + "`",
			truncateString(msg, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "URL", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSkipped writes the skipped page section.
func (w *MarkdownWriter) writeSkipped(md *markdown.Markdown, sum *model.Summary) {
	if len(sum.Skipped) == 0 {
		return
	}

	md.H2("Skipped Pages")
	md.PlainText("")

	rows := make([][]string, len(sum.Skipped))
	for i, item := range sum.Skipped {
		reason := item.Reason
		if reason == "" {
			reason = "-"
		}
		rows[i] = []string{
			"`" + item.URL + "`",
			truncateString(reason, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeArtifacts writes the artifact path section.
func (w *MarkdownWriter) writeArtifacts(md *markdown.Markdown, sum *model.Summary) {
	if sum.DatasetPath == "" && sum.ClassListPath == "" {
		return
	}

	md.H2("Artifacts")
	md.PlainText("")

	items := make([]string, 0, 2)
	if sum.DatasetPath != "" {
		items = append(items, "Dataset: `"+sum.DatasetPath+"`")
	}
	if sum.ClassListPath != "" {
		items = append(items, "Class list: `"+sum.ClassListPath+"`")
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeFooter writes the summary footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [bakinscan](https://github.com/nao1215/bakinscan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
