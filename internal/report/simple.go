package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/bakinscan/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display at the end of a crawl
// and as the default status output.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail, such as failure messages.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(sum *model.Summary) (int, error) {
	var sb strings.Builder

	// Header
	w.writeHeader(&sb, sum)

	// Extraction counts
	w.writeCounts(&sb, sum)

	// Failed items
	w.writeFailed(&sb, sum)

	// Skipped pages
	w.writeSkipped(&sb, sum)

	// Artifact paths
	w.writeArtifacts(&sb, sum)

	// Footer
	w.writeFooter(&sb)

	// Write to output
	return w.output.Write([]byte(sb.String()))
}

// WriteRuns outputs the run history as a compact listing, newest first.
func (w *SimpleWriter) WriteRuns(runs []model.Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RUN HISTORY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(runs) == 0 {
		sb.WriteString("  No runs recorded\n\n")
		return w.output.Write([]byte(sb.String()))
	}

	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("  %s  %-18s  done=%d failed=%d\n",
			formatTimestamp(run.StartedAt), statusText(&run), run.DoneCount, run.FailedCount))
		sb.WriteString(fmt.Sprintf("      run:  %s\n", run.RunID))
		sb.WriteString(fmt.Sprintf("      root: %s\n", run.RootURL))
	}
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the summary header with run identity.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, sum *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       BAKINSCAN CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Root URL:   %s\n", sum.RootURL))
	sb.WriteString(fmt.Sprintf("Run ID:     %s\n", sum.RunID))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", formatTimestamp(sum.StartedAt)))
	sb.WriteString(fmt.Sprintf("Finished:   %s\n", formatTimestamp(sum.FinishedAt)))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", statusText(sum)))

	sb.WriteString("\n")
}

// writeCounts writes the extraction count section.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, sum *model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("EXTRACTION COUNTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Namespaces: %d\n", sum.TotalNamespaces))
	sb.WriteString(fmt.Sprintf("  Classes:    %d\n", sum.TotalClasses))
	sb.WriteString(fmt.Sprintf("  Done:       %d (%d fetched, %d reused)\n",
		sum.DoneCount, sum.FetchedCount, sum.ReusedCount))
	sb.WriteString(fmt.Sprintf("  Failed:     %d\n", sum.FailedCount))
	sb.WriteString(fmt.Sprintf("  Not found:  %d\n", sum.NotFoundCount))
	sb.WriteString(fmt.Sprintf("  Warnings:   %d\n", sum.WarningCount))
	sb.WriteString("\n")
}

// writeFailed writes the failed item section.
func (w *SimpleWriter) writeFailed(sb *strings.Builder, sum *model.Summary) {
	if len(sum.Failed) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILED ITEMS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(sum.Failed) == 0 {
		sb.WriteString("  No failures\n")
	}
	for _, item := range sum.Failed {
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", item.Kind, item.URL))
		if w.verbose && item.Message != "" {
			sb.WriteString(fmt.Sprintf("      %s\n", item.Message))
		}
	}
	sb.WriteString("\n")
}

// writeSkipped writes the skipped page section.
func (w *SimpleWriter) writeSkipped(sb *strings.Builder, sum *model.Summary) {
	if len(sum.Skipped) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SKIPPED PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(sum.Skipped) == 0 {
		sb.WriteString("  No skipped pages\n")
	}
	for _, item := range sum.Skipped {
		sb.WriteString(fmt.Sprintf("  %s\n", item.URL))
		if w.verbose && item.Reason != "" {
			sb.WriteString(fmt.Sprintf("      %s\n", item.Reason))
		}
	}
	sb.WriteString("\n")
}

// writeArtifacts writes the artifact path section.
func (w *SimpleWriter) writeArtifacts(sb *strings.Builder, sum *model.Summary) {
	if sum.DatasetPath == "" && sum.ClassListPath == "" && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ARTIFACTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if sum.DatasetPath != "" {
		sb.WriteString(fmt.Sprintf("  Dataset:    %s\n", sum.DatasetPath))
	}
	if sum.ClassListPath != "" {
		sb.WriteString(fmt.Sprintf("  Class list: %s\n", sum.ClassListPath))
	}
	if sum.DatasetPath == "" && sum.ClassListPath == "" {
		sb.WriteString("  No artifacts written\n")
	}
	sb.WriteString("\n")
}

// writeFooter writes the summary footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by bakinscan\n")
	sb.WriteString("https://github.com/nao1215/bakinscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// statusText returns the human readable status of a run.
func statusText(sum *model.Summary) string {
	switch sum.Phase {
	case model.PhaseDone.String():
		return "Complete"
	case model.PhaseDoneWithErrors.String():
		return "Completed with errors"
	default:
		return fmt.Sprintf("In progress (%s)", sum.Phase)
	}
}

// formatTimestamp renders a timestamp for display, with a dash for the
// zero value so unfinished runs do not show the epoch.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}
