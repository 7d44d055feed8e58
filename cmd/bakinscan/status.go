package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nao1215/bakinscan/internal/checkpoint"
	"github.com/nao1215/bakinscan/internal/config"
	"github.com/nao1215/bakinscan/internal/model"
	"github.com/nao1215/bakinscan/internal/report"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
// This command inspects the checkpoint store without touching the network.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [root-url]",
		Short: "Show checkpointed crawl state",
		Long: `Status reports what the checkpoint store knows about past and
in-progress crawls. It never touches the network.

With no arguments it reports on the default reference index. Pass a
root URL to inspect a different crawl. An unfinished crawl also shows
the live work list breakdown, so you can see how far it got before it
was interrupted.

Examples:
  # Show the state of the default crawl
  bakinscan status

  # List every run in the checkpoint store
  bakinscan status --list

  # Show the pages that failed or were missing, with their errors
  bakinscan status --failed

  # Compare extraction counts with another stored run (say, a mirror)
  bakinscan status --with-run-id 4f1c2d3e

  # Machine-readable output for scripting
  bakinscan status --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatusCmd,
	}

	// Listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List every run in the checkpoint store")
	cmd.Flags().Bool("failed", false,
		"List failed and missing pages with their errors")

	// Comparison target flag
	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare counts with another stored run by ID (use --list to see available IDs)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format (mutually exclusive with --json)")

	// Checkpoint location
	cmd.Flags().String("data-dir", "",
		"Directory of the checkpoint database (default: XDG data directory)")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	if dataDir == "" {
		dataDir = config.XDGDataDir()
	}

	store, err := checkpoint.Open(dataDir, checkpoint.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	listRuns, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listRuns {
		return listStoredRuns(ctx, store, jsonOutput, markdownOutput)
	}

	showFailed, err := cmd.Flags().GetBool("failed")
	if err != nil {
		return err
	}
	if showFailed {
		return listProblemItems(ctx, store)
	}

	rootURL := config.DefaultRootURL
	if len(args) > 0 {
		rootURL = args[0]
	}

	withRunID, err := cmd.Flags().GetString("with-run-id")
	if err != nil {
		return err
	}
	if withRunID != "" {
		return compareRuns(ctx, store, rootURL, withRunID)
	}

	return showRunStatus(ctx, store, rootURL, jsonOutput, markdownOutput)
}

// runSummary converts a stored run row into the summary shape the
// report writers consume. Per-invocation counters (fetched, reused,
// warnings) are not persisted on the run row, so they stay zero here.
func runSummary(run checkpoint.Run) model.Summary {
	return model.Summary{
		RunID:           run.ID,
		RootURL:         run.RootURL,
		Phase:           run.Phase.String(),
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		TotalNamespaces: run.TotalNamespaces,
		TotalClasses:    run.TotalClasses,
		DoneCount:       run.DoneCount,
		FailedCount:     run.FailedCount,
		DatasetPath:     run.DatasetPath,
		ClassListPath:   run.ClassListPath,
	}
}

// statusWriter picks the report writer for the requested format.
func statusWriter(jsonOutput, markdownOutput bool) report.Writer {
	switch {
	case jsonOutput:
		return report.NewJSONWriter(os.Stdout, report.WithPrettyPrint())
	case markdownOutput:
		return report.NewMarkdownWriter(os.Stdout)
	default:
		return report.NewSimpleWriter(os.Stdout, report.WithShowEmpty(true))
	}
}

// listStoredRuns prints every run in the store, most recent first.
func listStoredRuns(ctx context.Context, store *checkpoint.Store, jsonOutput, markdownOutput bool) error {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No crawls found in the checkpoint store.")
		fmt.Println("\nUse 'bakinscan scan' to start one.")
		return nil
	}

	summaries := make([]model.Summary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, runSummary(run))
	}

	_, err = statusWriter(jsonOutput, markdownOutput).WriteRuns(summaries)
	return err
}

// listProblemItems prints pages that ended in failure. Missing pages
// (404) are stored as failed items with the not_found kind, so they are
// split out into their own section here.
func listProblemItems(ctx context.Context, store *checkpoint.Store) error {
	problems, err := store.ItemsByStatus(ctx, model.StatusFailed)
	if err != nil {
		return fmt.Errorf("failed to list failed pages: %w", err)
	}

	var failed, missing []model.WorkItem
	for _, item := range problems {
		if item.ErrorKind == model.ErrorKindNotFound {
			missing = append(missing, item)
			continue
		}
		failed = append(failed, item)
	}

	if len(failed) == 0 && len(missing) == 0 {
		fmt.Println("No failed or missing pages in the checkpoint store.")
		return nil
	}

	if len(failed) > 0 {
		fmt.Printf("Failed pages (%d):\n\n", len(failed))
		fmt.Printf("  %-9s  %-8s  %s\n", "Kind", "Attempts", "URL")
		fmt.Println("  " + strings.Repeat("-", 70))
		for _, item := range failed {
			fmt.Printf("  %-9s  %-8d  %s\n", item.ErrorKind, item.Attempts, item.URL)
			if item.ErrorMessage != "" {
				fmt.Printf("  %-9s  %-8s  %s\n", "", "", item.ErrorMessage)
			}
		}
		fmt.Println()
	}

	if len(missing) > 0 {
		fmt.Printf("Missing pages (%d):\n\n", len(missing))
		for _, item := range missing {
			fmt.Printf("  %s\n", item.URL)
		}
		fmt.Println()
	}

	fmt.Println("Failed pages are retried on the next 'bakinscan scan' unless --retry-failed=false.")
	return nil
}

// showRunStatus prints the stored run for one root. An unfinished run
// also gets the live work list breakdown so interrupted crawls show how
// far they got.
func showRunStatus(ctx context.Context, store *checkpoint.Store, rootURL string, jsonOutput, markdownOutput bool) error {
	run, err := store.RunByRoot(ctx, rootURL)
	if err != nil {
		return fmt.Errorf("failed to look up run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("no crawl found for %s (use 'bakinscan scan' to start one)", rootURL)
	}

	sum := runSummary(*run)
	if _, err := statusWriter(jsonOutput, markdownOutput).Write(&sum); err != nil {
		return err
	}

	if !run.Phase.IsFinished() && !jsonOutput && !markdownOutput {
		counts, err := store.Counts(ctx)
		if err != nil {
			return fmt.Errorf("failed to count work items: %w", err)
		}
		// Missing pages are stored as failed with the not_found kind,
		// so subtract them to keep the two columns disjoint.
		fmt.Printf("\nWork list: %d pending, %d done, %d failed, %d missing (%d total)\n",
			counts.Pending, counts.Done, counts.Failed-counts.NotFound, counts.NotFound, counts.Total)
		fmt.Println("Run 'bakinscan scan' to resume.")
	}
	return nil
}

// compareRuns prints a count comparison between the run for rootURL and
// another stored run, typically a crawl of a mirror or another language
// tree. The other run is looked up by ID or unique ID prefix.
func compareRuns(ctx context.Context, store *checkpoint.Store, rootURL, runID string) error {
	base, err := store.RunByRoot(ctx, rootURL)
	if err != nil {
		return fmt.Errorf("failed to look up run: %w", err)
	}
	if base == nil {
		return fmt.Errorf("no crawl found for %s (use 'bakinscan scan' to start one)", rootURL)
	}

	other, err := runByID(ctx, store, runID)
	if err != nil {
		return err
	}
	if other.ID == base.ID {
		return fmt.Errorf("run %s is the crawl for %s itself; pass another run's ID (use --list to see them)", runID, rootURL)
	}

	fmt.Println("Run Comparison")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nThis run:  %s\n", base.ID)
	fmt.Printf("  root:    %s\n", base.RootURL)
	fmt.Printf("Other run: %s\n", other.ID)
	fmt.Printf("  root:    %s\n", other.RootURL)

	fmt.Println("\nCount Summary:")
	fmt.Printf("  %-12s  %-10s  %-10s  %-10s\n", "Metric", "Other", "This", "Change")
	fmt.Println("  " + strings.Repeat("-", 48))
	printCountRow("Namespaces", other.TotalNamespaces, base.TotalNamespaces)
	printCountRow("Classes", other.TotalClasses, base.TotalClasses)
	printCountRow("Done", other.DoneCount, base.DoneCount)
	printCountRow("Failed", other.FailedCount, base.FailedCount)

	return nil
}

// printCountRow writes one comparison table row with a signed delta.
func printCountRow(label string, other, this int) {
	fmt.Printf("  %-12s  %-10d  %-10d  %-10s\n", label, other, this, formatDelta(this-other))
}

// formatDelta renders a count change with an explicit sign on increases.
func formatDelta(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return strconv.Itoa(delta)
}

// runByID finds a stored run by full ID or unique ID prefix.
func runByID(ctx context.Context, store *checkpoint.Store, runID string) (*checkpoint.Run, error) {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var match *checkpoint.Run
	for i := range runs {
		if runs[i].ID == runID {
			return &runs[i], nil
		}
		if strings.HasPrefix(runs[i].ID, runID) {
			if match != nil {
				return nil, fmt.Errorf("run ID prefix %q is ambiguous (use --list to see full IDs)", runID)
			}
			match = &runs[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no run with ID %s (use --list to see stored runs)", runID)
	}
	return match, nil
}
