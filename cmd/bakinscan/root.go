// Package main provides the entry point for the bakinscan CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errCompletedWithFailures reports a crawl that ran to the end but left
// some pages failed or missing. The process exits with a distinct code
// so schedulers can tell a partial dataset from a run that never
// finished at all.
var errCompletedWithFailures = errors.New("crawl completed with failures (see 'bakinscan status --failed')")

// NewRootCmd creates the root command for bakinscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bakinscan",
		Short: "Crawler and extractor for the RPG Developer Bakin C# reference",
		Long: `bakinscan crawls the RPG Developer Bakin C# API reference site and
extracts every namespace, class, and member into a JSON dataset.

Progress is checkpointed in SQLite after every page, so an interrupted
crawl resumes where it stopped. Requests are paced politely against the
reference server, and pages finished in an earlier invocation are never
fetched twice.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewRenderCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errCompletedWithFailures) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
