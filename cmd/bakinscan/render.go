package main

import (
	"fmt"

	"github.com/nao1215/bakinscan/internal/report"
	"github.com/spf13/cobra"
)

// NewRenderCmd creates the render command.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <dataset.json>",
		Short: "Render a dataset artifact into Markdown pages",
		Long: `Render turns a dataset artifact produced by 'bakinscan scan' into a
set of Markdown pages: one index plus one page per namespace.

The dataset file is self-contained, so rendering needs no network and
no checkpoint store. Re-rendering after a template change is cheap and
never refetches anything.

Examples:
  # Render into ./docs
  bakinscan render output/namespaces_list_20260825_093000.json

  # Render somewhere else
  bakinscan render -o site/reference output/namespaces_list_20260825_093000.json`,
		Args: cobra.ExactArgs(1),
		RunE: runRenderCmd,
	}

	cmd.Flags().StringP("output", "o", "docs",
		"Directory to write the Markdown pages into")

	return cmd
}

// runRenderCmd executes the render command.
func runRenderCmd(cmd *cobra.Command, args []string) error {
	outDir, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	ds, err := report.ReadDataset(args[0])
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}

	files, err := report.NewDocRenderer(outDir).Render(ds)
	if err != nil {
		return fmt.Errorf("failed to render documentation: %w", err)
	}

	for _, f := range files {
		fmt.Println(f)
	}
	fmt.Printf("\nRendered %d pages from %d namespaces into %s\n",
		len(files), len(ds.Namespaces), outDir)
	return nil
}
