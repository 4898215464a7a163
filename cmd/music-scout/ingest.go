package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run the full pipeline over all enabled sources",
	Long: `Ingest fetches every enabled source, classifies and extracts the entries,
normalizes review scores, folds the items into the catalog, and enriches new
releases with canonical metadata. A failing source is reported and skipped;
the run continues with the others. Interrupting the run stops it cleanly
between items.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sources, err := loadSources()
	if err != nil {
		return err
	}

	runner, st, err := newRunner(pipelineConfig(), os.Stdout)
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := runner.Run(ctx, sources, os.Stdout)
	summary.Print(os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		fmt.Fprintf(os.Stderr, "%d source(s) failed\n", len(summary.FailedSources))
	}
	return nil
}
