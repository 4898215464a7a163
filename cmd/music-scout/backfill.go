package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill <source-id>",
	Short: "Walk a listing source's historical archive",
	Long: `Backfill walks the paginated archive of a listing source, resuming from
the page cursor stored by the previous backfill. The walk stops at the page
cap, at the --until date, or at the end of the archive.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().String("until", "", "stop at entries older than this date (e.g. 2020-01-01)")
	backfillCmd.Flags().Int("max-pages", 0, "page cap for this walk (default from config)")

	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var until time.Time
	if raw, _ := cmd.Flags().GetString("until"); raw != "" {
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			return fmt.Errorf("parsing --until %q: %w", raw, err)
		}
		until = t
	}
	maxPages, _ := cmd.Flags().GetInt("max-pages")

	sources, err := loadSources()
	if err != nil {
		return err
	}
	src, err := findSource(sources, args[0])
	if err != nil {
		return err
	}

	runner, st, err := newRunner(pipelineConfig(), os.Stdout)
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := runner.Backfill(ctx, src, until, maxPages, os.Stdout)
	summary.Print(os.Stdout)
	return err
}
