package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jurica/music-scout/internal/store"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources with their stored state",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sources, err := loadSources()
	if err != nil {
		return err
	}

	cfg := pipelineConfig()
	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	counts, err := st.CountBySource(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tENABLED\tITEMS\tCURSOR\tFAILURES\tLAST RUN")
	for _, src := range sources {
		state, err := st.GetState(ctx, src.ID)
		if err != nil {
			return err
		}
		lastRun := "never"
		if !state.LastRun.IsZero() {
			lastRun = state.LastRun.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%d\t%d\t%s\n",
			src.ID, src.Kind, src.Enabled, counts[src.ID], state.Cursor, state.Failures, lastRun)
	}
	return w.Flush()
}
