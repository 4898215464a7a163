package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jurica/music-scout/internal/enrich"
	"github.com/jurica/music-scout/internal/store"
	"github.com/jurica/music-scout/pkg/types"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run metadata enrichment over catalog items",
	Long: `Enrich resolves extracted artist/album pairs against the provider cascade
and records the canonical metadata. By default only items never attempted are
processed. --missing retries items whose earlier cascade found no match;
--force re-fetches metadata for every enrichable item, overwriting what is
stored.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().Bool("missing", false, "retry items whose earlier enrichment found no match")
	enrichCmd.Flags().Bool("force", false, "re-fetch metadata for all enrichable items")

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	missing, _ := cmd.Flags().GetBool("missing")
	force, _ := cmd.Flags().GetBool("force")

	cfg := pipelineConfig()
	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	var items []*types.CatalogItem
	switch {
	case force:
		items, err = st.ListEnrichable(ctx)
	default:
		items, err = st.ListUnenriched(ctx, missing)
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("nothing to enrich")
		return nil
	}
	fmt.Printf("enriching %d item(s)\n", len(items))

	client := &http.Client{Timeout: cfg.Enrich.Timeout}
	enricher := enrich.New(enrich.NewBackends(client, cfg.Enrich, os.Stdout), cfg.Enrich)

	resolved := make(map[types.Provider]int)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := enricher.Enrich(ctx, item.PrimaryArtist(), item.Album, os.Stdout)
		if err != nil {
			return err
		}
		if !res.Attempted() {
			continue
		}
		if err := st.UpdateEnrichment(ctx, item.URL, res); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording enrichment for %s: %v\n", item.URL, err)
			continue
		}
		resolved[res.Provider]++
		if res.Resolved() {
			fmt.Printf("  %s - %s: %s\n", item.PrimaryArtist(), item.Album, res.Provider)
		}
	}

	fmt.Printf("\nenrichment: %d spotify, %d musicbrainz, %d unmatched\n",
		resolved[types.ProviderSpotify], resolved[types.ProviderMusicBrainz], resolved[types.ProviderNone])
	return nil
}
