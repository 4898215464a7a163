// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jurica/music-scout/internal/classify"
	"github.com/jurica/music-scout/internal/enrich"
	"github.com/jurica/music-scout/internal/extract"
	"github.com/jurica/music-scout/internal/fetch"
	"github.com/jurica/music-scout/internal/score"
	"github.com/jurica/music-scout/internal/store"
	"github.com/jurica/music-scout/pkg/types"
)

// Runner wires the pipeline stages together for full ingestion runs.
type Runner struct {
	Fetcher  *fetch.Fetcher
	Store    *store.Store
	Guard    *Guard
	Enricher *enrich.Enricher
	Profiles *extract.Registry

	// Workers bounds concurrent source fetches.
	Workers int
}

// RunSummary aggregates the outcome of one run across all sources.
type RunSummary struct {
	Sources       int
	FailedSources []string

	Fetched int
	ByType  map[types.ContentType]int

	Inserted  int
	Updated   int
	Unchanged int

	// Enriched counts resolved lookups per provider; misses land
	// under ProviderNone.
	Enriched map[types.Provider]int
}

// Total returns the number of items that went through the guard.
func (s RunSummary) Total() int {
	return s.Inserted + s.Updated + s.Unchanged
}

// HasFailures reports whether any source failed.
func (s RunSummary) HasFailures() bool {
	return len(s.FailedSources) > 0
}

// Print writes the run summary in the report style used by the
// commands.
func (s RunSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "\nrun summary: %d sources, %d entries fetched\n", s.Sources, s.Fetched)
	fmt.Fprintf(w, "  items: %d inserted, %d updated, %d unchanged\n", s.Inserted, s.Updated, s.Unchanged)

	if len(s.ByType) > 0 {
		var parts []string
		for _, ct := range []types.ContentType{types.ContentReview, types.ContentNews, types.ContentPremiere, types.ContentInterview, types.ContentOther} {
			if n := s.ByType[ct]; n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, ct))
			}
		}
		fmt.Fprintf(w, "  content: %s\n", strings.Join(parts, ", "))
	}

	if len(s.Enriched) > 0 {
		var providers []string
		for p := range s.Enriched {
			providers = append(providers, string(p))
		}
		sort.Strings(providers)
		var parts []string
		for _, p := range providers {
			parts = append(parts, fmt.Sprintf("%s %d", p, s.Enriched[types.Provider(p)]))
		}
		fmt.Fprintf(w, "  enrichment: %s\n", strings.Join(parts, ", "))
	}

	for _, id := range s.FailedSources {
		fmt.Fprintf(w, "  failed: %s\n", id)
	}
}

// Run executes the full pipeline over the enabled sources: fetch,
// classify, extract, normalize, guard, enrich. Sources are processed
// by a bounded worker pool; a failing source is reported and skipped
// without affecting the others. Cancelling the context stops the run
// between sources and items; in-flight items finish.
func (r *Runner) Run(ctx context.Context, sources []types.SourceConfig, w io.Writer) (RunSummary, error) {
	summary := RunSummary{
		ByType:   make(map[types.ContentType]int),
		Enriched: make(map[types.Provider]int),
	}

	workers := r.Workers
	if workers <= 0 {
		workers = 4
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	jobs := make(chan types.SourceConfig)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				err := r.runSource(ctx, src, &mu, &summary, w)
				mu.Lock()
				if err != nil {
					summary.FailedSources = append(summary.FailedSources, src.ID)
					fmt.Fprintf(w, "source %s failed: %v\n", src.ID, err)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		summary.Sources++
		select {
		case jobs <- src:
		case <-ctx.Done():
			summary.Sources--
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	sort.Strings(summary.FailedSources)
	return summary, ctx.Err()
}

// runSource fetches one source and pushes its entries through the rest
// of the pipeline, then persists the source state.
func (r *Runner) runSource(ctx context.Context, src types.SourceConfig, mu *sync.Mutex, summary *RunSummary, w io.Writer) error {
	state, err := r.Store.GetState(ctx, src.ID)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	known := func(url string) bool {
		item, err := r.Store.GetItem(ctx, url)
		return err == nil && item != nil
	}

	fmt.Fprintf(w, "fetching %s\n", src.ID)
	entries, err := r.Fetcher.Fetch(ctx, src, known, w)
	if err != nil {
		state.SourceID = src.ID
		state.Failures++
		if saveErr := r.Store.SaveState(ctx, state); saveErr != nil {
			fmt.Fprintf(w, "  warning: saving state for %s: %v\n", src.ID, saveErr)
		}
		return err
	}

	mu.Lock()
	summary.Fetched += len(entries)
	mu.Unlock()

	if err := r.processEntries(ctx, src, entries, mu, summary, w); err != nil {
		return err
	}

	state.SourceID = src.ID
	state.Failures = 0
	state.LastRun = time.Now()
	if err := r.Store.SaveState(ctx, state); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

// processEntries classifies, extracts, guards and enriches a batch of
// entries from one source. Per-item failures are reported and counted,
// never fatal.
func (r *Runner) processEntries(ctx context.Context, src types.SourceConfig, entries []types.RawEntry, mu *sync.Mutex, summary *RunSummary, w io.Writer) error {
	profile := r.Profiles.Get(src.Profile)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := BuildItem(src, entry, profile)

		decision, existing, err := r.Guard.Ingest(ctx, item)
		if err != nil {
			fmt.Fprintf(w, "  warning: %s: %v\n", entry.URL, err)
			continue
		}

		mu.Lock()
		summary.ByType[item.ContentType]++
		switch decision {
		case Inserted:
			summary.Inserted++
		case Updated:
			summary.Updated++
		case Unchanged:
			summary.Unchanged++
		}
		mu.Unlock()

		if r.Enricher == nil {
			continue
		}
		// Enrichment runs once per URL: a prior outcome, including a
		// recorded miss, is terminal until an explicit re-enrichment
		// pass.
		if existing != nil && existing.Enrichment.Attempted() {
			continue
		}

		res, err := r.Enricher.Enrich(ctx, item.PrimaryArtist(), item.Album, w)
		if err != nil {
			return err
		}
		if !res.Attempted() {
			continue
		}
		if err := r.Store.UpdateEnrichment(ctx, item.URL, res); err != nil {
			fmt.Fprintf(w, "  warning: recording enrichment for %s: %v\n", item.URL, err)
			continue
		}
		mu.Lock()
		summary.Enriched[res.Provider]++
		mu.Unlock()
	}
	return nil
}

// BuildItem turns a raw entry into a catalog item: classify the
// content, extract artist/album/tracks, normalize the score.
func BuildItem(src types.SourceConfig, entry types.RawEntry, profile *extract.Profile) *types.CatalogItem {
	contentType := classify.Classify(src, entry)
	ex := extract.Extract(profile, entry)

	item := &types.CatalogItem{
		URL:         entry.URL,
		SourceID:    src.ID,
		ContentType: contentType,
		Title:       entry.Title,
		Artists:     ex.Artists,
		Album:       ex.Album,
		Tracks:      ex.Tracks,
		ScoreRaw:    ex.ScoreRaw,
		Author:      entry.Author,
		Published:   entry.Published,
	}
	if v, ok := score.Normalize(ex.ScoreRaw); ok {
		item.Score = &v
	}
	return item
}

// Backfill walks one listing source's archive from its stored cursor,
// ingesting everything it finds, and persists the new cursor so a
// later backfill resumes where this one stopped.
func (r *Runner) Backfill(ctx context.Context, src types.SourceConfig, until time.Time, maxPages int, w io.Writer) (RunSummary, error) {
	summary := RunSummary{
		Sources:  1,
		ByType:   make(map[types.ContentType]int),
		Enriched: make(map[types.Provider]int),
	}

	if src.Kind != types.KindListing {
		return summary, fmt.Errorf("source %s is not a listing source", src.ID)
	}

	state, err := r.Store.GetState(ctx, src.ID)
	if err != nil {
		return summary, fmt.Errorf("loading state: %w", err)
	}

	opts := fetch.WalkOptions{
		StartPage: state.Cursor,
		Floor:     until,
		MaxPages:  maxPages,
	}

	res, err := r.Fetcher.Walk(ctx, src, opts, w)
	if err != nil {
		state.SourceID = src.ID
		state.Failures++
		if saveErr := r.Store.SaveState(ctx, state); saveErr != nil {
			fmt.Fprintf(w, "  warning: saving state for %s: %v\n", src.ID, saveErr)
		}
		summary.FailedSources = append(summary.FailedSources, src.ID)
		return summary, err
	}

	summary.Fetched = len(res.Entries)

	var mu sync.Mutex
	if err := r.processEntries(ctx, src, res.Entries, &mu, &summary, w); err != nil {
		return summary, err
	}

	state.SourceID = src.ID
	state.Cursor = res.NextPage
	state.Failures = 0
	state.LastRun = time.Now()
	if err := r.Store.SaveState(ctx, state); err != nil {
		return summary, fmt.Errorf("saving state: %w", err)
	}
	return summary, nil
}
