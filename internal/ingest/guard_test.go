// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jurica/music-scout/internal/store"
	"github.com/jurica/music-scout/pkg/types"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(types.StoreConfig{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func reviewItem(url string) *types.CatalogItem {
	s := 9.0
	return &types.CatalogItem{
		URL:         url,
		SourceID:    "prog-report",
		ContentType: types.ContentReview,
		Title:       "Tool – Fear Inoculum",
		Artists:     []string{"Tool"},
		Album:       "Fear Inoculum",
		ScoreRaw:    "9/10",
		Score:       &s,
		Published:   time.Date(2019, 8, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestGuardInsertThenUnchanged(t *testing.T) {
	st := newTestStore(t)
	g := NewGuard(st)
	ctx := context.Background()

	decision, existing, err := g.Ingest(ctx, reviewItem("https://example.com/r/1"))
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if decision != Inserted || existing != nil {
		t.Fatalf("first sighting = %v/%v, want inserted/nil", decision, existing)
	}

	decision, existing, err = g.Ingest(ctx, reviewItem("https://example.com/r/1"))
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if decision != Unchanged {
		t.Errorf("repeat sighting = %v, want unchanged", decision)
	}
	if existing == nil {
		t.Error("repeat sighting should return the existing row")
	}
}

func TestGuardUpdatesChangedContent(t *testing.T) {
	st := newTestStore(t)
	g := NewGuard(st)
	ctx := context.Background()

	if _, _, err := g.Ingest(ctx, reviewItem("https://example.com/r/1")); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}

	changed := reviewItem("https://example.com/r/1")
	s := 9.5
	changed.Score = &s
	changed.ScoreRaw = "9.5/10"

	decision, _, err := g.Ingest(ctx, changed)
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if decision != Updated {
		t.Fatalf("changed sighting = %v, want updated", decision)
	}

	got, err := st.GetItem(ctx, "https://example.com/r/1")
	if err != nil {
		t.Fatalf("GetItem() error: %v", err)
	}
	if got.ScoreRaw != "9.5/10" || got.Score == nil || *got.Score != 9.5 {
		t.Errorf("stored score = %q/%v, want the updated values", got.ScoreRaw, got.Score)
	}
}

func TestGuardPreservesEnrichmentOnUpdate(t *testing.T) {
	st := newTestStore(t)
	g := NewGuard(st)
	ctx := context.Background()

	if _, _, err := g.Ingest(ctx, reviewItem("https://example.com/r/1")); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	enrichment := types.EnrichmentResult{
		Provider: types.ProviderSpotify,
		AlbumID:  "alb1",
		Genres:   []string{"progressive metal"},
	}
	if err := st.UpdateEnrichment(ctx, "https://example.com/r/1", enrichment); err != nil {
		t.Fatalf("UpdateEnrichment() error: %v", err)
	}

	changed := reviewItem("https://example.com/r/1")
	changed.Title = "Tool – Fear Inoculum (updated)"
	decision, existing, err := g.Ingest(ctx, changed)
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if decision != Updated {
		t.Fatalf("decision = %v, want updated", decision)
	}
	if !existing.Enrichment.Resolved() {
		t.Error("returned existing row should carry the enrichment state")
	}

	got, err := st.GetItem(ctx, "https://example.com/r/1")
	if err != nil {
		t.Fatalf("GetItem() error: %v", err)
	}
	if got.Enrichment.Provider != types.ProviderSpotify || got.Enrichment.AlbumID != "alb1" {
		t.Errorf("enrichment after content update = %+v, want it untouched", got.Enrichment)
	}
}

func TestGuardConcurrentSameURL(t *testing.T) {
	st := newTestStore(t)
	g := NewGuard(st)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, _, err := g.Ingest(ctx, reviewItem("https://example.com/r/1"))
			if err != nil {
				t.Errorf("Ingest() error: %v", err)
				return
			}
			if decision == Inserted {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Errorf("%d inserts for one URL, want exactly 1", inserted)
	}
}

func TestGuardRejectsEmptyURL(t *testing.T) {
	g := NewGuard(newTestStore(t))
	item := reviewItem("")
	if _, _, err := g.Ingest(context.Background(), item); err == nil {
		t.Fatal("expected an error for an item without a URL")
	}
}
