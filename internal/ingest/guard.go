// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest folds classified, extracted entries into the catalog
// and orchestrates full pipeline runs over the source list.
package ingest

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/jurica/music-scout/internal/store"
	"github.com/jurica/music-scout/pkg/types"
)

// Decision is the guard's verdict for one sighting of a URL.
type Decision int

const (
	// Inserted: first sighting, a new row was created.
	Inserted Decision = iota

	// Updated: the URL existed and its content-derived fields changed.
	Updated

	// Unchanged: the URL existed with identical content.
	Unchanged
)

func (d Decision) String() string {
	switch d {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Guard is the catalog's single write path for content. It dedups by
// URL, serializes concurrent sightings of the same URL, and never
// touches enrichment fields: a repeat sighting updates what the entry
// said, not what the catalogs said.
type Guard struct {
	store *store.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGuard creates a Guard over the store.
func NewGuard(st *store.Store) *Guard {
	return &Guard{store: st, locks: make(map[string]*sync.Mutex)}
}

// Ingest records one sighting of an item. The returned existing row
// (nil on insert) lets the caller see the enrichment state without a
// second lookup.
func (g *Guard) Ingest(ctx context.Context, item *types.CatalogItem) (Decision, *types.CatalogItem, error) {
	if item.URL == "" {
		return Unchanged, nil, fmt.Errorf("item has no URL")
	}

	ul := g.urlLock(item.URL)
	ul.Lock()
	defer ul.Unlock()

	existing, err := g.store.GetItem(ctx, item.URL)
	if err != nil {
		return Unchanged, nil, fmt.Errorf("looking up %s: %w", item.URL, err)
	}

	if existing == nil {
		if err := g.store.InsertItem(ctx, item); err != nil {
			return Unchanged, nil, fmt.Errorf("inserting %s: %w", item.URL, err)
		}
		return Inserted, nil, nil
	}

	if sameContent(existing, item) {
		return Unchanged, existing, nil
	}
	if err := g.store.UpdateContent(ctx, item); err != nil {
		return Unchanged, existing, fmt.Errorf("updating %s: %w", item.URL, err)
	}
	return Updated, existing, nil
}

// sameContent compares only the content-derived fields; enrichment and
// store timestamps are excluded.
func sameContent(a, b *types.CatalogItem) bool {
	return a.SourceID == b.SourceID &&
		a.ContentType == b.ContentType &&
		a.Title == b.Title &&
		reflect.DeepEqual(a.Artists, b.Artists) &&
		a.Album == b.Album &&
		reflect.DeepEqual(a.Tracks, b.Tracks) &&
		a.ScoreRaw == b.ScoreRaw &&
		sameScore(a.Score, b.Score) &&
		a.Author == b.Author &&
		a.Published.Equal(b.Published)
}

func sameScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (g *Guard) urlLock(url string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[url]
	if !ok {
		l = &sync.Mutex{}
		g.locks[url] = l
	}
	return l
}
