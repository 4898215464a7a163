// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich resolves extracted artist/album pairs against
// external music catalogs. Providers form an ordered cascade: the
// primary is tried first and a fallback only consulted when the
// primary yields no acceptable match. Each backend implements the
// Backend interface per the Strategy pattern.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jurica/music-scout/pkg/types"
)

// Backend resolves one artist/album pair against a single catalog. A
// (nil, nil) return means the catalog has no acceptable match; an
// error means the catalog could not be consulted.
type Backend interface {
	Name() types.Provider
	Lookup(ctx context.Context, artist, album string) (*types.EnrichmentResult, error)
}

// NewBackends builds the provider cascade in precedence order. Spotify
// leads when credentials are configured; MusicBrainz is always present
// as the fallback.
func NewBackends(client *http.Client, cfg types.EnrichConfig, w io.Writer) []Backend {
	var backends []Backend
	if sp, err := NewSpotify(client, cfg); err == nil {
		backends = append(backends, sp)
	} else {
		fmt.Fprintf(w, "spotify disabled: %v\n", err)
	}
	backends = append(backends, NewMusicBrainz(client, cfg))
	return backends
}

// Enricher runs the cascade with an in-run result cache and a bound on
// concurrent lookups. The cache covers negative outcomes too, so a
// release reviewed by several sources in the same run costs at most
// one pass through the cascade.
type Enricher struct {
	backends []Backend
	sem      chan struct{}
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]*types.EnrichmentResult
	locks map[string]*sync.Mutex
}

// New creates an Enricher over the given cascade.
func New(backends []Backend, cfg types.EnrichConfig) *Enricher {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Enricher{
		backends: backends,
		sem:      make(chan struct{}, concurrency),
		now:      time.Now,
		cache:    make(map[string]*types.EnrichmentResult),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Enrich resolves one artist/album pair. An empty artist or album is a
// skip: no provider is consulted and the zero result (Provider "")
// comes back, leaving the item eligible for a later pass once
// extraction improves. Exhausting the cascade records ProviderNone,
// which is terminal for the run.
func (e *Enricher) Enrich(ctx context.Context, artist, album string, w io.Writer) (types.EnrichmentResult, error) {
	if artist == "" || album == "" {
		return types.EnrichmentResult{}, nil
	}

	key := normalizeName(artist) + "\x00" + normalizeName(album)

	// Serialize per key so concurrent sightings of the same release
	// share one cascade pass instead of racing to the providers.
	kl := e.keyLock(key)
	kl.Lock()
	defer kl.Unlock()

	if res, ok := e.cached(key); ok {
		return res, nil
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return types.EnrichmentResult{}, ctx.Err()
	}
	defer func() { <-e.sem }()

	for _, b := range e.backends {
		if err := ctx.Err(); err != nil {
			return types.EnrichmentResult{}, err
		}

		res, err := b.Lookup(ctx, artist, album)
		if err != nil {
			fmt.Fprintf(w, "  warning: %s lookup for %s - %s: %v\n", b.Name(), artist, album, err)
			continue
		}
		if res != nil {
			e.store(key, res)
			return *res, nil
		}
	}

	miss := &types.EnrichmentResult{Provider: types.ProviderNone, FetchedAt: e.now()}
	e.store(key, miss)
	return *miss, nil
}

func (e *Enricher) keyLock(key string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

func (e *Enricher) cached(key string) (types.EnrichmentResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res, ok := e.cache[key]; ok {
		return *res, true
	}
	return types.EnrichmentResult{}, false
}

func (e *Enricher) store(key string, res *types.EnrichmentResult) {
	e.mu.Lock()
	e.cache[key] = res
	e.mu.Unlock()
}
