// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves raw entries from configured sources. Feed
// sources are read through their RSS/Atom documents; listing sources
// are walked page by page through their HTML archives.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mmcdole/gofeed"

	"github.com/jurica/music-scout/pkg/types"
)

// Fetcher retrieves entries for one or more sources over a shared HTTP
// client.
type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
	cfg    types.FetchConfig
}

// New creates a Fetcher. A nil client falls back to a default client
// with the configured timeout.
func New(client *http.Client, cfg types.FetchConfig) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = cfg.UserAgent
	return &Fetcher{client: client, parser: parser, cfg: cfg}
}

// Fetch retrieves the current batch of entries for a source. Feed
// sources return whatever recency window the origin publishes; listing
// sources walk forward from the first page until no unseen entries
// remain. The known predicate reports whether a URL is already in the
// catalog and may be nil.
func (f *Fetcher) Fetch(ctx context.Context, src types.SourceConfig, known func(string) bool, w io.Writer) ([]types.RawEntry, error) {
	switch src.Kind {
	case types.KindFeed:
		return f.fetchFeed(ctx, src)
	case types.KindListing:
		res, err := f.Walk(ctx, src, WalkOptions{Known: known}, w)
		return res.Entries, err
	default:
		return nil, fmt.Errorf("source %s: unknown kind %q", src.ID, src.Kind)
	}
}

func (f *Fetcher) maxEntries() int {
	if f.cfg.MaxEntries > 0 {
		return f.cfg.MaxEntries
	}
	return 100
}
