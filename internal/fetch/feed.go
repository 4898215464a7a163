// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/jurica/music-scout/pkg/types"
)

// fetchFeed parses a source's RSS/Atom document into raw entries.
// Entries without a link are dropped; everything else is a pass-through
// of what the origin published.
func (f *Fetcher) fetchFeed(ctx context.Context, src types.SourceConfig) ([]types.RawEntry, error) {
	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("source %s: parsing feed: %w", src.ID, err)
	}

	entries := make([]types.RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		entries = append(entries, types.RawEntry{
			SourceID:  src.ID,
			URL:       item.Link,
			Title:     item.Title,
			Published: itemTime(item),
			Author:    itemAuthor(item),
			Body:      itemBody(item),
		})
		if len(entries) >= f.maxEntries() {
			break
		}
	}
	return entries, nil
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func itemAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return item.Authors[0].Name
	}
	return ""
}

// itemBody prefers full content over the summary; review feeds often
// put the score only in the full body.
func itemBody(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}
