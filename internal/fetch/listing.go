// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/jurica/music-scout/internal/httputil"
	"github.com/jurica/music-scout/pkg/types"
)

// maxConsecutiveErrors aborts a page walk after this many failed pages
// in a row; a transient bad page should not end a long backfill.
const maxConsecutiveErrors = 3

// WalkOptions control a paginated listing walk.
type WalkOptions struct {
	// StartPage is the first page to visit; zero starts from page 1.
	StartPage int

	// Floor stops the walk once an entry older than it appears. Zero
	// means no floor.
	Floor time.Time

	// MaxPages caps this walk regardless of the fetcher default. Zero
	// uses the configured cap.
	MaxPages int

	// Known reports whether a URL is already in the catalog. A page
	// yielding only known URLs ends the walk. Nil treats every URL as
	// new.
	Known func(string) bool
}

// WalkResult is the outcome of a listing walk.
type WalkResult struct {
	Entries []types.RawEntry

	// NextPage is the cursor to persist: the page a later walk should
	// resume from.
	NextPage int

	// Pages is how many pages were actually visited.
	Pages int
}

// Walk visits listing pages in order, extracting entry links until one
// of the stop conditions hits: a page with no unseen entries, an entry
// older than the floor date, the page cap, or an empty page past the
// end of the archive. Pages are fetched sequentially with a fixed
// delay between requests.
func (f *Fetcher) Walk(ctx context.Context, src types.SourceConfig, opts WalkOptions, w io.Writer) (WalkResult, error) {
	if src.ItemSelector == "" {
		return WalkResult{}, fmt.Errorf("source %s: listing source without item_selector", src.ID)
	}
	if !strings.Contains(src.URL, "%d") {
		return WalkResult{}, fmt.Errorf("source %s: listing URL %q has no %%d page placeholder", src.ID, src.URL)
	}

	page := opts.StartPage
	if page < 1 {
		page = 1
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = f.cfg.MaxPages
	}
	if maxPages <= 0 {
		maxPages = 50
	}

	res := WalkResult{NextPage: page}
	seen := make(map[string]struct{})
	errStreak := 0

	for res.Pages < maxPages {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		pageURL := fmt.Sprintf(src.URL, page)
		entries, err := f.fetchListingPage(ctx, src, pageURL)
		if err != nil {
			errStreak++
			fmt.Fprintf(w, "  warning: %s page %d: %v\n", src.ID, page, err)
			if errStreak >= maxConsecutiveErrors {
				return res, fmt.Errorf("source %s: %d consecutive page failures: %w", src.ID, errStreak, err)
			}
			page++
			res.Pages++
			continue
		}
		errStreak = 0
		res.Pages++

		// An empty page means the archive ended.
		if len(entries) == 0 {
			res.NextPage = page
			return res, nil
		}

		fresh := 0
		for _, e := range entries {
			if _, dup := seen[e.URL]; dup {
				continue
			}
			seen[e.URL] = struct{}{}

			if !opts.Floor.IsZero() && !e.Published.IsZero() && e.Published.Before(opts.Floor) {
				res.NextPage = page
				return res, nil
			}
			if opts.Known != nil && opts.Known(e.URL) {
				continue
			}
			res.Entries = append(res.Entries, e)
			fresh++
		}

		fmt.Fprintf(w, "  %s page %d: %d entries, %d new\n", src.ID, page, len(entries), fresh)

		// A page of nothing but known URLs means the walk has caught
		// up with the catalog.
		if fresh == 0 {
			res.NextPage = page
			return res, nil
		}

		page++
		res.NextPage = page

		if f.cfg.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(f.cfg.PageDelay):
			}
		}
	}
	return res, nil
}

// fetchListingPage retrieves one listing page and extracts its entries
// with the source's selectors.
func (f *Fetcher) fetchListingPage(ctx context.Context, src types.SourceConfig, pageURL string) ([]types.RawEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, f.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page URL: %w", err)
	}

	var entries []types.RawEntry
	doc.Find(src.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		if len(entries) >= f.maxEntries() {
			return
		}
		e, ok := listingEntry(src, base, item)
		if ok {
			entries = append(entries, e)
		}
	})
	return entries, nil
}

// listingEntry extracts one entry from an item node. The link comes
// from the node itself when it is an anchor, otherwise from the first
// anchor inside it; relative links resolve against the page URL.
func listingEntry(src types.SourceConfig, base *url.URL, item *goquery.Selection) (types.RawEntry, bool) {
	link := item
	if !item.Is("a") {
		link = item.Find("a").First()
	}
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return types.RawEntry{}, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return types.RawEntry{}, false
	}

	title := strings.TrimSpace(link.Text())
	if src.TitleSelector != "" {
		title = strings.TrimSpace(item.Find(src.TitleSelector).First().Text())
	}
	if title == "" {
		return types.RawEntry{}, false
	}

	var published time.Time
	if src.DateSelector != "" {
		if raw := strings.TrimSpace(item.Find(src.DateSelector).First().Text()); raw != "" {
			if t, err := dateparse.ParseAny(raw); err == nil {
				published = t
			}
		}
	}

	return types.RawEntry{
		SourceID:  src.ID,
		URL:       base.ResolveReference(ref).String(),
		Title:     title,
		Published: published,
	}, true
}
