// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jurica/music-scout/internal/enrich"
	"github.com/jurica/music-scout/internal/extract"
	"github.com/jurica/music-scout/internal/fetch"
	"github.com/jurica/music-scout/pkg/types"
)

const runTestFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Prog Report</title>
    <item>
      <title>Tool – Fear Inoculum</title>
      <link>https://example.com/reviews/tool-fear-inoculum</link>
      <pubDate>Fri, 30 Aug 2019 10:00:00 +0000</pubDate>
      <description>&lt;p&gt;A monolithic return. Score: 9/10.&lt;/p&gt;</description>
    </item>
    <item>
      <title>Dream Theater Announces New Tour</title>
      <link>https://example.com/news/dt-tour</link>
    </item>
  </channel>
</rss>`

// countingBackend resolves every lookup and counts how often it was
// consulted.
type countingBackend struct {
	mu    sync.Mutex
	calls int
}

func (c *countingBackend) Name() types.Provider { return types.ProviderSpotify }

func (c *countingBackend) Lookup(ctx context.Context, artist, album string) (*types.EnrichmentResult, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return &types.EnrichmentResult{
		Provider:  types.ProviderSpotify,
		AlbumID:   "alb1",
		Genres:    []string{"progressive metal"},
		FetchedAt: time.Now(),
	}, nil
}

func (c *countingBackend) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestRunner(t *testing.T, backend enrich.Backend) *Runner {
	t.Helper()
	st := newTestStore(t)
	return &Runner{
		Fetcher:  fetch.New(nil, types.FetchConfig{HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "music-scout-test/0.1"}}),
		Store:    st,
		Guard:    NewGuard(st),
		Enricher: enrich.New([]enrich.Backend{backend}, types.EnrichConfig{}),
		Profiles: extract.NewRegistry(),
		Workers:  2,
	}
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunFullPipeline(t *testing.T) {
	server := feedServer(t, runTestFeed)
	backend := &countingBackend{}
	r := newTestRunner(t, backend)
	ctx := context.Background()

	sources := []types.SourceConfig{
		{ID: "prog-report", URL: server.URL, Kind: types.KindFeed, Enabled: true, ReviewPath: "/reviews/"},
	}

	summary, err := r.Run(ctx, sources, io.Discard)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.Fetched != 2 || summary.Inserted != 2 {
		t.Errorf("summary = %d fetched / %d inserted, want 2/2", summary.Fetched, summary.Inserted)
	}
	if summary.ByType[types.ContentReview] != 1 || summary.ByType[types.ContentNews] != 1 {
		t.Errorf("ByType = %v, want one review and one news", summary.ByType)
	}
	if summary.Enriched[types.ProviderSpotify] != 1 {
		t.Errorf("Enriched = %v, want one spotify hit", summary.Enriched)
	}
	if summary.HasFailures() {
		t.Errorf("FailedSources = %v, want none", summary.FailedSources)
	}

	item, err := r.Store.GetItem(ctx, "https://example.com/reviews/tool-fear-inoculum")
	if err != nil || item == nil {
		t.Fatalf("GetItem() = %v, %v", item, err)
	}
	if item.ContentType != types.ContentReview {
		t.Errorf("ContentType = %q, want review", item.ContentType)
	}
	if len(item.Artists) != 1 || item.Artists[0] != "Tool" || item.Album != "Fear Inoculum" {
		t.Errorf("extraction = %v / %q, want [Tool] / Fear Inoculum", item.Artists, item.Album)
	}
	if item.Score == nil || *item.Score != 9.0 {
		t.Errorf("Score = %v, want 9.0", item.Score)
	}
	if item.Enrichment.Provider != types.ProviderSpotify {
		t.Errorf("Enrichment.Provider = %q, want spotify", item.Enrichment.Provider)
	}

	state, err := r.Store.GetState(ctx, "prog-report")
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if state.Failures != 0 || state.LastRun.IsZero() {
		t.Errorf("state = %+v, want failures reset and LastRun stamped", state)
	}
}

func TestRunRepeatIsStableAndDoesNotReenrich(t *testing.T) {
	server := feedServer(t, runTestFeed)
	backend := &countingBackend{}
	r := newTestRunner(t, backend)
	ctx := context.Background()

	sources := []types.SourceConfig{
		{ID: "prog-report", URL: server.URL, Kind: types.KindFeed, Enabled: true, ReviewPath: "/reviews/"},
	}

	if _, err := r.Run(ctx, sources, io.Discard); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	callsAfterFirst := backend.callCount()

	// Fresh enricher, as a new process would have: the terminal state
	// must come from the store, not the in-run cache.
	r.Enricher = enrich.New([]enrich.Backend{backend}, types.EnrichConfig{})

	summary, err := r.Run(ctx, sources, io.Discard)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if summary.Inserted != 0 || summary.Unchanged != 2 {
		t.Errorf("second run = %d inserted / %d unchanged, want 0/2", summary.Inserted, summary.Unchanged)
	}
	if backend.callCount() != callsAfterFirst {
		t.Errorf("backend called %d times after re-run, want %d (no re-enrichment)", backend.callCount(), callsAfterFirst)
	}
}

func TestRunSkipsDisabledSources(t *testing.T) {
	server := feedServer(t, runTestFeed)
	backend := &countingBackend{}
	r := newTestRunner(t, backend)

	sources := []types.SourceConfig{
		{ID: "disabled", URL: server.URL, Kind: types.KindFeed, Enabled: false},
	}

	summary, err := r.Run(context.Background(), sources, io.Discard)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Sources != 0 || summary.Fetched != 0 {
		t.Errorf("summary = %+v, want nothing processed", summary)
	}
}

func TestRunIsolatesFailingSource(t *testing.T) {
	server := feedServer(t, runTestFeed)
	backend := &countingBackend{}
	r := newTestRunner(t, backend)
	ctx := context.Background()

	sources := []types.SourceConfig{
		{ID: "down", URL: "http://127.0.0.1:1/feed", Kind: types.KindFeed, Enabled: true},
		{ID: "prog-report", URL: server.URL, Kind: types.KindFeed, Enabled: true, ReviewPath: "/reviews/"},
	}

	var progress strings.Builder
	summary, err := r.Run(ctx, sources, &progress)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(summary.FailedSources) != 1 || summary.FailedSources[0] != "down" {
		t.Fatalf("FailedSources = %v, want [down]", summary.FailedSources)
	}
	if summary.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2 from the healthy source", summary.Inserted)
	}

	state, err := r.Store.GetState(ctx, "down")
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if state.Failures != 1 {
		t.Errorf("Failures = %d, want 1 after a failed run", state.Failures)
	}
}

func TestRunCancelledContext(t *testing.T) {
	server := feedServer(t, runTestFeed)
	backend := &countingBackend{}
	r := newTestRunner(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sources := []types.SourceConfig{
		{ID: "prog-report", URL: server.URL, Kind: types.KindFeed, Enabled: true},
	}
	if _, err := r.Run(ctx, sources, io.Discard); err == nil {
		t.Fatal("expected a context error from a cancelled run")
	}
}

func TestBuildItem(t *testing.T) {
	profile := extract.NewRegistry().Get("default")
	src := types.SourceConfig{ID: "prog-report", ReviewPath: "/reviews/"}

	entry := types.RawEntry{
		SourceID:  "prog-report",
		URL:       "https://example.com/reviews/tool-fear-inoculum",
		Title:     "Tool – Fear Inoculum",
		Body:      "<p>Score: 9/10.</p>",
		Published: time.Date(2019, 8, 30, 10, 0, 0, 0, time.UTC),
	}

	item := BuildItem(src, entry, profile)
	if item.ContentType != types.ContentReview {
		t.Errorf("ContentType = %q, want review (URL path match)", item.ContentType)
	}
	if len(item.Artists) != 1 || item.Artists[0] != "Tool" {
		t.Errorf("Artists = %v, want [Tool]", item.Artists)
	}
	if item.Album != "Fear Inoculum" {
		t.Errorf("Album = %q, want Fear Inoculum", item.Album)
	}
	if item.Score == nil || *item.Score != 9.0 {
		t.Errorf("Score = %v, want 9.0", item.Score)
	}
	if item.ScoreRaw != "Score: 9/10" {
		t.Errorf("ScoreRaw = %q, want the verbatim text", item.ScoreRaw)
	}
}

func TestBuildItemWithoutScore(t *testing.T) {
	profile := extract.NewRegistry().Get("default")
	src := types.SourceConfig{ID: "prog-report"}

	item := BuildItem(src, types.RawEntry{
		URL:   "https://example.com/news/dt-tour",
		Title: "Dream Theater Announces New Tour",
	}, profile)

	if item.Score != nil {
		t.Errorf("Score = %v, want nil when no score idiom is present", item.Score)
	}
	if item.ContentType != types.ContentNews {
		t.Errorf("ContentType = %q, want news", item.ContentType)
	}
}

func TestBackfillWalksAndPersistsCursor(t *testing.T) {
	pageBody := func(n int) string {
		return fmt.Sprintf(`<html><body>
<div class="entry"><a href="/reviews/album-%d">Artist %d – Album %d</a></div>
</body></html>`, n, n, n)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		if _, err := fmt.Sscanf(r.URL.Path, "/page/%d", &n); err != nil || n < 1 || n > 3 {
			fmt.Fprint(w, `<html><body></body></html>`)
			return
		}
		fmt.Fprint(w, pageBody(n))
	}))
	defer server.Close()

	backend := &countingBackend{}
	r := newTestRunner(t, backend)
	ctx := context.Background()

	src := types.SourceConfig{
		ID:           "archive",
		URL:          server.URL + "/page/%d",
		Kind:         types.KindListing,
		ItemSelector: "div.entry",
		ReviewOnly:   true,
		Enabled:      true,
	}

	summary, err := r.Backfill(ctx, src, time.Time{}, 2, io.Discard)
	if err != nil {
		t.Fatalf("Backfill() error: %v", err)
	}
	if summary.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2 from the first two pages", summary.Inserted)
	}

	state, err := r.Store.GetState(ctx, "archive")
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if state.Cursor != 3 {
		t.Errorf("Cursor = %d, want 3 after walking two pages", state.Cursor)
	}

	// Resume: the next backfill picks up at page 3.
	summary, err = r.Backfill(ctx, src, time.Time{}, 2, io.Discard)
	if err != nil {
		t.Fatalf("second Backfill() error: %v", err)
	}
	if summary.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1 from the remaining page", summary.Inserted)
	}
}

func TestBackfillRejectsFeedSource(t *testing.T) {
	backend := &countingBackend{}
	r := newTestRunner(t, backend)

	src := types.SourceConfig{ID: "feed", URL: "http://example.com/feed", Kind: types.KindFeed}
	if _, err := r.Backfill(context.Background(), src, time.Time{}, 0, io.Discard); err == nil {
		t.Fatal("expected an error for a non-listing source")
	}
}
