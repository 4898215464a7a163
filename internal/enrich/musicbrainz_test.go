// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jurica/music-scout/internal/httputil"
	"github.com/jurica/music-scout/pkg/types"
)

const mbSearchBody = `{
  "releases": [
    {
      "id": "rel1",
      "title": "Fear Inoculum",
      "date": "2019-08-30",
      "artist-credit": [{"artist": {"id": "art1", "name": "Tool"}}]
    }
  ]
}`

type mbTestState struct {
	releaseTags string
	artistTags  string
	coverStatus int
	coverBody   string
	userAgents  []string
}

func newMusicBrainzTest(t *testing.T, state *mbTestState) *MusicBrainz {
	t.Helper()

	mbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state.userAgents = append(state.userAgents, r.Header.Get("User-Agent"))
		switch {
		case r.URL.Path == "/release" && r.URL.Query().Get("query") != "":
			fmt.Fprint(w, mbSearchBody)
		case strings.HasPrefix(r.URL.Path, "/release/"):
			fmt.Fprint(w, state.releaseTags)
		case strings.HasPrefix(r.URL.Path, "/artist/"):
			fmt.Fprint(w, state.artistTags)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(mbServer.Close)

	coverServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if state.coverStatus != 0 && state.coverStatus != http.StatusOK {
			http.Error(w, "not found", state.coverStatus)
			return
		}
		fmt.Fprint(w, state.coverBody)
	}))
	t.Cleanup(coverServer.Close)

	origMB, origCover := musicBrainzAPIBase, coverArtAPIBase
	musicBrainzAPIBase, coverArtAPIBase = mbServer.URL, coverServer.URL
	t.Cleanup(func() { musicBrainzAPIBase, coverArtAPIBase = origMB, origCover })

	mb := NewMusicBrainz(nil, types.EnrichConfig{
		HTTPConfig:          types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "music-scout-test/0.1"},
		MusicBrainzContact:  "ops@example.com",
		SimilarityThreshold: 0.8,
	})
	// No polite-pool pacing in tests.
	mb.limiter = httputil.NewIntervalLimiter(0)
	return mb
}

func TestMusicBrainzLookup(t *testing.T) {
	state := &mbTestState{
		releaseTags: `{"tags": [{"name": "progressive metal", "count": 7}, {"name": "art rock", "count": 3}, {"name": "ignored", "count": 0}]}`,
		coverBody:   `{"images": [{"front": true, "image": "https://caa.example.com/full.jpg", "thumbnails": {"small": "https://caa.example.com/small.jpg"}}]}`,
	}
	mb := newMusicBrainzTest(t, state)

	res, err := mb.Lookup(context.Background(), "Tool", "Fear Inoculum")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if res == nil {
		t.Fatal("Lookup() = nil, want a match")
	}
	if res.Provider != types.ProviderMusicBrainz {
		t.Errorf("Provider = %q", res.Provider)
	}
	if res.AlbumID != "rel1" || res.ArtistID != "art1" {
		t.Errorf("IDs = %q/%q, want rel1/art1", res.AlbumID, res.ArtistID)
	}
	if want := []string{"progressive metal", "art rock"}; !reflect.DeepEqual(res.Genres, want) {
		t.Errorf("Genres = %v, want %v (zero-count tags dropped)", res.Genres, want)
	}
	if res.CoverURL != "https://caa.example.com/small.jpg" {
		t.Errorf("CoverURL = %q, want the small front thumbnail", res.CoverURL)
	}
	if res.AlbumPopularity != -1 || res.ArtistPopularity != -1 {
		t.Errorf("popularity = %d/%d, want -1/-1 (not reported)", res.AlbumPopularity, res.ArtistPopularity)
	}
}

func TestMusicBrainzArtistTagFallback(t *testing.T) {
	state := &mbTestState{
		releaseTags: `{"tags": []}`,
		artistTags:  `{"tags": [{"name": "progressive metal", "count": 12}]}`,
		coverStatus: http.StatusNotFound,
	}
	mb := newMusicBrainzTest(t, state)

	res, err := mb.Lookup(context.Background(), "Tool", "Fear Inoculum")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if res == nil {
		t.Fatal("Lookup() = nil, want a match")
	}
	if want := []string{"progressive metal"}; !reflect.DeepEqual(res.Genres, want) {
		t.Errorf("Genres = %v, want artist tags as fallback", res.Genres)
	}
	if res.CoverURL != "" {
		t.Errorf("CoverURL = %q, want empty when the archive has no art", res.CoverURL)
	}
}

func TestMusicBrainzSendsContactUserAgent(t *testing.T) {
	state := &mbTestState{releaseTags: `{"tags": []}`, artistTags: `{"tags": []}`, coverStatus: http.StatusNotFound}
	mb := newMusicBrainzTest(t, state)

	if _, err := mb.Lookup(context.Background(), "Tool", "Fear Inoculum"); err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if len(state.userAgents) == 0 {
		t.Fatal("no requests recorded")
	}
	for _, ua := range state.userAgents {
		if !strings.Contains(ua, "ops@example.com") {
			t.Errorf("User-Agent %q missing the contact address", ua)
		}
	}
}

func TestMusicBrainzLookupNoResults(t *testing.T) {
	state := &mbTestState{}
	mb := newMusicBrainzTest(t, state)

	// Re-point at a server that returns an empty result set.
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"releases": []}`)
	}))
	defer empty.Close()
	orig := musicBrainzAPIBase
	musicBrainzAPIBase = empty.URL
	defer func() { musicBrainzAPIBase = orig }()

	res, err := mb.Lookup(context.Background(), "Tool", "Fear Inoculum")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if res != nil {
		t.Errorf("Lookup() = %+v, want nil for no results", res)
	}
}

func TestMusicBrainzLookupRejectsDissimilar(t *testing.T) {
	state := &mbTestState{releaseTags: `{"tags": []}`}
	mb := newMusicBrainzTest(t, state)

	res, err := mb.Lookup(context.Background(), "The Beatles", "Abbey Road")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if res != nil {
		t.Errorf("Lookup() = %+v, want nil when the top result fails the similarity check", res)
	}
}
