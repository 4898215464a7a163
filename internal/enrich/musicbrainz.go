// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/jurica/music-scout/internal/httputil"
	"github.com/jurica/music-scout/pkg/types"
)

// MusicBrainz and Cover Art Archive endpoints. Vars so tests can
// substitute httptest servers.
var (
	musicBrainzAPIBase = "https://musicbrainz.org/ws/2"
	coverArtAPIBase    = "https://coverartarchive.org"
)

// maxGenreTags caps how many release/artist tags are kept as genres.
const maxGenreTags = 5

// MusicBrainz looks up releases through the MusicBrainz web service,
// with cover art from the Cover Art Archive. No credentials are
// needed, but the polite pool requires a meaningful User-Agent and at
// most one request per second.
type MusicBrainz struct {
	client  *http.Client
	limiter *httputil.IntervalLimiter
	cfg     types.EnrichConfig
	now     func() time.Time
}

// NewMusicBrainz creates the MusicBrainz backend.
func NewMusicBrainz(client *http.Client, cfg types.EnrichConfig) *MusicBrainz {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	interval := cfg.MinInterval
	if interval < time.Second {
		interval = time.Second
	}
	return &MusicBrainz{
		client:  client,
		limiter: httputil.NewIntervalLimiter(interval),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Name implements Backend.
func (m *MusicBrainz) Name() types.Provider { return types.ProviderMusicBrainz }

type mbReleaseSearch struct {
	Releases []mbRelease `json:"releases"`
}

type mbRelease struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	ArtistCredit []struct {
		Artist struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"artist-credit"`
}

type mbTagged struct {
	Tags []mbTag `json:"tags"`
}

type mbTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Lookup implements Backend: search for the release, accept the top
// result only when both names clear the similarity threshold, then
// collect genres from release tags (artist tags as fallback) and cover
// art from the Cover Art Archive.
func (m *MusicBrainz) Lookup(ctx context.Context, artist, album string) (*types.EnrichmentResult, error) {
	q := url.Values{
		"query": {fmt.Sprintf("artist:%q AND release:%q", artist, album)},
		"fmt":   {"json"},
		"limit": {"1"},
	}

	var sr mbReleaseSearch
	if err := m.getJSON(ctx, musicBrainzAPIBase+"/release?"+q.Encode(), &sr); err != nil {
		return nil, fmt.Errorf("musicbrainz search: %w", err)
	}
	if len(sr.Releases) == 0 {
		return nil, nil
	}

	top := sr.Releases[0]
	if len(top.ArtistCredit) == 0 {
		return nil, nil
	}
	credit := top.ArtistCredit[0].Artist
	if !accepted(artist, album, credit.Name, top.Title, m.cfg.SimilarityThreshold) {
		return nil, nil
	}

	res := &types.EnrichmentResult{
		Provider:         types.ProviderMusicBrainz,
		AlbumID:          top.ID,
		ArtistID:         credit.ID,
		ReleaseDate:      top.Date,
		AlbumPopularity:  -1,
		ArtistPopularity: -1,
		FetchedAt:        m.now(),
	}

	// Release tags first; many releases carry none, so fall back to
	// the artist's tags.
	res.Genres = m.fetchGenres(ctx, "/release/"+top.ID)
	if len(res.Genres) == 0 && credit.ID != "" {
		res.Genres = m.fetchGenres(ctx, "/artist/"+credit.ID)
	}

	if cover := m.fetchCoverArt(ctx, top.ID); cover != "" {
		res.CoverURL = cover
	}
	return res, nil
}

// fetchGenres returns the top tags on a release or artist record,
// highest vote count first. Tag fetch failures degrade to no genres.
func (m *MusicBrainz) fetchGenres(ctx context.Context, path string) []string {
	var tagged mbTagged
	if err := m.getJSON(ctx, musicBrainzAPIBase+path+"?inc=tags&fmt=json", &tagged); err != nil {
		return nil
	}

	tags := tagged.Tags
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Count > tags[j].Count })

	var genres []string
	for _, tag := range tags {
		if tag.Count <= 0 {
			continue
		}
		genres = append(genres, tag.Name)
		if len(genres) == maxGenreTags {
			break
		}
	}
	return genres
}

type coverArtResponse struct {
	Images []struct {
		Front      bool   `json:"front"`
		Image      string `json:"image"`
		Thumbnails struct {
			Small string `json:"small"`
		} `json:"thumbnails"`
	} `json:"images"`
}

// fetchCoverArt returns a cover image URL for a release, preferring
// the front cover's small thumbnail. Missing art (404) is normal and
// returns "".
func (m *MusicBrainz) fetchCoverArt(ctx context.Context, releaseID string) string {
	var ca coverArtResponse
	if err := m.getJSON(ctx, coverArtAPIBase+"/release/"+releaseID, &ca); err != nil {
		return ""
	}

	for _, img := range ca.Images {
		if img.Front {
			if img.Thumbnails.Small != "" {
				return img.Thumbnails.Small
			}
			return img.Image
		}
	}
	if len(ca.Images) > 0 {
		if ca.Images[0].Thumbnails.Small != "" {
			return ca.Images[0].Thumbnails.Small
		}
		return ca.Images[0].Image
	}
	return ""
}

func (m *MusicBrainz) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	ua := m.cfg.UserAgent
	if m.cfg.MusicBrainzContact != "" {
		ua += " (" + m.cfg.MusicBrainzContact + ")"
	}
	req.Header.Set("User-Agent", ua)

	resp, err := httputil.DoWithRetry(ctx, m.client, req, m.cfg.MaxRetries)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
