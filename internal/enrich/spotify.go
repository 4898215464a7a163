// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jurica/music-scout/internal/httputil"
	"github.com/jurica/music-scout/pkg/types"
)

// Spotify endpoints. Declared as vars so tests can substitute httptest
// servers.
var (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIBase  = "https://api.spotify.com/v1"
)

// tokenSafetyMargin refreshes the access token this long before the
// expiry Spotify reports, so a request never rides a token that dies
// in flight.
const tokenSafetyMargin = 60 * time.Second

// Spotify looks up releases through the Spotify Web API using the
// client-credentials flow; no user authorization is involved. The
// access token is obtained lazily on first use and refreshed before
// expiry.
type Spotify struct {
	client  *http.Client
	limiter *httputil.IntervalLimiter
	cfg     types.EnrichConfig

	// now is the clock, swappable in tests.
	now func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewSpotify creates the Spotify backend. It fails when the client
// credentials are not configured, so the cascade can be built without
// it rather than erroring per item.
func NewSpotify(client *http.Client, cfg types.EnrichConfig) (*Spotify, error) {
	if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
		return nil, fmt.Errorf("spotify credentials not configured")
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Spotify{
		client:  client,
		limiter: httputil.NewIntervalLimiter(cfg.MinInterval),
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// Name implements Backend.
func (s *Spotify) Name() types.Provider { return types.ProviderSpotify }

type spotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a valid token, requesting or refreshing one when
// the cached token is absent or within the safety margin of expiry.
func (s *Spotify) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expires) {
		return s.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, spotifyTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.SpotifyClientID, s.cfg.SpotifyClientSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}

	var tok spotifyTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty token")
	}

	s.token = tok.AccessToken
	s.expires = s.now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSafetyMargin)
	return s.token, nil
}

type spotifySearchResponse struct {
	Albums struct {
		Items []spotifyAlbum `json:"items"`
	} `json:"albums"`
}

type spotifyAlbum struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
	ReleaseDate string `json:"release_date"`
	AlbumType   string `json:"album_type"`
	TotalTracks int    `json:"total_tracks"`
	Label       string `json:"label"`
	Popularity  int    `json:"popularity"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
}

type spotifyArtist struct {
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

// Lookup implements Backend: search for the album, accept the top
// result only when both names clear the similarity threshold, then
// pull genres from the artist record. A miss returns (nil, nil).
func (s *Spotify) Lookup(ctx context.Context, artist, album string) (*types.EnrichmentResult, error) {
	q := url.Values{
		"q":     {fmt.Sprintf("artist:%s album:%s", artist, album)},
		"type":  {"album"},
		"limit": {"1"},
	}

	var sr spotifySearchResponse
	if err := s.getJSON(ctx, spotifyAPIBase+"/search?"+q.Encode(), &sr); err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}
	if len(sr.Albums.Items) == 0 {
		return nil, nil
	}

	top := sr.Albums.Items[0]
	if len(top.Artists) == 0 {
		return nil, nil
	}
	if !accepted(artist, album, top.Artists[0].Name, top.Name, s.cfg.SimilarityThreshold) {
		return nil, nil
	}

	res := &types.EnrichmentResult{
		Provider:        types.ProviderSpotify,
		AlbumID:         top.ID,
		ArtistID:        top.Artists[0].ID,
		ReleaseDate:     top.ReleaseDate,
		AlbumType:       top.AlbumType,
		Label:           top.Label,
		TotalTracks:     top.TotalTracks,
		AlbumPopularity: top.Popularity,
		FetchedAt:       s.now(),
	}
	if len(top.Images) > 0 {
		res.CoverURL = top.Images[0].URL
	}

	// Genres live on the artist record, not the album.
	var ar spotifyArtist
	if err := s.getJSON(ctx, spotifyAPIBase+"/artists/"+top.Artists[0].ID, &ar); err == nil {
		res.Genres = ar.Genres
		res.ArtistPopularity = ar.Popularity
	}
	return res, nil
}

func (s *Spotify) getJSON(ctx context.Context, rawURL string, out any) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, s.cfg.MaxRetries)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
