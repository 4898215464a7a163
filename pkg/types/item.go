// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ContentType labels what kind of editorial content an entry is.
type ContentType string

const (
	ContentReview    ContentType = "review"
	ContentNews      ContentType = "news"
	ContentPremiere  ContentType = "premiere"
	ContentInterview ContentType = "interview"
	ContentOther     ContentType = "other"
)

// Provider identifies which external catalog supplied enrichment
// metadata for an item.
type Provider string

const (
	// ProviderSpotify is the primary catalog.
	ProviderSpotify Provider = "spotify"

	// ProviderMusicBrainz is the fallback catalog.
	ProviderMusicBrainz Provider = "musicbrainz"

	// ProviderNone records that every provider was tried and none
	// produced an acceptable match. Distinct from the empty string,
	// which means enrichment has not been attempted.
	ProviderNone Provider = "none"
)

// EnrichmentResult holds canonical catalog metadata resolved for an
// item. Once Provider is a real catalog the result is immutable unless
// a re-enrichment is explicitly forced.
type EnrichmentResult struct {
	// Provider is the catalog that supplied this metadata.
	Provider Provider `json:"provider" yaml:"provider"`

	// AlbumID and ArtistID are provider-specific identifiers.
	AlbumID  string `json:"album_id,omitempty" yaml:"album_id,omitempty"`
	ArtistID string `json:"artist_id,omitempty" yaml:"artist_id,omitempty"`

	// Genres lists catalog genres, most significant first.
	Genres []string `json:"genres,omitempty" yaml:"genres,omitempty"`

	// CoverURL points at cover art for the release.
	CoverURL string `json:"cover_url,omitempty" yaml:"cover_url,omitempty"`

	// ReleaseDate is the catalog release date, as reported
	// (YYYY-MM-DD or just YYYY).
	ReleaseDate string `json:"release_date,omitempty" yaml:"release_date,omitempty"`

	// AlbumType distinguishes album, single, EP, compilation.
	AlbumType string `json:"album_type,omitempty" yaml:"album_type,omitempty"`

	// Label is the record label, when the catalog reports one.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// TotalTracks is the track count on the release.
	TotalTracks int `json:"total_tracks,omitempty" yaml:"total_tracks,omitempty"`

	// AlbumPopularity and ArtistPopularity are 0-100 provider scores
	// (Spotify only; -1 when not reported).
	AlbumPopularity  int `json:"album_popularity,omitempty" yaml:"album_popularity,omitempty"`
	ArtistPopularity int `json:"artist_popularity,omitempty" yaml:"artist_popularity,omitempty"`

	// FetchedAt stamps when the metadata was retrieved.
	FetchedAt time.Time `json:"fetched_at,omitempty" yaml:"fetched_at,omitempty"`
}

// Attempted reports whether an enrichment pass has run for this item,
// successfully or not.
func (e EnrichmentResult) Attempted() bool {
	return e.Provider != ""
}

// Resolved reports whether a real catalog supplied metadata.
func (e EnrichmentResult) Resolved() bool {
	return e.Provider != "" && e.Provider != ProviderNone
}

// CatalogItem is the persisted structured record produced by the
// pipeline. Its URL is globally unique; re-ingestion of the same URL
// updates content-derived fields in place and never duplicates a row.
type CatalogItem struct {
	// URL is the entry's origin URL and the unique dedup key.
	URL string `json:"url" yaml:"url"`

	// SourceID identifies the producing source.
	SourceID string `json:"source_id" yaml:"source_id"`

	// ContentType is the classifier's label.
	ContentType ContentType `json:"content_type" yaml:"content_type"`

	// Title is the original entry headline.
	Title string `json:"title" yaml:"title"`

	// Artists lists extracted artist names in order; the first is the
	// primary artist used for enrichment lookups.
	Artists []string `json:"artists,omitempty" yaml:"artists,omitempty"`

	// Album is the extracted album title, empty when no template matched.
	Album string `json:"album,omitempty" yaml:"album,omitempty"`

	// Tracks lists track names recovered from the body, in order.
	Tracks []string `json:"tracks,omitempty" yaml:"tracks,omitempty"`

	// ScoreRaw is the verbatim score text found in the body.
	ScoreRaw string `json:"score_raw,omitempty" yaml:"score_raw,omitempty"`

	// Score is the normalized 0-10 score; nil when no known score
	// idiom was found or the raw text was unparseable.
	Score *float64 `json:"score,omitempty" yaml:"score,omitempty"`

	// Genres carries the enriched genre list, duplicated out of
	// Enrichment for the serving layer's convenience.
	Genres []string `json:"genres,omitempty" yaml:"genres,omitempty"`

	// Author is the entry byline.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// Published is the entry's publication time.
	Published time.Time `json:"published" yaml:"published"`

	// Enrichment holds catalog metadata once resolved.
	Enrichment EnrichmentResult `json:"enrichment" yaml:"enrichment"`

	// CreatedAt and UpdatedAt are maintained by the store.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// PrimaryArtist returns the first extracted artist, or "".
func (c *CatalogItem) PrimaryArtist() string {
	if len(c.Artists) == 0 {
		return ""
	}
	return c.Artists[0]
}
