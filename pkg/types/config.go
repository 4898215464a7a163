// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "music-scout/0.1"). MusicBrainz rejects requests without one.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// PageDelay is the fixed delay between listing-page requests to a
	// single origin (default 1s).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`

	// MaxPages caps how many listing pages a single walk may visit
	// (default 50).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// MaxEntries caps how many entries are taken from a single feed
	// document or listing page (default 100).
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// EnrichConfig holds settings for the metadata enrichment stage.
type EnrichConfig struct {
	HTTPConfig `yaml:",inline"`

	// SpotifyClientID and SpotifyClientSecret authenticate the Spotify
	// client-credentials flow. Usually loaded from .secrets/.
	SpotifyClientID     string `json:"spotify_client_id,omitempty" yaml:"spotify_client_id,omitempty"`
	SpotifyClientSecret string `json:"spotify_client_secret,omitempty" yaml:"spotify_client_secret,omitempty"`

	// MusicBrainzContact is an email or URL identifying this deployment
	// to the MusicBrainz polite pool.
	MusicBrainzContact string `json:"musicbrainz_contact,omitempty" yaml:"musicbrainz_contact,omitempty"`

	// MinInterval is the minimum spacing between requests to a single
	// provider (default 1s; MusicBrainz requires at least that).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval"`

	// SimilarityThreshold is the minimum normalized title/artist
	// similarity for accepting a provider's top result (default 0.8).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// Concurrency bounds how many enrichment lookups may be in flight
	// across all sources (default 2).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxRetries is the retry budget for rate-limited provider calls.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// RunConfig holds settings for a whole ingestion run.
type RunConfig struct {
	// SourceWorkers bounds how many sources are fetched concurrently
	// (default 4).
	SourceWorkers int `json:"source_workers" yaml:"source_workers"`
}

// StoreConfig holds settings for the catalog store.
type StoreConfig struct {
	// DBPath is the SQLite database file (default "music-scout.db").
	DBPath string `json:"db_path" yaml:"db_path"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch"`
	Enrich EnrichConfig `json:"enrich" yaml:"enrich"`
	Run    RunConfig    `json:"run" yaml:"run"`
	Store  StoreConfig  `json:"store" yaml:"store"`
}
