package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/jurica/music-scout/internal/enrich"
	"github.com/jurica/music-scout/internal/extract"
	"github.com/jurica/music-scout/internal/fetch"
	"github.com/jurica/music-scout/internal/ingest"
	"github.com/jurica/music-scout/internal/store"
	"github.com/jurica/music-scout/pkg/types"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultUserAgent   = "music-scout/0.1"
	defaultPageDelay   = 1 * time.Second
	defaultMinInterval = 1 * time.Second
	defaultDBPath      = "music-scout.db"
)

// pipelineConfig assembles the stage configs from the config file, the
// environment, and built-in defaults. Spotify credentials fall back to
// .secrets/ when the config file leaves them empty.
func pipelineConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("fetch.timeout"),
				UserAgent: viper.GetString("fetch.user_agent"),
			},
			PageDelay:  viper.GetDuration("fetch.page_delay"),
			MaxPages:   viper.GetInt("fetch.max_pages"),
			MaxEntries: viper.GetInt("fetch.max_entries"),
		},
		Enrich: types.EnrichConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("enrich.timeout"),
				UserAgent: viper.GetString("enrich.user_agent"),
			},
			SpotifyClientID:     secretDefault("spotify-client-id", viper.GetString("enrich.spotify_client_id")),
			SpotifyClientSecret: secretDefault("spotify-client-secret", viper.GetString("enrich.spotify_client_secret")),
			MusicBrainzContact:  secretDefault("musicbrainz-contact", viper.GetString("enrich.musicbrainz_contact")),
			MinInterval:         viper.GetDuration("enrich.min_interval"),
			SimilarityThreshold: viper.GetFloat64("enrich.similarity_threshold"),
			Concurrency:         viper.GetInt("enrich.concurrency"),
			MaxRetries:          viper.GetInt("enrich.max_retries"),
		},
		Run: types.RunConfig{
			SourceWorkers: viper.GetInt("run.source_workers"),
		},
		Store: types.StoreConfig{
			DBPath: viper.GetString("store.db_path"),
		},
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = defaultTimeout
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = defaultUserAgent
	}
	if cfg.Fetch.PageDelay == 0 {
		cfg.Fetch.PageDelay = defaultPageDelay
	}
	if cfg.Enrich.Timeout == 0 {
		cfg.Enrich.Timeout = defaultTimeout
	}
	if cfg.Enrich.UserAgent == "" {
		cfg.Enrich.UserAgent = defaultUserAgent
	}
	if cfg.Enrich.MinInterval == 0 {
		cfg.Enrich.MinInterval = defaultMinInterval
	}
	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = defaultDBPath
	}
	return cfg
}

// loadSources reads the ordered source list from the config file.
func loadSources() ([]types.SourceConfig, error) {
	var sources []types.SourceConfig
	if err := viper.UnmarshalKey("sources", &sources); err != nil {
		return nil, fmt.Errorf("parsing sources config: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources configured: add a sources: section to the config file")
	}
	return sources, nil
}

// findSource resolves a source ID against the configured list.
func findSource(sources []types.SourceConfig, id string) (types.SourceConfig, error) {
	for _, src := range sources {
		if src.ID == id {
			return src, nil
		}
	}
	return types.SourceConfig{}, fmt.Errorf("unknown source %q", id)
}

// loadProfiles builds the extraction profile registry: built-in
// defaults plus any profiles file named in the config.
func loadProfiles() (*extract.Registry, error) {
	registry := extract.NewRegistry()
	if path := viper.GetString("profiles_file"); path != "" {
		if err := registry.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// newRunner assembles the pipeline. The caller owns the returned
// store's lifetime.
func newRunner(cfg types.PipelineConfig, w io.Writer) (*ingest.Runner, *store.Store, error) {
	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	profiles, err := loadProfiles()
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	client := &http.Client{Timeout: cfg.Enrich.Timeout}
	backends := enrich.NewBackends(client, cfg.Enrich, w)

	return &ingest.Runner{
		Fetcher:  fetch.New(&http.Client{Timeout: cfg.Fetch.Timeout}, cfg.Fetch),
		Store:    st,
		Guard:    ingest.NewGuard(st),
		Enricher: enrich.New(backends, cfg.Enrich),
		Profiles: profiles,
		Workers:  cfg.Run.SourceWorkers,
	}, st, nil
}
