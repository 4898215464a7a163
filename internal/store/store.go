// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists catalog items and per-source run state in SQLite.
// It is the pipeline's single persistence contract: upsert-by-URL and
// read-by-URL over catalog items, plus the mutable source state the
// fetcher maintains between runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jurica/music-scout/pkg/types"
)

// Store manages the music-scout SQLite database.
type Store struct {
	db *sql.DB
}

// New opens or creates the SQLite database at cfg.DBPath and creates
// the schema if it does not exist.
func New(cfg types.StoreConfig) (*Store, error) {
	path := cfg.DBPath
	if path == "" {
		path = "music-scout.db"
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS source_state (
			source_id TEXT PRIMARY KEY,
			cursor INTEGER NOT NULL DEFAULT 0,
			failures INTEGER NOT NULL DEFAULT 0,
			last_run TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			url TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			content_type TEXT NOT NULL,
			title TEXT NOT NULL,
			artists TEXT,
			album TEXT,
			tracks TEXT,
			score_raw TEXT,
			score REAL,
			genres TEXT,
			author TEXT,
			published TEXT,
			provider TEXT NOT NULL DEFAULT '',
			album_id TEXT,
			artist_id TEXT,
			cover_url TEXT,
			release_date TEXT,
			album_type TEXT,
			label TEXT,
			total_tracks INTEGER,
			album_popularity INTEGER,
			artist_popularity INTEGER,
			enriched_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_source_id ON items(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_content_type ON items(content_type)`,
		`CREATE INDEX IF NOT EXISTS idx_items_provider ON items(provider)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// GetState returns the persisted run state for a source. A source that
// has never run gets a zero state.
func (s *Store) GetState(ctx context.Context, sourceID string) (types.SourceState, error) {
	st := types.SourceState{SourceID: sourceID}
	var lastRun sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT cursor, failures, last_run FROM source_state WHERE source_id = ?`, sourceID,
	).Scan(&st.Cursor, &st.Failures, &lastRun)
	if err == sql.ErrNoRows {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("reading source state %s: %w", sourceID, err)
	}
	if lastRun.Valid && lastRun.String != "" {
		if t, parseErr := time.Parse(time.RFC3339, lastRun.String); parseErr == nil {
			st.LastRun = t
		}
	}
	return st, nil
}

// SaveState upserts the run state for a source.
func (s *Store) SaveState(ctx context.Context, st types.SourceState) error {
	lastRun := ""
	if !st.LastRun.IsZero() {
		lastRun = st.LastRun.UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO source_state (source_id, cursor, failures, last_run)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(source_id) DO UPDATE SET
			cursor=excluded.cursor, failures=excluded.failures, last_run=excluded.last_run`,
		st.SourceID, st.Cursor, st.Failures, lastRun,
	)
	if err != nil {
		return fmt.Errorf("saving source state %s: %w", st.SourceID, err)
	}
	return nil
}

// GetItem reads a catalog item by its URL. A missing URL returns
// (nil, nil).
func (s *Store) GetItem(ctx context.Context, url string) (*types.CatalogItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT url, source_id, content_type, title, artists, album, tracks,
			score_raw, score, genres, author, published,
			provider, album_id, artist_id, cover_url, release_date, album_type,
			label, total_tracks, album_popularity, artist_popularity, enriched_at,
			created_at, updated_at
		 FROM items WHERE url = ?`, url)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading item %s: %w", url, err)
	}
	return item, nil
}

// InsertItem writes a new catalog item. The enrichment columns are
// written as-is (normally empty at insert time).
func (s *Store) InsertItem(ctx context.Context, item *types.CatalogItem) error {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (url, source_id, content_type, title, artists, album, tracks,
			score_raw, score, genres, author, published,
			provider, album_id, artist_id, cover_url, release_date, album_type,
			label, total_tracks, album_popularity, artist_popularity, enriched_at,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.URL, item.SourceID, string(item.ContentType), item.Title,
		encodeList(item.Artists), item.Album, encodeList(item.Tracks),
		item.ScoreRaw, nullFloat(item.Score), encodeList(item.Genres),
		item.Author, timeString(item.Published),
		string(item.Enrichment.Provider), item.Enrichment.AlbumID, item.Enrichment.ArtistID,
		item.Enrichment.CoverURL, item.Enrichment.ReleaseDate, item.Enrichment.AlbumType,
		item.Enrichment.Label, item.Enrichment.TotalTracks,
		item.Enrichment.AlbumPopularity, item.Enrichment.ArtistPopularity,
		timeString(item.Enrichment.FetchedAt),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting item %s: %w", item.URL, err)
	}
	return nil
}

// UpdateContent overwrites the content-derived columns of an existing
// item (classification, extraction, score) and refreshes updated_at.
// Enrichment columns are deliberately left untouched.
func (s *Store) UpdateContent(ctx context.Context, item *types.CatalogItem) error {
	now := time.Now().UTC()
	item.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET content_type=?, title=?, artists=?, album=?, tracks=?,
			score_raw=?, score=?, author=?, published=?, updated_at=?
		 WHERE url = ?`,
		string(item.ContentType), item.Title, encodeList(item.Artists), item.Album,
		encodeList(item.Tracks), item.ScoreRaw, nullFloat(item.Score),
		item.Author, timeString(item.Published), now.Format(time.RFC3339),
		item.URL,
	)
	if err != nil {
		return fmt.Errorf("updating item %s: %w", item.URL, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating item %s: no such row", item.URL)
	}
	return nil
}

// UpdateEnrichment writes the enrichment columns for an item. The genre
// list is also mirrored into the item's genres column for the serving
// layer.
func (s *Store) UpdateEnrichment(ctx context.Context, url string, e types.EnrichmentResult) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET provider=?, album_id=?, artist_id=?, cover_url=?,
			release_date=?, album_type=?, label=?, total_tracks=?,
			album_popularity=?, artist_popularity=?, enriched_at=?, genres=?,
			updated_at=?
		 WHERE url = ?`,
		string(e.Provider), e.AlbumID, e.ArtistID, e.CoverURL,
		e.ReleaseDate, e.AlbumType, e.Label, e.TotalTracks,
		e.AlbumPopularity, e.ArtistPopularity, timeString(e.FetchedAt),
		encodeList(e.Genres), now,
		url,
	)
	if err != nil {
		return fmt.Errorf("updating enrichment %s: %w", url, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating enrichment %s: no such row", url)
	}
	return nil
}

// ListUnenriched returns items that have a primary artist and an album
// but no resolved provider. When includeMissed is true, items whose
// cascade already exhausted every provider (provider = "none") are
// included as well; otherwise only never-attempted items are returned.
func (s *Store) ListUnenriched(ctx context.Context, includeMissed bool) ([]*types.CatalogItem, error) {
	providers := `provider = ''`
	if includeMissed {
		providers = `provider IN ('', 'none')`
	}
	return s.queryItems(ctx,
		`SELECT url, source_id, content_type, title, artists, album, tracks,
			score_raw, score, genres, author, published,
			provider, album_id, artist_id, cover_url, release_date, album_type,
			label, total_tracks, album_popularity, artist_popularity, enriched_at,
			created_at, updated_at
		 FROM items
		 WHERE `+providers+` AND album != '' AND artists != '' AND artists != '[]'
		 ORDER BY published DESC`)
}

// ListEnrichable returns every item with a primary artist and an
// album, regardless of enrichment state. Used by forced re-enrichment
// passes.
func (s *Store) ListEnrichable(ctx context.Context) ([]*types.CatalogItem, error) {
	return s.queryItems(ctx,
		`SELECT url, source_id, content_type, title, artists, album, tracks,
			score_raw, score, genres, author, published,
			provider, album_id, artist_id, cover_url, release_date, album_type,
			label, total_tracks, album_popularity, artist_popularity, enriched_at,
			created_at, updated_at
		 FROM items
		 WHERE album != '' AND artists != '' AND artists != '[]'
		 ORDER BY published DESC`)
}

// ListBySource returns all items for one source, newest first.
func (s *Store) ListBySource(ctx context.Context, sourceID string) ([]*types.CatalogItem, error) {
	return s.queryItems(ctx,
		`SELECT url, source_id, content_type, title, artists, album, tracks,
			score_raw, score, genres, author, published,
			provider, album_id, artist_id, cover_url, release_date, album_type,
			label, total_tracks, album_popularity, artist_popularity, enriched_at,
			created_at, updated_at
		 FROM items WHERE source_id = ? ORDER BY published DESC`, sourceID)
}

// CountBySource returns per-source item counts for operator reports.
func (s *Store) CountBySource(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, COUNT(*) FROM items GROUP BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("counting items: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*types.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []*types.CatalogItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*types.CatalogItem, error) {
	var (
		item                       types.CatalogItem
		contentType, provider      string
		artists, tracks, genres    sql.NullString
		album, scoreRaw, author    sql.NullString
		published, enrichedAt      sql.NullString
		createdAt, updatedAt       string
		score                      sql.NullFloat64
		albumID, artistID          sql.NullString
		coverURL, releaseDate      sql.NullString
		albumType, label           sql.NullString
		totalTracks, albumPop      sql.NullInt64
		artistPop                  sql.NullInt64
	)

	err := row.Scan(&item.URL, &item.SourceID, &contentType, &item.Title,
		&artists, &album, &tracks, &scoreRaw, &score, &genres, &author, &published,
		&provider, &albumID, &artistID, &coverURL, &releaseDate, &albumType,
		&label, &totalTracks, &albumPop, &artistPop, &enrichedAt,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	item.ContentType = types.ContentType(contentType)
	item.Artists = decodeList(artists.String)
	item.Album = album.String
	item.Tracks = decodeList(tracks.String)
	item.ScoreRaw = scoreRaw.String
	if score.Valid {
		v := score.Float64
		item.Score = &v
	}
	item.Genres = decodeList(genres.String)
	item.Author = author.String
	item.Published = parseTime(published.String)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)

	item.Enrichment = types.EnrichmentResult{
		Provider:         types.Provider(provider),
		AlbumID:          albumID.String,
		ArtistID:         artistID.String,
		Genres:           decodeList(genres.String),
		CoverURL:         coverURL.String,
		ReleaseDate:      releaseDate.String,
		AlbumType:        albumType.String,
		Label:            label.String,
		TotalTracks:      int(totalTracks.Int64),
		AlbumPopularity:  int(albumPop.Int64),
		ArtistPopularity: int(artistPop.Int64),
		FetchedAt:        parseTime(enrichedAt.String),
	}
	return &item, nil
}

func encodeList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func decodeList(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil
	}
	return list
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
