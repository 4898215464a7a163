// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SourceKind identifies how a source's entries are retrieved.
type SourceKind string

const (
	// KindFeed sources publish a syndication feed (RSS/Atom) whose
	// recency window is controlled by the origin.
	KindFeed SourceKind = "feed"

	// KindListing sources expose a paginated HTML listing of entries
	// that is walked page by page.
	KindListing SourceKind = "listing"
)

// SourceConfig describes one external publisher. The static part is
// owned by the configuration file and read once at run start; the
// mutable run state lives in SourceState and is persisted by the store.
type SourceConfig struct {
	// ID is a short stable identifier (e.g. "sea-of-tranquility").
	ID string `json:"id" yaml:"id" mapstructure:"id"`

	// Name is the display name used in reports.
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// URL is the feed URL (KindFeed) or the listing base URL with a
	// %d page placeholder (KindListing).
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// Kind selects the transport variant.
	Kind SourceKind `json:"kind" yaml:"kind" mapstructure:"kind"`

	// Profile names the extraction profile applied to this source's
	// titles and bodies.
	Profile string `json:"profile" yaml:"profile" mapstructure:"profile"`

	// Weight is the relative trust weight carried through to the
	// persisted rows for downstream consumers.
	Weight float64 `json:"weight" yaml:"weight" mapstructure:"weight"`

	// Enabled sources participate in ingestion runs.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// ReviewOnly declares that everything this source publishes is a
	// review, used as a classification hint of last resort.
	ReviewOnly bool `json:"review_only,omitempty" yaml:"review_only,omitempty" mapstructure:"review_only"`

	// ReviewPath is a URL path fragment that marks an entry as a
	// review regardless of its title (e.g. "/reviews/").
	ReviewPath string `json:"review_path,omitempty" yaml:"review_path,omitempty" mapstructure:"review_path"`

	// ItemSelector and TitleSelector are goquery selectors locating
	// entry links and titles on a listing page (KindListing only).
	ItemSelector  string `json:"item_selector,omitempty" yaml:"item_selector,omitempty" mapstructure:"item_selector"`
	TitleSelector string `json:"title_selector,omitempty" yaml:"title_selector,omitempty" mapstructure:"title_selector"`

	// DateSelector locates an entry's publication date on the listing
	// page (KindListing only, optional).
	DateSelector string `json:"date_selector,omitempty" yaml:"date_selector,omitempty" mapstructure:"date_selector"`
}

// SourceState is the mutable per-source run state persisted between runs.
type SourceState struct {
	// SourceID joins the state row to its SourceConfig.
	SourceID string `json:"source_id" yaml:"source_id"`

	// Cursor is the next listing page to visit when resuming a
	// paginated walk. Zero means start from page 1.
	Cursor int `json:"cursor" yaml:"cursor"`

	// Failures counts consecutive failed runs for this source.
	Failures int `json:"failures" yaml:"failures"`

	// LastRun is the time of the last successful fetch, used only for
	// operator reporting.
	LastRun time.Time `json:"last_run" yaml:"last_run"`
}

// RawEntry is one entry retrieved from a source, before classification
// and extraction. RawEntries are transient: once folded into a
// CatalogItem they are discarded.
type RawEntry struct {
	// SourceID identifies the producing source.
	SourceID string

	// URL is the entry's origin URL and the pipeline's dedup key.
	URL string

	// Title is the entry headline.
	Title string

	// Published is the publication timestamp; zero when the origin
	// did not provide one.
	Published time.Time

	// Author is the byline, when available.
	Author string

	// Body is the raw summary or body text and may contain markup.
	Body string
}
