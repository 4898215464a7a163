// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"testing"

	"github.com/jurica/music-scout/pkg/types"
)

func TestClassify(t *testing.T) {
	plain := types.SourceConfig{ID: "s1"}
	withPath := types.SourceConfig{ID: "s2", ReviewPath: "/reviews/"}
	reviewOnly := types.SourceConfig{ID: "s3", ReviewOnly: true}

	tests := []struct {
		name  string
		src   types.SourceConfig
		url   string
		title string
		want  types.ContentType
	}{
		{
			name:  "review path dominates interview keyword",
			src:   withPath,
			url:   "https://example.com/reviews/tool-fear-inoculum",
			title: "Tool Interview: Inside Fear Inoculum",
			want:  types.ContentReview,
		},
		{
			name:  "title review keyword",
			src:   plain,
			url:   "https://example.com/p/123",
			title: "Opeth – In Cauda Venenum Review",
			want:  types.ContentReview,
		},
		{
			name:  "title interview keyword",
			src:   plain,
			url:   "https://example.com/p/124",
			title: "Mikael Åkerfeldt Talks New Album",
			want:  types.ContentInterview,
		},
		{
			name:  "title premiere keyword",
			src:   plain,
			url:   "https://example.com/p/125",
			title: "Haken Premieres New Track 'Taurus'",
			want:  types.ContentPremiere,
		},
		{
			name:  "title news keyword",
			src:   plain,
			url:   "https://example.com/p/126",
			title: "Dream Theater Announce World Tour",
			want:  types.ContentNews,
		},
		{
			name:  "review beats interview within keyword tier",
			src:   plain,
			url:   "https://example.com/p/127",
			title: "Review and Interview: Leprous",
			want:  types.ContentReview,
		},
		{
			name:  "keyword needs word boundary",
			src:   plain,
			url:   "https://example.com/p/128",
			title: "Preview of the Upcoming Festival Season",
			want:  types.ContentOther,
		},
		{
			name:  "review-only hint as last resort",
			src:   reviewOnly,
			url:   "https://example.com/p/129",
			title: "Cynic: Focus",
			want:  types.ContentReview,
		},
		{
			name:  "no evidence at all",
			src:   plain,
			url:   "https://example.com/p/130",
			title: "Weekly Roundup",
			want:  types.ContentOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := types.RawEntry{SourceID: tt.src.ID, URL: tt.url, Title: tt.title}
			if got := Classify(tt.src, entry); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
