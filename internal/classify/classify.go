// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify assigns a content-type label to raw entries.
//
// Rules are evaluated in a fixed precedence order and the first match
// wins: the source's review URL path, then title keywords per label,
// then the source-level review-only hint. URL evidence dominates the
// lexical heuristics because publishers keep review sections stable
// while headlines drift.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jurica/music-scout/pkg/types"
)

// labelKeywords are matched against titles case-insensitively on word
// boundaries. Label order is the tie-break: earlier labels win when a
// title matches several sets.
var labelKeywords = []struct {
	label    types.ContentType
	keywords []string
}{
	{types.ContentReview, []string{"review", "rating", "score"}},
	{types.ContentNews, []string{"announce", "announces", "signs", "splits", "tour"}},
	{types.ContentPremiere, []string{"premiere", "premieres", "debuts", "unveils", "releases"}},
	{types.ContentInterview, []string{"interview", "talks", "speaks", "discusses"}},
}

var keywordPatterns = compileKeywords()

func compileKeywords() map[types.ContentType]*regexp.Regexp {
	patterns := make(map[types.ContentType]*regexp.Regexp, len(labelKeywords))
	for _, lk := range labelKeywords {
		alts := make([]string, len(lk.keywords))
		for i, kw := range lk.keywords {
			alts[i] = regexp.QuoteMeta(kw)
		}
		patterns[lk.label] = regexp.MustCompile(fmt.Sprintf(`(?i)\b(?:%s)\b`, strings.Join(alts, "|")))
	}
	return patterns
}

// Classify labels one raw entry using the source's configuration.
func Classify(src types.SourceConfig, entry types.RawEntry) types.ContentType {
	if src.ReviewPath != "" && strings.Contains(strings.ToLower(entry.URL), strings.ToLower(src.ReviewPath)) {
		return types.ContentReview
	}

	for _, lk := range labelKeywords {
		if keywordPatterns[lk.label].MatchString(entry.Title) {
			return lk.label
		}
	}

	if src.ReviewOnly {
		return types.ContentReview
	}

	return types.ContentOther
}
