// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract parses artist, album, track and score information
// out of raw entries. Extraction is best-effort and never fails:
// fields that no template or scan matched are simply left empty.
//
// Per-source title shapes live in declarative profiles (see Profile)
// interpreted by a single generic matcher, so supporting a new
// publisher means adding data, not code.
package extract

import (
	"regexp"
	"strings"

	"github.com/jurica/music-scout/internal/score"
	"github.com/jurica/music-scout/pkg/types"
)

// Result holds everything the extractor recovered from one entry.
type Result struct {
	// Artists in order; the first is the primary artist.
	Artists []string

	// Album title, "" when no template matched one.
	Album string

	// Tracks recovered from the body tracklist or a {track}
	// placeholder.
	Tracks []string

	// ScoreRaw is the verbatim score text found in the body, for the
	// normalizer.
	ScoreRaw string
}

// nonAlbumTitle marks titles that talk about concerts, tours or other
// happenings rather than a release; matching titles skip artist/album
// extraction entirely.
var nonAlbumTitle = regexp.MustCompile(`(?i)\b(?:concert review|live review|tour dates|on tour|announces? tour|best of|top \d+|best albums)\b`)

// Extract applies the profile's templates to the entry title and scans
// the body for a score idiom and a tracklist.
func Extract(p *Profile, entry types.RawEntry) Result {
	var res Result

	body := CleanBody(entry.Body)
	res.ScoreRaw = score.Find(body)
	res.Tracks = Tracklist(entry.Body)

	title := strings.TrimSpace(entry.Title)
	if title == "" || nonAlbumTitle.MatchString(title) {
		return res
	}

	for _, tmpl := range p.compiled {
		m := tmpl.re.FindStringSubmatch(title)
		if m == nil {
			continue
		}

		fields := make(map[string]string, len(tmpl.groups))
		for i, name := range tmpl.groups {
			fields[name] = m[i+1]
		}

		artist := cleanArtist(fields["artist"])
		album := cleanAlbum(fields["album"])
		track := cleanTrack(fields["track"])

		// A template whose captures clean away to nothing is not a
		// real structural match; keep trying.
		if artist == "" && album == "" && track == "" {
			continue
		}

		if artist != "" {
			res.Artists = []string{artist}
		}
		res.Album = album
		if track != "" {
			res.Tracks = append([]string{track}, res.Tracks...)
		}
		break
	}

	return res
}

var (
	edgeJunkRe      = regexp.MustCompile(`^[\s\-–—"'` + "`" + `]+|[\s\-–—"'` + "`" + `]+$`)
	reviewSuffixRe  = regexp.MustCompile(`(?i)\s*\(?\s*(?:album\s+)?(?:review|rating|score)\s*\)?\s*$`)
	parentheticalRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	anniversaryRe   = regexp.MustCompile(`(?i)\s*[-–—]\s*\d+(?:st|nd|rd|th)?\s+anniversary.*$`)
)

func cleanArtist(s string) string {
	s = edgeJunkRe.ReplaceAllString(s, "")
	s = reviewSuffixRe.ReplaceAllString(s, "")
	s = anniversaryRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return ""
	}
	return s
}

func cleanAlbum(s string) string {
	s = edgeJunkRe.ReplaceAllString(s, "")
	s = reviewSuffixRe.ReplaceAllString(s, "")
	s = parentheticalRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return ""
	}
	// A standalone "Live" is a concert writeup, not an album; "Live
	// 2025" and the like are real titles.
	if strings.EqualFold(s, "live") {
		return ""
	}
	return s
}

func cleanTrack(s string) string {
	s = edgeJunkRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
