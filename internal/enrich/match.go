// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"regexp"
	"strings"
)

// Name normalization for catalog matching: lowercase, strip
// punctuation and parenthesized qualifiers, fold dash variants, drop a
// leading article. "The Ocean (Collective)" and "ocean" compare equal.
var (
	punctRe       = regexp.MustCompile(`['".,!?:;()\[\]{}]`)
	dashRe        = regexp.MustCompile(`[–—―‐‑]`)
	leadingTheRe  = regexp.MustCompile(`^the\s+`)
	parentheticRe = regexp.MustCompile(`\s*\([^)]*\)\s*`)
	bracketRe     = regexp.MustCompile(`\s*\[[^\]]*\]\s*`)
)

func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = parentheticRe.ReplaceAllString(s, " ")
	s = bracketRe.ReplaceAllString(s, " ")
	s = punctRe.ReplaceAllString(s, "")
	s = dashRe.ReplaceAllString(s, "-")
	s = leadingTheRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Similarity returns a [0,1] ratio between two names after
// normalization: twice the total length of the matching blocks over
// the combined length, 1.0 for an exact match.
func Similarity(a, b string) float64 {
	a, b = normalizeName(a), normalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	matched := matchingLen(ra, rb)
	return 2 * float64(matched) / float64(len(ra)+len(rb))
}

// matchingLen sums the longest common block between the two slices and
// recurses on the pieces to either side of it.
func matchingLen(a, b []rune) int {
	ai, bi, size := longestBlock(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingLen(a[:ai], b[:bi]) +
		matchingLen(a[ai+size:], b[bi+size:])
}

func longestBlock(a, b []rune) (ai, bi, size int) {
	// prev[j] is the match length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					ai = i - size
					bi = j - size
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}

// accepted reports whether a candidate release is close enough to the
// extracted artist and album. Both names must clear the threshold; a
// perfect title with the wrong artist is a different record.
func accepted(wantArtist, wantAlbum, gotArtist, gotAlbum string, threshold float64) bool {
	if threshold <= 0 {
		threshold = 0.8
	}
	return Similarity(wantArtist, gotArtist) >= threshold &&
		Similarity(wantAlbum, gotAlbum) >= threshold
}
