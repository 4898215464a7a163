// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score locates review score text in entry bodies and
// normalizes it to a canonical 0-10 scale.
//
// The locator and the normalizer are deliberately separate: the
// locator returns the verbatim text it matched so the original
// notation survives in the catalog row, and the normalizer maps any
// known notation to [0,10] or reports that it could not. Unknown text
// never produces a guessed value; a silent wrong score is worse than a
// missing one.
package score

import (
	"regexp"
	"strconv"
	"strings"
)

// Score idioms recognized in body text, tried in order. More explicit
// notations come first so "Score: 8.5/10" wins over a stray "3/4" in
// prose.
var locatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:overall\s+score|overall|score|rating)\s*:?\s*\d+(?:\.\d+)?\s*(?:/|out\s+of)\s*\d+`),
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*out\s+of\s*\d+`),
	regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?/(?:100|10|5)\b(?:\s*stars?)?`),
	regexp.MustCompile(`(?i)(?:grade|rating|score)\s*:\s*[A-F](?:[+-]|\b)`),
	regexp.MustCompile(`[★]+[☆]*`),
	regexp.MustCompile(`(?i)(?:score|rating)\s*:?\s*\d+(?:\.\d+)?%`),
}

// Find scans body text for a known score idiom and returns the first
// match verbatim, or "" when none is present.
func Find(body string) string {
	for _, p := range locatePatterns {
		if m := p.FindString(body); m != "" {
			return m
		}
	}
	return ""
}

// letterGrades is the fixed grade ladder, best first. Values are
// evenly spaced from 9.7 (A+) down to 1.0 (F).
var letterGrades = []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "D-", "F"}

func gradeValue(grade string) (float64, bool) {
	for i, g := range letterGrades {
		if g == grade {
			step := (9.7 - 1.0) / float64(len(letterGrades)-1)
			return 9.7 - float64(i)*step, true
		}
	}
	return 0, false
}

var (
	fractionRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:/|out\s+of)\s*(\d+)`)
	// A letter grade must be the whole value, and the label colon is
	// mandatory; "score a" in running prose is not a grade.
	letterRe  = regexp.MustCompile(`(?i)^(?:(?:grade|rating|score)\s*:\s*)?([A-F][+-]?)$`)
	percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	starsRe   = regexp.MustCompile(`^([★]+)([☆]*)$`)
	decimalRe = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// Normalize converts raw score text to a float in [0,10]. The second
// return value is false when the text matches no known idiom.
//
// Normalization is idempotent: a bare decimal already in [0,10] maps
// to itself, so re-normalizing an already-normalized value is a no-op.
func Normalize(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if m := fractionRe.FindStringSubmatch(s); m != nil {
		num, err1 := strconv.ParseFloat(m[1], 64)
		max, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil || max == 0 {
			return 0, false
		}
		return clamp(num / max * 10), true
	}

	if m := percentRe.FindStringSubmatch(s); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return clamp(pct / 10), true
	}

	if m := starsRe.FindStringSubmatch(s); m != nil {
		filled := len([]rune(m[1]))
		max := filled + len([]rune(m[2]))
		if max < 5 {
			max = 5
		}
		return clamp(float64(filled) / float64(max) * 10), true
	}

	if m := letterRe.FindStringSubmatch(s); m != nil {
		if v, ok := gradeValue(strings.ToUpper(m[1])); ok {
			return v, true
		}
	}

	if decimalRe.MatchString(s) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v > 10 {
			return 0, false
		}
		return v, true
	}

	return 0, false
}

func clamp(v float64) float64 {
	if v > 10 {
		return 10
	}
	if v < 0 {
		return 0
	}
	return v
}
