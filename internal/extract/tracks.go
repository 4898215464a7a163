// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanBody strips markup from an entry body, returning plain text
// with collapsed whitespace. Bodies without markup pass through
// unchanged apart from whitespace normalization.
func CleanBody(body string) string {
	if body == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return strings.Join(strings.Fields(body), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

var trackHeadingRe = regexp.MustCompile(`(?i)track[\s-]*list(?:ing)?`)

// durationSuffixRe strips trailing track durations: "(4:32)", "- 4:32"
// or a bare "4:32".
var durationSuffixRe = regexp.MustCompile(`\s*(?:\(|\-\s*)?\d{1,2}:\d{2}\)?\s*$`)

// trackMarkerRe matches the "1." / "1)" numbering that introduces each
// entry of a plain-text tracklist.
var trackMarkerRe = regexp.MustCompile(`\b(\d{1,2})[.)]\s+`)

// junkTrackRe rejects list items that are ads, links or other
// non-track content commonly embedded near tracklists.
var junkTrackRe = regexp.MustCompile(`(?i)[$€£]|ebook|buy now|purchase|available at|https?:|www\.|@`)

// Tracklist recovers an ordered track-name list from an entry body.
// Markup bodies are searched for a list element following a tracklist
// heading; plain-text bodies fall back to a numbered-line scan after a
// tracklist marker. An empty result means no tracklist was found,
// which is the common case for news and interviews.
func Tracklist(body string) []string {
	if body == "" {
		return nil
	}

	if tracks := tracklistFromHTML(body); len(tracks) > 0 {
		return tracks
	}
	return tracklistFromText(CleanBody(body))
}

func tracklistFromHTML(body string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var tracks []string
	doc.Find("h2, h3, h4, h5, h6, strong, b, p").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		if !trackHeadingRe.MatchString(heading.Text()) {
			return true
		}

		// The list is usually a following sibling of the heading, or
		// of its paragraph when the heading is inline markup.
		list := heading.NextAllFiltered("ol, ul").First()
		if list.Length() == 0 {
			list = heading.Parent().NextAllFiltered("ol, ul").First()
		}
		if list.Length() == 0 {
			return true
		}

		list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			if t := cleanTrackText(li.Text()); t != "" {
				tracks = append(tracks, t)
			}
		})
		return len(tracks) == 0
	})
	return tracks
}

func tracklistFromText(text string) []string {
	loc := trackHeadingRe.FindStringIndex(text)
	if loc == nil {
		return nil
	}

	section := text[loc[1]:]
	if len(section) > 800 {
		section = section[:800]
	}

	// Body text has its newlines collapsed by this point, so tracks
	// are recovered as the spans between consecutive numbering
	// markers. A list that does not start at 1 is prose, not a
	// tracklist.
	markers := trackMarkerRe.FindAllStringSubmatchIndex(section, -1)
	if len(markers) == 0 || section[markers[0][2]:markers[0][3]] != "1" {
		return nil
	}

	var tracks []string
	for i, m := range markers {
		end := len(section)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		if t := cleanTrackText(section[m[1]:end]); t != "" {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

func cleanTrackText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || len(s) > 100 {
		return ""
	}
	if junkTrackRe.MatchString(s) {
		return ""
	}
	return strings.TrimSpace(durationSuffixRe.ReplaceAllString(s, ""))
}
