// Package sanitize cleans user-provided board text before it is stored.
// This is part of the platform layer and contains no business logic.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`[ \t\f\v]+`)
)

// Text strips markup and surrounding whitespace from free text such as
// reason notes or cadence descriptions. Entities are decoded and the result
// is stripped again so encoded tags cannot survive.
func Text(s string) string {
	out := tagPattern.ReplaceAllString(s, "")
	out = html.UnescapeString(out)
	out = tagPattern.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// Label is Text for single-line values like stage names and reason labels:
// line breaks and runs of blanks collapse to one space.
func Label(s string) string {
	out := Text(s)
	out = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(out)
	return spacePattern.ReplaceAllString(out, " ")
}

// LabelPtr applies Label to an optional value.
func LabelPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := Label(*s)
	return &out
}
