package textutil

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// StripHTML removes script/style blocks and remaining tags from s, decodes
// HTML entities, and collapses runs of whitespace into single spaces. It is
// a regex pipeline, not a DOM parse: good enough for feed description and
// content fields, which are rarely well-formed HTML anyway.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	stripped := scriptStyleRe.ReplaceAllString(s, " ")
	stripped = tagRe.ReplaceAllString(stripped, " ")
	stripped = html.UnescapeString(stripped)
	stripped = strings.ReplaceAll(stripped, " ", " ")
	stripped = whitespaceRe.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(stripped)
}
