package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeQuery lowercases text, trims it and collapses inner whitespace
// into single spaces.
func NormalizeQuery(text string) string {
	text = strings.ToLower(text)
	text = strings.TrimSpace(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return text
}

// SplitList splits a comma separated list, trimming every item and dropping
// empty ones, e.g. "216502, IL340,,intro to systems" -> ["216502", "IL340", "intro to systems"]
func SplitList(text string) []string {
	var out []string
	for _, item := range strings.Split(text, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
