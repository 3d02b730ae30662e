package markup

import (
	"strings"
	"unicode/utf8"
)

// TextFilter decides whether a (whitespace trimmed) cell text token is kept.
type TextFilter func(text string) bool

// DefaultTextFilter rejects empty tokens, tokens that start with a backslash
// escape and tokens containing anything outside of ASCII.
//
// Rejecting non-ASCII means names with accents are dropped from their cell,
// which shifts every later cell of that row one position to the left.
// The record builder rejects such rows instead of misreading them.
func DefaultTextFilter(text string) bool {
	if text == "" || text[0] == '\\' {
		return false
	}
	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// PermissiveTextFilter only rejects empty tokens and backslash escapes.
func PermissiveTextFilter(text string) bool {
	return text != "" && !strings.HasPrefix(text, `\`)
}
