package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Query is either a single lookup token or a list of them.
type Query struct {
	tokens []string
	many   bool
}

func Single(token string) Query {
	return Query{tokens: []string{token}}
}

func Many(tokens ...string) Query {
	return Query{tokens: tokens, many: true}
}

// ParseQuery makes a Single query out of one argument and a Many query out of
// anything else.
func ParseQuery(args []string) Query {
	if len(args) == 1 {
		return Single(args[0])
	}
	return Many(args...)
}

func (q Query) Tokens() []string {
	return q.tokens
}

func (q Query) IsMany() bool {
	return q.many
}

type TokenKind int

const (
	TokenGroup TokenKind = iota
	TokenSubjectCode
	TokenID
	TokenName
)

func (k TokenKind) String() string {
	switch k {
	case TokenGroup:
		return "group"
	case TokenSubjectCode:
		return "subject_code"
	case TokenID:
		return "nrc"
	case TokenName:
		return "name"
	}
	return "unknown"
}

func isDigits(token string) bool {
	if token == "" {
		return false
	}
	for _, c := range token {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// IsSubjectCode reports whether token has the shape of a subject code: it
// starts with the marker letter (case-insensitive), has no whitespace and
// contains at least one digit (e.g. "IL340", "i5288").
func (s *Snapshot) IsSubjectCode(token string) bool {
	first, _ := utf8.DecodeRuneInString(token)
	if token == "" || unicode.ToUpper(first) != s.marker {
		return false
	}
	hasDigit := false
	for _, c := range token {
		if unicode.IsSpace(c) {
			return false
		}
		if c >= '0' && c <= '9' {
			hasDigit = true
		}
	}
	return hasDigit
}

// Classify returns how a token would be resolved.
func (s *Snapshot) Classify(token string) TokenKind {
	token = strings.TrimSpace(token)
	if _, ok := s.Group(token); ok {
		return TokenGroup
	}
	if s.IsSubjectCode(token) {
		return TokenSubjectCode
	}
	if isDigits(token) {
		return TokenID
	}
	return TokenName
}

type resolver struct {
	snapshot *Snapshot
	seen     map[string]struct{}
	visiting map[string]struct{}
	out      []Section
}

func (r *resolver) add(section Section) {
	if _, ok := r.seen[section.ID]; ok {
		return
	}
	r.seen[section.ID] = struct{}{}
	r.out = append(r.out, section)
}

func (r *resolver) subject(code string) {
	s := r.snapshot
	if _, ok := s.bySubjectCode[code]; !ok {
		code = strings.ToUpper(code)
	}
	for _, section := range s.BySubjectCode(code) {
		r.add(section)
	}
}

// group resolves the members of a group as subject codes, members that are
// group names themselves are followed unless they are already being resolved.
func (r *resolver) group(name string, codes []string) {
	if _, ok := r.visiting[name]; ok {
		return
	}
	r.visiting[name] = struct{}{}
	defer delete(r.visiting, name)

	for _, code := range codes {
		code = strings.TrimSpace(code)
		if members, ok := r.snapshot.Group(code); ok {
			r.group(code, members)
			continue
		}
		r.subject(code)
	}
}

func (r *resolver) token(token string) {
	s := r.snapshot
	token = strings.TrimSpace(token)
	switch s.Classify(token) {
	case TokenGroup:
		codes, _ := s.Group(token)
		r.group(token, codes)
	case TokenSubjectCode:
		r.subject(token)
	case TokenID:
		if section, ok := s.Section(token); ok {
			r.add(section)
		}
	case TokenName:
		for _, section := range s.byName[strings.ToLower(token)] {
			r.add(section)
		}
	}
}

// Resolve looks up every token of q and returns the matching sections without
// duplicates, in the order they were first matched. Unknown tokens match nothing.
//
// A token is, in order of precedence, a curriculum group (exact), a subject code, an
// NRC (all digits) or a section name (case-insensitive, exact).
func (s *Snapshot) Resolve(q Query) []Section {
	r := resolver{
		snapshot: s,
		seen:     map[string]struct{}{},
		visiting: map[string]struct{}{},
	}
	for _, token := range q.tokens {
		r.token(token)
	}
	return r.out
}
