package catalog

import (
	"siiau-backend/lib/textutil"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Search returns sections whose name or subject code contains term, or whose
// NRC contains it, in catalog order. limit <= 0 means no limit.
func (s *Snapshot) Search(term string, limit int) []Section {
	term = textutil.NormalizeQuery(term)
	if term == "" {
		return nil
	}

	var out []Section
	for _, id := range s.order {
		section := s.sections[id]
		if !strings.Contains(textutil.NormalizeQuery(section.Name), term) &&
			!strings.Contains(strings.ToLower(section.SubjectCode), term) &&
			!strings.Contains(section.ID, term) {
			continue
		}
		out = append(out, section)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// suggestionThreshold is the minimum Jaro-Winkler similarity for a name to be suggested.
const suggestionThreshold = 0.75

// Suggest returns up to n section names that look like term, most similar first.
func (s *Snapshot) Suggest(term string, n int) []string {
	term = textutil.NormalizeQuery(term)
	if term == "" || n <= 0 {
		return nil
	}

	type candidate struct {
		name  string
		score float64
	}
	var candidates []candidate
	seen := map[string]struct{}{}
	for _, id := range s.order {
		name := s.sections[id].Name
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		score := matchr.JaroWinkler(term, textutil.NormalizeQuery(name), false)
		if score < suggestionThreshold {
			continue
		}
		candidates = append(candidates, candidate{name: name, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}
