package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"siiau-backend/internal/telemetry"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// AllGroup resolves to every subject code present in a snapshot, "todo" is
// accepted as an alias. Both are matched exactly, like every group name.
const (
	AllGroup      = "all"
	AllGroupAlias = "todo"
)

const report_duplicate_id = "index.duplicate-id"

// Curriculum maps a group name (e.g. "primero") to an ordered list of subject
// codes. Group names are case-sensitive.
type Curriculum map[string][]string

type SnapshotOptions struct {
	Curriculum Curriculum
	// SubjectMarker is the first letter of every subject code, defaults to "I".
	// Only its first rune is used.
	SubjectMarker string
	// Telemetry defaults to telemetry.SlogAPI.
	Telemetry telemetry.API
}

// Snapshot is an immutable, fully indexed catalog. It must not be modified
// after NewSnapshot returns, publish a new one instead.
type Snapshot struct {
	sections      map[string]Section
	bySubjectCode map[string]map[string]Section
	byName        map[string][]Section
	curriculum    Curriculum

	order        []string
	subjectOrder []string
	subjectIDs   map[string][]string
	marker       rune
}

// subjectMarker returns the upper case first rune of marker, or 'I'.
func subjectMarker(marker string) rune {
	r, size := utf8.DecodeRuneInString(marker)
	if size == 0 || r == utf8.RuneError {
		return 'I'
	}
	return unicode.ToUpper(r)
}

func NewSnapshot(sections []Section, opts SnapshotOptions) *Snapshot {
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	tel = telemetry.NewScopedAPI("catalog", tel)

	s := &Snapshot{
		sections:      make(map[string]Section, len(sections)),
		bySubjectCode: map[string]map[string]Section{},
		byName:        map[string][]Section{},
		curriculum:    opts.Curriculum.clone(),
		subjectIDs:    map[string][]string{},
		marker:        subjectMarker(opts.SubjectMarker),
	}
	for _, section := range sections {
		s.insert(section, tel)
	}
	return s
}

func (c Curriculum) clone() Curriculum {
	out := make(Curriculum, len(c))
	for group, codes := range c {
		out[group] = slices.Clone(codes)
	}
	return out
}

func removeID(sections []Section, id string) []Section {
	return slices.DeleteFunc(sections, func(s Section) bool {
		return s.ID == id
	})
}

func (s *Snapshot) insert(section Section, tel telemetry.API) {
	previous, duplicate := s.sections[section.ID]
	if duplicate {
		tel.ReportWarning(
			report_duplicate_id,
			telemetry.KV{Key: "nrc", Value: section.ID},
			telemetry.KV{Key: "previous_subject", Value: previous.SubjectCode},
			telemetry.KV{Key: "subject", Value: section.SubjectCode},
		)

		oldName := strings.ToLower(previous.Name)
		s.byName[oldName] = removeID(s.byName[oldName], previous.ID)
		if len(s.byName[oldName]) == 0 {
			delete(s.byName, oldName)
		}
		if previous.SubjectCode != section.SubjectCode {
			delete(s.bySubjectCode[previous.SubjectCode], previous.ID)
			s.subjectIDs[previous.SubjectCode] = slices.DeleteFunc(
				s.subjectIDs[previous.SubjectCode],
				func(id string) bool { return id == previous.ID },
			)
		}
	} else {
		s.order = append(s.order, section.ID)
	}

	s.sections[section.ID] = section

	bySubject, ok := s.bySubjectCode[section.SubjectCode]
	if !ok {
		bySubject = map[string]Section{}
		s.bySubjectCode[section.SubjectCode] = bySubject
		s.subjectOrder = append(s.subjectOrder, section.SubjectCode)
	}
	if _, ok := bySubject[section.ID]; !ok {
		s.subjectIDs[section.SubjectCode] = append(s.subjectIDs[section.SubjectCode], section.ID)
	}
	bySubject[section.ID] = section

	name := strings.ToLower(section.Name)
	s.byName[name] = append(s.byName[name], section)
}

// Len is the number of unique sections.
func (s *Snapshot) Len() int {
	return len(s.sections)
}

// All returns every section in the order it was first seen.
func (s *Snapshot) All() []Section {
	out := make([]Section, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sections[id])
	}
	return out
}

// SubjectCodes returns every subject code that has at least one section, in
// the order they were first seen.
func (s *Snapshot) SubjectCodes() []string {
	out := make([]string, 0, len(s.subjectOrder))
	for _, code := range s.subjectOrder {
		if len(s.bySubjectCode[code]) > 0 {
			out = append(out, code)
		}
	}
	return out
}

// Groups returns the configured curriculum group names plus AllGroup, sorted.
func (s *Snapshot) Groups() []string {
	out := []string{AllGroup}
	for group := range s.curriculum {
		if group == AllGroup || group == AllGroupAlias {
			continue
		}
		out = append(out, group)
	}
	sort.Strings(out)
	return out
}

// Group returns the subject codes of a curriculum group, name must match a
// configured group exactly.
func (s *Snapshot) Group(name string) ([]string, bool) {
	if name == AllGroup || name == AllGroupAlias {
		return s.SubjectCodes(), true
	}
	codes, ok := s.curriculum[name]
	return slices.Clone(codes), ok
}

// Curriculum returns a copy of the configured groups.
func (s *Snapshot) Curriculum() Curriculum {
	return s.curriculum.clone()
}

// Section returns the section with the given NRC.
func (s *Snapshot) Section(id string) (Section, bool) {
	section, ok := s.sections[id]
	return section, ok
}

// BySubjectCode returns the sections of a subject code in the order they were
// first seen.
func (s *Snapshot) BySubjectCode(code string) []Section {
	bySubject := s.bySubjectCode[code]
	out := make([]Section, 0, len(bySubject))
	for _, id := range s.subjectIDs[code] {
		if section, ok := bySubject[id]; ok {
			out = append(out, section)
		}
	}
	return out
}

// ByName returns the sections named name (case-insensitive, exact).
func (s *Snapshot) ByName(name string) []Section {
	return slices.Clone(s.byName[strings.ToLower(name)])
}

type canonicalSnapshot struct {
	Sections   []Section  `json:"sections"`
	Curriculum Curriculum `json:"curriculum"`
}

// Digest is a hash of the snapshot contents, two snapshots built from the
// same document and curriculum have the same digest.
func (s *Snapshot) Digest() string {
	buff, err := json.Marshal(canonicalSnapshot{
		Sections:   s.All(),
		Curriculum: s.curriculum,
	})
	if err != nil {
		// only plain strings and slices are encoded
		panic(err)
	}
	sum := sha256.Sum256(buff)
	return hex.EncodeToString(sum[:])
}
