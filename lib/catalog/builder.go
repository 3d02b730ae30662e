package catalog

import (
	"errors"
	"fmt"
	"siiau-backend/internal/telemetry"
	"siiau-backend/lib/markup"
)

// MinFields is the number of leading text cells a row needs to be a section.
const MinFields = 8

const (
	report_malformed_record = "build.malformed-record"
	report_empty_row        = "build.empty-row"
	report_empty_document   = "build.empty-document"
	report_section_count    = "build.sections"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrEmptyDocument   = errors.New("document has no tables")
)

func leadingCells(row *markup.Node) int {
	n := 0
	for _, c := range row.Children {
		if !c.IsCell() {
			break
		}
		n++
	}
	return n
}

// entryRows returns the rows of a nested table. Tables holding cells without
// a tr are treated as a single row.
func entryRows(table *markup.Node) [][]string {
	var out [][]string
	if values := table.Values(); len(values) > 0 {
		out = append(out, values)
	}
	for _, r := range table.Rows() {
		values := r.Values()
		if len(values) == 0 {
			continue
		}
		out = append(out, values)
	}
	return out
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func parseSchedules(table *markup.Node) []ScheduleEntry {
	var out []ScheduleEntry
	for _, v := range entryRows(table) {
		out = append(out, ScheduleEntry{
			Session:  at(v, 0),
			Hours:    at(v, 1),
			Days:     at(v, 2),
			Building: at(v, 3),
			Room:     at(v, 4),
			Period:   at(v, 5),
		})
	}
	return out
}

func parseInstructors(table *markup.Node) []InstructorEntry {
	var out []InstructorEntry
	for _, v := range entryRows(table) {
		if len(v) == 1 {
			out = append(out, InstructorEntry{Name: v[0]})
			continue
		}
		out = append(out, InstructorEntry{Session: at(v, 0), Name: at(v, 1)})
	}
	return out
}

// BuildSection turns one extracted row into a Section. The row must start with
// MinFields text cells; a nested table right after them is read as the
// schedules and the one after that as the instructors.
func BuildSection(row *markup.Node) (Section, error) {
	n := leadingCells(row)
	if n < MinFields {
		return Section{}, fmt.Errorf("%w: got %d fields, need %d", ErrMalformedRecord, n, MinFields)
	}

	v := row.Children
	section := Section{
		Center:            v[0].Text,
		ID:                v[1].Text,
		SubjectCode:       v[2].Text,
		Name:              v[3].Text,
		SectionLabel:      v[4].Text,
		Credits:           v[5].Text,
		CapacityTotal:     v[6].Text,
		CapacityAvailable: v[7].Text,
	}

	rest := v[MinFields:]
	if len(rest) > 0 && rest[0].Kind == markup.KindTable {
		section.Schedules = parseSchedules(rest[0])
	}
	if len(rest) > 1 && rest[1].Kind == markup.KindTable {
		section.Instructors = parseInstructors(rest[1])
	}
	return section, nil
}

// BuildSections builds every row of the first top-level table of tree.
// Rows that cannot be built are reported and skipped.
// ErrEmptyDocument is returned (along with no sections) when tree has no tables.
func BuildSections(tree *markup.Node, tel telemetry.API) ([]Section, error) {
	tables := tree.Tables()
	if len(tables) == 0 {
		tel.ReportWarning(report_empty_document)
		return nil, ErrEmptyDocument
	}

	var sections []Section
	for i, row := range tables[0].Rows() {
		if len(row.Children) == 0 {
			tel.ReportDebug(report_empty_row, telemetry.KV{Key: "row", Value: i})
			continue
		}
		section, err := BuildSection(row)
		if err != nil {
			tel.ReportWarning(
				report_malformed_record,
				err,
				telemetry.KV{Key: "row", Value: i},
				telemetry.KV{Key: "data", Value: row.String()},
			)
			continue
		}
		sections = append(sections, section)
	}

	tel.ReportCount(report_section_count, int64(len(sections)))
	return sections, nil
}
