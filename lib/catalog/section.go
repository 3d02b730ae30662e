package catalog

import (
	"strconv"
	"strings"
)

const (
	noInstructor = "No asignado"
	noSchedule   = "No definido"
)

// Section is one scheduled offering of a subject (identified by its NRC).
// All scalar fields are kept as the raw text found in the document,
// use the accessors for numeric interpretations.
type Section struct {
	Center            string            `json:"center"`
	ID                string            `json:"nrc"`
	SubjectCode       string            `json:"subject_code"`
	Name              string            `json:"name"`
	SectionLabel      string            `json:"section"`
	Credits           string            `json:"credits"`
	CapacityTotal     string            `json:"capacity_total"`
	CapacityAvailable string            `json:"capacity_available"`
	Schedules         []ScheduleEntry   `json:"schedules"`
	Instructors       []InstructorEntry `json:"instructors"`
}

type ScheduleEntry struct {
	Session  string `json:"session"`
	Hours    string `json:"hours"`
	Days     string `json:"days"`
	Building string `json:"building"`
	Room     string `json:"room"`
	Period   string `json:"period"`
}

type InstructorEntry struct {
	Session string `json:"session"`
	Name    string `json:"name"`
}

func parseCount(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0
	}
	return n
}

// AvailableCount is the number of open seats, 0 if the field is not a number.
func (s Section) AvailableCount() int {
	return parseCount(s.CapacityAvailable)
}

// TotalCount is the number of seats, 0 if the field is not a number.
func (s Section) TotalCount() int {
	return parseCount(s.CapacityTotal)
}

func (s Section) HasSeats() bool {
	return s.AvailableCount() > 0
}

// OccupancyPercent is the share of taken seats in [0, 100] (it can go beyond
// when the document reports negative availability). 0 when the total is unknown.
func (s Section) OccupancyPercent() float64 {
	total := s.TotalCount()
	if total <= 0 {
		return 0
	}
	taken := total - s.AvailableCount()
	return float64(taken) / float64(total) * 100
}

// Instructor returns the name of the first listed instructor.
func (s Section) Instructor() string {
	for _, i := range s.Instructors {
		if i.Name != "" {
			return i.Name
		}
	}
	return noInstructor
}

// FormattedSchedule renders the first schedule entry on a single line.
func (s Section) FormattedSchedule() string {
	if len(s.Schedules) == 0 {
		return noSchedule
	}
	e := s.Schedules[0]
	var parts []string
	for _, p := range []string{e.Hours, e.Days, e.Building, e.Room} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return noSchedule
	}
	return strings.Join(parts, " ")
}
