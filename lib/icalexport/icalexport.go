package icalexport

import (
	"errors"
	"fmt"
	"siiau-backend/lib/catalog"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

var ErrNoEvents = errors.New("no schedule entry could be exported")

const localTimestamp = "20060102T150405"

var dayLetters = map[rune]time.Weekday{
	'L': time.Monday,
	'M': time.Tuesday,
	'I': time.Wednesday,
	'J': time.Thursday,
	'V': time.Friday,
	'S': time.Saturday,
}

var rruleDays = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

type clock struct {
	hour, minute int
}

func parseClock(s string) (clock, error) {
	if len(s) != 4 {
		return clock{}, fmt.Errorf("invalid time %q", s)
	}
	t, err := time.Parse("1504", s)
	if err != nil {
		return clock{}, fmt.Errorf("invalid time %q", s)
	}
	return clock{hour: t.Hour(), minute: t.Minute()}, nil
}

// parseHours parses "HHMM-HHMM".
func parseHours(s string) (clock, clock, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return clock{}, clock{}, fmt.Errorf("invalid hours %q", s)
	}
	from, err := parseClock(strings.TrimSpace(start))
	if err != nil {
		return clock{}, clock{}, err
	}
	to, err := parseClock(strings.TrimSpace(end))
	if err != nil {
		return clock{}, clock{}, err
	}
	if to.hour*60+to.minute <= from.hour*60+from.minute {
		return clock{}, clock{}, fmt.Errorf("hours %q end before they start", s)
	}
	return from, to, nil
}

// parseDays reads weekday letters (L M I J V S), dots and spaces are
// placeholders for days without class.
func parseDays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	seen := map[time.Weekday]bool{}
	for _, c := range strings.ToUpper(s) {
		if c == '.' || c == ' ' {
			continue
		}
		day, ok := dayLetters[c]
		if !ok {
			return nil, fmt.Errorf("invalid day %q in %q", c, s)
		}
		if !seen[day] {
			seen[day] = true
			out = append(out, day)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no days in %q", s)
	}
	return out, nil
}

// parsePeriod parses "dd/mm/yy - dd/mm/yy" into the first and last day.
func parsePeriod(s string, loc *time.Location) (time.Time, time.Time, error) {
	first, last, ok := strings.Cut(s, "-")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q", s)
	}
	start, err := time.ParseInLocation("02/01/06", strings.TrimSpace(first), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	end, err := time.ParseInLocation("02/01/06", strings.TrimSpace(last), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("period %q ends before it starts", s)
	}
	return start, end, nil
}

func at(day time.Time, c clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.hour, c.minute, 0, 0, day.Location())
}

// firstClass returns the first day on or after start that falls on one of days.
func firstClass(start time.Time, days []time.Weekday) time.Time {
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		for _, d := range days {
			if day.Weekday() == d {
				return day
			}
		}
	}
	return start
}

// addEvent adds the weekly event of entry to cal and returns the time span
// it covers.
func addEvent(cal *ics.Calendar, section catalog.Section, index int, entry catalog.ScheduleEntry, loc *time.Location) (time.Time, time.Time, error) {
	from, to, err := parseHours(entry.Hours)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	days, err := parseDays(entry.Days)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	periodStart, periodEnd, err := parsePeriod(entry.Period, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	first := firstClass(periodStart, days)
	if first.After(periodEnd) {
		return time.Time{}, time.Time{}, fmt.Errorf("no class between %s", entry.Period)
	}

	byDay := make([]string, len(days))
	for i, d := range days {
		byDay[i] = rruleDays[d]
	}
	until := time.Date(periodEnd.Year(), periodEnd.Month(), periodEnd.Day(), 23, 59, 59, 0, loc)

	event := cal.AddEvent(fmt.Sprintf("%s-%d@siiau", section.ID, index))
	event.SetDtStampTime(periodStart)
	event.SetProperty(ics.ComponentPropertyDtStart, at(first, from).Format(localTimestamp), ics.WithTZID(loc.String()))
	event.SetProperty(ics.ComponentPropertyDtEnd, at(first, to).Format(localTimestamp), ics.WithTZID(loc.String()))
	event.AddRrule(fmt.Sprintf(
		"FREQ=WEEKLY;BYDAY=%s;UNTIL=%s",
		strings.Join(byDay, ","),
		until.UTC().Format("20060102T150405Z"),
	))
	event.SetSummary(fmt.Sprintf("%s %s (%s)", section.SubjectCode, section.Name, section.SectionLabel))
	if location := strings.TrimSpace(entry.Building + " " + entry.Room); location != "" {
		event.SetLocation(location)
	}
	event.SetDescription(fmt.Sprintf("NRC: %s\nProfesor: %s", section.ID, section.Instructor()))
	return periodStart, until, nil
}

// Export turns the schedules of sections into weekly recurring events in loc.
// Schedule entries whose hours, days or period cannot be read are skipped,
// the number of skipped entries is returned. ErrNoEvents is returned if
// nothing could be exported. The calendar carries a VTIMEZONE for loc
// covering every exported period.
func Export(sections []catalog.Section, loc *time.Location) (*ics.Calendar, int, error) {
	if loc == nil {
		return nil, 0, fmt.Errorf("export calendar: nil location")
	}

	cal := ics.NewCalendarFor("siiau-backend")
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName("Horario SIIAU")
	cal.SetXWRTimezone(loc.String())

	var first, last time.Time
	events := 0
	skipped := 0
	for _, section := range sections {
		for i, entry := range section.Schedules {
			start, end, err := addEvent(cal, section, i, entry, loc)
			if err != nil {
				skipped++
				continue
			}
			if events == 0 || start.Before(first) {
				first = start
			}
			if events == 0 || end.After(last) {
				last = end
			}
			events++
		}
	}

	if events == 0 {
		return nil, skipped, ErrNoEvents
	}
	cal.Components = append([]ics.Component{newTimezone(loc, first, last)}, cal.Components...)
	return cal, skipped, nil
}
