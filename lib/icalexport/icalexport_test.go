package icalexport

import (
	"siiau-backend/internal/chrono"
	"siiau-backend/lib/catalog"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/require"
)

func exampleSection() catalog.Section {
	return catalog.Section{
		ID:           "216502",
		SubjectCode:  "IL340",
		Name:         "Programacion",
		SectionLabel: "D01",
		Schedules: []catalog.ScheduleEntry{
			{Session: "01", Hours: "0700-0855", Days: ". M . J . .", Building: "DUCT1", Room: "A003", Period: "16/01/25 - 31/05/25"},
		},
		Instructors: []catalog.InstructorEntry{{Session: "01", Name: "PEREZ LOPEZ, JUAN"}},
	}
}

func TestParseHours(t *testing.T) {
	from, to, err := parseHours("0700-0855")
	require.NoError(t, err)
	require.Equal(t, clock{hour: 7}, from)
	require.Equal(t, clock{hour: 8, minute: 55}, to)

	for _, invalid := range []string{"", "0700", "07:00-08:55", "0900-0800", "2500-2600"} {
		_, _, err := parseHours(invalid)
		require.Error(t, err, invalid)
	}
}

func TestParseDays(t *testing.T) {
	days, err := parseDays(". M . J . .")
	require.NoError(t, err)
	require.Equal(t, []time.Weekday{time.Tuesday, time.Thursday}, days)

	days, err = parseDays("L I V S")
	require.NoError(t, err)
	require.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday, time.Saturday}, days)

	_, err = parseDays(". . . . . .")
	require.Error(t, err)
	_, err = parseDays("X")
	require.Error(t, err)
}

func TestParsePeriod(t *testing.T) {
	loc := chrono.Guadalajara()
	start, end, err := parsePeriod("16/01/25 - 31/05/25", loc)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.January, 16, 0, 0, 0, 0, loc), start)
	require.Equal(t, time.Date(2025, time.May, 31, 0, 0, 0, 0, loc), end)

	_, _, err = parsePeriod("31/05/25 - 16/01/25", loc)
	require.Error(t, err)
	_, _, err = parsePeriod("16/01/25", loc)
	require.Error(t, err)
}

func TestFirstClass(t *testing.T) {
	loc := chrono.Guadalajara()
	// 2025-01-16 is a thursday
	start := time.Date(2025, time.January, 16, 0, 0, 0, 0, loc)
	require.Equal(t, start, firstClass(start, []time.Weekday{time.Tuesday, time.Thursday}))
	require.Equal(
		t,
		time.Date(2025, time.January, 20, 0, 0, 0, 0, loc),
		firstClass(start, []time.Weekday{time.Monday}),
	)
}

func TestExport(t *testing.T) {
	loc := chrono.Guadalajara()
	cal, skipped, err := Export([]catalog.Section{exampleSection()}, loc)
	require.NoError(t, err)
	require.Equal(t, 0, skipped)

	events := cal.Events()
	require.Len(t, events, 1)
	event := events[0]
	require.Equal(t, "216502-0@siiau", event.Id())

	start, err := event.GetStartAt()
	require.NoError(t, err)
	require.True(t, start.Equal(time.Date(2025, time.January, 16, 7, 0, 0, 0, loc)), start)
	end, err := event.GetEndAt()
	require.NoError(t, err)
	require.True(t, end.Equal(time.Date(2025, time.January, 16, 8, 55, 0, 0, loc)), end)

	serialized := cal.Serialize()
	require.Contains(t, serialized, "DTSTART;TZID=America/Mexico_City:20250116T070000")
	require.Contains(t, serialized, "RRULE:FREQ=WEEKLY;BYDAY=TU,TH;UNTIL=20250601T055959Z")
	require.Contains(t, serialized, "LOCATION:DUCT1 A003")

	require.Contains(t, serialized, "TZID:America/Mexico_City")
	require.Contains(t, serialized, "TZOFFSETTO:-0600")
	require.Less(t, strings.Index(serialized, "BEGIN:VTIMEZONE"), strings.Index(serialized, "BEGIN:VEVENT"))

	parsed, err := ics.ParseCalendar(strings.NewReader(serialized))
	require.NoError(t, err)
	require.Len(t, parsed.Events(), 1)
	require.Len(t, parsed.Timezones(), 1)
	summary := parsed.Events()[0].GetProperty(ics.ComponentPropertySummary)
	require.NotNil(t, summary)
	require.Equal(t, "IL340 Programacion (D01)", summary.Value)
}

func TestExportSkipsUnparsable(t *testing.T) {
	section := exampleSection()
	section.Schedules = append(section.Schedules,
		catalog.ScheduleEntry{Session: "02", Hours: "", Days: "", Period: ""},
		catalog.ScheduleEntry{Session: "03", Hours: "1100-1255", Days: "L", Period: "mañana"},
	)

	cal, skipped, err := Export([]catalog.Section{section}, chrono.Guadalajara())
	require.NoError(t, err)
	require.Equal(t, 2, skipped)
	require.Len(t, cal.Events(), 1)
}

func TestExportNothing(t *testing.T) {
	section := exampleSection()
	section.Schedules = nil

	_, _, err := Export([]catalog.Section{section}, chrono.Guadalajara())
	require.ErrorIs(t, err, ErrNoEvents)

	_, _, err = Export(nil, nil)
	require.Error(t, err)
}

func TestFormatOffset(t *testing.T) {
	require.Equal(t, "-0600", formatOffset(-6*3600))
	require.Equal(t, "+0530", formatOffset(5*3600+30*60))
	require.Equal(t, "+0000", formatOffset(0))
	require.Equal(t, "-001730", formatOffset(-(17*60 + 30)))
}

func serializeTimezone(t testing.TB, tz *ics.VTimezone) string {
	var b strings.Builder
	err := tz.SerializeTo(&b, &ics.SerializationConfiguration{
		MaxLength:         75,
		PropertyMaxLength: 75,
		NewLine:           "\r\n",
	})
	require.NoError(t, err)
	return b.String()
}

func TestTimezoneObservances(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tz := newTimezone(
		loc,
		time.Date(2025, time.January, 16, 0, 0, 0, 0, loc),
		time.Date(2025, time.May, 31, 23, 59, 59, 0, loc),
	)
	serialized := serializeTimezone(t, tz)

	require.Contains(t, serialized, "TZID:America/New_York")
	require.Contains(t, serialized, "BEGIN:STANDARD\r\nDTSTART:20241103T020000\r\nTZOFFSETFROM:-0400\r\nTZOFFSETTO:-0500\r\nTZNAME:EST\r\nEND:STANDARD")
	require.Contains(t, serialized, "BEGIN:DAYLIGHT\r\nDTSTART:20250309T020000\r\nTZOFFSETFROM:-0500\r\nTZOFFSETTO:-0400\r\nTZNAME:EDT\r\nEND:DAYLIGHT")
	require.Equal(t, 1, strings.Count(serialized, "BEGIN:STANDARD"))
	require.Equal(t, 1, strings.Count(serialized, "BEGIN:DAYLIGHT"))

	fixed := time.FixedZone("UTC-6", -6*3600)
	tz = newTimezone(fixed, time.Date(2025, time.January, 16, 0, 0, 0, 0, fixed), time.Date(2025, time.May, 31, 0, 0, 0, 0, fixed))
	serialized = serializeTimezone(t, tz)
	require.Contains(t, serialized, "DTSTART:19700101T000000\r\nTZOFFSETFROM:-0600\r\nTZOFFSETTO:-0600\r\nTZNAME:UTC-6")
}
