package icalexport

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// maxTransitions bounds the observances written for a single calendar.
const maxTransitions = 64

// formatOffset formats a UTC offset in seconds as "+hhmm" (or "+hhmmss").
func formatOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	out := fmt.Sprintf("%s%02d%02d", sign, seconds/3600, seconds/60%60)
	if rest := seconds % 60; rest != 0 {
		out += fmt.Sprintf("%02d", rest)
	}
	return out
}

func observance(tz *ics.VTimezone, at time.Time) *ics.ComponentBase {
	if at.IsDST() {
		daylight := &ics.Daylight{}
		tz.Components = append(tz.Components, daylight)
		return &daylight.ComponentBase
	}
	return &tz.AddStandard().ComponentBase
}

// newTimezone describes the offsets loc uses between from and to, one
// observance per zone in effect. Observances start in the local time of the
// offset they replace.
func newTimezone(loc *time.Location, from, to time.Time) *ics.VTimezone {
	tz := ics.NewTimezone(loc.String())

	current := from.In(loc)
	for i := 0; i < maxTransitions; i++ {
		name, offset := current.Zone()
		start, end := current.ZoneBounds()

		previous := offset
		begins := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
		if !start.IsZero() {
			_, previous = start.Add(-time.Second).In(loc).Zone()
			begins = start.In(time.FixedZone("", previous))
		}

		o := observance(tz, current)
		o.SetProperty(ics.ComponentPropertyDtStart, begins.Format(localTimestamp))
		o.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetfrom), formatOffset(previous))
		o.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetto), formatOffset(offset))
		o.SetProperty(ics.ComponentProperty(ics.PropertyTzname), name)

		if end.IsZero() || !end.Before(to) {
			break
		}
		current = end.In(loc)
	}
	return tz
}
