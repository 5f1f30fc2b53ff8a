package event

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Campus calendar feeds are commonly published as iCalendar. parseICS maps
// VEVENTs onto the Event model; fields iCalendar cannot express (match score,
// registration counts) take zero values.
//
// Recurrence expansion is out of scope: each VEVENT is taken as a single
// occurrence.

const defaultICSDurationMinutes = 60

func parseICS(body []byte) ([]Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0)
	for _, ve := range cal.Events() {
		ev, ok := parseVEvent(ve)
		if !ok {
			// Malformed entries are skipped; the rest of the feed stays usable.
			continue
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		return nil, errors.New("no usable VEVENTs in ICS feed")
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (Event, bool) {
	var out Event

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, false
	}
	out.ID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Organizer = strings.TrimSpace(p.Value)
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, false
	}
	out.Start = start

	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		out.DurationMinutes = int(end.Sub(start) / time.Minute)
	} else {
		out.DurationMinutes = defaultICSDurationMinutes
	}

	out.Category = categoryFromICS(ve)
	return out, true
}

func categoryFromICS(ve *ical.VEvent) Category {
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		for _, raw := range strings.Split(p.Value, ",") {
			c := Category(strings.TrimSpace(raw))
			if c.Valid() {
				return c
			}
		}
	}
	// General campus feed entries land in the catch-all bucket.
	return CategoryCultural
}
