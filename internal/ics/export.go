// Package ics serializes projected calendar events to an iCalendar file so
// the schedule can be reviewed in any calendar application before syncing.
package ics

import (
	"fmt"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"unisync/internal/model"
)

const icsTimeLayout = "20060102T150405Z"

// Export renders the events as a VCALENDAR document. All instants are written
// in UTC; the recurrence rules are carried over from the event descriptors
// with their exclusion instants converted to match.
func Export(events []model.CalendarEvent) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//unisync//schedule export//EN")

	for i, event := range events {
		ve, err := exportEvent(event, i)
		if err != nil {
			return "", err
		}
		cal.AddVEvent(ve)
	}

	return cal.Serialize(), nil
}

// WriteFile exports the events and writes the document to path.
func WriteFile(path string, events []model.CalendarEvent) error {
	doc, err := Export(events)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(doc), 0o644)
}

func exportEvent(event model.CalendarEvent, index int) (*ical.VEvent, error) {
	loc, err := time.LoadLocation(event.Start.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("event %q timezone: %w", event.Summary, err)
	}

	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return nil, fmt.Errorf("event %q start: %w", event.Summary, err)
	}
	end, err := time.Parse(time.RFC3339, event.End.DateTime)
	if err != nil {
		return nil, fmt.Errorf("event %q end: %w", event.Summary, err)
	}

	ve := ical.NewEvent(fmt.Sprintf("unisync-%d@unisync.local", index))
	ve.SetSummary(event.Summary)
	if event.Description != "" {
		ve.SetDescription(event.Description)
	}
	if event.Location != "" {
		ve.SetLocation(event.Location)
	}
	ve.SetDtStampTime(time.Now().UTC())
	ve.SetStartAt(start.UTC())
	ve.SetEndAt(end.UTC())

	for _, entry := range event.Recurrence {
		switch {
		case strings.HasPrefix(entry, "RRULE:"):
			ve.SetProperty(ical.ComponentPropertyRrule, strings.TrimPrefix(entry, "RRULE:"))
		case strings.HasPrefix(entry, "EXDATE"):
			value, convErr := exdatesToUTC(entry, loc)
			if convErr != nil {
				return nil, fmt.Errorf("event %q: %w", event.Summary, convErr)
			}
			ve.SetProperty(ical.ComponentPropertyExdate, value)
		}
	}

	return ve, nil
}

// exdatesToUTC rewrites the local exclusion instants of an EXDATE rule into
// UTC so they agree with the exported UTC DTSTART.
func exdatesToUTC(rule string, loc *time.Location) (string, error) {
	idx := strings.Index(rule, ":")
	if idx < 0 {
		return "", fmt.Errorf("malformed exclusion rule %q", rule)
	}

	parts := strings.Split(rule[idx+1:], ",")
	converted := make([]string, 0, len(parts))
	for _, part := range parts {
		t, err := time.ParseInLocation("20060102T150405", strings.TrimSpace(part), loc)
		if err != nil {
			return "", fmt.Errorf("malformed exclusion instant %q: %w", part, err)
		}
		converted = append(converted, t.UTC().Format(icsTimeLayout))
	}
	return strings.Join(converted, ","), nil
}
