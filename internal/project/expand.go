package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"unisync/internal/model"
)

// Occurrence is one concrete instance of a projected event, used by the
// preview flow to sanity-check recurrence output before anything is synced.
type Occurrence struct {
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
}

// Occurrences re-parses the event's own recurrence strings and expands them
// into at most limit concrete instances in the event's timezone. Exclusion
// instants are applied. Non-recurring events yield exactly one occurrence.
func Occurrences(event model.CalendarEvent, limit int) ([]Occurrence, error) {
	if limit <= 0 {
		limit = 10
	}

	loc, err := time.LoadLocation(event.Start.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("event timezone: %w", err)
	}

	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return nil, fmt.Errorf("event start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, event.End.DateTime)
	if err != nil {
		return nil, fmt.Errorf("event end: %w", err)
	}
	start = start.In(loc)
	duration := end.Sub(start)

	ruleStr, exdates, err := splitRecurrence(event.Recurrence, loc)
	if err != nil {
		return nil, err
	}

	if ruleStr == "" {
		return []Occurrence{{
			Summary:  event.Summary,
			Location: event.Location,
			Start:    start,
			End:      start.Add(duration),
		}}, nil
	}

	rule, err := rrule.StrToRRule(strings.TrimPrefix(ruleStr, "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("parse recurrence rule: %w", err)
	}
	rule.DTStart(start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range exdates {
		set.ExDate(ex)
	}

	occurrences := make([]Occurrence, 0, limit)
	next := set.Iterator()
	for len(occurrences) < limit {
		occStart, ok := next()
		if !ok {
			break
		}
		occurrences = append(occurrences, Occurrence{
			Summary:  event.Summary,
			Location: event.Location,
			Start:    occStart,
			End:      occStart.Add(duration),
		})
	}
	return occurrences, nil
}

// splitRecurrence separates the weekly rule from the exclusion instants in an
// event's recurrence list.
func splitRecurrence(recurrence []string, loc *time.Location) (string, []time.Time, error) {
	var ruleStr string
	var exdates []time.Time

	for _, entry := range recurrence {
		switch {
		case strings.HasPrefix(entry, "RRULE:"):
			ruleStr = entry
		case strings.HasPrefix(entry, "EXDATE"):
			idx := strings.Index(entry, ":")
			if idx < 0 {
				return "", nil, fmt.Errorf("malformed exclusion rule %q", entry)
			}
			for _, part := range strings.Split(entry[idx+1:], ",") {
				t, err := time.ParseInLocation(exdateLayout, strings.TrimSpace(part), loc)
				if err != nil {
					return "", nil, fmt.Errorf("malformed exclusion instant %q: %w", part, err)
				}
				exdates = append(exdates, t)
			}
		default:
			return "", nil, fmt.Errorf("unrecognized recurrence entry %q", entry)
		}
	}
	return ruleStr, exdates, nil
}
