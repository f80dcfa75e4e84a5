// Package project turns normalized, enrolled Course records into
// calendar-service-ready event descriptors, expanding each batch and timing
// slot into one recurring event with recurrence and exclusion rules computed
// from the batch's date range and the configured exclusion-date set.
package project

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"unisync/internal/config"
	"unisync/internal/model"
)

const (
	untilLayout  = "20060102T150405Z"
	exdateLayout = "20060102T150405"
)

// Projector is a pure transformation over Course values. It holds only the
// read-only process configuration and performs no I/O.
type Projector struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Projector {
	return &Projector{cfg: cfg}
}

// FromCourses projects every course into its flat event list.
func (p *Projector) FromCourses(courses []model.Course) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	for _, course := range courses {
		courseEvents, err := p.FromCourse(course)
		if err != nil {
			return nil, err
		}
		events = append(events, courseEvents...)
	}
	return events, nil
}

// FromCourse produces one event per (batch, timing) pair. It is total over
// structurally valid courses; an error here means a construction-time
// invariant was violated upstream (hand-edited snapshot, bad config).
func (p *Projector) FromCourse(course model.Course) ([]model.CalendarEvent, error) {
	if err := course.Validate(); err != nil {
		return nil, err
	}

	shorthand := course.Shorthand()

	var events []model.CalendarEvent
	for _, batch := range course.Batches {
		summary := fmt.Sprintf("%s - %s", shorthand, batch.Component.Label())
		for _, timing := range batch.Timings {
			event, err := p.eventFor(summary, course.CourseTitle, batch, timing)
			if err != nil {
				return nil, fmt.Errorf("course %s: %w", course.CourseCode, err)
			}
			events = append(events, event)
		}
	}
	return events, nil
}

func (p *Projector) eventFor(summary, description string, batch model.CourseBatch, timing model.Timing) (model.CalendarEvent, error) {
	startHour, startMin, err := timing.StartClock()
	if err != nil {
		return model.CalendarEvent{}, err
	}
	endHour, endMin, err := timing.EndClock()
	if err != nil {
		return model.CalendarEvent{}, err
	}

	first := firstOccurrence(batch.StartDate, timing.Days)
	start := first.At(startHour, startMin, 0, p.cfg.Location)
	end := first.At(endHour, endMin, 0, p.cfg.Location)

	return model.CalendarEvent{
		Summary:     summary,
		Description: description,
		Location:    timing.Venue,
		Start:       model.CalendarTime{DateTime: start.Format(time.RFC3339), TimeZone: p.cfg.Timezone},
		End:         model.CalendarTime{DateTime: end.Format(time.RFC3339), TimeZone: p.cfg.Timezone},
		ColorID:     strconv.Itoa(batch.EventColor),
		Reminders:   model.DefaultReminders(),
		Recurrence:  p.buildRecurrence(batch, timing, startHour, startMin),
	}, nil
}

// firstOccurrence scans forward from the batch start date, at most 7 days
// inclusive, for the first date whose weekday is in the timing's day set.
// An empty day set anchors a one-shot event on the start date itself.
func firstOccurrence(start model.Date, days []model.Day) model.Date {
	if len(days) == 0 {
		return start
	}

	wanted := make(map[int]bool, len(days))
	for _, d := range days {
		wanted[d.Weekday()] = true
	}

	for i := 0; i < 7; i++ {
		candidate := start.AddDays(i)
		if wanted[candidate.Weekday()] {
			return candidate
		}
	}
	return start
}

// buildRecurrence emits the weekly rule and, when applicable, the exclusion
// rule. Empty day sets produce no rules at all (single-instance event).
func (p *Projector) buildRecurrence(batch model.CourseBatch, timing model.Timing, startHour, startMin int) []string {
	if len(timing.Days) == 0 {
		return nil
	}

	tokens := make([]string, len(timing.Days))
	for i, d := range timing.Days {
		tokens[i] = d.RRule()
	}

	// UNTIL is the batch end date at local end-of-day, expressed in UTC.
	until := batch.EndDate.At(23, 59, 59, p.cfg.Location).UTC().Format(untilLayout)
	rules := []string{
		fmt.Sprintf("RRULE:FREQ=WEEKLY;BYDAY=%s;UNTIL=%s", strings.Join(tokens, ","), until),
	}

	if exdate := p.buildExclusions(batch, timing, startHour, startMin); exdate != "" {
		rules = append(rules, exdate)
	}
	return rules
}

// buildExclusions collects every configured excluded date that falls inside
// the batch range on one of the timing's weekdays. Returns "" when none match;
// an empty exclusion rule is never emitted.
func (p *Projector) buildExclusions(batch model.CourseBatch, timing model.Timing, startHour, startMin int) string {
	var instants []string
	for _, excluded := range p.cfg.ExcludedDates {
		if excluded.Before(batch.StartDate) || excluded.After(batch.EndDate) {
			continue
		}
		if !dayMatches(excluded, timing.Days) {
			continue
		}
		instant := excluded.At(startHour, startMin, 0, p.cfg.Location).Format(exdateLayout)
		instants = append(instants, instant)
	}

	if len(instants) == 0 {
		return ""
	}
	return fmt.Sprintf("EXDATE;TZID=%s:%s", p.cfg.Timezone, strings.Join(instants, ","))
}

func dayMatches(date model.Date, days []model.Day) bool {
	for _, d := range days {
		if d.Weekday() == date.Weekday() {
			return true
		}
	}
	return false
}
