package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Day is one of the seven weekdays. Values match the snapshot representation.
type Day string

const (
	Monday    Day = "MONDAY"
	Tuesday   Day = "TUESDAY"
	Wednesday Day = "WEDNESDAY"
	Thursday  Day = "THURSDAY"
	Friday    Day = "FRIDAY"
	Saturday  Day = "SATURDAY"
	Sunday    Day = "SUNDAY"
)

// weekOrder is Monday-first, matching the portal's weekday indexing.
var weekOrder = [7]Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayTokens = map[string]Day{
	"Mo": Monday,
	"Tu": Tuesday,
	"We": Wednesday,
	"Th": Thursday,
	"Fr": Friday,
	"Sa": Saturday,
	"Su": Sunday,
}

var dayRRule = map[Day]string{
	Monday:    "MO",
	Tuesday:   "TU",
	Wednesday: "WE",
	Thursday:  "TH",
	Friday:    "FR",
	Saturday:  "SA",
	Sunday:    "SU",
}

// Weekday returns the 0-indexed Monday-first weekday number.
func (d Day) Weekday() int {
	for i, day := range weekOrder {
		if day == d {
			return i
		}
	}
	return -1
}

// RRule returns the 2-letter recurrence-rule token (MO..SU).
func (d Day) RRule() string { return dayRRule[d] }

// DayFromWeekday maps a 0-indexed Monday-first weekday number back to a Day.
func DayFromWeekday(n int) (Day, error) {
	if n < 0 || n > 6 {
		return "", fmt.Errorf("weekday index %d out of range [0,6]", n)
	}
	return weekOrder[n], nil
}

// DayFromToken decodes a 2-letter schedule token ("Mo".."Su").
func DayFromToken(token string) (Day, error) {
	d, ok := dayTokens[token]
	if !ok {
		return "", fmt.Errorf("unrecognized day token %q", token)
	}
	return d, nil
}

// ComponentType is the pedagogical role of a batch.
type ComponentType string

const (
	Lecture   ComponentType = "LECTURE"
	Tutorial  ComponentType = "TUTORIAL"
	Practical ComponentType = "PRACTICAL"
)

// Abbrev returns the compact single-letter form (L/T/P).
func (c ComponentType) Abbrev() string {
	switch c {
	case Lecture:
		return "L"
	case Tutorial:
		return "T"
	case Practical:
		return "P"
	}
	return ""
}

// ComponentTypeFromLetter decodes the single-letter section code.
func ComponentTypeFromLetter(letter string) (ComponentType, bool) {
	switch strings.ToUpper(letter) {
	case "L":
		return Lecture, true
	case "T":
		return Tutorial, true
	case "P":
		return Practical, true
	}
	return "", false
}

// Component is the label of a batch: either a structured (type, number) pair
// extracted from a section code like "L1", or an opaque string kept verbatim
// when the section text did not match. Exactly one case is populated; use the
// constructors rather than literal structs.
type Component struct {
	Type   ComponentType `json:"type,omitempty"`
	Number int           `json:"number,omitempty"`
	Raw    string        `json:"raw,omitempty"`
}

// SectionComponent builds the structured case.
func SectionComponent(t ComponentType, number int) Component {
	return Component{Type: t, Number: number}
}

// RawComponent builds the free-text fallback case.
func RawComponent(text string) Component {
	return Component{Raw: text}
}

// IsSection reports whether the structured case is populated.
func (c Component) IsSection() bool { return c.Type != "" }

// Label renders the compact display form: "L1" for structured components,
// the raw text otherwise.
func (c Component) Label() string {
	if c.IsSection() {
		return c.Type.Abbrev() + strconv.Itoa(c.Number)
	}
	return c.Raw
}

func (c Component) validate() error {
	if c.IsSection() {
		if c.Raw != "" {
			return fmt.Errorf("component has both section (%s%d) and raw (%q) cases set", c.Type.Abbrev(), c.Number, c.Raw)
		}
		if c.Type.Abbrev() == "" {
			return fmt.Errorf("unknown component type %q", string(c.Type))
		}
		return nil
	}
	if c.Raw == "" {
		return fmt.Errorf("component has neither section nor raw case set")
	}
	return nil
}

var clockRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Timing is one weekly recurring slot within a batch. Start/end times are
// 24-hour "HH:MM" wall-clock strings; Days may be empty for a one-shot slot.
type Timing struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Days      []Day  `json:"days"`
	Venue     string `json:"venue"`
}

// NewTiming validates the time strings and builds a Timing.
func NewTiming(startTime, endTime string, days []Day, venue string) (Timing, error) {
	t := Timing{StartTime: startTime, EndTime: endTime, Days: days, Venue: venue}
	if err := t.Validate(); err != nil {
		return Timing{}, err
	}
	return t, nil
}

// Validate checks the HH:MM invariants and day values.
func (t Timing) Validate() error {
	if !clockRe.MatchString(t.StartTime) {
		return fmt.Errorf("malformed start time %q: expected 24-hour HH:MM", t.StartTime)
	}
	if !clockRe.MatchString(t.EndTime) {
		return fmt.Errorf("malformed end time %q: expected 24-hour HH:MM", t.EndTime)
	}
	for _, d := range t.Days {
		if d.Weekday() < 0 {
			return fmt.Errorf("unrecognized day %q", string(d))
		}
	}
	return nil
}

// StartClock returns the start time split into hour and minute.
func (t Timing) StartClock() (hour, min int, err error) {
	return splitClock(t.StartTime)
}

// EndClock returns the end time split into hour and minute.
func (t Timing) EndClock() (hour, min int, err error) {
	return splitClock(t.EndTime)
}

func splitClock(s string) (int, int, error) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("malformed time %q: expected 24-hour HH:MM", s)
	}
	hour, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return hour, min, nil
}

// Event color bounds of the calendar-service palette.
const (
	MinEventColor = 1
	MaxEventColor = 11
)

// CourseBatch is one component offering of a course with its own date range.
type CourseBatch struct {
	EventColor int       `json:"event_color"`
	Component  Component `json:"component"`
	Timings    []Timing  `json:"timings"`
	StartDate  Date      `json:"start_date"`
	EndDate    Date      `json:"end_date"`
}

// NewCourseBatch validates the color and date-range invariants.
func NewCourseBatch(color int, component Component, timings []Timing, start, end Date) (CourseBatch, error) {
	b := CourseBatch{
		EventColor: color,
		Component:  component,
		Timings:    timings,
		StartDate:  start,
		EndDate:    end,
	}
	if err := b.Validate(); err != nil {
		return CourseBatch{}, err
	}
	return b, nil
}

// Validate re-checks construction-time invariants. Snapshot loading calls this
// so hand-edited files cannot smuggle invalid values into the projector.
func (b CourseBatch) Validate() error {
	if b.EventColor < MinEventColor || b.EventColor > MaxEventColor {
		return fmt.Errorf("event color %d out of range [%d,%d]", b.EventColor, MinEventColor, MaxEventColor)
	}
	if err := b.Component.validate(); err != nil {
		return err
	}
	if b.StartDate.After(b.EndDate) {
		return fmt.Errorf("start date %s is after end date %s", b.StartDate, b.EndDate)
	}
	for _, t := range b.Timings {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Course is one enrollment-able academic course.
type Course struct {
	CourseCode      string        `json:"course_code"`
	CourseTitle     string        `json:"course_title"`
	CourseShorthand string        `json:"course_shorthand"`
	IsEnrolled      bool          `json:"is_enrolled"`
	Batches         []CourseBatch `json:"batches"`
}

// NewCourse builds a Course with its shorthand computed eagerly.
func NewCourse(code, title string, enrolled bool, batches []CourseBatch) Course {
	return Course{
		CourseCode:      code,
		CourseTitle:     title,
		CourseShorthand: Shorthand(code, title),
		IsEnrolled:      enrolled,
		Batches:         batches,
	}
}

// Shorthand returns the display label, recomputing it only when the stored
// field is empty (snapshots trimmed by hand). Deterministic for a given
// code/title pair.
func (c *Course) Shorthand() string {
	if c.CourseShorthand == "" {
		c.CourseShorthand = Shorthand(c.CourseCode, c.CourseTitle)
	}
	return c.CourseShorthand
}

// Validate checks every batch of the course.
func (c Course) Validate() error {
	for _, b := range c.Batches {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("course %s: %w", c.CourseCode, err)
		}
	}
	return nil
}

// Shorthand derives the compact display label from a course code and title:
// the upper-cased code followed by an acronym built from the first letter of
// each punctuation-stripped title token. "CSD366" + "Reinforcement Learning"
// gives "CSD366 RL".
func Shorthand(code, title string) string {
	var acronym strings.Builder
	for _, token := range strings.Fields(title) {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, token)
		if cleaned == "" {
			continue
		}
		first := []rune(cleaned)[0]
		acronym.WriteRune(unicode.ToUpper(first))
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if acronym.Len() == 0 {
		return code
	}
	return code + " " + acronym.String()
}

// FilterEnrolled keeps only the courses the student is enrolled in.
func FilterEnrolled(courses []Course) []Course {
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if c.IsEnrolled {
			out = append(out, c)
		}
	}
	return out
}
