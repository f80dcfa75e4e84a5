package project

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisync/internal/config"
	"unisync/internal/model"
	"unisync/internal/parse"
)

func testConfig(t *testing.T, excluded ...model.Date) *config.Config {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	return &config.Config{
		DefaultStartDate:  model.NewDate(2026, time.January, 5),
		DefaultEndDate:    model.NewDate(2026, time.May, 1),
		DefaultEventColor: 1,
		Timezone:          "Asia/Kolkata",
		Location:          loc,
		ExcludedDates:     excluded,
	}
}

func lectureCourse(t *testing.T, days []model.Day, start, end model.Date) model.Course {
	t.Helper()

	timing, err := model.NewTiming("08:00", "08:55", days, "D217")
	require.NoError(t, err)

	batch, err := model.NewCourseBatch(3, model.SectionComponent(model.Lecture, 1),
		[]model.Timing{timing}, start, end)
	require.NoError(t, err)

	return model.NewCourse("CSD366", "Reinforcement Learning", true, []model.CourseBatch{batch})
}

func TestFromCourseWeeklyEvent(t *testing.T) {
	// 2026-02-16 is a Monday inside the batch range.
	p := New(testConfig(t, model.NewDate(2026, time.February, 16)))

	course := lectureCourse(t, []model.Day{model.Monday, model.Wednesday},
		model.NewDate(2026, time.January, 12), model.NewDate(2026, time.April, 28))

	events, err := p.FromCourse(course)
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, "CSD366 RL - L1", event.Summary)
	assert.Equal(t, "Reinforcement Learning", event.Description)
	assert.Equal(t, "D217", event.Location)
	assert.Equal(t, "3", event.ColorID)

	// 2026-01-12 is itself a Monday, so the first occurrence is the start date.
	assert.Equal(t, "2026-01-12T08:00:00+05:30", event.Start.DateTime)
	assert.Equal(t, "2026-01-12T08:55:00+05:30", event.End.DateTime)
	assert.Equal(t, "Asia/Kolkata", event.Start.TimeZone)
	assert.Equal(t, "Asia/Kolkata", event.End.TimeZone)

	require.Len(t, event.Recurrence, 2)
	assert.Equal(t, "RRULE:FREQ=WEEKLY;BYDAY=MO,WE;UNTIL=20260428T182959Z", event.Recurrence[0])
	assert.Equal(t, "EXDATE;TZID=Asia/Kolkata:20260216T080000", event.Recurrence[1])

	assert.False(t, event.Reminders.UseDefault)
	require.Len(t, event.Reminders.Overrides, 2)
	assert.Equal(t, "popup", event.Reminders.Overrides[0].Method)
	assert.Equal(t, int64(15), event.Reminders.Overrides[0].Minutes)
	assert.Equal(t, int64(30), event.Reminders.Overrides[1].Minutes)
}

func TestFromCourseFirstOccurrenceScansForward(t *testing.T) {
	p := New(testConfig(t))

	// 2026-01-15 is a Thursday; the first Monday or Wednesday after it is
	// Monday 2026-01-19.
	course := lectureCourse(t, []model.Day{model.Monday, model.Wednesday},
		model.NewDate(2026, time.January, 15), model.NewDate(2026, time.April, 28))

	events, err := p.FromCourse(course)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2026-01-19T08:00:00+05:30", events[0].Start.DateTime)
}

func TestFromCourseEmptyDaysYieldsOneShot(t *testing.T) {
	p := New(testConfig(t, model.NewDate(2026, time.February, 16)))

	course := lectureCourse(t, nil,
		model.NewDate(2026, time.January, 15), model.NewDate(2026, time.April, 28))

	events, err := p.FromCourse(course)
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, "2026-01-15T08:00:00+05:30", event.Start.DateTime)
	assert.Empty(t, event.Recurrence, "no day set means no recurrence and no exclusions")
}

func TestFromCourseNoMatchingExclusions(t *testing.T) {
	// 2026-02-17 is a Tuesday, outside the Monday/Wednesday timing.
	p := New(testConfig(t, model.NewDate(2026, time.February, 17)))

	course := lectureCourse(t, []model.Day{model.Monday, model.Wednesday},
		model.NewDate(2026, time.January, 12), model.NewDate(2026, time.April, 28))

	events, err := p.FromCourse(course)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.Len(t, events[0].Recurrence, 1, "no empty exclusion rule is emitted")
	assert.Contains(t, events[0].Recurrence[0], "RRULE:")
}

func TestFromCourseExclusionOutsideRangeIgnored(t *testing.T) {
	// Excluded Monday before the batch starts.
	p := New(testConfig(t, model.NewDate(2026, time.January, 5)))

	course := lectureCourse(t, []model.Day{model.Monday},
		model.NewDate(2026, time.January, 12), model.NewDate(2026, time.April, 28))

	events, err := p.FromCourse(course)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Recurrence, 1)
}

func TestFromCourseRejectsInvalidBatch(t *testing.T) {
	p := New(testConfig(t))

	course := model.Course{
		CourseCode:  "CSD366",
		CourseTitle: "Reinforcement Learning",
		IsEnrolled:  true,
		Batches: []model.CourseBatch{{
			EventColor: 99,
			Component:  model.SectionComponent(model.Lecture, 1),
			StartDate:  model.NewDate(2026, time.January, 12),
			EndDate:    model.NewDate(2026, time.April, 28),
		}},
	}

	_, err := p.FromCourse(course)
	assert.Error(t, err)
}

func TestParseThenProjectEndToEnd(t *testing.T) {
	cfg := testConfig(t)

	fragment := `<div id="win0divDERIVED_REGFRM1_DESCR20$0">` +
		`<table><tbody><tr><td class="PAGROUPDIVIDER">CSD366 - Reinforcement Learning</td></tr></tbody></table>` +
		`<span id="STATUS$0">Enrolled</span>` +
		`<table><tbody><tr id="trCLASS_MTG_VW$0_row1">` +
		`<td><a id="MTG_SECTION$0">L1</a></td>` +
		`<td><span id="MTG_SCHED$0">MoWe 08:00AM - 08:55AM</span></td>` +
		`<td><span id="MTG_LOC$0">D217 Floor 2</span></td>` +
		`<td><span id="MTG_DATES$0">12/01/2026 - 28/04/2026</span></td>` +
		`</tr></tbody></table></div>`

	courses := parse.New(cfg).ParseAll([]string{fragment})
	require.Len(t, courses, 1)

	events, err := New(cfg).FromCourses(model.FilterEnrolled(courses))
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, "CSD366 RL - L1", event.Summary)
	assert.Equal(t, "D217", event.Location)
	assert.Equal(t, "2026-01-12T08:00:00+05:30", event.Start.DateTime)
	require.NotEmpty(t, event.Recurrence)
	assert.Equal(t, "RRULE:FREQ=WEEKLY;BYDAY=MO,WE;UNTIL=20260428T182959Z", event.Recurrence[0])
}

func TestFromCoursesFlattensBatchesAndTimings(t *testing.T) {
	p := New(testConfig(t))

	monday, err := model.NewTiming("08:00", "08:55", []model.Day{model.Monday}, "D217")
	require.NoError(t, err)
	friday, err := model.NewTiming("10:00", "11:55", []model.Day{model.Friday}, "C317")
	require.NoError(t, err)

	start := model.NewDate(2026, time.January, 12)
	end := model.NewDate(2026, time.April, 28)

	lecture, err := model.NewCourseBatch(3, model.SectionComponent(model.Lecture, 1),
		[]model.Timing{monday, friday}, start, end)
	require.NoError(t, err)
	tutorial, err := model.NewCourseBatch(3, model.SectionComponent(model.Tutorial, 2),
		[]model.Timing{monday}, start, end)
	require.NoError(t, err)

	courses := []model.Course{
		model.NewCourse("CSD366", "Reinforcement Learning", true, []model.CourseBatch{lecture, tutorial}),
		model.NewCourse("MAT284", "Probability", true, []model.CourseBatch{tutorial}),
	}

	events, err := p.FromCourses(courses)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, "CSD366 RL - L1", events[0].Summary)
	assert.Equal(t, "CSD366 RL - L1", events[1].Summary)
	assert.Equal(t, "CSD366 RL - T2", events[2].Summary)
	assert.Equal(t, "MAT284 P - T2", events[3].Summary)
}
