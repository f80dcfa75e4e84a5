package ics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisync/internal/model"
)

func weeklyEvent() model.CalendarEvent {
	return model.CalendarEvent{
		Summary:     "CSD366 RL - L1",
		Description: "Reinforcement Learning",
		Location:    "D217",
		Start:       model.CalendarTime{DateTime: "2026-01-12T08:00:00+05:30", TimeZone: "Asia/Kolkata"},
		End:         model.CalendarTime{DateTime: "2026-01-12T08:55:00+05:30", TimeZone: "Asia/Kolkata"},
		ColorID:     "3",
		Reminders:   model.DefaultReminders(),
		Recurrence: []string{
			"RRULE:FREQ=WEEKLY;BYDAY=MO,WE;UNTIL=20260428T182959Z",
			"EXDATE;TZID=Asia/Kolkata:20260216T080000",
		},
	}
}

func TestExportWeeklyEvent(t *testing.T) {
	doc, err := Export([]model.CalendarEvent{weeklyEvent()})
	require.NoError(t, err)

	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.Contains(t, doc, "BEGIN:VEVENT")
	assert.Contains(t, doc, "SUMMARY:CSD366 RL - L1")
	assert.Contains(t, doc, "LOCATION:D217")
	assert.Contains(t, doc, "DESCRIPTION:Reinforcement Learning")

	// Instants are exported in UTC: 08:00 IST is 02:30 UTC, 08:55 IST is 03:25 UTC.
	assert.Contains(t, doc, "DTSTART:20260112T023000Z")
	assert.Contains(t, doc, "DTEND:20260112T032500Z")
	assert.Contains(t, doc, "RRULE:FREQ=WEEKLY;BYDAY=MO,WE;UNTIL=20260428T182959Z")
	assert.Contains(t, doc, "EXDATE:20260216T023000Z")

	assert.Contains(t, doc, "END:VEVENT")
	assert.Contains(t, doc, "END:VCALENDAR")
}

func TestExportNonRecurringEvent(t *testing.T) {
	event := weeklyEvent()
	event.Recurrence = nil
	event.Description = ""

	doc, err := Export([]model.CalendarEvent{event})
	require.NoError(t, err)

	assert.Contains(t, doc, "DTSTART:20260112T023000Z")
	assert.NotContains(t, doc, "RRULE")
	assert.NotContains(t, doc, "EXDATE")
	assert.NotContains(t, doc, "DESCRIPTION")
}

func TestExportRejectsBadEvent(t *testing.T) {
	event := weeklyEvent()
	event.Start.TimeZone = "Mars/Olympus"
	_, err := Export([]model.CalendarEvent{event})
	assert.Error(t, err)

	event = weeklyEvent()
	event.Start.DateTime = "yesterday"
	_, err = Export([]model.CalendarEvent{event})
	assert.Error(t, err)

	event = weeklyEvent()
	event.Recurrence = []string{
		"RRULE:FREQ=WEEKLY;BYDAY=MO;UNTIL=20260428T182959Z",
		"EXDATE;TZID=Asia/Kolkata:not-a-time",
	}
	_, err = Export([]model.CalendarEvent{event})
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.ics")

	require.NoError(t, WriteFile(path, []model.CalendarEvent{weeklyEvent()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCALENDAR")
}
