package model

// CalendarEvent is one projected, calendar-service-ready event. The JSON shape
// matches the calendar API's event resource so a serialized event can be
// submitted verbatim to the event-creation call. Events are constructed fresh
// per (batch, timing) pair and never mutated afterwards.
type CalendarEvent struct {
	Summary     string       `json:"summary"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location"`
	Start       CalendarTime `json:"start"`
	End         CalendarTime `json:"end"`
	ColorID     string       `json:"colorId"`
	Reminders   Reminders    `json:"reminders"`

	// Recurrence holds 0-2 rule strings: a weekly-by-day-until rule,
	// optionally followed by an exclusion-dates rule.
	Recurrence []string `json:"recurrence,omitempty"`
}

// CalendarTime is a local timestamp paired with its IANA timezone name.
type CalendarTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Reminders mirrors the calendar API's reminder settings.
type Reminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []ReminderOverride `json:"overrides"`
}

// ReminderOverride is a single non-default reminder.
type ReminderOverride struct {
	Method  string `json:"method"`
	Minutes int64  `json:"minutes"`
}

// DefaultReminders returns the fixed reminder policy for projected events:
// popup reminders 15 and 30 minutes before, default reminders disabled.
func DefaultReminders() Reminders {
	return Reminders{
		UseDefault: false,
		Overrides: []ReminderOverride{
			{Method: "popup", Minutes: 15},
			{Method: "popup", Minutes: 30},
		},
	}
}
