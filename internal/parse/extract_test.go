package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisync/internal/model"
)

func TestTo24h(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12:00AM", "00:00"},
		{"12:00PM", "12:00"},
		{"01:05PM", "13:05"},
		{"8:00AM", "08:00"},
		{"11:59PM", "23:59"},
		{"12:30AM", "00:30"},
	}
	for _, tt := range tests {
		got, err := to24h(tt.in)
		require.NoError(t, err, "to24h(%q)", tt.in)
		assert.Equal(t, tt.want, got, "to24h(%q)", tt.in)
	}

	for _, bad := range []string{"13:00PM", "0:30AM", "08:00", "8:60AM", "noonPM"} {
		_, err := to24h(bad)
		assert.Error(t, err, "to24h(%q)", bad)
	}
}

func TestCanonicalVenue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"D217 Floor 2", "D217"},
		{"c317a", "C317A"},
		{"Block B D217", "D217"},
		{"Main Auditorium", "Main Auditorium"},
		{"  Main Auditorium  ", "Main Auditorium"},
		{"", "TBA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canonicalVenue(tt.in), "canonicalVenue(%q)", tt.in)
	}
}

func TestParseComponent(t *testing.T) {
	assert.Equal(t, model.SectionComponent(model.Lecture, 1), parseComponent("L1"))
	assert.Equal(t, model.SectionComponent(model.Tutorial, 3), parseComponent("t3"))
	assert.Equal(t, model.SectionComponent(model.Practical, 2), parseComponent("P2"))

	// Unknown letter codes and unstructured labels fall back to raw text.
	assert.Equal(t, model.RawComponent("S1"), parseComponent("S1"))
	assert.Equal(t, model.RawComponent("Seminar A"), parseComponent("Seminar A"))
	assert.Equal(t, model.RawComponent("L1A"), parseComponent("L1A"))
}

func TestParseTimingLine(t *testing.T) {
	timing, err := parseTimingLine("MoWe 08:00AM - 08:55AM", "D217 Floor 2")
	require.NoError(t, err)
	require.NotNil(t, timing)
	assert.Equal(t, "08:00", timing.StartTime)
	assert.Equal(t, "08:55", timing.EndTime)
	assert.Equal(t, []model.Day{model.Monday, model.Wednesday}, timing.Days)
	assert.Equal(t, "D217", timing.Venue)

	// Compact form without spaces around the dash.
	timing, err = parseTimingLine("Fr 12:00PM-01:55PM", "TBA")
	require.NoError(t, err)
	require.NotNil(t, timing)
	assert.Equal(t, "12:00", timing.StartTime)
	assert.Equal(t, "13:55", timing.EndTime)
	assert.Equal(t, []model.Day{model.Friday}, timing.Days)

	// Repeated day tokens collapse so the rule stays set-like.
	timing, err = parseTimingLine("MoMoWe 08:00AM - 08:55AM", "D217")
	require.NoError(t, err)
	require.NotNil(t, timing)
	assert.Equal(t, []model.Day{model.Monday, model.Wednesday}, timing.Days)

	// Lines that do not look like schedule entries are skipped, not fatal.
	timing, err = parseTimingLine("To Be Announced", "TBA")
	require.NoError(t, err)
	assert.Nil(t, timing)

	// An otherwise-matched line with an unknown day token is an error.
	_, err = parseTimingLine("MoXx 08:00AM - 08:55AM", "TBA")
	assert.Error(t, err)
}

func TestParseDateRange(t *testing.T) {
	start, end, err := parseDateRange("12/01/2026 - 28/04/2026")
	require.NoError(t, err)
	assert.True(t, start.Equal(model.NewDate(2026, time.January, 12)))
	assert.True(t, end.Equal(model.NewDate(2026, time.April, 28)))

	for _, bad := range []string{
		"",
		"12/01/2026",
		"2026-01-12 - 2026-04-28",
		"32/01/2026 - 28/04/2026",
		"28/04/2026 - 12/01/2026",
	} {
		_, _, err := parseDateRange(bad)
		assert.Error(t, err, "parseDateRange(%q)", bad)
	}
}
