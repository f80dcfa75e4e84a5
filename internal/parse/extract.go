package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"unisync/internal/model"
)

const venueTBA = "TBA"

var (
	// headerRe matches "CSD366 - Reinforcement Learning".
	headerRe = regexp.MustCompile(`^([A-Z]{3}\d{3,4})\s*-\s*(.+)$`)

	// sectionRe matches structured section codes like "L1" / "T12" / "P2".
	sectionRe = regexp.MustCompile(`^([A-Za-z])(\d+)$`)

	// timingLineRe matches "MoWe 08:00AM - 08:55AM": a contiguous run of
	// 2-letter day tokens followed by a 12-hour time range. Token validity is
	// checked separately so an unknown token surfaces as an error instead of a
	// silent non-match.
	timingLineRe = regexp.MustCompile(`^((?:[A-Za-z]{2})+)\s+(\d{1,2}:\d{2}[AP]M)\s*-\s*(\d{1,2}:\d{2}[AP]M)$`)

	// clock12Re matches a 12-hour time like "8:00AM" or "12:05PM".
	clock12Re = regexp.MustCompile(`^(\d{1,2}):(\d{2})([AP]M)$`)

	// roomRe matches the canonical room code: one letter, three digits,
	// optional wing letter ("D217", "C317A").
	roomRe = regexp.MustCompile(`\b[A-Z]\d{3}[A-Z]?\b`)

	// dateRangeRe matches "12/01/2026 - 28/04/2026".
	dateRangeRe = regexp.MustCompile(`^(\d{2}/\d{2}/\d{4})\s*-\s*(\d{2}/\d{2}/\d{4})$`)
)

// parseComponent decomposes a section label into its structured form when it
// matches "<letter><digits>" with a known component letter, and keeps the raw
// text otherwise.
func parseComponent(text string) model.Component {
	if m := sectionRe.FindStringSubmatch(text); m != nil {
		if t, ok := model.ComponentTypeFromLetter(m[1]); ok {
			number, _ := strconv.Atoi(m[2])
			return model.SectionComponent(t, number)
		}
	}
	return model.RawComponent(text)
}

// parseTimingLine parses one schedule line into a Timing. A line that does not
// look like a schedule entry at all returns (nil, nil) and is skipped; a line
// that matches but carries an invalid day token or time returns an error.
func parseTimingLine(line, venue string) (*model.Timing, error) {
	m := timingLineRe.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}

	days, err := decodeDayRun(m[1])
	if err != nil {
		return nil, err
	}

	start, err := to24h(m[2])
	if err != nil {
		return nil, err
	}
	end, err := to24h(m[3])
	if err != nil {
		return nil, err
	}

	timing, err := model.NewTiming(start, end, days, canonicalVenue(venue))
	if err != nil {
		return nil, err
	}
	return &timing, nil
}

// decodeDayRun splits a run like "MoWe" into 2-letter tokens and decodes each.
// Repeated tokens are dropped so the day set stays set-like, keeping first-seen
// order.
func decodeDayRun(run string) ([]model.Day, error) {
	days := make([]model.Day, 0, len(run)/2)
	seen := make(map[model.Day]bool, len(run)/2)
	for i := 0; i+1 < len(run); i += 2 {
		day, err := model.DayFromToken(run[i : i+2])
		if err != nil {
			return nil, err
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	return days, nil
}

// to24h converts a 12-hour "h:mmAM/PM" time to 24-hour "HH:MM".
// 12 AM maps to 00, 12 PM stays 12, other PM hours gain 12.
func to24h(s string) (string, error) {
	m := clock12Re.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("malformed 12-hour time %q", s)
	}

	hour, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || min > 59 {
		return "", fmt.Errorf("12-hour time %q out of range", s)
	}

	switch {
	case m[3] == "AM" && hour == 12:
		hour = 0
	case m[3] == "PM" && hour != 12:
		hour += 12
	}

	return fmt.Sprintf("%02d:%02d", hour, min), nil
}

// canonicalVenue normalizes free-text location to the canonical room code when
// one is present ("D217 Floor 2" becomes "D217"), keeps the trimmed text
// otherwise, and falls back to "TBA" for empty input.
func canonicalVenue(venue string) string {
	venue = strings.TrimSpace(venue)
	if venue == "" {
		return venueTBA
	}
	if room := roomRe.FindString(strings.ToUpper(venue)); room != "" {
		return room
	}
	return venue
}

// allTBA reports whether every venue line is the "TBA" placeholder (or the
// list is empty, meaning the location element was absent).
func allTBA(venueLines []string) bool {
	for _, v := range venueLines {
		if !strings.EqualFold(strings.TrimSpace(v), venueTBA) {
			return false
		}
	}
	return true
}

// parseDateRange parses "DD/MM/YYYY - DD/MM/YYYY" into an ordered date pair.
func parseDateRange(text string) (model.Date, model.Date, error) {
	m := dateRangeRe.FindStringSubmatch(text)
	if m == nil {
		return model.Date{}, model.Date{}, fmt.Errorf("text does not match DD/MM/YYYY - DD/MM/YYYY")
	}

	start, err := parsePortalDate(m[1])
	if err != nil {
		return model.Date{}, model.Date{}, err
	}
	end, err := parsePortalDate(m[2])
	if err != nil {
		return model.Date{}, model.Date{}, err
	}
	if start.After(end) {
		return model.Date{}, model.Date{}, fmt.Errorf("range %q is reversed", text)
	}
	return start, end, nil
}

func parsePortalDate(s string) (model.Date, error) {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return model.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return model.NewDate(t.Year(), t.Month(), t.Day()), nil
}
