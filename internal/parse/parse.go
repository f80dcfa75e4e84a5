// Package parse turns raw course-card markup fragments from the university
// portal into normalized Course records. The markup has no stable schema:
// element ids are dynamically suffixed, fields come and go, and schedule text
// is free-form. Anything that cannot be extracted is dropped at the smallest
// enclosing unit (course, batch, or single timing) rather than failing the run.
package parse

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"unisync/internal/config"
	appLog "unisync/internal/log"
	"unisync/internal/model"
)

// Portal selectors. Ids carry dynamic suffixes ("STATUS$3"), so everything is
// matched by prefix.
const (
	headerSelector   = "td.PAGROUPDIVIDER"
	statusSelector   = `span[id^="STATUS"]`
	batchRowSelector = `tr[id^="trCLASS_MTG_VW"]`
	sectionSelector  = `a[id^="MTG_SECTION"]`
	scheduleSelector = `span[id^="MTG_SCHED"]`
	locationSelector = `span[id^="MTG_LOC"]`
	datesSelector    = `span[id^="MTG_DATES"]`
)

const enrolledStatus = "enrolled"

// Parser maps course-card fragments to Course records using the process-wide
// configuration for default dates and event color.
type Parser struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Parser {
	return &Parser{cfg: cfg}
}

// ParseAll parses every fragment, silently dropping the unparseable ones.
// One malformed fragment never aborts processing of the rest.
func (p *Parser) ParseAll(fragments []string) []model.Course {
	courses := make([]model.Course, 0, len(fragments))
	skipped := 0

	for i, fragment := range fragments {
		course, err := p.ParseFragment(fragment)
		if err != nil {
			appLog.Error("fragment parse failed", err, "index", i)
			skipped++
			continue
		}
		if course == nil {
			skipped++
			continue
		}
		courses = append(courses, *course)
	}

	appLog.Info("fragments parsed", "total", len(fragments), "courses", len(courses), "skipped", skipped)
	return courses
}

// ParseFragment maps one raw markup fragment to at most one Course.
// A (nil, nil) return is the expected outcome for fragments missing their
// header or status element; the caller filters those out.
func (p *Parser) ParseFragment(fragment string) (*model.Course, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("read fragment markup: %w", err)
	}

	header := strings.TrimSpace(doc.Find(headerSelector).First().Text())
	if header == "" {
		appLog.Debug("fragment without course header skipped")
		return nil, nil
	}
	m := headerRe.FindStringSubmatch(header)
	if m == nil {
		appLog.Debug("unparseable course header skipped", "header", header)
		return nil, nil
	}
	code := m[1]
	title := strings.TrimSpace(m[2])

	statusSel := doc.Find(statusSelector)
	if statusSel.Length() == 0 {
		appLog.Debug("fragment without status element skipped", "course", code)
		return nil, nil
	}
	status := strings.TrimSpace(statusSel.First().Text())
	enrolled := strings.EqualFold(status, enrolledStatus)

	var batches []model.CourseBatch
	doc.Find(batchRowSelector).Each(func(_ int, row *goquery.Selection) {
		batch, ok := p.parseBatch(row, code)
		if ok {
			batches = append(batches, batch)
		}
	})

	course := model.NewCourse(code, title, enrolled, batches)
	return &course, nil
}

// parseBatch extracts one CourseBatch from a row-like element. A row with no
// discoverable section label yields no batch.
func (p *Parser) parseBatch(row *goquery.Selection, code string) (model.CourseBatch, bool) {
	sectionText := strings.TrimSpace(row.Find(sectionSelector).First().Text())
	if sectionText == "" {
		appLog.Debug("batch row without section label dropped", "course", code)
		return model.CourseBatch{}, false
	}
	component := parseComponent(sectionText)

	scheduleLines := textLines(row.Find(scheduleSelector))
	venueLines := textLines(row.Find(locationSelector))
	timings := p.parseTimings(scheduleLines, venueLines, code)

	start, end := p.parseDates(row, code)

	batch, err := model.NewCourseBatch(p.cfg.DefaultEventColor, component, timings, start, end)
	if err != nil {
		appLog.Error("batch construction failed", err, "course", code, "section", sectionText)
		return model.CourseBatch{}, false
	}
	return batch, true
}

// parseDates reads the "DD/MM/YYYY - DD/MM/YYYY" range. Any failure (absent
// element, malformed text, impossible dates, reversed range) falls back to the
// configured defaults rather than failing the batch.
func (p *Parser) parseDates(row *goquery.Selection, code string) (model.Date, model.Date) {
	text := strings.TrimSpace(row.Find(datesSelector).First().Text())
	start, end, err := parseDateRange(text)
	if err != nil {
		appLog.Debug("date range defaulted", "course", code, "text", text, "reason", err.Error())
		return p.cfg.DefaultStartDate, p.cfg.DefaultEndDate
	}
	return start, end
}

// parseTimings pairs schedule lines with venue lines positionally. When the
// venue list is uniformly "TBA" it is stretched to match the schedule line
// count so the pairing stays aligned.
func (p *Parser) parseTimings(scheduleLines, venueLines []string, code string) []model.Timing {
	if allTBA(venueLines) {
		venueLines = make([]string, len(scheduleLines))
		for i := range venueLines {
			venueLines[i] = venueTBA
		}
	}

	timings := make([]model.Timing, 0, len(scheduleLines))
	for i, line := range scheduleLines {
		venue := venueTBA
		if i < len(venueLines) {
			venue = venueLines[i]
		}

		timing, err := parseTimingLine(line, venue)
		if err != nil {
			appLog.Error("timing dropped", err, "course", code, "line", line)
			continue
		}
		if timing == nil {
			appLog.Debug("schedule line skipped", "course", code, "line", line)
			continue
		}
		timings = append(timings, *timing)
	}
	return timings
}

// textLines extracts the element's text split on line breaks. <br> nodes count
// as breaks since the portal uses them instead of newline characters.
func textLines(sel *goquery.Selection) []string {
	var b strings.Builder
	sel.First().Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "br" {
			b.WriteString("\n")
			return
		}
		b.WriteString(c.Text())
	})

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
