package ical_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"icsplit/src-server/ical"
)

const sampleCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Apple Inc.//macOS 13.0//EN
CALSCALE:GREGORIAN
X-WR-CALNAME:Team Calendar
BEGIN:VTIMEZONE
TZID:Europe/Paris
BEGIN:STANDARD
DTSTART:19961027T030000
TZOFFSETFROM:+0200
TZOFFSETTO:+0100
END:STANDARD
END:VTIMEZONE
BEGIN:VEVENT
UID:evt-1
DTSTART:20230101T100000
SUMMARY:New year planning
ATTACH;ENCODING=BASE64:AAAA
X-APPLE-TRAVEL-ADVISORY-BEHAVIOR:AUTOMATIC
BEGIN:VALARM
TRIGGER:-PT15M
ACTION:DISPLAY
END:VALARM
END:VEVENT
BEGIN:VEVENT
UID:evt-2
DTSTART;TZID=Europe/Paris:20230615T140000
SUMMARY:Mid-year review
DESCRIPTION:A long line that will need to be folded when written back out b
 ecause it exceeds the seventy-five byte limit imposed by the RFC
END:VEVENT
BEGIN:VEVENT
UID:evt-3
DTSTART:20240101
SUMMARY:Another year
acknowledged:20231231T000000Z
END:VEVENT
BEGIN:VEVENT
UID:evt-4
SUMMARY:No date at all
END:VEVENT
END:VCALENDAR
`

func TestParse(t *testing.T) {
	cal := ical.Parse(sampleCalendar)

	// case: header ends at the first VEVENT and keeps the VTIMEZONE block
	func() {
		header := cal.GetHeaderLines()
		if len(header) != 13 {
			t.Errorf("expected 13 header lines, got %d: %v", len(header), header)
		}
		if header[0] != "BEGIN:VCALENDAR" {
			t.Errorf("first header line should be BEGIN:VCALENDAR, got %q", header[0])
		}
		for _, line := range header {
			if strings.Contains(line, "VEVENT") || strings.Contains(line, "VALARM") {
				t.Errorf("header must not contain event or alarm lines, got %q", line)
			}
		}
	}()

	// case: calendar-level properties from header lines
	func() {
		if cal.GetName() != "Team Calendar" {
			t.Errorf("expected calendar name from X-WR-CALNAME, got %q", cal.GetName())
		}
		if cal.GetProdID() != "-//Apple Inc.//macOS 13.0//EN" {
			t.Errorf("unexpected PRODID %q", cal.GetProdID())
		}
		if _, ok := cal.GetProperty("BEGIN"); ok {
			t.Error("BEGIN lines must not land in the property map")
		}
	}()

	// case: all four events survive in document order
	func() {
		events := cal.GetEvents()
		if len(events) != 4 {
			t.Fatalf("expected 4 events, got %d", len(events))
		}
		for i, uid := range []string{"evt-1", "evt-2", "evt-3", "evt-4"} {
			prop, ok := events[i].GetProperty("UID")
			if !ok || prop.Value != uid {
				t.Errorf("event %d: expected UID %s, got %q", i, uid, prop.Value)
			}
		}
	}()

	// case: alarm block lines are gone, sibling properties are not
	func() {
		event := cal.GetEvents()[0]
		if len(event.GetRawLines()) != 5 {
			t.Errorf("expected 5 raw lines, got %v", event.GetRawLines())
		}
		for _, line := range event.GetRawLines() {
			switch {
			case strings.Contains(line, "VALARM"),
				strings.HasPrefix(line, "TRIGGER"),
				strings.HasPrefix(line, "ACTION"):
				t.Errorf("alarm line leaked into rawLines: %q", line)
			}
		}
		if _, ok := event.GetProperty("ATTACH"); !ok {
			t.Error("ATTACH should still be parsed, clean mode is a write concern")
		}
	}()

	// case: folded DESCRIPTION is one logical line again
	func() {
		event := cal.GetEvents()[1]
		prop, ok := event.GetProperty("DESCRIPTION")
		if !ok {
			t.Fatal("DESCRIPTION missing")
		}
		if !strings.Contains(prop.Value, "written back out because it exceeds") {
			t.Errorf("continuation line not joined: %q", prop.Value)
		}
	}()

	// case: property name/params/value split around the final colon
	func() {
		event := cal.GetEvents()[1]
		prop, _ := event.GetProperty("DTSTART")
		if prop.Name != "DTSTART" {
			t.Errorf("expected name DTSTART, got %q", prop.Name)
		}
		if prop.Params != "TZID=Europe/Paris" {
			t.Errorf("expected TZID param string, got %q", prop.Params)
		}
		if prop.Value != "20230615T140000" {
			t.Errorf("expected value after final colon, got %q", prop.Value)
		}
	}()
}

func TestParseDuplicateProperties(t *testing.T) {
	cal := ical.Parse(`BEGIN:VCALENDAR
VERSION:2.0
BEGIN:VEVENT
UID:dup-1
DTSTART:20230301
DTSTART:20230302
SUMMARY:First summary
SUMMARY:Second summary
END:VEVENT
END:VCALENDAR
`)
	if len(cal.GetEvents()) != 1 {
		t.Fatalf("expected 1 event, got %d", len(cal.GetEvents()))
	}
	event := cal.GetEvents()[0]

	// map keeps the last occurrence
	if event.GetSummary() != "Second summary" {
		t.Errorf("expected last SUMMARY to win, got %q", event.GetSummary())
	}
	date, ok := event.GetStartDate()
	if !ok || !date.Equal(time.Date(2023, 3, 2, 0, 0, 0, 0, time.Local)) {
		t.Errorf("expected last DTSTART to win, got %v", date)
	}

	// rawLines keeps every occurrence
	if len(event.GetRawLines()) != 5 {
		t.Errorf("expected all 5 raw lines kept, got %v", event.GetRawLines())
	}
}

func TestParseDropsTrailingContent(t *testing.T) {
	cal := ical.Parse(`BEGIN:VCALENDAR
VERSION:2.0
BEGIN:VEVENT
UID:t-1
SUMMARY:Something
END:VEVENT
X-TRAILING:dropped
BEGIN:VTIMEZONE
TZID:Nowhere
END:VTIMEZONE
END:VCALENDAR
`)
	if len(cal.GetEvents()) != 1 {
		t.Fatalf("expected 1 event, got %d", len(cal.GetEvents()))
	}
	if !reflect.DeepEqual(cal.GetHeaderLines(), []string{"BEGIN:VCALENDAR", "VERSION:2.0"}) {
		t.Errorf("trailing content leaked into header: %v", cal.GetHeaderLines())
	}
	if _, ok := cal.GetProperty("X-TRAILING"); ok {
		t.Error("trailing property should not be recorded")
	}
}

func TestParseMalformedInput(t *testing.T) {
	// case: empty input
	func() {
		cal := ical.Parse("")
		if len(cal.GetEvents()) != 0 || len(cal.GetHeaderLines()) != 0 {
			t.Error("empty input should parse to an empty calendar")
		}
	}()

	// case: stray alarm before any event stays out of the header
	func() {
		cal := ical.Parse(`BEGIN:VCALENDAR
BEGIN:VALARM
ACTION:DISPLAY
END:VALARM
VERSION:2.0
BEGIN:VEVENT
UID:s-1
END:VEVENT
END:VCALENDAR
`)
		if !reflect.DeepEqual(cal.GetHeaderLines(), []string{"BEGIN:VCALENDAR", "VERSION:2.0"}) {
			t.Errorf("alarm lines leaked into header: %v", cal.GetHeaderLines())
		}
		if len(cal.GetEvents()) != 1 {
			t.Errorf("expected 1 event, got %d", len(cal.GetEvents()))
		}
	}()

	// case: an event left open at end of input is dropped
	func() {
		cal := ical.Parse(`BEGIN:VCALENDAR
BEGIN:VEVENT
UID:unclosed
SUMMARY:Never finished
`)
		if len(cal.GetEvents()) != 0 {
			t.Errorf("unclosed event should be dropped, got %d events", len(cal.GetEvents()))
		}
	}()

	// case: a second BEGIN:VEVENT abandons the unclosed accumulator
	func() {
		cal := ical.Parse(`BEGIN:VCALENDAR
BEGIN:VEVENT
UID:abandoned
BEGIN:VEVENT
UID:kept
END:VEVENT
END:VCALENDAR
`)
		events := cal.GetEvents()
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if prop, _ := events[0].GetProperty("UID"); prop.Value != "kept" {
			t.Errorf("expected the restarted event to survive, got UID %q", prop.Value)
		}
	}()
}

func TestUnfoldLines(t *testing.T) {
	// case: CRLF, bare CR and bare LF all terminate lines
	func() {
		lines := ical.UnfoldLines("a\r\nb\rc\nd")
		if !reflect.DeepEqual(lines, []string{"a", "b", "c", "d"}) {
			t.Errorf("line terminators not normalized: %v", lines)
		}
	}()

	// case: space and tab continuations join with the marker removed
	func() {
		lines := ical.UnfoldLines("SUMMARY:hel\n lo\n\tworld")
		if !reflect.DeepEqual(lines, []string{"SUMMARY:helloworld"}) {
			t.Errorf("continuations not joined: %v", lines)
		}
	}()

	// case: blank lines vanish
	func() {
		lines := ical.UnfoldLines("a\n\n   \nb\n")
		if !reflect.DeepEqual(lines, []string{"a", "b"}) {
			t.Errorf("blank lines kept: %v", lines)
		}
	}()
}

func TestGetStatistics(t *testing.T) {
	stats := ical.Parse(sampleCalendar).GetStatistics()

	if stats.TotalEvents != 4 {
		t.Errorf("expected 4 total events, got %d", stats.TotalEvents)
	}
	earliest := time.Date(2023, 1, 1, 10, 0, 0, 0, time.Local)
	if !stats.EarliestDate.Equal(earliest) {
		t.Errorf("expected earliest %v, got %v", earliest, stats.EarliestDate)
	}
	latest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	if !stats.LatestDate.Equal(latest) {
		t.Errorf("expected latest %v, got %v", latest, stats.LatestDate)
	}
	if !reflect.DeepEqual(stats.EventsByYear, map[int]int{2023: 2, 2024: 1}) {
		t.Errorf("unexpected per-year counts: %v", stats.EventsByYear)
	}
}

func TestGetStatisticsNoDatedEvents(t *testing.T) {
	stats := ical.Parse(`BEGIN:VCALENDAR
BEGIN:VEVENT
SUMMARY:Undated
END:VEVENT
END:VCALENDAR
`).GetStatistics()

	if stats.TotalEvents != 1 {
		t.Errorf("expected 1 total event, got %d", stats.TotalEvents)
	}
	if !stats.EarliestDate.IsZero() || !stats.LatestDate.IsZero() {
		t.Error("date aggregates should stay zero without dated events")
	}
	if len(stats.EventsByYear) != 0 {
		t.Errorf("expected no per-year counts, got %v", stats.EventsByYear)
	}
}
