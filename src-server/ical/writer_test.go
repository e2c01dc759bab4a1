package ical_test

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"icsplit/src-server/ical"

	ics "github.com/arran4/golang-ical"
)

func TestFoldLine(t *testing.T) {
	// case: 75 bytes or less pass through untouched
	func() {
		for _, line := range []string{
			"",
			"SUMMARY:short",
			"X:" + strings.Repeat("a", 73),
		} {
			if got := ical.FoldLine(line); got != line {
				t.Errorf("FoldLine(%q) should be a no-op, got %q", line, got)
			}
		}
	}()

	// case: every physical line fits 75 bytes, continuations space-prefixed
	func() {
		line := "DESCRIPTION:" + strings.Repeat("a", 200)
		folded := ical.FoldLine(line)
		physical := strings.Split(folded, "\r\n")
		if len(physical) < 2 {
			t.Fatalf("expected folding, got %q", folded)
		}
		for i, p := range physical {
			if len(p) > 75 {
				t.Errorf("physical line %d is %d bytes: %q", i, len(p), p)
			}
			if i > 0 && !strings.HasPrefix(p, " ") {
				t.Errorf("continuation %d not space-prefixed: %q", i, p)
			}
		}
	}()

	// case: a multi-byte character is never cut in half
	func() {
		line := "SUMMARY:" + strings.Repeat("é", 50)
		folded := ical.FoldLine(line)
		for i, p := range strings.Split(folded, "\r\n") {
			if !utf8.ValidString(p) {
				t.Errorf("physical line %d splits a character: %q", i, p)
			}
			if len(p) > 75 {
				t.Errorf("physical line %d is %d bytes", i, len(p))
			}
		}
	}()
}

func TestFoldUnfoldRoundTrip(t *testing.T) {
	for _, line := range []string{
		"DESCRIPTION:" + strings.Repeat("three hundred bytes of text ", 11),
		"SUMMARY:" + strings.Repeat("é", 90),
		"X:" + strings.Repeat("界", 40),
	} {
		unfolded := ical.UnfoldLines(ical.FoldLine(line))
		if len(unfolded) != 1 || unfolded[0] != line {
			t.Errorf("fold/unfold did not recover %q, got %v", line, unfolded)
		}
	}
}

func TestToIcal(t *testing.T) {
	cal := ical.Parse(sampleCalendar)
	output := cal.ToIcal(cal.GetEvents(), false)

	if !strings.HasSuffix(output, "\r\n") {
		t.Error("output must end with one trailing CRLF")
	}

	lines := strings.Split(strings.TrimSuffix(output, "\r\n"), "\r\n")
	for i, line := range lines {
		if len(line) > 75 {
			t.Errorf("line %d exceeds 75 bytes: %q", i, line)
		}
	}

	// header is reproduced verbatim ahead of the first event
	header := cal.GetHeaderLines()
	if !reflect.DeepEqual(lines[:len(header)], header) {
		t.Errorf("header not reproduced verbatim: %v", lines[:len(header)])
	}

	// balanced markers, one per event
	if n := strings.Count(output, "BEGIN:VEVENT"); n != 4 {
		t.Errorf("expected 4 BEGIN:VEVENT, got %d", n)
	}
	if n := strings.Count(output, "END:VEVENT"); n != 4 {
		t.Errorf("expected 4 END:VEVENT, got %d", n)
	}
	if n := strings.Count(output, "END:VCALENDAR"); n != 1 {
		t.Errorf("expected 1 END:VCALENDAR, got %d", n)
	}
	if n := strings.Count(output, "VALARM"); n != 0 {
		t.Errorf("alarm content must never be written, found %d mentions", n)
	}
}

func TestToIcalMinimalHeader(t *testing.T) {
	cal := ical.Parse(`BEGIN:VEVENT
UID:bare-1
SUMMARY:Headerless
END:VEVENT
`)
	output := cal.ToIcal(cal.GetEvents(), false)

	if !strings.HasPrefix(output, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:") {
		t.Errorf("expected the minimal header, got %q", output)
	}
	if !strings.HasSuffix(output, "END:VCALENDAR\r\n") {
		t.Errorf("expected regenerated footer, got %q", output)
	}
	if !strings.Contains(output, "UID:bare-1") {
		t.Error("event body missing")
	}
}

const vendorCalendar = `BEGIN:VCALENDAR
VERSION:2.0
BEGIN:VEVENT
UID:v-1
DTSTART:20230501T090000
SUMMARY:Vendor soup
ATTACH;ENCODING=BASE64:QUFBQQ==
X-APPLE-CREATOR-IDENTITY:com.apple.mobilecal
X-WR-ALARMUID:1234-5678
ACKNOWLEDGED:20230501T080000Z
X-CUSTOM-KEEP:still here
END:VEVENT
END:VCALENDAR
`

func TestToIcalCleanMode(t *testing.T) {
	cal := ical.Parse(vendorCalendar)
	event := cal.GetEvents()[0]

	// denylisted lines are parsed and kept in rawLines regardless
	if len(event.GetRawLines()) != 8 {
		t.Fatalf("expected 8 raw lines, got %v", event.GetRawLines())
	}

	cleaned := cal.ToIcal(cal.GetEvents(), true)
	for _, denied := range []string{"ATTACH", "X-APPLE-CREATOR-IDENTITY", "X-WR-ALARMUID", "ACKNOWLEDGED"} {
		if strings.Contains(cleaned, denied) {
			t.Errorf("clean mode kept denylisted property %s", denied)
		}
	}
	for _, kept := range []string{"UID:v-1", "DTSTART:20230501T090000", "SUMMARY:Vendor soup", "X-CUSTOM-KEEP:still here"} {
		if !strings.Contains(cleaned, kept) {
			t.Errorf("clean mode dropped allowed line %s", kept)
		}
	}

	raw := cal.ToIcal(cal.GetEvents(), false)
	for _, line := range []string{"ATTACH;ENCODING=BASE64:QUFBQQ==", "X-APPLE-CREATOR-IDENTITY:com.apple.mobilecal", "X-WR-ALARMUID:1234-5678", "ACKNOWLEDGED:20230501T080000Z"} {
		if !strings.Contains(raw, line) {
			t.Errorf("without clean mode %s must survive", line)
		}
	}
}

func TestRoundTripFidelity(t *testing.T) {
	original := ical.Parse(sampleCalendar)
	reparsed := ical.Parse(original.ToIcal(original.GetEvents(), false))

	if !reflect.DeepEqual(reparsed.GetHeaderLines(), original.GetHeaderLines()) {
		t.Errorf("header changed across a round trip: %v", reparsed.GetHeaderLines())
	}
	if len(reparsed.GetEvents()) != len(original.GetEvents()) {
		t.Fatalf("event count changed: %d -> %d", len(original.GetEvents()), len(reparsed.GetEvents()))
	}
	for i := range original.GetEvents() {
		before := original.GetEvents()[i].GetRawLines()
		after := reparsed.GetEvents()[i].GetRawLines()
		if !reflect.DeepEqual(after, before) {
			t.Errorf("event %d raw lines changed across a round trip:\nbefore %v\nafter  %v", i, before, after)
		}
	}
}

// Serialized output should read back through an independent RFC5545
// implementation, not just our own parser.
func TestToIcalExternalParser(t *testing.T) {
	cal := ical.Parse(sampleCalendar)
	output := cal.ToIcal(cal.GetEvents(), false)

	parsed, err := ics.ParseCalendar(strings.NewReader(output))
	if err != nil {
		t.Fatalf("external parser rejected output: %v", err)
	}
	if len(parsed.Events()) != 4 {
		t.Errorf("external parser saw %d events, want 4", len(parsed.Events()))
	}
}

func TestGetByteSize(t *testing.T) {
	if got := ical.GetByteSize("héllo"); got != 6 {
		t.Errorf("expected 6 bytes, got %d", got)
	}
	if got := ical.GetByteSize(""); got != 0 {
		t.Errorf("expected 0 bytes, got %d", got)
	}
}
