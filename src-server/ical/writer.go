package ical

import (
	"sort"
	"strings"
)

// Emitted in place of headerLines when the source document had none.
var minimalHeaderLines = []string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//icsplit//EN",
}

// Properties excluded from output under clean mode, matched by prefix
// against the upper-cased property name. Vendor-specific or known to embed
// payloads that break common calendar consumers.
var deniedProperties = []string{
	"X-APPLE-",
	"X-WR-ALARMUID",
	"ACKNOWLEDGED",
	"ATTACH",
}

// Fold one logical line per RFC5545 3.1: up to 75 bytes on the first
// physical line, up to 74 on each continuation, continuations prefixed with
// one space and joined with CRLF. The cut point backs off UTF-8 continuation
// bytes so a multi-byte character is never split.
func FoldLine(line string) string {
	if len(line) <= 75 {
		return line
	}

	segments := make([]string, 0, len(line)/74+1)
	rest := line
	limit := 75
	for len(rest) > limit {
		cut := limit
		for cut > 1 && rest[cut]&0b1100_0000 == 0b1000_0000 {
			cut--
		}
		segments = append(segments, rest[:cut])
		rest = rest[cut:]
		limit = 74
	}
	segments = append(segments, rest)

	return strings.Join(segments, "\r\n ")
}

// Whether a raw property line survives clean mode.
func isAllowedProperty(line string) bool {
	name := PropertyName(line)
	for _, denied := range deniedProperties {
		if strings.HasPrefix(name, denied) {
			return false
		}
	}
	return true
}

// Lines to serialize for one event: rawLines when present, otherwise the
// property map's raw lines in name order as a deterministic fallback.
func (e *Event) serializableLines() []string {
	if len(e.rawLines) > 0 {
		return e.rawLines
	}
	names := make([]string, 0, len(e.properties))
	for name := range e.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, e.properties[name].RawLine)
	}
	return lines
}

// Marshal the given events into an iCalendar string: header lines verbatim
// (or the minimal header when the source had none), each event bracketed by
// regenerated BEGIN/END markers, everything folded, CRLF line endings and
// one trailing CRLF. With cleanMode, denylisted property lines are skipped.
// Events parsed by this package always serialize into a balanced document.
func (cal *Calendar) ToIcal(events []Event, cleanMode bool) string {
	lines := make([]string, 0, len(cal.headerLines)+len(events)*8)

	if len(cal.headerLines) > 0 {
		for _, line := range cal.headerLines {
			lines = append(lines, FoldLine(line))
		}
	} else {
		lines = append(lines, minimalHeaderLines...)
	}

	for _, event := range events {
		lines = append(lines, "BEGIN:VEVENT")
		for _, raw := range event.serializableLines() {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			if cleanMode && !isAllowedProperty(raw) {
				continue
			}
			lines = append(lines, FoldLine(raw))
		}
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR")

	return strings.Join(lines, "\r\n") + "\r\n"
}

// The true encoded byte length of a generated document, as opposed to the
// pre-folding estimate SplitBySize works with.
func GetByteSize(text string) int {
	return len(text)
}
