// The `ical` package parses, splits and re-serializes iCalendar files.
//
// # References:
// - RFC5545: https://datatracker.ietf.org/doc/html/rfc5545
//
// # Notes:
//   - Parsing never fails. Malformed lines are carried along as inert raw
//     text or dropped per the policies below; unparsable dates read back as
//     "undated".
//   - Events are preserved as their raw unfolded lines, not decomposed into
//     typed fields. Serializing the same events back out reproduces the
//     original property lines (modulo re-folding).
//   - VALARM blocks, including their BEGIN/END markers, are dropped at parse
//     time. Not configurable.
//   - Content after the last VEVENT block is not retained; END:VCALENDAR is
//     regenerated on serialization.
//   - Datetimes without a trailing "Z" are treated as naive local time. TZID
//     parameters are never resolved against a timezone database.
//
// # Example usage:
//
// Parse from a string, file or URL
//
//	calendar := ical.Parse(text)
//	calendar, _ := ical.FromIcalFile("path/to/input/calendar.ics")
//	calendar, _ := ical.FromIcalUrl("https://example.com/calendar.ics")
//
// Split and marshal back to a string
//
//	chunks := calendar.SplitBySize(calendar.GetEvents(), 1024*1024, false)
//	buckets := ical.SplitByYear(calendar.GetEvents())
//	output := calendar.ToIcal(calendar.GetEvents(), false)
package ical

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// One property line of a calendar or an event. Name is upper-cased; Params
// holds whatever sits between the name and the final ":"; Value is everything
// after the final ":". RawLine is the unfolded line exactly as read.
type Property struct {
	Name    string
	Params  string
	Value   string
	RawLine string
}

// One VEVENT entry. Read-only once constructed by Parse; rawLines is the
// authoritative source for serialization, the property map only serves
// lookups and overwrites duplicates with the last occurrence.
type Event struct {
	properties map[string]Property
	rawLines   []string
}

// The main struct of the package. Read-only once constructed by Parse.
type Calendar struct {
	headerLines []string
	events      []Event
	properties  map[string]Property
}

// Parser states. One state is active at a time; VALARM remembers where it
// was entered from so stray alarms outside events stay out of headerLines.
const (
	stateHeader = "header"
	stateEvent  = "event"
	stateAlarm  = "alarm"
)

// Unmarshal an iCalendar string into a Calendar{} struct. Never fails:
//   - lines before the first VEVENT are kept verbatim as header lines;
//   - VEVENT bodies are kept verbatim as raw lines, VALARM blocks dropped;
//   - lines after the last END:VEVENT are dropped;
//   - a BEGIN:VEVENT inside an open event abandons the unclosed accumulator
//     and starts over, an event left open at end of input is dropped.
func Parse(text string) *Calendar {
	cal := &Calendar{
		properties: make(map[string]Property),
	}

	state := stateHeader
	var currentEvent *Event

	for _, line := range UnfoldLines(text) {
		name := PropertyName(line)
		marker := ""
		if name == "BEGIN" || name == "END" {
			marker = name + ":" + strings.ToUpper(strings.TrimSpace(valueOf(line)))
		}

		switch state {
		case stateHeader:
			switch marker {
			case "BEGIN:VEVENT":
				currentEvent = &Event{properties: make(map[string]Property)}
				state = stateEvent
			case "BEGIN:VALARM":
				state = stateAlarm
			case "END:VEVENT", "END:VALARM", "END:VCALENDAR":
				// unmatched or regenerated markers, never header content
			default:
				if len(cal.events) > 0 {
					// trailing content between/after events is not retained
					continue
				}
				cal.headerLines = append(cal.headerLines, line)
				if strings.Contains(line, ":") && name != "BEGIN" && name != "END" {
					cal.properties[name] = parseProperty(line)
				}
			}

		case stateEvent:
			switch marker {
			case "BEGIN:VALARM":
				state = stateAlarm
			case "END:VEVENT":
				cal.events = append(cal.events, *currentEvent)
				currentEvent = nil
				state = stateHeader
			case "BEGIN:VEVENT":
				currentEvent = &Event{properties: make(map[string]Property)}
			case "END:VCALENDAR":
				// dropped, the writer regenerates it
			default:
				currentEvent.rawLines = append(currentEvent.rawLines, line)
				if strings.Contains(line, ":") {
					currentEvent.properties[name] = parseProperty(line)
				}
			}

		case stateAlarm:
			if marker == "END:VALARM" {
				if currentEvent != nil {
					state = stateEvent
				} else {
					state = stateHeader
				}
			}
			// everything else inside VALARM is discarded entirely
		}
	}

	return cal
}

// Normalize CRLF/CR/LF line endings, join folded continuation lines (leading
// space or tab, RFC5545 3.1) back into logical lines and drop blank lines.
func UnfoldLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := make([]string, 0)
	for _, raw := range strings.Split(text, "\n") {
		if (strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += raw[1:]
			continue
		}
		lines = append(lines, raw)
	}

	logical := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		logical = append(logical, line)
	}
	return logical
}

// Extract the property name from a raw line: the substring before the first
// ";" or ":", whichever comes first, trimmed and upper-cased.
func PropertyName(line string) string {
	end := len(line)
	if i := strings.IndexAny(line, ";:"); i != -1 {
		end = i
	}
	return strings.ToUpper(strings.TrimSpace(line[:end]))
}

func valueOf(line string) string {
	if i := strings.LastIndex(line, ":"); i != -1 {
		return line[i+1:]
	}
	return ""
}

func parseProperty(line string) Property {
	prop := Property{
		Name:    PropertyName(line),
		RawLine: line,
	}
	last := strings.LastIndex(line, ":")
	if last == -1 {
		return prop
	}
	prop.Value = line[last+1:]
	if first := strings.IndexAny(line, ";:"); first != -1 && first < last {
		prop.Params = line[first+1 : last]
	}
	return prop
}

// Unmarshal an iCalendar file into a Calendar{} struct.
func FromIcalFile(path string) (*Calendar, *CustomError) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewCustomError("can't read file", map[string]any{
			"path": path,
			"err":  err,
		})
	}
	return Parse(string(content)), nil
}

// Unmarshal an iCalendar URL into a Calendar{} struct.
func FromIcalUrl(url_ string) (*Calendar, *CustomError) {
	validUrl, err := url.ParseRequestURI(url_)
	if err != nil {
		return nil, NewCustomError("can't parse URL", map[string]any{
			"url": url_,
			"err": err,
		})
	}

	req, err := http.NewRequest("GET", validUrl.String(), nil)
	if err != nil {
		return nil, NewCustomError("can't create HTTP request", map[string]any{
			"url": url_,
			"err": err,
		})
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, NewCustomError("can't make HTTP request", map[string]any{
			"url": url_,
			"err": err,
		})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewCustomError("can't read HTTP response", map[string]any{
			"url": url_,
			"err": err,
		})
	}

	return Parse(string(body)), nil
}

// #region Calendar getters
func (c *Calendar) GetHeaderLines() []string {
	return c.headerLines
}

func (c *Calendar) GetEvents() []Event {
	return c.events
}

func (c *Calendar) GetEventCount() int {
	return len(c.events)
}

func (c *Calendar) GetProperty(name string) (Property, bool) {
	prop, ok := c.properties[strings.ToUpper(strings.TrimSpace(name))]
	return prop, ok
}

// Get the calendar name from X-WR-CALNAME, blank if absent
func (c *Calendar) GetName() string {
	if prop, ok := c.properties["X-WR-CALNAME"]; ok {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

func (c *Calendar) GetProdID() string {
	if prop, ok := c.properties["PRODID"]; ok {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

// #endregion

// #region Event getters
func (e *Event) GetRawLines() []string {
	return e.rawLines
}

func (e *Event) GetProperty(name string) (Property, bool) {
	prop, ok := e.properties[strings.ToUpper(strings.TrimSpace(name))]
	return prop, ok
}

func (e *Event) GetSummary() string {
	if prop, ok := e.properties["SUMMARY"]; ok {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

// Get the event's start moment from DTSTART. The raw value is stripped up to
// and including its final ":" first, so a caller holding the whole
// "DTSTART;TZID=...:20230101" string gets the same answer. False means the
// event is undated.
func (e *Event) GetStartDate() (time.Time, bool) {
	prop, ok := e.properties["DTSTART"]
	if !ok {
		return time.Time{}, false
	}
	raw := prop.Value
	if i := strings.LastIndex(raw, ":"); i != -1 {
		raw = raw[i+1:]
	}
	return ParseICalDate(raw)
}

// #endregion
