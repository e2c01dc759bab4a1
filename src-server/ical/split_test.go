package ical_test

import (
	"strings"
	"testing"
	"time"

	"icsplit/src-server/ical"
)

func TestFilterByDateRange(t *testing.T) {
	cal := ical.Parse(sampleCalendar)
	events := cal.GetEvents()

	uids := func(events []ical.Event) []string {
		out := make([]string, 0, len(events))
		for _, e := range events {
			prop, _ := e.GetProperty("UID")
			out = append(out, prop.Value)
		}
		return out
	}

	// case: bounds are inclusive, undated events always pass
	func() {
		start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.Local)
		end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.Local)
		got := uids(ical.FilterByDateRange(events, start, end))
		want := "evt-1 evt-2 evt-4"
		if strings.Join(got, " ") != want {
			t.Errorf("expected %q, got %q", want, strings.Join(got, " "))
		}
	}()

	// case: an event dated exactly on a bound is kept
	func() {
		exact := time.Date(2023, 6, 15, 14, 0, 0, 0, time.Local)
		got := uids(ical.FilterByDateRange(events, exact, exact))
		if strings.Join(got, " ") != "evt-2 evt-4" {
			t.Errorf("bounds should be inclusive, got %v", got)
		}
	}()

	// case: a zero bound is unbounded on that side
	func() {
		got := uids(ical.FilterByDateRange(events, time.Time{}, time.Time{}))
		if strings.Join(got, " ") != "evt-1 evt-2 evt-3 evt-4" {
			t.Errorf("zero bounds should keep everything, got %v", got)
		}
		onlyStart := uids(ical.FilterByDateRange(events, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), time.Time{}))
		if strings.Join(onlyStart, " ") != "evt-3 evt-4" {
			t.Errorf("open-ended range wrong, got %v", onlyStart)
		}
	}()
}

func TestSplitByYear(t *testing.T) {
	cal := ical.Parse(sampleCalendar)
	buckets := ical.SplitByYear(cal.GetEvents())

	// every event lands in exactly one bucket
	total := 0
	for _, bucket := range buckets {
		total += len(bucket)
	}
	if total != len(cal.GetEvents()) {
		t.Errorf("buckets hold %d events, want %d", total, len(cal.GetEvents()))
	}

	if n := len(buckets[ical.YearKey{Year: 2023}]); n != 2 {
		t.Errorf("expected 2 events in 2023, got %d", n)
	}
	if n := len(buckets[ical.YearKey{Year: 2024}]); n != 1 {
		t.Errorf("expected 1 event in 2024, got %d", n)
	}
	undated := buckets[ical.YearKey{Undated: true}]
	if len(undated) != 1 {
		t.Fatalf("expected 1 undated event, got %d", len(undated))
	}
	if prop, _ := undated[0].GetProperty("UID"); prop.Value != "evt-4" {
		t.Errorf("wrong event in the undated bucket: %q", prop.Value)
	}

	// within-bucket order is document order
	bucket2023 := buckets[ical.YearKey{Year: 2023}]
	first, _ := bucket2023[0].GetProperty("UID")
	second, _ := bucket2023[1].GetProperty("UID")
	if first.Value != "evt-1" || second.Value != "evt-2" {
		t.Errorf("2023 bucket out of order: %s, %s", first.Value, second.Value)
	}
}

func TestSortedYearKeys(t *testing.T) {
	buckets := ical.SplitByYear(ical.Parse(sampleCalendar).GetEvents())
	keys := ical.SortedYearKeys(buckets)

	got := make([]string, 0, len(keys))
	for _, key := range keys {
		got = append(got, key.String())
	}
	if strings.Join(got, " ") != "2023 2024 unknown" {
		t.Errorf("expected lexicographic key order, got %v", got)
	}
}

func TestSplitBySize(t *testing.T) {
	cal := ical.Parse(sampleCalendar)
	events := cal.GetEvents()

	// case: a generous limit yields a single chunk in descending date order
	func() {
		chunks := cal.SplitBySize(events, 1<<20, false)
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(chunks))
		}
		chunk := chunks[0]
		if chunk.EventCount != 4 {
			t.Errorf("expected all 4 events, got %d", chunk.EventCount)
		}
		order := []string{"UID:evt-3", "UID:evt-2", "UID:evt-1", "UID:evt-4"}
		last := -1
		for _, uid := range order {
			i := strings.Index(chunk.Content, uid)
			if i == -1 || i < last {
				t.Errorf("events not in descending date order, %s misplaced", uid)
			}
			last = i
		}
		if !chunk.StartDate.Equal(time.Date(2023, 1, 1, 10, 0, 0, 0, time.Local)) {
			t.Errorf("wrong chunk StartDate: %v", chunk.StartDate)
		}
		if !chunk.EndDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)) {
			t.Errorf("wrong chunk EndDate: %v", chunk.EndDate)
		}
	}()

	// case: a tiny limit isolates every event without dropping any
	func() {
		chunks := cal.SplitBySize(events, 10, false)
		if len(chunks) != 4 {
			t.Fatalf("expected 4 single-event chunks, got %d", len(chunks))
		}
		for i, chunk := range chunks {
			if chunk.EventCount != 1 {
				t.Errorf("chunk %d holds %d events, want 1", i, chunk.EventCount)
			}
		}
	}()

	// invariants hold across limits: counts add up, no chunk is empty or
	// unbalanced
	for _, maxSize := range []int{10, 200, 500, 1 << 20} {
		total := 0
		for i, chunk := range cal.SplitBySize(events, maxSize, false) {
			total += chunk.EventCount
			if chunk.EventCount == 0 {
				t.Errorf("maxSize %d: chunk %d is empty", maxSize, i)
			}
			if n := strings.Count(chunk.Content, "BEGIN:VEVENT"); n != chunk.EventCount {
				t.Errorf("maxSize %d: chunk %d has %d markers for %d events", maxSize, i, n, chunk.EventCount)
			}
			if !strings.HasSuffix(chunk.Content, "END:VCALENDAR\r\n") {
				t.Errorf("maxSize %d: chunk %d is not a terminated document", maxSize, i)
			}
		}
		if total != len(events) {
			t.Errorf("maxSize %d: chunks hold %d events, want %d", maxSize, total, len(events))
		}
	}
}

func TestSplitBySizeOversizeEvent(t *testing.T) {
	cal := ical.Parse(`BEGIN:VCALENDAR
VERSION:2.0
BEGIN:VEVENT
UID:huge-1
DTSTART:20230101
DESCRIPTION:` + strings.Repeat("payload ", 200) + `
END:VEVENT
END:VCALENDAR
`)
	chunks := cal.SplitBySize(cal.GetEvents(), 64, false)
	if len(chunks) != 1 {
		t.Fatalf("an oversize event must become its own chunk, got %d chunks", len(chunks))
	}
	if chunks[0].EventCount != 1 {
		t.Errorf("expected the single event, got %d", chunks[0].EventCount)
	}
	if !strings.Contains(chunks[0].Content, "UID:huge-1") {
		t.Error("oversize event body missing from its chunk")
	}
}

func TestSplitBySizeUndatedLast(t *testing.T) {
	cal := ical.Parse(`BEGIN:VCALENDAR
VERSION:2.0
BEGIN:VEVENT
UID:undated-a
SUMMARY:First undated
END:VEVENT
BEGIN:VEVENT
UID:dated-1
DTSTART:20220101
END:VEVENT
BEGIN:VEVENT
UID:undated-b
SUMMARY:Second undated
END:VEVENT
END:VCALENDAR
`)
	chunks := cal.SplitBySize(cal.GetEvents(), 1<<20, false)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	content := chunks[0].Content
	dated := strings.Index(content, "UID:dated-1")
	undatedA := strings.Index(content, "UID:undated-a")
	undatedB := strings.Index(content, "UID:undated-b")
	if dated > undatedA || dated > undatedB {
		t.Error("dated events must come before undated ones")
	}
	if undatedA > undatedB {
		t.Error("undated events must keep their original relative order")
	}
}
