package ical

import (
	"sort"
	"strconv"
	"time"
)

// Bucket key for SplitByYear. Undated is the sentinel for events without a
// parsable DTSTART; Year is meaningless when Undated is set.
type YearKey struct {
	Year    int
	Undated bool
}

func (k YearKey) String() string {
	if k.Undated {
		return "unknown"
	}
	return strconv.Itoa(k.Year)
}

// One output unit of SplitBySize. StartDate/EndDate are the min/max parsed
// dates among the chunk's events, zero when none of them is dated.
type Chunk struct {
	Content    string
	EventCount int
	StartDate  time.Time
	EndDate    time.Time
}

// Keep events whose parsed date lies within [start, end], both inclusive. A
// zero bound is unbounded on that side. Undated events are always kept,
// fail-open: silently dropping undateable data would be worse than an
// imprecise filter. Original order is preserved.
func FilterByDateRange(events []Event, start, end time.Time) []Event {
	filtered := make([]Event, 0, len(events))
	for _, event := range events {
		date, ok := event.GetStartDate()
		if !ok {
			filtered = append(filtered, event)
			continue
		}
		if !start.IsZero() && date.Before(start) {
			continue
		}
		if !end.IsZero() && date.After(end) {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered
}

// Bucket events by the calendar year of their parsed date; undated events
// land in the one Undated bucket. Within-bucket order is the original order.
// The mapping itself is unordered; use SortedYearKeys for a caller-facing
// ordering.
func SplitByYear(events []Event) map[YearKey][]Event {
	buckets := make(map[YearKey][]Event)
	for _, event := range events {
		key := YearKey{Undated: true}
		if date, ok := event.GetStartDate(); ok {
			key = YearKey{Year: date.Year()}
		}
		buckets[key] = append(buckets[key], event)
	}
	return buckets
}

// Bucket keys sorted lexicographically by their string form, so "unknown"
// orders deterministically alongside numeric years.
func SortedYearKeys(buckets map[YearKey][]Event) []YearKey {
	keys := make([]YearKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Chunk events greedily so each serialized document stays under
// maxSizeBytes, by pre-folding estimate (see estimatedSize). Events are
// taken in descending date order, undated events after all dated ones in
// their original relative order. A chunk only closes when it already holds
// at least one event, so an event whose own estimate exceeds maxSizeBytes
// becomes a chunk by itself instead of failing; with at least one input
// event there is always at least one chunk.
func (cal *Calendar) SplitBySize(events []Event, maxSizeBytes int, cleanMode bool) []Chunk {
	sorted := sortByDateDesc(events)
	overhead := cal.estimatedOverhead()

	chunks := make([]Chunk, 0)
	current := make([]Event, 0)
	size := overhead

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, cal.newChunk(current, cleanMode))
		current = make([]Event, 0)
		size = overhead
	}

	for _, event := range sorted {
		eventSize := event.estimatedSize()
		if size+eventSize > maxSizeBytes && len(current) >= 1 {
			flush()
		}
		current = append(current, event)
		size += eventSize
	}
	flush()

	return chunks
}

// Descending by parsed date; undated events sort after every dated one and
// keep their original relative order among themselves.
func sortByDateDesc(events []Event) []Event {
	type datedEvent struct {
		event Event
		date  time.Time
		dated bool
	}
	dated := make([]datedEvent, 0, len(events))
	for _, event := range events {
		date, ok := event.GetStartDate()
		dated = append(dated, datedEvent{event: event, date: date, dated: ok})
	}
	sort.SliceStable(dated, func(i, j int) bool {
		switch {
		case dated[i].dated != dated[j].dated:
			return dated[i].dated
		case !dated[i].dated:
			return false
		default:
			return dated[i].date.After(dated[j].date)
		}
	})
	sorted := make([]Event, 0, len(dated))
	for _, d := range dated {
		sorted = append(sorted, d.event)
	}
	return sorted
}

func (cal *Calendar) newChunk(events []Event, cleanMode bool) Chunk {
	chunk := Chunk{
		Content:    cal.ToIcal(events, cleanMode),
		EventCount: len(events),
	}
	for _, event := range events {
		date, ok := event.GetStartDate()
		if !ok {
			continue
		}
		if chunk.StartDate.IsZero() || date.Before(chunk.StartDate) {
			chunk.StartDate = date
		}
		if chunk.EndDate.IsZero() || date.After(chunk.EndDate) {
			chunk.EndDate = date
		}
	}
	return chunk
}

// Pre-folding size estimates: each line counts as its byte length plus 2
// for the line break. Undercounts whenever folding inserts extra breaks;
// callers wanting the real number run GetByteSize over the output.
func (cal *Calendar) estimatedOverhead() int {
	header := cal.headerLines
	if len(header) == 0 {
		header = minimalHeaderLines
	}
	total := 0
	for _, line := range header {
		total += len(line) + 2
	}
	total += len("END:VCALENDAR") + 2
	return total
}

func (e *Event) estimatedSize() int {
	total := len("BEGIN:VEVENT") + 2 + len("END:VEVENT") + 2
	for _, line := range e.serializableLines() {
		total += len(line) + 2
	}
	return total
}
