package ical

import "time"

// Aggregates over one parsed calendar. EarliestDate/LatestDate stay zero and
// EventsByYear stays empty when no event carries a parsable date;
// TotalEvents counts every event either way.
type Statistics struct {
	TotalEvents  int
	EarliestDate time.Time
	LatestDate   time.Time
	EventsByYear map[int]int
}

// Single pass over all events.
func (c *Calendar) GetStatistics() Statistics {
	stats := Statistics{
		TotalEvents:  len(c.events),
		EventsByYear: make(map[int]int),
	}
	for _, event := range c.events {
		date, ok := event.GetStartDate()
		if !ok {
			continue
		}
		if stats.EarliestDate.IsZero() || date.Before(stats.EarliestDate) {
			stats.EarliestDate = date
		}
		if stats.LatestDate.IsZero() || date.After(stats.LatestDate) {
			stats.LatestDate = date
		}
		stats.EventsByYear[date.Year()]++
	}
	return stats
}
