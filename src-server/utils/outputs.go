package utils

import (
	"fmt"
	"strings"
	"time"

	"icsplit/src-server/ical"

	"github.com/olebedev/when"
)

type SplitMode string

const (
	SplitModeRange SplitMode = "range"
	SplitModeYear  SplitMode = "year"
	SplitModeSize  SplitMode = "size"
)

type SplitOptions struct {
	Mode      SplitMode
	CleanMode bool

	// size mode only, must be positive
	MaxSizeBytes int

	// optional window applied before any mode, zero means unbounded
	StartDate time.Time
	EndDate   time.Time

	// output file name stem, falls back to the calendar name
	BaseName string
}

// One serialized .ics ready to hand to a client, attach to a Discord
// reply, or write to disk.
type OutputFile struct {
	Name       string
	Content    string
	Size       int
	EventCount int
	StartDate  time.Time
	EndDate    time.Time
}

// Run one split job against a parsed calendar. Every surface (HTTP
// route, slash command, CLI) goes through here so they all produce the
// same files for the same inputs.
func SplitCalendar(cal *ical.Calendar, opts SplitOptions) ([]OutputFile, error) {
	if cal == nil {
		return nil, fmt.Errorf("SplitCalendar: calendar is nil")
	}

	baseName := SanitizeFileName(opts.BaseName)
	if opts.BaseName == "" {
		baseName = SanitizeFileName(cal.GetName())
	}

	events := cal.GetEvents()
	if !opts.StartDate.IsZero() || !opts.EndDate.IsZero() {
		events = ical.FilterByDateRange(events, opts.StartDate, opts.EndDate)
	}

	switch opts.Mode {
	case SplitModeRange:
		content := cal.ToIcal(events, opts.CleanMode)
		startDate, endDate := eventDateRange(events)
		return []OutputFile{{
			Name:       rangeFileName(baseName, opts.StartDate, opts.EndDate),
			Content:    content,
			Size:       ical.GetByteSize(content),
			EventCount: len(events),
			StartDate:  startDate,
			EndDate:    endDate,
		}}, nil

	case SplitModeYear:
		buckets := ical.SplitByYear(events)
		outputFiles := make([]OutputFile, 0, len(buckets))
		for _, key := range ical.SortedYearKeys(buckets) {
			bucket := buckets[key]
			content := cal.ToIcal(bucket, opts.CleanMode)
			startDate, endDate := eventDateRange(bucket)
			outputFiles = append(outputFiles, OutputFile{
				Name:       fmt.Sprintf("%s-%s.ics", baseName, key.String()),
				Content:    content,
				Size:       ical.GetByteSize(content),
				EventCount: len(bucket),
				StartDate:  startDate,
				EndDate:    endDate,
			})
		}
		return outputFiles, nil

	case SplitModeSize:
		if opts.MaxSizeBytes <= 0 {
			return nil, fmt.Errorf("SplitCalendar: size mode needs a positive max size, got %d", opts.MaxSizeBytes)
		}
		chunks := cal.SplitBySize(events, opts.MaxSizeBytes, opts.CleanMode)
		outputFiles := make([]OutputFile, 0, len(chunks))
		for i, chunk := range chunks {
			outputFiles = append(outputFiles, OutputFile{
				Name:       fmt.Sprintf("%s-part%02d.ics", baseName, i+1),
				Content:    chunk.Content,
				Size:       ical.GetByteSize(chunk.Content),
				EventCount: chunk.EventCount,
				StartDate:  chunk.StartDate,
				EndDate:    chunk.EndDate,
			})
		}
		return outputFiles, nil

	default:
		return nil, fmt.Errorf("SplitCalendar: unknown mode %q", opts.Mode)
	}
}

// Turn a user supplied date string into a bound for SplitOptions. Tries
// the plain formats first, then hands the string to the natural date
// parser ("last monday", "end of next month"). Blank means no bound.
func ParseDateBound(w *when.Parser, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("20060102", raw, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if w != nil {
		result, err := w.Parse(raw, time.Now())
		if err == nil && result != nil {
			return result.Time, nil
		}
	}
	return time.Time{}, fmt.Errorf("ParseDateBound: cannot make sense of %q", raw)
}

func rangeFileName(baseName string, startDate, endDate time.Time) string {
	if startDate.IsZero() && endDate.IsZero() {
		return baseName + "-filtered.ics"
	}
	startToken := "start"
	if !startDate.IsZero() {
		startToken = startDate.Format("20060102")
	}
	endToken := "end"
	if !endDate.IsZero() {
		endToken = endDate.Format("20060102")
	}
	return fmt.Sprintf("%s-%s-%s.ics", baseName, startToken, endToken)
}

func eventDateRange(events []ical.Event) (time.Time, time.Time) {
	var startDate, endDate time.Time
	for _, event := range events {
		date, ok := event.GetStartDate()
		if !ok {
			continue
		}
		if startDate.IsZero() || date.Before(startDate) {
			startDate = date
		}
		if endDate.IsZero() || date.After(endDate) {
			endDate = date
		}
	}
	return startDate, endDate
}
