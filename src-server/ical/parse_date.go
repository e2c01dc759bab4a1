package ical

import (
	"regexp"
	"time"
)

var (
	datePattern      = regexp.MustCompile(`^\d{4}\d{2}\d{2}$`)
	localTimePattern = regexp.MustCompile(`^\d{4}\d{2}\d{2}T\d{2}\d{2}\d{2}$`)
	utcTimePattern   = regexp.MustCompile(`^\d{4}\d{2}\d{2}T\d{2}\d{2}\d{2}Z$`)
)

// Parse a date-time value in the `YYYYMMDD[THHMMSS[Z]]` grammar. For example:
//   - `20230115` (midnight, naive local)
//   - `20230115T093000` (naive local)
//   - `20230115T093000Z` (UTC)
//
// Anything else yields false, consumed downstream as "undated"; never an
// error. A value without the "Z" postfix is always naive local time, even if
// the original line carried a TZID parameter. Known limitation.
func ParseICalDate(raw string) (time.Time, bool) {
	switch {
	case datePattern.MatchString(raw):
		result, err := time.ParseInLocation("20060102", raw, time.Local)
		if err != nil {
			return time.Time{}, false
		}
		return result, true
	case localTimePattern.MatchString(raw):
		result, err := time.ParseInLocation("20060102T150405", raw, time.Local)
		if err != nil {
			return time.Time{}, false
		}
		return result, true
	case utcTimePattern.MatchString(raw):
		result, err := time.Parse("20060102T150405Z", raw)
		if err != nil {
			return time.Time{}, false
		}
		return result, true
	default:
		return time.Time{}, false
	}
}
