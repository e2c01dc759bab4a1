package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// strips spaces, uppercase first letter, remove trailing period
func CleanupString(s string) string {
	s = strings.TrimSpace(s)
	s = cases.Title(language.English).String(s)
	s = strings.TrimSuffix(s, ".")
	return s
}

// Reduce an arbitrary string (calendar names, uploaded file names) to
// something safe to use as an output file name. Spaces become dashes,
// anything outside [a-zA-Z0-9._-] is dropped, and a blank result falls
// back to "calendar".
func SanitizeFileName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, s)
	s = strings.Trim(s, "-.")
	if s == "" {
		return "calendar"
	}
	return s
}
