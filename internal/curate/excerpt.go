package curate

import (
	"strings"
	"unicode/utf8"
)

// Excerpt returns at most n runes of s with surrounding whitespace removed.
// It never splits a multi-byte character.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
