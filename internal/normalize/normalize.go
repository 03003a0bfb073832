// Package normalize turns raw instruction text into the canonical,
// length-bounded form used as a prefix index key. Both sides of a match
// go through the same function, so an exact string comparison on the
// output reproduces what one record actually wrote about the other.
package normalize

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLen is the standard prefix length.
const DefaultMaxLen = 192

// Prefix lowercases the input, collapses whitespace runs to a single
// space, trims, and truncates to at most maxLen characters. Empty or
// whitespace-only input normalizes to "". The function is pure and
// idempotent: Prefix(Prefix(s, n), n) == Prefix(s, n).
func Prefix(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return ""
	}
	s := strings.Join(fields, " ")
	if len(s) > maxLen {
		// Back up to a rune boundary so the prefix stays valid UTF-8.
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}
