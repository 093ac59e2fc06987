// Package slug derives filesystem-safe directory names from display names.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest slug Make returns, before any collision suffix.
const MaxLength = 48

// Fallback is used when a name contains no usable characters.
const Fallback = "project"

var nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Make converts a display name to a slug: case-folded, diacritics stripped,
// runs of anything that is not a-z or 0-9 collapsed to a single hyphen, and
// truncated to MaxLength.
func Make(name string) string {
	s := nonAlphanumericRegex.ReplaceAllString(Fold(name), "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxLength {
		truncated := s[:MaxLength]
		// Prefer cutting at a word boundary when one is reasonably close.
		if i := strings.LastIndex(truncated, "-"); i > MaxLength/2 {
			truncated = truncated[:i]
		}
		s = strings.Trim(truncated, "-")
	}

	if s == "" {
		return Fallback
	}
	return s
}

// Fold lowercases text and strips combining marks, so "Éclair" and "ECLAIR"
// both fold to "eclair". Unlike Make it keeps spaces and punctuation.
func Fold(text string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		text,
	)
	if err != nil {
		stripped = text
	}
	return strings.ToLower(stripped)
}

// Unique returns base, or base with the smallest numeric suffix (-2, -3, ...)
// for which taken reports false.
func Unique(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !taken(candidate) {
			return candidate
		}
	}
}
