// Package encoding normalizes text before it is written to TOY files.
package encoding

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns s as NFC-normalized UTF-8. Ill-formed byte sequences
// become U+FFFD.
//
// Names are matched across sources (vertex groups against bones, animation
// channels against the bone table), and tools disagree on composed versus
// decomposed forms, so every name goes through here once.
func NormalizeName(s string) string {
	t := transform.Chain(runes.ReplaceIllFormed(), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		// Return as-is if the transform fails
		return s
	}
	return result
}

// NormalizeNames normalizes every name in place and returns the slice.
func NormalizeNames(names []string) []string {
	for i, n := range names {
		names[i] = NormalizeName(n)
	}
	return names
}
