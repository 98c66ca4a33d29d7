package domain

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	currencyRegex   = regexp.MustCompile(`[$€£¥₹]`)
	refStripRegex   = regexp.MustCompile(`[-_\s]`)
)

// NormalizeDescription lowercases a free-text description, strips currency
// symbols, and collapses runs of whitespace to a single space. All text
// comparison in the matching stages happens on normalized descriptions.
func NormalizeDescription(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = currencyRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// NormalizeReference canonicalizes an external reference for equality
// comparison: case folded with separators removed, so "INV-2024_001" and
// "inv 2024 001" compare equal.
func NormalizeReference(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	return refStripRegex.ReplaceAllString(s, "")
}
