// Package normalize canonicalizes text fragments before grouping and matching.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// whitespace also matches Unicode separators that NFKC leaves in place.
var whitespace = regexp.MustCompile(`[\s\p{Z}\x{0085}]+`)

// RTLLanguages are the language codes whose internal spacing is preserved.
var RTLLanguages = map[string]bool{
	"ar": true,
	"he": true,
	"fa": true,
	"ur": true,
}

// IsRTL reports whether lang is a right-to-left language code.
func IsRTL(lang string) bool {
	return RTLLanguages[lang]
}

// Normalize applies NFKC, then either trims (RTL languages) or collapses
// whitespace runs and trims. It is idempotent.
func Normalize(text, lang string) string {
	if text == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	if IsRTL(lang) {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// Key returns a case-folded comparison key for deduplication. Two texts that
// differ only in case, Unicode composition or whitespace share a key.
func Key(text string) string {
	folded := cases.Fold().String(Normalize(text, ""))
	return norm.NFKC.String(folded)
}

var nonWord = regexp.MustCompile(`[^\w\s\x{0080}-\x{FFFF}]`)

// ForDetection strips punctuation and symbols below U+0080 and collapses
// whitespace, leaving text suitable for language detection.
func ForDetection(text string) string {
	if text == "" {
		return ""
	}
	text = whitespace.ReplaceAllString(text, " ")
	text = nonWord.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}
