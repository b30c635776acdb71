// Package match provides fuzzy title matching and candidate scoring used to
// resolve free-text titles against library entities when no catalog id is
// known.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics strips combining marks so "Émile" cleans to "emile".
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanName normalizes a title or author name for comparison: diacritics
// folded, lowercased, everything but letters and digits removed.
func CleanName(s string) string {
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RemoveBracketsAndContents strips bracketed/parenthesized segments:
// "Dune (Unabridged)" becomes "Dune".
func RemoveBracketsAndContents(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// RemoveAfterDash strips everything from the first " - " onward:
// "Dune - 40th Anniversary Edition" becomes "Dune".
func RemoveAfterDash(s string) string {
	if i := strings.Index(s, " - "); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// HasThePrefix reports whether the title starts with "The " (case-insensitive).
func HasThePrefix(s string) bool {
	return len(s) >= 4 && strings.EqualFold(s[:4], "the ")
}

// TrimThePrefix removes a leading "The " if present.
func TrimThePrefix(s string) string {
	if HasThePrefix(s) {
		return s[4:]
	}
	return s
}
