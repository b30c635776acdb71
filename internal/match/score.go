package match

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Similarity returns a 0..1 match probability between two strings based on
// Levenshtein edit distance over the longer string. Identical strings score 1,
// wholly different strings score 0. Inputs are compared as given; callers
// normally pass values through CleanName first.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	if dist >= longest {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

// ContainsScore returns the best Similarity of needle against any
// equally-sized window of haystack, so "dune" scores 1 against
// "dunemessiah". Used for titles that embed subtitles or series names.
func ContainsScore(haystack, needle string) float64 {
	if needle == "" {
		return 0
	}
	if strings.Contains(haystack, needle) {
		return 1
	}
	if len(haystack) <= len(needle) {
		return Similarity(haystack, needle)
	}
	best := 0.0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if s := Similarity(haystack[i:i+len(needle)], needle); s > best {
			best = s
		}
	}
	return best
}
