package match

import "sort"

// Tolerance controls when a fuzzy score is accepted. A candidate is kept when
// its score clears Threshold, or when it trails an accepted candidate by less
// than Gap. Author lookups use a tighter gap than book lookups because author
// names collide more often.
type Tolerance struct {
	Threshold float64
	Gap       float64
}

var (
	AuthorTolerance = Tolerance{Threshold: 0.8, Gap: 0.2}
	BookTolerance   = Tolerance{Threshold: 0.7, Gap: 0.4}
)

// ScoreFunc scores a single candidate against the search target, returning a
// 0..1 probability. Scoring functions are tried in order of descending
// strictness; see FindInexact.
type ScoreFunc[T any] func(candidate T) float64

// scored pairs a candidate with its computed score for sorting.
type scored[T any] struct {
	item  T
	score float64
}

// filterByScore scores every candidate with fn, sorts descending, and keeps
// the leading run that clears tol: each kept candidate either beats Threshold
// itself or sits within Gap of the one before it. Returns the survivors in
// score order.
func filterByScore[T any](candidates []T, fn ScoreFunc[T], tol Tolerance) []T {
	ranked := make([]scored[T], 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scored[T]{item: c, score: fn(c)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var out []T
	for i, r := range ranked {
		if i > 0 && ranked[i-1].score-r.score >= tol.Gap {
			break
		}
		if r.score <= tol.Threshold && !(i > 0 && ranked[i-1].score > tol.Threshold) {
			break
		}
		out = append(out, r.item)
	}
	return out
}

// FindInexact runs the scoring functions in order and returns the match from
// the first function that narrows the field to exactly one candidate. Zero
// survivors means the function had no opinion and the next one is tried; two
// or more survivors means the result is ambiguous and likewise deferred. If no
// function produces a single match the lookup fails.
func FindInexact[T any](candidates []T, fns []ScoreFunc[T], tol Tolerance) (T, bool) {
	for _, fn := range fns {
		if results := filterByScore(candidates, fn, tol); len(results) == 1 {
			return results[0], true
		}
	}
	var zero T
	return zero, false
}

// Candidates unions the survivors of every scoring function, preserving first
// encounter order and deduplicating by key. Unlike FindInexact it never stops
// early, so the result is the full plausible set for interactive pickers.
func Candidates[T any, K comparable](candidates []T, fns []ScoreFunc[T], tol Tolerance, keyOf func(T) K) []T {
	seen := make(map[K]bool)
	var out []T
	for _, fn := range fns {
		for _, r := range filterByScore(candidates, fn, tol) {
			k := keyOf(r)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, r)
		}
	}
	return out
}
