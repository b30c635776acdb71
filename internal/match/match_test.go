package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	assert.Equal(t, "emilezola", CleanName("Émile Zola"))
	assert.Equal(t, "dune", CleanName("DUNE!"))
	assert.Equal(t, "bronte", CleanName("Brontë"))
	assert.Equal(t, "book2", CleanName("Book 2"))
	assert.Equal(t, "", CleanName("..."))
}

func TestRemoveBracketsAndContents(t *testing.T) {
	assert.Equal(t, "Dune", RemoveBracketsAndContents("Dune (Unabridged)"))
	assert.Equal(t, "Dune", RemoveBracketsAndContents("Dune [Dune Book 1]"))
	assert.Equal(t, "Dune", RemoveBracketsAndContents("Dune (a (nested) note)"))
}

func TestRemoveAfterDash(t *testing.T) {
	assert.Equal(t, "Dune", RemoveAfterDash("Dune - 40th Anniversary Edition"))
	assert.Equal(t, "Spider-Man", RemoveAfterDash("Spider-Man"))
}

func TestTrimThePrefix(t *testing.T) {
	assert.Equal(t, "Hobbit", TrimThePrefix("The Hobbit"))
	assert.Equal(t, "Theory of Everything", TrimThePrefix("Theory of Everything"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("dune", "dune"))
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	assert.Greater(t, Similarity("dune", "dun"), 0.7)
	assert.Greater(t, Similarity("frankherbert", "frankherbet"), Similarity("frankherbert", "isaacasimov"))
}

func TestContainsScore(t *testing.T) {
	assert.Equal(t, 1.0, ContainsScore("dunemessiah", "dune"))
	assert.Greater(t, ContainsScore("dunemessiah", "dun3"), 0.7)
	assert.Less(t, ContainsScore("dunemessiah", "hobbit"), 0.5)
}

func titleScore(target string) ScoreFunc[string] {
	return func(c string) float64 { return Similarity(CleanName(c), CleanName(target)) }
}

func TestFindInexact_SingleWinner(t *testing.T) {
	candidates := []string{"The Hobbit", "The Silmarillion", "Dune"}

	got, ok := FindInexact(candidates, []ScoreFunc[string]{titleScore("Dune")}, BookTolerance)
	require.True(t, ok)
	assert.Equal(t, "Dune", got)
}

func TestFindInexact_TieIsNoMatch(t *testing.T) {
	// Two identical candidates score the same and fall inside the gap, so
	// the lookup must refuse to pick one.
	candidates := []string{"Dune", "Dune"}

	_, ok := FindInexact(candidates, []ScoreFunc[string]{titleScore("Dune")}, BookTolerance)
	assert.False(t, ok)
}

func TestFindInexact_BelowThreshold(t *testing.T) {
	candidates := []string{"The Hobbit", "The Silmarillion"}

	_, ok := FindInexact(candidates, []ScoreFunc[string]{titleScore("Dune")}, BookTolerance)
	assert.False(t, ok)
}

func TestFindInexact_FallsThroughToNextFunc(t *testing.T) {
	// First function ties everything, second function discriminates.
	candidates := []string{"Dune (Unabridged)", "Dune Messiah"}

	constant := ScoreFunc[string](func(string) float64 { return 0.9 })
	stripped := func(c string) float64 {
		return Similarity(CleanName(RemoveBracketsAndContents(c)), CleanName("Dune"))
	}

	got, ok := FindInexact(candidates, []ScoreFunc[string]{constant, stripped}, BookTolerance)
	require.True(t, ok)
	assert.Equal(t, "Dune (Unabridged)", got)
}

func TestCandidates_UnionsAndDeduplicates(t *testing.T) {
	candidates := []string{"Dune", "Dune Messiah", "The Hobbit"}

	exact := titleScore("Dune")
	contains := func(c string) float64 { return ContainsScore(CleanName(c), CleanName("Dune")) }

	got := Candidates(candidates, []ScoreFunc[string]{exact, contains}, BookTolerance, func(s string) string { return s })
	require.Len(t, got, 2)
	assert.Equal(t, "Dune", got[0])
	assert.Contains(t, got, "Dune Messiah")
}

func TestCandidates_ExactTitleAlwaysIncluded(t *testing.T) {
	// An exact clean-title match scores 1.0 and can never be filtered out,
	// whatever else is in the pool.
	pools := [][]string{
		{"Dune"},
		{"Dune", "Dune Messiah"},
		{"Dune", "Dune Messiah", "Children of Dune", "Dune: House Atreides"},
	}
	exact := titleScore("Dune")
	for _, pool := range pools {
		got := Candidates(pool, []ScoreFunc[string]{exact}, BookTolerance, func(s string) string { return s })
		assert.Contains(t, got, "Dune")
	}
}

func TestFilterByScore_GapKeepsRunnersUp(t *testing.T) {
	// 0.95 and 0.80 are within the book gap of 0.4, so both survive even
	// though only one beats the threshold on its own merit relative to the
	// leader.
	fn := func(c string) float64 {
		switch c {
		case "a":
			return 0.95
		case "b":
			return 0.80
		default:
			return 0.1
		}
	}
	got := filterByScore([]string{"c", "b", "a"}, fn, BookTolerance)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "b"}, got)
}
