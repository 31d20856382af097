package wordmatch

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// EditDistance returns the Levenshtein distance between a and b: the minimum
// number of single-rune insertions, deletions and substitutions needed to turn
// one into the other. It is symmetric and EditDistance(a, a) == 0.
func EditDistance(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// Similarity returns a score in [0, 1] computed as
//
//	1 - EditDistance(lower(a), lower(b)) / max(len(a), len(b), 1)
//
// where lengths are counted in runes. Two empty strings are identical and
// score 1.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	denom := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b), 1)
	return 1 - float64(EditDistance(a, b))/float64(denom)
}
