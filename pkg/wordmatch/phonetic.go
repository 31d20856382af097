package wordmatch

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// phoneticThreshold is the minimum Jaro-Winkler score a phonetically
// equivalent token needs before it is accepted.
const phoneticThreshold = 0.80

// PhoneticMatch reports whether candidate sounds like target. Both words must
// share at least one Double Metaphone code and reach a Jaro-Winkler similarity
// of 0.80. Homophones such as "there"/"their" pass; words that merely share
// consonants in a different order ("cat"/"tack") do not.
func PhoneticMatch(target, candidate string) bool {
	target = strings.ToLower(strings.TrimSpace(target))
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if target == "" || candidate == "" {
		return false
	}
	if !codesOverlap(codes(target), codes(candidate)) {
		return false
	}
	return matchr.JaroWinkler(target, candidate, false) >= phoneticThreshold
}

// codes returns the non-empty Double Metaphone codes of word.
func codes(word string) []string {
	p, s := matchr.DoubleMetaphone(word)
	out := make([]string, 0, 2)
	if p != "" {
		out = append(out, p)
	}
	if s != "" && s != p {
		out = append(out, s)
	}
	return out
}

func codesOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
