package progress

import (
	"fmt"
	"strings"
)

// blockedSubstrings keeps words unsuitable for a child out of the focus list.
var blockedSubstrings = []string{
	"fuck", "shit", "damn", "hell", "bitch", "ass", "cock", "dick", "pussy",
	"cunt", "bastard", "whore", "slut", "kill", "murder", "rape", "sex", "porn", "xxx",
}

// NormalizeFocusWord lowercases raw and keeps only the letters a-z. It
// returns [ErrInvalidWord] when nothing is left or the word contains a
// blocked substring.
func NormalizeFocusWord(raw string) (string, error) {
	word := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, strings.ToLower(strings.TrimSpace(raw)))

	if word == "" {
		return "", fmt.Errorf("%w: %q has no letters", ErrInvalidWord, raw)
	}
	for _, b := range blockedSubstrings {
		if strings.Contains(word, b) {
			return "", fmt.Errorf("%w: %q is not appropriate for practice", ErrInvalidWord, raw)
		}
	}
	return word, nil
}
