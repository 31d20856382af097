// Package wordmatch turns free-form recognizer transcripts into comparable
// word tokens and decides whether a spoken token is close enough to a target
// word.
//
// The pipeline has three stages:
//
//  1. [Normalize] lowercases the text and replaces everything outside
//     [a-z0-9'] and whitespace with a space.
//  2. [Tokenize] splits the normalized text into words.
//  3. A [Matcher] scores candidate tokens against a target with a
//     Levenshtein-based [Similarity] and accepts them above a threshold.
//
// All functions are pure and safe for concurrent use.
package wordmatch

import (
	"regexp"
	"strings"
)

// disallowed matches every rune that is not a lowercase ASCII letter, a digit,
// an apostrophe or ASCII whitespace.
var disallowed = regexp.MustCompile(`[^a-z0-9\s']`)

// Normalize lowercases text, replaces disallowed characters with spaces,
// collapses whitespace runs to a single space and trims the result.
func Normalize(text string) string {
	s := disallowed.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize normalizes text and splits it into words. Empty tokens are never
// returned; an input without any word characters yields a nil slice.
func Tokenize(text string) []string {
	n := Normalize(text)
	if n == "" {
		return nil
	}
	return strings.Split(n, " ")
}
