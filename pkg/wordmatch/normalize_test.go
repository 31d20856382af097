package wordmatch_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/readtowatch/pkg/wordmatch"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "The CAT", "the cat"},
		{"strips punctuation", "Hello, world!!", "hello world"},
		{"keeps apostrophes", "Don't stop", "don't stop"},
		{"keeps digits", "2 dogs", "2 dogs"},
		{"collapses whitespace", "  a \t\n b   c ", "a b c"},
		{"non-ascii letters become spaces", "café au lait", "caf au lait"},
		{"empty", "", ""},
		{"only punctuation", "?!.,", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := wordmatch.Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"The Cat, sat!!", []string{"the", "cat", "sat"}},
		{"I can't   jump.", []string{"i", "can't", "jump"}},
		{"", nil},
		{"...", nil},
	}

	for _, tc := range tests {
		got := wordmatch.Tokenize(tc.in)
		if !slices.Equal(got, tc.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenize_Restartable(t *testing.T) {
	t.Parallel()

	in := "The dog runs fast."
	first := wordmatch.Tokenize(in)
	second := wordmatch.Tokenize(in)
	if !slices.Equal(first, second) {
		t.Fatalf("Tokenize is not deterministic: %q vs %q", first, second)
	}
	first[0] = "changed"
	if wordmatch.Tokenize(in)[0] != "the" {
		t.Error("mutating a returned slice affected a later call")
	}
}
