package wordmatch_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/readtowatch/pkg/wordmatch"
)

func TestMatcher_IsMatch(t *testing.T) {
	t.Parallel()

	m := wordmatch.New()

	tests := []struct {
		target, candidate string
		want              bool
	}{
		{"cat", "cat", true},
		{"cat", "dog", false},
		{"jump", "jumpp", true},
		{"jump", "jumped", false},
		{"the", "The", true},
		{"there", "their", false},
	}
	for _, tc := range tests {
		if got := m.IsMatch(tc.target, tc.candidate); got != tc.want {
			t.Errorf("IsMatch(%q, %q) = %v, want %v", tc.target, tc.candidate, got, tc.want)
		}
	}
}

func TestMatcher_Defaults(t *testing.T) {
	t.Parallel()

	m := wordmatch.New()
	if m.Threshold() != 0.68 {
		t.Errorf("Threshold() = %v, want 0.68", m.Threshold())
	}
	if m.WindowSize() != 4 {
		t.Errorf("WindowSize() = %d, want 4", m.WindowSize())
	}
}

func TestMatcher_Options(t *testing.T) {
	t.Parallel()

	t.Run("custom threshold", func(t *testing.T) {
		m := wordmatch.New(wordmatch.WithThreshold(0.9))
		if m.IsMatch("jump", "jumpp") {
			t.Error("expected 0.8 similarity to be rejected at threshold 0.9")
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		m := wordmatch.New(wordmatch.WithThreshold(1.5), wordmatch.WithWindow(0))
		if m.Threshold() != wordmatch.DefaultThreshold {
			t.Errorf("Threshold() = %v, want default", m.Threshold())
		}
		if m.WindowSize() != wordmatch.DefaultWindow {
			t.Errorf("WindowSize() = %d, want default", m.WindowSize())
		}
	})

	t.Run("phonetic fallback", func(t *testing.T) {
		m := wordmatch.New(wordmatch.WithPhoneticFallback(true))
		if !m.IsMatch("there", "their") {
			t.Error("expected homophone to match with phonetic fallback")
		}
		if m.IsMatch("cat", "dog") {
			t.Error("unrelated words must still be rejected")
		}
	})
}

func TestMatcher_Window(t *testing.T) {
	t.Parallel()

	m := wordmatch.New()
	toks := []string{"a", "b", "c", "d", "e", "f"}
	if got := m.Window(toks); !slices.Equal(got, []string{"c", "d", "e", "f"}) {
		t.Errorf("Window = %q", got)
	}
	short := []string{"x", "y"}
	if got := m.Window(short); !slices.Equal(got, short) {
		t.Errorf("Window(short) = %q", got)
	}
}

func TestMatcher_MatchText(t *testing.T) {
	t.Parallel()

	m := wordmatch.New()

	if !m.MatchText("sat", "The cat sat!") {
		t.Error("expected target inside transcript to match")
	}
	// "the" is the fifth-from-last token and falls outside the window.
	if m.MatchText("the", "the big brown dog ran") {
		t.Error("tokens outside the trailing window must not match")
	}
	if m.MatchText("cat", "") {
		t.Error("empty transcript must not match")
	}
}

func TestPhoneticMatch(t *testing.T) {
	t.Parallel()

	if !wordmatch.PhoneticMatch("there", "their") {
		t.Error("PhoneticMatch(there, their) = false, want true")
	}
	if wordmatch.PhoneticMatch("cat", "tack") {
		t.Error("PhoneticMatch(cat, tack) = true, want false")
	}
	if wordmatch.PhoneticMatch("", "a") {
		t.Error("empty target must not match")
	}
}
