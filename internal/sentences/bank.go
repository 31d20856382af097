// Package sentences holds the levelled sentence bank that challenges draw
// from and the selection policy that biases choices toward words the reader
// is practising.
//
// A bank file is YAML (JSON documents parse as well):
//
//	levels:
//	  - id: 1
//	    name: Starter
//	    sentences:
//	      - The cat sat.
//	      - I see a dog.
package sentences

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/readtowatch/pkg/wordmatch"
)

// FallbackSentence is returned when the chosen level has no sentences.
const FallbackSentence = "Read this sentence."

//go:embed default.yaml
var defaultBank []byte

// Level is a named group of sentences of similar difficulty.
type Level struct {
	ID        int      `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Sentences []string `yaml:"sentences" json:"sentences"`
}

// Bank is an ordered list of levels. The first level is used when a
// requested level does not exist.
type Bank struct {
	Levels []Level `yaml:"levels" json:"levels"`

	intn func(n int) int
}

// Option configures a [Bank].
type Option func(*Bank)

// WithRand sets the function used to pick among candidate sentences. It must
// return a value in [0, n). Defaults to math/rand/v2.IntN.
func WithRand(intn func(n int) int) Option {
	return func(b *Bank) { b.intn = intn }
}

// Default returns the built-in bank.
func Default(opts ...Option) *Bank {
	b, err := Parse(defaultBank, opts...)
	if err != nil {
		return Fallback(opts...)
	}
	return b
}

// Fallback returns a single-level bank containing only [FallbackSentence].
func Fallback(opts ...Option) *Bank {
	b := &Bank{Levels: []Level{{ID: 1, Name: "Fallback", Sentences: []string{FallbackSentence}}}}
	b.apply(opts)
	return b
}

// Load reads a bank file from path. An empty path yields [Default].
func Load(path string, opts ...Option) (*Bank, error) {
	if path == "" {
		return Default(opts...), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sentences: open %q: %w", path, err)
	}
	defer f.Close()

	b, err := LoadFromReader(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("sentences: parse %q: %w", path, err)
	}
	return b, nil
}

// LoadFromReader decodes a bank from r.
func LoadFromReader(r io.Reader, opts ...Option) (*Bank, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("sentences: read: %w", err)
	}
	return Parse(data, opts...)
}

// Parse decodes a bank document and validates it.
func Parse(data []byte, opts ...Option) (*Bank, error) {
	b := &Bank{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(b); err != nil {
		return nil, fmt.Errorf("sentences: decode: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.apply(opts)
	return b, nil
}

func (b *Bank) apply(opts []Option) {
	for _, o := range opts {
		o(b)
	}
	if b.intn == nil {
		b.intn = rand.IntN
	}
}

// Validate reports structural problems: no levels, or duplicate level IDs.
func (b *Bank) Validate() error {
	if len(b.Levels) == 0 {
		return errors.New("sentences: bank has no levels")
	}
	var errs []error
	seen := make(map[int]int, len(b.Levels))
	for i, lvl := range b.Levels {
		if prev, ok := seen[lvl.ID]; ok {
			errs = append(errs, fmt.Errorf("sentences: levels[%d].id %d is a duplicate of levels[%d]", i, lvl.ID, prev))
			continue
		}
		seen[lvl.ID] = i
	}
	return errors.Join(errs...)
}

// Level returns the level with the given id, falling back to the first
// level. ok is false when the bank is empty.
func (b *Bank) Level(id int) (lvl Level, ok bool) {
	if len(b.Levels) == 0 {
		return Level{}, false
	}
	for _, l := range b.Levels {
		if l.ID == id {
			return l, true
		}
	}
	return b.Levels[0], true
}

// LevelIDs returns the ids of all levels in bank order.
func (b *Bank) LevelIDs() []int {
	ids := make([]int, len(b.Levels))
	for i, l := range b.Levels {
		ids[i] = l.ID
	}
	return ids
}

// Choose picks a sentence from the given level. When any sentence in the
// level contains one of the struggling or focus words, the pick is limited to
// those sentences.
func (b *Bank) Choose(level int, struggling map[string]int, focus []string) string {
	lvl, ok := b.Level(level)
	if !ok || len(lvl.Sentences) == 0 {
		return FallbackSentence
	}

	candidates := lvl.Sentences
	if targets := practiceTargets(struggling, focus); len(targets) > 0 {
		var preferred []string
		for _, s := range lvl.Sentences {
			if containsAny(wordmatch.Tokenize(s), targets) {
				preferred = append(preferred, s)
			}
		}
		if len(preferred) > 0 {
			candidates = preferred
		}
	}

	intn := b.intn
	if intn == nil {
		intn = rand.IntN
	}
	return candidates[intn(len(candidates))]
}

func practiceTargets(struggling map[string]int, focus []string) map[string]struct{} {
	targets := make(map[string]struct{}, len(struggling)+len(focus))
	for w := range struggling {
		targets[w] = struct{}{}
	}
	for _, w := range focus {
		targets[w] = struct{}{}
	}
	return targets
}

func containsAny(tokens []string, targets map[string]struct{}) bool {
	return slices.ContainsFunc(tokens, func(t string) bool {
		_, ok := targets[t]
		return ok
	})
}
