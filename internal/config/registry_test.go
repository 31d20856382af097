package config_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/readtowatch/internal/config"
	"github.com/MrWong99/readtowatch/pkg/recognizer"
	recmock "github.com/MrWong99/readtowatch/pkg/recognizer/mock"
)

func TestRegistry(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()
	want := &recmock.Provider{}
	var gotEntry config.ProviderEntry
	r.Register("typed", func(e config.ProviderEntry) (recognizer.Provider, error) {
		gotEntry = e
		return want, nil
	})
	r.Register("broken", func(config.ProviderEntry) (recognizer.Provider, error) {
		return nil, errors.New("no credentials")
	})

	p, err := r.Create(config.ProviderEntry{Name: "typed", Model: "m"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p != want || gotEntry.Model != "m" {
		t.Error("factory not called with the entry")
	}

	if _, err := r.Create(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.Create(config.ProviderEntry{Name: "broken"}); err == nil {
		t.Error("expected factory error")
	}
	if names := r.Names(); len(names) != 2 || names[0] != "broken" || names[1] != "typed" {
		t.Errorf("Names = %v", names)
	}
}

func TestProviderEntry_Options(t *testing.T) {
	t.Parallel()
	e := config.ProviderEntry{Options: map[string]any{"model": "nova", "rate": 16000, "ms": 1500.0, "bad": true}}
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", e.OptionString("model", "x"), "nova"},
		{"string default", e.OptionString("missing", "x"), "x"},
		{"int", e.OptionInt("rate", 0), 16000},
		{"float as int", e.OptionInt("ms", 0), 1500},
		{"wrong type", e.OptionInt("bad", 7), 7},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}
