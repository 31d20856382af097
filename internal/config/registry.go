package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/readtowatch/pkg/recognizer"
)

// ErrProviderNotRegistered is returned by [Registry.Create] when no factory
// has been registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// RecognizerFactory builds a recognizer backend from its config entry.
type RecognizerFactory func(entry ProviderEntry) (recognizer.Provider, error)

// Registry maps recognizer provider names to factories. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]RecognizerFactory
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]RecognizerFactory)}
}

// Register adds factory under name, replacing any earlier registration.
func (r *Registry) Register(name string, factory RecognizerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Create builds the provider registered under entry.Name.
func (r *Registry) Create(entry ProviderEntry) (recognizer.Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: recognizer/%q", ErrProviderNotRegistered, entry.Name)
	}
	p, err := factory(entry)
	if err != nil {
		return nil, fmt.Errorf("config: create recognizer %q: %w", entry.Name, err)
	}
	return p, nil
}

// OptionString returns a string option from the entry, or def.
func (e ProviderEntry) OptionString(key, def string) string {
	if v, ok := e.Options[key].(string); ok && v != "" {
		return v
	}
	return def
}

// OptionInt returns an integer option from the entry, or def. YAML numbers
// decode as int or float64; both are accepted.
func (e ProviderEntry) OptionInt(key string, def int) int {
	switch v := e.Options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}
