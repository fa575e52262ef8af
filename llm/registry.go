package llm

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Factory constructs a Provider from a configuration and constructor options.
type Factory func(cfg Config, opts Options) (Provider, error)

// Registry maps provider names to factories. Names are case-insensitive.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name. It panics if name is empty or f is nil.
func (r *Registry) Register(name string, f Factory) {
	key := normalizeName(name)
	if key == "" {
		panic("llm: provider name must not be empty")
	}
	if f == nil {
		panic(fmt.Sprintf("llm: factory for %q must not be nil", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key] = f
}

// Unregister removes the factory for name and reports whether one existed.
func (r *Registry) Unregister(name string) bool {
	key := normalizeName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[key]
	delete(r.factories, key)
	return ok
}

// Has reports whether a factory is registered for name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[normalizeName(name)]
	return ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Create builds the provider registered under name. An unregistered name yields
// *UnknownProviderError; it never falls back to another provider.
func (r *Registry) Create(name string, cfg Config, opts ...Option) (Provider, error) {
	key := normalizeName(name)
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownProviderError{Name: name, Registered: r.Names()}
	}
	p, err := f(cfg, NewOptions(opts...))
	if err != nil {
		return nil, fmt.Errorf("llm: create %q: %w", key, err)
	}
	return p, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
