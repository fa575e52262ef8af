// Package providers wires the built-in llm backends into an llm.Registry and offers the
// process-wide create entry point.
package providers

import (
	"sync"

	"github.com/skosovsky/teamcore/llm"
	"github.com/skosovsky/teamcore/llm/anthropic"
	"github.com/skosovsky/teamcore/llm/anyllm"
	"github.com/skosovsky/teamcore/llm/mock"
	"github.com/skosovsky/teamcore/llm/openai"
)

// Register adds the built-in providers to r: openai, anthropic, mock and every any-llm
// backend. Existing entries with the same names are replaced.
func Register(r *llm.Registry) {
	r.Register(openai.Name, openai.Factory)
	r.Register(anthropic.Name, anthropic.Factory)
	r.Register(mock.Name, mock.Factory)
	for _, name := range anyllm.Backends() {
		r.Register(name, anyllm.FactoryFor(name))
	}
}

// NewRegistry returns a registry holding the built-in providers.
func NewRegistry() *llm.Registry {
	r := llm.NewRegistry()
	Register(r)
	return r
}

var (
	defaultMu  sync.Mutex
	defaultReg *llm.Registry
)

// Default returns the process-wide registry, creating it with the built-in providers on
// first use. Custom providers registered on it are visible to Create.
func Default() *llm.Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg == nil {
		defaultReg = NewRegistry()
	}
	return defaultReg
}

// ResetDefault discards the process-wide registry, including custom registrations.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultReg = nil
}

// Create builds the provider registered under name in the Default registry.
// Unknown names fail with *llm.UnknownProviderError.
func Create(name string, cfg llm.Config, opts ...llm.Option) (llm.Provider, error) {
	return Default().Create(name, cfg, opts...)
}
