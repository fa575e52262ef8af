package tools

import "sync"

var (
	defaultMu  sync.Mutex
	defaultReg *Registry
)

// Default returns the process-wide registry, created empty on first use.
// Built-in tools are added explicitly, e.g. with builtin.Register(tools.Default()).
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg == nil {
		defaultReg = NewRegistry()
	}
	return defaultReg
}

// ResetDefault discards the process-wide registry.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultReg = nil
}
