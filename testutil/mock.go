// Package testutil provides test helpers for teamcore (mock tools, registries and providers).
package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/skosovsky/teamcore/tools"
)

// MockTool is a configurable Tool implementation for tests. It records the arguments of
// every call.
type MockTool struct {
	NameVal   string
	DescVal   string
	ParamsVal []tools.Parameter
	// ExecuteFn runs the call; when nil, Execute succeeds with OutputVal.
	ExecuteFn func(ctx context.Context, args tools.Args) (tools.Result, error)
	OutputVal any

	mu    sync.Mutex
	calls []tools.Args
}

// Name returns the tool name.
func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the tool description.
func (m *MockTool) Description() string {
	return m.DescVal
}

// Parameters returns the declared parameters (or none).
func (m *MockTool) Parameters() []tools.Parameter {
	return slices.Clone(m.ParamsVal)
}

// Execute records args and runs ExecuteFn if set.
func (m *MockTool) Execute(ctx context.Context, args tools.Args) (tools.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, args)
	m.mu.Unlock()
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, args)
	}
	return tools.Succeeded(m.Name(), m.OutputVal), nil
}

// Calls returns the arguments of every Execute call so far.
func (m *MockTool) Calls() []tools.Args {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Ensure MockTool implements Tool.
var _ tools.Tool = (*MockTool)(nil)
