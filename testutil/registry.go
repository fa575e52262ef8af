package testutil

import (
	"time"

	"github.com/skosovsky/teamcore/llm"
	"github.com/skosovsky/teamcore/llm/mock"
	"github.com/skosovsky/teamcore/tools"
)

// NewTestRegistry returns a Registry with long timeout and panic recovery enabled,
// suitable for tests. It panics if two tools share a name.
func NewTestRegistry(list ...tools.Tool) *tools.Registry {
	reg := tools.NewRegistry(
		tools.WithDefaultTimeout(30*time.Second),
		tools.WithRecoverPanics(true),
	)
	for _, t := range list {
		reg.MustRegister(t)
	}
	return reg
}

// NewMockProvider returns a mock provider with default config that answers with responses
// in order.
func NewMockProvider(responses ...string) *mock.Provider {
	return mock.New(llm.DefaultConfig(), responses...)
}
