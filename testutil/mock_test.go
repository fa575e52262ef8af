package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/teamcore/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMockTool(t *testing.T) {
	m := &MockTool{
		NameVal:   "test_tool",
		DescVal:   "For tests",
		ParamsVal: []tools.Parameter{{Name: "q", Type: tools.TypeString}},
		ExecuteFn: func(_ context.Context, args tools.Args) (tools.Result, error) {
			return tools.Succeeded("test_tool", args.String("q")), nil
		},
	}
	assert.Equal(t, "test_tool", m.Name())
	assert.Equal(t, "For tests", m.Description())
	assert.Len(t, m.Parameters(), 1)

	res, err := m.Execute(context.Background(), tools.Args{"q": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", res.Output)
	assert.Equal(t, []tools.Args{{"q": "x"}}, m.Calls())
}

func TestNewTestRegistry(t *testing.T) {
	m := &MockTool{NameVal: "m", OutputVal: 42}
	reg := NewTestRegistry(m)
	require.Equal(t, []string{"m"}, reg.Names())

	res, err := reg.Execute(context.Background(), "m", nil)
	require.NoError(t, err)
	assert.Equal(t, 42, res.Output)
	assert.Len(t, m.Calls(), 1)
}

func TestNewMockProvider(t *testing.T) {
	p := NewMockProvider("first", "second")
	r, err := p.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "first", r.Content)
	assert.Len(t, p.History(), 1)
}
