package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchParams() []Parameter {
	return []Parameter{
		{Name: "query", Type: TypeString, Description: "Search query", Required: true},
		{Name: "limit", Type: TypeInteger, Description: "Max results", Default: 10},
	}
}

func newSearchTool(t *testing.T) Tool {
	t.Helper()
	tool, err := NewTool("search", "Search documents\nSecond line is dropped.", searchParams(),
		func(_ context.Context, args Args) (any, error) {
			return map[string]any{"query": args.String("query"), "limit": args.Int("limit")}, nil
		})
	require.NoError(t, err)
	return tool
}

func TestNewTool_DefaultsFilled(t *testing.T) {
	tool := newSearchTool(t)
	assert.Equal(t, "search", tool.Name())
	assert.Equal(t, "Search documents", tool.Description())

	res, err := tool.Execute(context.Background(), Args{"query": "go"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, map[string]any{"query": "go", "limit": 10}, res.Output)
}

func TestNewTool_MissingRequired(t *testing.T) {
	tool := newSearchTool(t)
	_, err := tool.Execute(context.Background(), Args{"limit": 5})
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "search", ve.Tool)
	assert.Equal(t, "query", ve.Param)
}

func TestNewTool_UnknownArgs(t *testing.T) {
	tool := newSearchTool(t)
	_, err := tool.Execute(context.Background(), Args{"query": "go", "page": 2})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "page", ve.Param)

	lenient, err := NewTool("search", "", searchParams(), func(_ context.Context, args Args) (any, error) {
		return args.Has("page"), nil
	}, WithAllowUnknownArgs())
	require.NoError(t, err)
	res, err := lenient.Execute(context.Background(), Args{"query": "go", "page": 2})
	require.NoError(t, err)
	assert.Equal(t, false, res.Output)
}

func TestNewTool_TypeMismatch(t *testing.T) {
	tool := newSearchTool(t)
	_, err := tool.Execute(context.Background(), Args{"query": "go", "limit": "ten"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "limit", ve.Param)
}

func TestNewTool_EnumViolation(t *testing.T) {
	tool, err := NewTool("mode", "", []Parameter{
		{Name: "mode", Type: TypeString, Required: true, Enum: []any{"fast", "slow"}},
	}, func(_ context.Context, args Args) (any, error) { return args.String("mode"), nil })
	require.NoError(t, err)

	_, err = tool.Execute(context.Background(), Args{"mode": "medium"})
	require.ErrorIs(t, err, ErrValidation)
	res, err := tool.Execute(context.Background(), Args{"mode": "fast"})
	require.NoError(t, err)
	assert.Equal(t, "fast", res.Output)
}

func TestNewTool_HandlerFailures(t *testing.T) {
	failing, err := NewTool("fail", "", nil, func(context.Context, Args) (any, error) {
		return nil, errors.New("disk full")
	})
	require.NoError(t, err)
	res, err := failing.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "disk full", res.Error)
	assert.Equal(t, "fail", res.ToolName)

	panicking, err := NewTool("panic", "", nil, func(context.Context, Args) (any, error) {
		panic("oops")
	})
	require.NoError(t, err)
	res, err = panicking.Execute(context.Background(), Args{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "oops")
}

func TestNewTool_HandlerValidationError(t *testing.T) {
	tool, err := NewTool("range", "", []Parameter{{Name: "n", Type: TypeInteger, Required: true}},
		func(_ context.Context, args Args) (any, error) {
			if args.Int("n") < 0 {
				return nil, &ValidationError{Param: "n", Reason: "must be non-negative"}
			}
			return args.Int("n"), nil
		})
	require.NoError(t, err)
	_, err = tool.Execute(context.Background(), Args{"n": -1})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "range", ve.Tool)
}

func TestNewTool_Errors(t *testing.T) {
	noop := func(context.Context, Args) (any, error) { return nil, nil }

	_, err := NewTool("", "", nil, noop)
	require.Error(t, err)
	_, err = NewTool("x", "", nil, nil)
	require.Error(t, err)
	_, err = NewTool("x", "", []Parameter{{Name: "a"}, {Name: "a"}}, noop)
	require.ErrorContains(t, err, "duplicate parameter")
	_, err = NewTool("x", "", []Parameter{{Name: "a", Type: "date"}}, noop)
	require.ErrorContains(t, err, "unsupported type")

	tool, err := NewTool("x", "", []Parameter{{Name: "a"}}, noop)
	require.NoError(t, err)
	assert.Equal(t, TypeString, tool.Parameters()[0].Type)
}

func TestNewTool_DefaultsNotShared(t *testing.T) {
	tool, err := NewTool("tagger", "", []Parameter{
		{Name: "tags", Type: TypeArray, Items: TypeString, Default: []any{"a"}},
		{Name: "meta", Type: TypeObject, Default: map[string]any{"k": "v"}},
	}, func(_ context.Context, args Args) (any, error) {
		args["tags"].([]any)[0] = "mutated"
		args["meta"].(map[string]any)["k"] = "mutated"
		return nil, nil
	})
	require.NoError(t, err)

	for range 2 {
		res, err := tool.Execute(context.Background(), Args{})
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)
	}
	params := tool.Parameters()
	assert.Equal(t, []any{"a"}, params[0].Default)
	assert.Equal(t, map[string]any{"k": "v"}, params[1].Default)

	params[0].Default.([]any)[0] = "changed"
	assert.Equal(t, []any{"a"}, tool.Parameters()[0].Default)
}

func TestNewTool_InvalidDefault(t *testing.T) {
	noop := func(context.Context, Args) (any, error) { return nil, nil }
	tests := []struct {
		name  string
		param Parameter
	}{
		{"wrong type", Parameter{Name: "limit", Type: TypeInteger, Default: "ten"}},
		{"outside enum", Parameter{Name: "mode", Enum: []any{"fast", "slow"}, Default: "medium"}},
		{"wrong item type", Parameter{Name: "ids", Type: TypeArray, Items: TypeInteger, Default: []any{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTool("x", "", []Parameter{tt.param}, noop)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid default")
			assert.Contains(t, err.Error(), tt.param.Name)
		})
	}
}

func TestNewTool_Metadata(t *testing.T) {
	tool, err := NewTool("rm", "", nil, func(context.Context, Args) (any, error) { return nil, nil },
		WithDangerous(), WithVersion("1.2"), WithCategories("file"), WithName("remove"))
	require.NoError(t, err)
	assert.Equal(t, "remove", tool.Name())
	md, ok := tool.(Metadata)
	require.True(t, ok)
	assert.True(t, md.IsDangerous())
	assert.Equal(t, "1.2", md.Version())
	assert.Equal(t, []string{"file"}, md.Categories())
}

func TestNewDynamicTool(t *testing.T) {
	schema := []byte(`{"type":"object","properties":{"city":{"type":"string","description":"City"},"days":{"type":"integer","description":"Days","default":3}},"required":["city"]}`)
	tool, err := NewDynamicTool("weather", "Forecast", schema, func(_ context.Context, args Args) (any, error) {
		return args.Int("days"), nil
	})
	require.NoError(t, err)

	params := tool.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "city", params[0].Name)
	assert.True(t, params[0].Required)

	res, err := tool.Execute(context.Background(), Args{"city": "Oslo"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Output)

	_, err = NewDynamicTool("bad", "", []byte(`{"type":"array"}`), nil)
	require.Error(t, err)
}

func TestMust(t *testing.T) {
	assert.Panics(t, func() {
		Must(NewTool("", "", nil, nil))
	})
}
