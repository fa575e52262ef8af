package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToOpenAIFormat(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newSearchTool(t)))

	schemas := reg.ToOpenAIFormat()
	require.Len(t, schemas, 1)
	s := schemas[0]
	assert.Equal(t, "search", s.Name)
	assert.Equal(t, "Search documents", s.Description)
	assert.Equal(t, "object", s.Parameters.Type)
	assert.Equal(t, []string{"query"}, s.Parameters.Required)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "search",
		"description": "Search documents",
		"parameters": {
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query"},
				"limit": {"type": "integer", "description": "Max results", "default": 10}
			},
			"required": ["query"]
		}
	}`, string(b))

	// Properties keep declaration order in the serialized form.
	assert.Less(t, strings.Index(string(b), `"query":`), strings.Index(string(b), `"limit":`))
}

func TestToOpenAIFormat_EmptyRequired(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool(t, "echo")))

	b, err := json.Marshal(reg.ToOpenAIFormat())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"required":[]`)
}

func TestToOpenAITools(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool(t, "b")))
	require.NoError(t, reg.Register(echoTool(t, "a")))

	out := reg.ToOpenAITools()
	require.Len(t, out, 2)
	assert.Equal(t, "function", out[0].Type)
	assert.Equal(t, "a", out[0].Function.Name)
	assert.Equal(t, "b", out[1].Function.Name)
}

func TestSchemaRoundTrip(t *testing.T) {
	tool := newSearchTool(t)
	b, err := json.Marshal(SchemaOf(tool).Parameters)
	require.NoError(t, err)

	params, err := ParametersFromSchema(b)
	require.NoError(t, err)
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"query", "limit"}, names)
	assert.True(t, params[0].Required)
	assert.False(t, params[1].Required)

	rebuilt, err := NewTool("search", "", params, func(_ context.Context, args Args) (any, error) {
		return args.Int("limit"), nil
	})
	require.NoError(t, err)
	res, err := rebuilt.Execute(context.Background(), Args{"query": "x"})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Output)
}

func TestObjectSchema_Map(t *testing.T) {
	m := ObjectSchemaOf(searchParams()).Map()
	assert.Equal(t, "object", m["type"])
	props, ok := m["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Equal(t, []any{"query"}, m["required"])
}
