package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectSchemaOf(t *testing.T) {
	s := ObjectSchemaOf([]Parameter{
		{Name: "query", Type: TypeString, Description: "search query", Required: true},
		{Name: "limit", Type: TypeInteger, Default: 10},
		{Name: "tags", Type: TypeArray, Items: TypeString},
	})
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "search query"},
			"limit": {"type": "integer", "description": "", "default": 10},
			"tags": {"type": "array", "description": "", "items": {"type": "string", "description": ""}}
		},
		"required": ["query"]
	}`, string(raw))

	text := string(raw)
	assert.Less(t, strings.Index(text, `"query"`), strings.Index(text, `"limit"`))
	assert.Less(t, strings.Index(text, `"limit"`), strings.Index(text, `"tags"`))
}

func TestObjectSchemaOf_Empty(t *testing.T) {
	raw, err := json.Marshal(ObjectSchemaOf(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{},"required":[]}`, string(raw))
}

func TestObjectSchemaOf_Map(t *testing.T) {
	m := ObjectSchemaOf([]Parameter{{Name: "path", Type: TypeString, Required: true}}).Map()
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, []any{"path"}, m["required"])
	props, ok := m["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "path")
}

func TestParametersFromSchema_RoundTrip(t *testing.T) {
	in := []Parameter{
		{Name: "mode", Type: TypeString, Description: "how", Enum: []any{"fast", "slow"}, Required: true},
		{Name: "depth", Type: TypeInteger, Description: "levels"},
		{Name: "paths", Type: TypeArray, Description: "files", Items: TypeString},
	}
	raw, err := json.Marshal(ObjectSchemaOf(in))
	require.NoError(t, err)

	out, err := ParametersFromSchema(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParametersFromSchema_Errors(t *testing.T) {
	_, err := ParametersFromSchema([]byte(`{not json`))
	require.Error(t, err)

	_, err = ParametersFromSchema([]byte(`{"type":"array"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be object")

	params, err := ParametersFromSchema([]byte(`{"type":"object"}`))
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestSchemaOf(t *testing.T) {
	tool := Must(NewTool("lookup", "Look things up", []Parameter{{Name: "key", Required: true}},
		func(_ context.Context, _ Args) (any, error) { return nil, nil }))
	s := SchemaOf(tool)
	assert.Equal(t, "lookup", s.Name)
	assert.Equal(t, "Look things up", s.Description)
	assert.Equal(t, []string{"key"}, s.Parameters.Required)
	p, ok := s.Parameters.Properties.Get("key")
	require.True(t, ok)
	assert.Equal(t, TypeString, p.Type)
}
