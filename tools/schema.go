package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/santhosh-tekuri/jsonschema/v6"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// PropertySchema is the JSON Schema of a single parameter.
type PropertySchema struct {
	Type        ParameterType   `json:"type"`
	Description string          `json:"description"`
	Enum        []any           `json:"enum,omitempty"`
	Default     any             `json:"default,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
}

// ObjectSchema is the JSON Schema of a tool's argument object. Properties keep parameter
// declaration order so that the serialized form is reproducible.
type ObjectSchema struct {
	Type       string                                         `json:"type"`
	Properties *orderedmap.OrderedMap[string, PropertySchema] `json:"properties"`
	Required   []string                                       `json:"required"`
}

// FunctionSchema is a tool in the flat function-calling shape {name, description, parameters}.
type FunctionSchema struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Parameters  ObjectSchema `json:"parameters"`
}

// FunctionTool is the wrapped shape {"type":"function","function":{...}} expected by the
// OpenAI chat completions API.
type FunctionTool struct {
	Type     string         `json:"type"`
	Function FunctionSchema `json:"function"`
}

// ObjectSchemaOf builds the argument schema for params. Required lists required parameter
// names in declaration order and is never nil.
func ObjectSchemaOf(params []Parameter) ObjectSchema {
	props := orderedmap.New[string, PropertySchema]()
	required := make([]string, 0, len(params))
	for _, p := range params {
		props.Set(p.Name, propertySchemaOf(p))
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return ObjectSchema{Type: "object", Properties: props, Required: required}
}

func propertySchemaOf(p Parameter) PropertySchema {
	s := PropertySchema{
		Type:        p.Type,
		Description: p.Description,
		Enum:        slices.Clone(p.Enum),
		Default:     p.Default,
	}
	if p.Items != "" {
		s.Items = &PropertySchema{Type: p.Items}
	}
	return s
}

// SchemaOf returns the function-calling schema of t.
func SchemaOf(t Tool) FunctionSchema {
	return FunctionSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  ObjectSchemaOf(t.Parameters()),
	}
}

// Map returns s as a generic JSON object, as expected by llm.ToolDefinition.
func (s ObjectSchema) Map() map[string]any {
	b, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return m
}

// ParametersFromSchema re-derives parameters from a serialized argument schema. Property order
// of the JSON text is preserved.
func ParametersFromSchema(raw []byte) ([]Parameter, error) {
	var s ObjectSchema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("tools: parse schema: %w", err)
	}
	if s.Type != "" && s.Type != "object" {
		return nil, fmt.Errorf("tools: schema type must be object, got %q", s.Type)
	}
	if s.Properties == nil {
		return nil, nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}
	params := make([]Parameter, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		p := Parameter{
			Name:        pair.Key,
			Type:        pair.Value.Type,
			Description: pair.Value.Description,
			Required:    required[pair.Key],
			Default:     pair.Value.Default,
			Enum:        pair.Value.Enum,
		}
		if pair.Value.Items != nil {
			p.Items = pair.Value.Items.Type
		}
		params = append(params, p)
	}
	return params, nil
}

// compileSchema compiles the property constraints of params for argument validation.
// Presence of required parameters and unknown keys are checked separately so that
// their errors name the offending parameter.
func compileSchema(params []Parameter) (*jsonschema.Schema, error) {
	s := ObjectSchemaOf(params)
	s.Required = []string{}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("args.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("args.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}
