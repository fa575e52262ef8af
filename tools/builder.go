package tools

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// HandlerFunc runs a tool with validated arguments. A returned error becomes a failed Result,
// except *ValidationError which is reported to the caller as a validation failure.
type HandlerFunc func(ctx context.Context, args Args) (any, error)

// tool is the internal implementation of Tool built by NewTool, NewDynamicTool and NewFuncTool.
type tool struct {
	name        string
	description string
	params      []Parameter
	validator   *validator
	handler     HandlerFunc
	opts        toolOptions
}

// NewTool builds a Tool from declared parameters and a handler.
// Parameter names must be unique; an empty parameter type defaults to string.
func NewTool(name, description string, params []Parameter, handler HandlerFunc, opts ...ToolOption) (Tool, error) {
	o := applyToolOptions(opts)
	if o.name != "" {
		name = o.name
	}
	if o.description != "" {
		description = o.description
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("tools: tool name must not be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("tools: tool %q: handler must not be nil", name)
	}
	normalized, err := normalizeParameters(name, params)
	if err != nil {
		return nil, err
	}
	compiled, err := compileSchema(normalized)
	if err != nil {
		return nil, fmt.Errorf("tools: tool %q: %w", name, err)
	}
	v := &validator{
		tool:         name,
		params:       normalized,
		schema:       compiled,
		allowUnknown: o.allowUnknown,
	}
	if err := v.checkDefaults(); err != nil {
		return nil, err
	}
	return &tool{
		name:        name,
		description: firstLine(description),
		params:      normalized,
		validator:   v,
		handler:     handler,
		opts:        o,
	}, nil
}

// NewDynamicTool builds a Tool from a serialized argument schema such as one produced by
// ToOpenAIFormat or fetched from a remote tool catalogue.
func NewDynamicTool(name, description string, schema []byte, handler HandlerFunc, opts ...ToolOption) (Tool, error) {
	params, err := ParametersFromSchema(schema)
	if err != nil {
		return nil, err
	}
	return NewTool(name, description, params, handler, opts...)
}

// Must panics if err is non-nil and returns t otherwise.
func Must(t Tool, err error) Tool {
	if err != nil {
		panic(err)
	}
	return t
}

func normalizeParameters(toolName string, params []Parameter) ([]Parameter, error) {
	out := make([]Parameter, 0, len(params))
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("tools: tool %q: parameter name must not be empty", toolName)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("tools: tool %q: duplicate parameter %q", toolName, p.Name)
		}
		seen[p.Name] = true
		if p.Type == "" {
			p.Type = TypeString
		}
		if !p.Type.Valid() {
			return nil, fmt.Errorf("tools: tool %q: parameter %q has unsupported type %q", toolName, p.Name, p.Type)
		}
		if p.Items != "" && !p.Items.Valid() {
			return nil, fmt.Errorf("tools: tool %q: parameter %q has unsupported item type %q", toolName, p.Name, p.Items)
		}
		p.Enum = slices.Clone(p.Enum)
		p.Default = cloneValue(p.Default)
		out = append(out, p)
	}
	return out, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

func (t *tool) Name() string        { return t.name }
func (t *tool) Description() string { return t.description }

// Parameters returns a copy of the declared parameters.
func (t *tool) Parameters() []Parameter {
	out := slices.Clone(t.params)
	for i := range out {
		out[i].Enum = slices.Clone(out[i].Enum)
		out[i].Default = cloneValue(out[i].Default)
	}
	return out
}

func (t *tool) Execute(ctx context.Context, args Args) (Result, error) {
	validated, err := t.validator.validate(args)
	if err != nil {
		return Result{ToolName: t.name}, err
	}
	return t.run(ctx, validated)
}

func (t *tool) run(ctx context.Context, args Args) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = Failed(t.name, (&panicError{p: p}).Error()), nil
		}
	}()
	out, herr := t.handler(ctx, args)
	if herr != nil {
		var ve *ValidationError
		if errors.As(herr, &ve) {
			if ve.Tool == "" {
				ve.Tool = t.name
			}
			return Result{ToolName: t.name}, ve
		}
		return Failed(t.name, herr.Error()), nil
	}
	return Succeeded(t.name, out), nil
}

func (t *tool) Timeout() time.Duration { return t.opts.timeout }
func (t *tool) Categories() []string   { return slices.Clone(t.opts.categories) }
func (t *tool) Version() string        { return t.opts.version }
func (t *tool) IsDangerous() bool      { return t.opts.dangerous }
