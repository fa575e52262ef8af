package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validatable is implemented by argument structs of NewFuncTool that check cross-field rules
// after decoding. A non-nil error is reported as a *ValidationError.
type Validatable interface {
	Validate() error
}

// validator checks call arguments against a tool's declared parameters.
type validator struct {
	tool         string
	params       []Parameter
	schema       *jsonschema.Schema
	allowUnknown bool
}

// validate returns a copy of args with defaults filled in. Unknown keys are rejected unless
// allowUnknown is set, in which case they are dropped.
func (v *validator) validate(args Args) (Args, error) {
	declared := make(map[string]Parameter, len(v.params))
	for _, p := range v.params {
		declared[p.Name] = p
	}

	out := make(Args, len(v.params))
	for _, key := range slices.Sorted(maps.Keys(args)) {
		if _, ok := declared[key]; !ok {
			if v.allowUnknown {
				continue
			}
			return nil, &ValidationError{Tool: v.tool, Param: key, Reason: "unknown parameter"}
		}
		out[key] = args[key]
	}

	for _, p := range v.params {
		if _, ok := out[p.Name]; ok {
			continue
		}
		if p.Default != nil {
			out[p.Name] = cloneValue(p.Default)
			continue
		}
		if p.Required {
			return nil, &ValidationError{Tool: v.tool, Param: p.Name, Reason: "missing required parameter"}
		}
	}

	if v.schema != nil {
		if err := v.checkSchema(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkDefaults reports declared defaults that would fail their own parameter's schema.
func (v *validator) checkDefaults() error {
	if v.schema == nil {
		return nil
	}
	for _, p := range v.params {
		if p.Default == nil {
			continue
		}
		err := v.checkSchema(Args{p.Name: p.Default})
		var ve *ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("tools: tool %q: parameter %q has invalid default %v: %s", v.tool, p.Name, p.Default, ve.Reason)
		}
	}
	return nil
}

func (v *validator) checkSchema(args Args) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return &ValidationError{Tool: v.tool, Reason: "arguments are not JSON-serializable: " + err.Error()}
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ValidationError{Tool: v.tool, Reason: err.Error()}
	}
	err = v.schema.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return &ValidationError{Tool: v.tool, Param: paramOf(ve), Reason: leafMessage(err)}
	}
	return &ValidationError{Tool: v.tool, Reason: err.Error()}
}

// paramOf returns the top-level argument name of the first failing location.
func paramOf(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if len(ve.InstanceLocation) > 0 {
		return ve.InstanceLocation[0]
	}
	return ""
}

// leafMessage returns the last line of the validation report, which names the innermost failure.
func leafMessage(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	return strings.TrimPrefix(strings.TrimSpace(lines[len(lines)-1]), "- ")
}

// cloneValue deep-copies the JSON-shaped containers of v so that a handler mutating its
// arguments never reaches a declared default.
func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = cloneValue(item)
		}
		return out
	case Args:
		return Args(cloneValue(map[string]any(x)).(map[string]any))
	case []string:
		return slices.Clone(x)
	}
	return v
}
