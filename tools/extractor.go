package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	"github.com/invopop/jsonschema"
)

// NewFuncTool builds a Tool from a typed function. Parameters are derived from the fields of
// the argument struct T by reflection:
//   - the JSON field name is the parameter name and fields keep declaration order;
//   - a field is required unless it has a default or is marked omitempty;
//   - the `description`, `enum` (comma separated) and `default` struct tags are honoured,
//     as are invopop `jsonschema` tags.
//
// The tool name defaults to the snake_case function name; anonymous functions need WithName.
// If T implements Validatable it is checked after decoding.
func NewFuncTool[T any, R any](fn func(ctx context.Context, args T) (R, error), opts ...ToolOption) (Tool, error) {
	if fn == nil {
		return nil, errors.New("tools: function must not be nil")
	}
	o := applyToolOptions(opts)
	name := o.name
	if name == "" {
		derived, err := funcName(fn)
		if err != nil {
			return nil, err
		}
		name = derived
	}
	params, err := deriveParameters(reflect.TypeFor[T]())
	if err != nil {
		return nil, fmt.Errorf("tools: tool %q: %w", name, err)
	}
	handler := func(ctx context.Context, args Args) (any, error) {
		in, err := decodeArgs[T](name, args)
		if err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}
	return NewTool(name, o.description, params, handler, append(opts, WithName(name))...)
}

// Define builds a function tool and registers it on reg, filing it under the tool's categories.
func Define[T any, R any](reg *Registry, fn func(ctx context.Context, args T) (R, error), opts ...ToolOption) (Tool, error) {
	t, err := NewFuncTool(fn, opts...)
	if err != nil {
		return nil, err
	}
	if err := reg.Register(t); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeArgs[T any](toolName string, args Args) (T, error) {
	var zero T
	raw, err := json.Marshal(args)
	if err != nil {
		return zero, &ValidationError{Tool: toolName, Reason: err.Error()}
	}
	var in T
	if err := json.Unmarshal(raw, &in); err != nil {
		return zero, &ValidationError{Tool: toolName, Reason: err.Error()}
	}
	if err := runCustomValidation(in); err != nil {
		return zero, &ValidationError{Tool: toolName, Reason: err.Error()}
	}
	return in, nil
}

// runCustomValidation calls Validate on in, or on &in for pointer receivers.
func runCustomValidation[T any](in T) error {
	if v, ok := any(in).(Validatable); ok {
		return v.Validate()
	}
	if v, ok := any(&in).(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// deriveParameters reflects the argument struct typ into ordered parameters.
func deriveParameters(typ reflect.Type) ([]Parameter, error) {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("argument type must be a struct, got %s", typ.Kind())
	}
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
		Anonymous:      true,
	}
	schema := r.ReflectFromType(typ)
	if schema.Properties == nil {
		return nil, nil
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	tags := fieldTags(typ)

	params := make([]Parameter, 0, schema.Properties.Len())
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		p := Parameter{
			Name:        pair.Key,
			Type:        schemaType(prop),
			Description: prop.Description,
			Enum:        prop.Enum,
		}
		if prop.Items != nil {
			p.Items = schemaType(prop.Items)
		}
		p.Default = normalizeValue(p.Type, prop.Default)
		if tag, ok := tags[pair.Key]; ok {
			if d := tag.Get("description"); d != "" {
				p.Description = d
			}
			if e := tag.Get("enum"); e != "" {
				p.Enum = nil
				for _, v := range strings.Split(e, ",") {
					p.Enum = append(p.Enum, normalizeValue(p.Type, strings.TrimSpace(v)))
				}
			}
			if d, ok := tag.Lookup("default"); ok {
				p.Default = normalizeValue(p.Type, d)
			}
		}
		p.Required = required[pair.Key] && p.Default == nil
		params = append(params, p)
	}
	return params, nil
}

func schemaType(s *jsonschema.Schema) ParameterType {
	t := ParameterType(s.Type)
	if t.Valid() {
		return t
	}
	return TypeString
}

// fieldTags maps JSON field names of typ to their struct tags.
func fieldTags(typ reflect.Type) map[string]reflect.StructTag {
	out := make(map[string]reflect.StructTag, typ.NumField())
	for i := range typ.NumField() {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if j := f.Tag.Get("json"); j != "" {
			if n, _, _ := strings.Cut(j, ","); n == "-" {
				continue
			} else if n != "" {
				name = n
			}
		}
		out[name] = f.Tag
	}
	return out
}

// normalizeValue converts tag strings and json.Number defaults to the Go value of t.
func normalizeValue(t ParameterType, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		if t == TypeInteger {
			if n, err := x.Int64(); err == nil {
				return int(n)
			}
		}
		f, _ := x.Float64()
		return f
	case string:
		switch t {
		case TypeInteger:
			if n, err := strconv.Atoi(x); err == nil {
				return n
			}
		case TypeNumber:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f
			}
		case TypeBoolean:
			if b, err := strconv.ParseBool(x); err == nil {
				return b
			}
		case TypeArray:
			if x == "" {
				return []any{}
			}
			var items []any
			for _, item := range strings.Split(x, ",") {
				items = append(items, strings.TrimSpace(item))
			}
			return items
		}
	}
	return v
}

var anonymousFunc = regexp.MustCompile(`^func\d+(\.\d+)*$`)

// funcName derives a snake_case tool name from the function's symbol.
func funcName(fn any) (string, error) {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "", ErrAnonymousFunc
	}
	full := f.Name()
	if i := strings.Index(full, "["); i >= 0 {
		full = full[:i]
	}
	full = strings.TrimSuffix(full, "-fm")
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	parts := strings.Split(full, ".")
	for _, p := range parts[1:] {
		if anonymousFunc.MatchString(p) {
			return "", ErrAnonymousFunc
		}
	}
	return toSnakeCase(parts[len(parts)-1]), nil
}

func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
