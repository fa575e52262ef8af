package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// ParameterType is the JSON Schema type of a tool parameter.
type ParameterType string

// Parameter types.
const (
	TypeString  ParameterType = "string"
	TypeInteger ParameterType = "integer"
	TypeNumber  ParameterType = "number"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
	TypeObject  ParameterType = "object"
)

// Valid reports whether t is one of the supported types.
func (t ParameterType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// Parameter describes one argument of a tool. Parameters of a tool are ordered and their names
// are unique within the tool.
type Parameter struct {
	Name        string        `json:"name"`
	Type        ParameterType `json:"type"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required"`
	// Default is filled in when the argument is absent.
	Default any   `json:"default,omitempty"`
	Enum    []any `json:"enum,omitempty"`
	// Items is the element type of an array parameter.
	Items ParameterType `json:"items,omitempty"`
}

// JSONSchema returns the property schema of p as emitted in function-calling definitions.
func (p Parameter) JSONSchema() map[string]any {
	s := map[string]any{
		"type":        string(p.Type),
		"description": p.Description,
	}
	if len(p.Enum) > 0 {
		s["enum"] = slices.Clone(p.Enum)
	}
	if p.Default != nil {
		s["default"] = p.Default
	}
	if p.Items != "" {
		s["items"] = map[string]any{"type": string(p.Items)}
	}
	return s
}

// Result is the outcome of a tool execution. Callers must check Success before trusting Output.
type Result struct {
	ToolName string `json:"tool_name,omitempty"`
	Success  bool   `json:"success"`
	Output   any    `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Succeeded returns a successful Result.
func Succeeded(toolName string, output any) Result {
	return Result{ToolName: toolName, Success: true, Output: output}
}

// Failed returns a failed Result carrying message.
func Failed(toolName, message string) Result {
	return Result{ToolName: toolName, Success: false, Error: message}
}

// String renders the result as "[name] Success: output" or "[name] Error: message".
func (r Result) String() string {
	prefix := ""
	if r.ToolName != "" {
		prefix = "[" + r.ToolName + "] "
	}
	if r.Success {
		return prefix + "Success: " + r.OutputString()
	}
	return prefix + "Error: " + r.Error
}

// OutputString renders Output as text: strings verbatim, other values as JSON.
func (r Result) OutputString() string {
	switch v := r.Output.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	b, err := json.Marshal(r.Output)
	if err != nil {
		return fmt.Sprint(r.Output)
	}
	return string(b)
}

// Args are the keyword arguments of a tool call.
type Args map[string]any

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns the string argument key, or "" when absent or not a string.
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Int returns the integer argument key. JSON numbers and numeric strings are converted.
func (a Args) Int(key string) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// Float returns the numeric argument key.
func (a Args) Float(key string) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

// Bool returns the boolean argument key.
func (a Args) Bool(key string) bool {
	b, _ := a[key].(bool)
	return b
}

// Strings returns the array argument key as strings. Non-string elements are skipped.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Tool is a named, schema-described capability invocable by name or by a model's
// function-calling mechanism.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the declared parameters in order.
	Parameters() []Parameter
	// Execute validates args and runs the tool. Invalid arguments are returned as an error
	// (*ValidationError); every other failure is reported through a Result with Success false.
	Execute(ctx context.Context, args Args) (Result, error)
}

// Metadata is implemented by tools built with NewTool and NewFuncTool. Registry uses Timeout
// to override its default execution timeout and Categories to file the tool on registration.
type Metadata interface {
	Timeout() time.Duration
	Categories() []string
	Version() string
	IsDangerous() bool
}

// Call is a single execution request, usually produced by a model.
type Call struct {
	ID   string
	Name string
	// Arguments is the raw JSON object of arguments. Empty means no arguments.
	Arguments json.RawMessage
}

// CallResult pairs a Call with its outcome. Err is set for lookup and validation failures.
type CallResult struct {
	ID     string
	Name   string
	Result Result
	Err    error
}
