package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/skosovsky/teamcore/tools"
)

// ExecResult is the output of execute_code.
type ExecResult struct {
	// Result is the value of the global named "result" after execution, if any.
	Result any    `json:"result"`
	Stdout string `json:"stdout"`
}

var execFileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

func newExecuteCode(_ *workspace, o options) (tools.Tool, error) {
	return tools.NewTool(ExecuteCode, "Execute Starlark (Python dialect) code and return the result", []tools.Parameter{
		{Name: "code", Type: tools.TypeString, Description: "The code to execute; assign the answer to a global named result", Required: true},
	}, func(ctx context.Context, args tools.Args) (any, error) {
		code := args.String("code")
		if strings.TrimSpace(code) == "" {
			return nil, invalid("code", errors.New("code is required"))
		}
		return runStarlark(ctx, code, o.maxSteps)
	}, tools.WithCategories(CategoryCode))
}

// runStarlark executes code in a hermetic interpreter: no file system, no network, no load
// statements. Output of print is captured.
func runStarlark(ctx context.Context, code string, maxSteps uint64) (ExecResult, error) {
	var stdout strings.Builder
	thread := &starlark.Thread{
		Name: ExecuteCode,
		Print: func(_ *starlark.Thread, msg string) {
			stdout.WriteString(msg)
			stdout.WriteByte('\n')
		},
	}
	if maxSteps > 0 {
		thread.SetMaxExecutionSteps(maxSteps)
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	predeclared := starlark.StringDict{
		"json": starlarkjson.Module,
		"math": starlarkmath.Module,
	}
	globals, err := starlark.ExecFileOptions(execFileOptions, thread, "main.star", code, predeclared)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return ExecResult{Stdout: stdout.String()}, fmt.Errorf("%s", evalErr.Backtrace())
		}
		return ExecResult{Stdout: stdout.String()}, err
	}
	res := ExecResult{Stdout: stdout.String()}
	if v, ok := globals["result"]; ok {
		res.Result = toGo(v)
	}
	return res, nil
}

// toGo converts a Starlark value into plain Go data for JSON output.
func toGo(v starlark.Value) any {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(x)
	case starlark.Int:
		if n, ok := x.Int64(); ok {
			return n
		}
		return x.String()
	case starlark.Float:
		return float64(x)
	case starlark.String:
		return string(x)
	case *starlark.List:
		out := make([]any, 0, x.Len())
		for i := range x.Len() {
			out = append(out, toGo(x.Index(i)))
		}
		return out
	case starlark.Tuple:
		out := make([]any, 0, len(x))
		for _, item := range x {
			out = append(out, toGo(item))
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, x.Len())
		for _, item := range x.Items() {
			key := item[0].String()
			if s, ok := item[0].(starlark.String); ok {
				key = string(s)
			}
			out[key] = toGo(item[1])
		}
		return out
	case *starlark.Set:
		out := make([]any, 0, x.Len())
		iter := x.Iterate()
		defer iter.Done()
		var item starlark.Value
		for iter.Next(&item) {
			out = append(out, toGo(item))
		}
		return out
	}
	return v.String()
}
