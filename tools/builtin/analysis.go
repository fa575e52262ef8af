package builtin

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
	"unicode/utf8"

	"go.starlark.net/syntax"

	"github.com/skosovsky/teamcore/tools"
)

// Issue is a finding reported by code_analysis.
type Issue struct {
	Line    int    `json:"line"`
	Check   string `json:"check"`
	Message string `json:"message"`
}

// Analysis is the output of code_analysis.
type Analysis struct {
	Language      string   `json:"language"`
	Lines         int      `json:"lines"`
	BlankLines    int      `json:"blank_lines"`
	CommentLines  int      `json:"comment_lines"`
	CodeLines     int      `json:"code_lines"`
	MaxLineLength int      `json:"max_line_length"`
	Functions     []string `json:"functions,omitempty"`
	Issues        []Issue  `json:"issues"`
	// Skipped lists requested checks that do not apply to the language.
	Skipped []string `json:"skipped,omitempty"`
}

var (
	analysisLanguages = []any{"python", "starlark", "go", "text"}
	analysisChecks    = []any{"metrics", "style", "syntax"}
)

func newCodeAnalysis(_ *workspace, o options) (tools.Tool, error) {
	return tools.NewTool(CodeAnalysis, "Analyze source code for metrics, style and syntax problems", []tools.Parameter{
		{Name: "code", Type: tools.TypeString, Description: "The source code to analyze", Required: true},
		{Name: "language", Type: tools.TypeString, Description: "The language of the code", Default: "python", Enum: analysisLanguages},
		{Name: "checks", Type: tools.TypeArray, Items: tools.TypeString, Description: "Checks to run: metrics, style, syntax", Default: []any{"metrics", "style"}},
	}, func(_ context.Context, args tools.Args) (any, error) {
		code := args.String("code")
		if strings.TrimSpace(code) == "" {
			return nil, invalid("code", errors.New("code is required"))
		}
		checks := args.Strings("checks")
		for _, c := range checks {
			if c != "metrics" && c != "style" && c != "syntax" {
				return nil, invalid("checks", fmt.Errorf("unknown check %q", c))
			}
		}
		return analyze(code, args.String("language"), checks, o.maxLineLength), nil
	}, tools.WithCategories(CategoryCode))
}

func analyze(code, language string, checks []string, maxLen int) Analysis {
	a := Analysis{Language: language, Issues: []Issue{}}
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	commentPrefix := "#"
	if language == "go" {
		commentPrefix = "//"
	}

	want := make(map[string]bool, len(checks))
	for _, c := range checks {
		want[c] = true
	}

	a.Lines = len(lines)
	for i, line := range lines {
		n := utf8.RuneCountInString(line)
		a.MaxLineLength = max(a.MaxLineLength, n)
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			a.BlankLines++
		case language != "text" && strings.HasPrefix(trimmed, commentPrefix):
			a.CommentLines++
		default:
			a.CodeLines++
		}
		if !want["style"] {
			continue
		}
		if n > maxLen {
			a.Issues = append(a.Issues, Issue{Line: i + 1, Check: "style", Message: fmt.Sprintf("line too long (%d > %d characters)", n, maxLen)})
		}
		if trimmed != "" && strings.TrimRight(line, " \t") != line {
			a.Issues = append(a.Issues, Issue{Line: i + 1, Check: "style", Message: "trailing whitespace"})
		}
		if language != "go" {
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			if strings.Contains(indent, " ") && strings.Contains(indent, "\t") {
				a.Issues = append(a.Issues, Issue{Line: i + 1, Check: "style", Message: "mixed tabs and spaces in indentation"})
			}
		}
	}

	if want["syntax"] {
		switch language {
		case "go":
			a.Functions, a.Issues = goSyntax(code, a.Issues)
		case "starlark", "python":
			a.Functions, a.Issues = starlarkSyntax(code, a.Issues)
		default:
			a.Skipped = append(a.Skipped, "syntax")
		}
	}
	return a
}

func goSyntax(code string, issues []Issue) ([]string, []Issue) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "input.go", code, parser.ParseComments|parser.AllErrors)
	var list scanner.ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			issues = append(issues, Issue{Line: e.Pos.Line, Check: "syntax", Message: e.Msg})
		}
	} else if err != nil {
		issues = append(issues, Issue{Check: "syntax", Message: err.Error()})
	}
	if f == nil {
		return nil, issues
	}
	var funcs []string
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		name := fn.Name.Name
		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			name = receiverName(fn.Recv.List[0].Type) + "." + name
		}
		funcs = append(funcs, name)
	}
	return funcs, issues
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return "?"
}

func starlarkSyntax(code string, issues []Issue) ([]string, []Issue) {
	f, err := execFileOptions.Parse("input.star", code, 0)
	if err != nil {
		var serr syntax.Error
		if errors.As(err, &serr) {
			return nil, append(issues, Issue{Line: int(serr.Pos.Line), Check: "syntax", Message: serr.Msg})
		}
		return nil, append(issues, Issue{Check: "syntax", Message: err.Error()})
	}
	var funcs []string
	syntax.Walk(f, func(n syntax.Node) bool {
		if def, ok := n.(*syntax.DefStmt); ok {
			funcs = append(funcs, def.Name.Name)
		}
		return true
	})
	return funcs, issues
}
