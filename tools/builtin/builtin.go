// Package builtin provides the coding tools shipped with teamcore: read_file, write_file,
// file_operation, search_code, execute_code and code_analysis.
//
// File access is confined to a workspace directory (the working directory unless WithRoot is
// given); paths may be relative to it or absolute inside it.
package builtin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skosovsky/teamcore/tools"
)

// Tool names.
const (
	ReadFile      = "read_file"
	WriteFile     = "write_file"
	FileOperation = "file_operation"
	SearchCode    = "search_code"
	ExecuteCode   = "execute_code"
	CodeAnalysis  = "code_analysis"
)

// Categories the built-ins are filed under.
const (
	CategoryFile   = "file"
	CategorySearch = "search"
	CategoryCode   = "code"
)

// Names returns the names of all built-in tools.
func Names() []string {
	return []string{ReadFile, WriteFile, FileOperation, SearchCode, ExecuteCode, CodeAnalysis}
}

type options struct {
	root             string
	maxFileSize      int64
	maxSearchResults int
	maxSteps         uint64
	maxLineLength    int
	only             map[string]bool
}

// Option configures the built-in tools.
type Option func(*options)

// WithRoot confines file access to dir.
func WithRoot(dir string) Option {
	return func(o *options) {
		o.root = dir
	}
}

// WithMaxFileSize limits the size of files read by read_file and search_code.
func WithMaxFileSize(n int64) Option {
	return func(o *options) {
		o.maxFileSize = n
	}
}

// WithMaxSearchResults caps the matches returned by search_code. n <= 0 means no cap.
func WithMaxSearchResults(n int) Option {
	return func(o *options) {
		o.maxSearchResults = n
	}
}

// WithMaxExecutionSteps bounds the computation of one execute_code call.
func WithMaxExecutionSteps(n uint64) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

// WithMaxLineLength sets the style limit used by code_analysis.
func WithMaxLineLength(n int) Option {
	return func(o *options) {
		o.maxLineLength = n
	}
}

// Only restricts Register to the named tools. Unknown names are ignored.
func Only(names ...string) Option {
	return func(o *options) {
		o.only = make(map[string]bool, len(names))
		for _, n := range names {
			o.only[n] = true
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		root:             ".",
		maxFileSize:      10 << 20,
		maxSearchResults: 1000,
		maxSteps:         10_000_000,
		maxLineLength:    79,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Tools builds every built-in tool.
func Tools(opts ...Option) ([]tools.Tool, error) {
	o := applyOptions(opts)
	ws, err := newWorkspace(o.root)
	if err != nil {
		return nil, err
	}
	builders := []func(*workspace, options) (tools.Tool, error){
		newReadFile,
		newWriteFile,
		newFileOperation,
		newSearchCode,
		newExecuteCode,
		newCodeAnalysis,
	}
	out := make([]tools.Tool, 0, len(builders))
	for _, build := range builders {
		t, err := build(ws, o)
		if err != nil {
			return nil, err
		}
		if o.only != nil && !o.only[t.Name()] {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Register adds the built-in tools to reg.
func Register(reg *tools.Registry, opts ...Option) error {
	list, err := Tools(opts...)
	if err != nil {
		return err
	}
	for _, t := range list {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in tools.
func NewRegistry(opts []Option, regOpts ...tools.RegistryOption) (*tools.Registry, error) {
	reg := tools.NewRegistry(regOpts...)
	if err := Register(reg, opts...); err != nil {
		return nil, err
	}
	return reg, nil
}

// workspace resolves tool paths inside a root directory.
type workspace struct {
	dir string
}

func newWorkspace(dir string) (*workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("builtin: resolve root: %w", err)
	}
	return &workspace{dir: abs}, nil
}

func (w *workspace) open() (*os.Root, error) {
	return os.OpenRoot(w.dir)
}

var errEmptyPath = errors.New("path is required")

// rel validates p and returns it relative to the workspace.
func (w *workspace) rel(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errEmptyPath
	}
	if strings.ContainsRune(p, 0) {
		return "", errors.New("path contains null bytes")
	}
	if filepath.IsAbs(p) {
		r, err := filepath.Rel(w.dir, p)
		if err != nil {
			return "", fmt.Errorf("path %q is outside the workspace", p)
		}
		p = r
	}
	p = filepath.Clean(p)
	if p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace", p)
	}
	return p, nil
}

// invalid reports a bad argument value so the model can correct it.
func invalid(param string, err error) error {
	return &tools.ValidationError{Param: param, Reason: err.Error()}
}
