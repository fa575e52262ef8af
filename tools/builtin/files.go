package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/skosovsky/teamcore/tools"
)

// WriteResult is the output of write_file.
type WriteResult struct {
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
	Created bool   `json:"created"`
	// Patch is the change in diff-match-patch text form; empty when the content is unchanged.
	Patch string `json:"patch,omitempty"`
}

// Entry describes a directory entry listed by file_operation.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// Info describes a file inspected by file_operation.
type Info struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	IsDir    bool      `json:"is_dir"`
	Mode     string    `json:"mode"`
	Modified time.Time `json:"modified"`
}

func newReadFile(ws *workspace, o options) (tools.Tool, error) {
	return tools.NewTool(ReadFile, "Read the contents of a file", []tools.Parameter{
		{Name: "path", Type: tools.TypeString, Description: "The file path to read", Required: true},
		{Name: "encoding", Type: tools.TypeString, Description: "The file encoding", Default: "utf-8", Enum: []any{"utf-8", "latin-1"}},
	}, func(_ context.Context, args tools.Args) (any, error) {
		rel, err := ws.rel(args.String("path"))
		if err != nil {
			return nil, invalid("path", err)
		}
		root, err := ws.open()
		if err != nil {
			return nil, err
		}
		defer root.Close()

		st, err := root.Stat(rel)
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			return nil, fmt.Errorf("%s is a directory", rel)
		}
		if st.Size() > o.maxFileSize {
			return nil, fmt.Errorf("%s is %d bytes, larger than the %d byte limit", rel, st.Size(), o.maxFileSize)
		}
		data, err := root.ReadFile(rel)
		if err != nil {
			return nil, err
		}
		if args.String("encoding") == "latin-1" {
			return decodeLatin1(data), nil
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%s is not valid utf-8", rel)
		}
		return string(data), nil
	}, tools.WithCategories(CategoryFile))
}

func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

func newWriteFile(ws *workspace, _ options) (tools.Tool, error) {
	return tools.NewTool(WriteFile, "Write content to a file", []tools.Parameter{
		{Name: "path", Type: tools.TypeString, Description: "The file path to write", Required: true},
		{Name: "content", Type: tools.TypeString, Description: "The content to write", Required: true},
		{Name: "create_dirs", Type: tools.TypeBoolean, Description: "Create missing parent directories", Default: true},
	}, func(_ context.Context, args tools.Args) (any, error) {
		rel, err := ws.rel(args.String("path"))
		if err != nil {
			return nil, invalid("path", err)
		}
		content := args.String("content")
		root, err := ws.open()
		if err != nil {
			return nil, err
		}
		defer root.Close()

		previous, err := root.ReadFile(rel)
		created := errors.Is(err, fs.ErrNotExist)
		if err != nil && !created {
			return nil, err
		}
		if dir := filepath.Dir(rel); dir != "." && args.Bool("create_dirs") {
			if err := root.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		if err := root.WriteFile(rel, []byte(content), 0o644); err != nil {
			return nil, err
		}

		res := WriteResult{Path: filepath.ToSlash(rel), Bytes: len(content), Created: created}
		if string(previous) != content {
			dmp := diffmatchpatch.New()
			res.Patch = dmp.PatchToText(dmp.PatchMake(string(previous), content))
		}
		return res, nil
	}, tools.WithCategories(CategoryFile), tools.WithDangerous())
}

var fileOperations = []any{"exists", "list", "info", "mkdir", "delete"}

func newFileOperation(ws *workspace, _ options) (tools.Tool, error) {
	return tools.NewTool(FileOperation, "Inspect or manage files and directories", []tools.Parameter{
		{Name: "operation", Type: tools.TypeString, Description: "The operation to perform", Required: true, Enum: fileOperations},
		{Name: "path", Type: tools.TypeString, Description: "The target path", Required: true},
	}, func(_ context.Context, args tools.Args) (any, error) {
		rel, err := ws.rel(args.String("path"))
		if err != nil {
			return nil, invalid("path", err)
		}
		root, err := ws.open()
		if err != nil {
			return nil, err
		}
		defer root.Close()

		switch op := args.String("operation"); op {
		case "exists":
			_, err := root.Stat(rel)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
			return map[string]any{"path": filepath.ToSlash(rel), "exists": err == nil}, nil
		case "list":
			return listDir(root, rel)
		case "info":
			st, err := root.Stat(rel)
			if err != nil {
				return nil, err
			}
			return Info{Name: st.Name(), Size: st.Size(), IsDir: st.IsDir(), Mode: st.Mode().String(), Modified: st.ModTime()}, nil
		case "mkdir":
			if err := root.MkdirAll(rel, 0o755); err != nil {
				return nil, err
			}
			return map[string]any{"path": filepath.ToSlash(rel), "created": true}, nil
		case "delete":
			if rel == "." {
				return nil, errors.New("refusing to delete the workspace root")
			}
			if err := root.Remove(rel); err != nil {
				return nil, err
			}
			return map[string]any{"path": filepath.ToSlash(rel), "deleted": true}, nil
		default:
			return nil, invalid("operation", fmt.Errorf("unsupported operation %q", op))
		}
	}, tools.WithCategories(CategoryFile), tools.WithDangerous())
}

func listDir(root *os.Root, rel string) ([]Entry, error) {
	entries, err := fs.ReadDir(root.FS(), filepath.ToSlash(rel))
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		entry := Entry{Name: e.Name(), IsDir: e.IsDir()}
		if info, err := e.Info(); err == nil && !e.IsDir() {
			entry.Size = info.Size()
		}
		out = append(out, entry)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
