package builtin

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/skosovsky/teamcore/tools"
)

// Match is one line found by search_code.
type Match struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

func newSearchCode(ws *workspace, o options) (tools.Tool, error) {
	return tools.NewTool(SearchCode, "Search for patterns in code files", []tools.Parameter{
		{Name: "pattern", Type: tools.TypeString, Description: "The regular expression to search for", Required: true},
		{Name: "directory", Type: tools.TypeString, Description: "The directory to search in", Default: "."},
		{Name: "extensions", Type: tools.TypeArray, Items: tools.TypeString, Description: "File extensions to search (e.g. ['.py', '.go'])", Default: []any{".py"}},
	}, func(ctx context.Context, args tools.Args) (any, error) {
		pattern := args.String("pattern")
		if pattern == "" {
			return nil, invalid("pattern", fmt.Errorf("pattern is required"))
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, invalid("pattern", fmt.Errorf("invalid regex: %w", err))
		}
		dir, err := ws.rel(args.String("directory"))
		if err != nil {
			return nil, invalid("directory", err)
		}
		root, err := ws.open()
		if err != nil {
			return nil, err
		}
		defer root.Close()

		exts := args.Strings("extensions")
		matches := []Match{}
		fsys := root.FS()
		err = fs.WalkDir(fsys, filepath.ToSlash(dir), func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if d.IsDir() {
				if p != "." && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				return nil
			}
			if !hasExtension(p, exts) {
				return nil
			}
			if info, err := d.Info(); err != nil || info.Size() > o.maxFileSize {
				return nil
			}
			limit := 0
			if o.maxSearchResults > 0 {
				limit = o.maxSearchResults - len(matches)
			}
			found, err := searchFile(fsys, p, re, limit)
			if err != nil {
				return nil
			}
			matches = append(matches, found...)
			if o.maxSearchResults > 0 && len(matches) >= o.maxSearchResults {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return matches, nil
	}, tools.WithCategories(CategorySearch))
}

func hasExtension(p string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := path.Ext(p)
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// searchFile returns up to limit matching lines of p, or all of them when limit is not
// positive. Files that are not text are skipped by the caller through the returned error.
func searchFile(fsys fs.FS, p string, re *regexp.Regexp, limit int) ([]Match, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Match
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if re.MatchString(line) {
			out = append(out, Match{File: p, Line: n, Content: strings.TrimSpace(line)})
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, sc.Err()
}
