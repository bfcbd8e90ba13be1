package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/mod/modfile"

	"github.com/dshills/codescribe/internal/parser"
	"github.com/dshills/codescribe/pkg/types"
)

// ErrInvalidUTF8 marks a unit whose bytes are not UTF-8 text
var ErrInvalidUTF8 = errors.New("file is not valid UTF-8")

// candidate is a discovered file before it is read
type candidate struct {
	id   string // slash-separated path relative to the root
	path string
}

// discover walks root and returns matching files in lexical order. Entries
// that cannot be visited are reported through skip and left out.
func (p *Pipeline) discover(root string, skip func(types.Skip)) ([]candidate, error) {
	var files []candidate

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			rel, _ := filepath.Rel(root, path)
			skip(types.Skip{UnitID: filepath.ToSlash(rel), Stage: types.StageRead, Reason: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			// Skip vendor unless explicitly included
			if !p.cfg.IncludeVendor && d.Name() == "vendor" {
				return filepath.SkipDir
			}
			// Skip hidden directories
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !p.matches(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, candidate{id: filepath.ToSlash(rel), path: path})
		return nil
	})

	return files, err
}

func (p *Pipeline) matches(name string) bool {
	if !p.cfg.IncludeTests && strings.HasSuffix(name, "_test.go") {
		return false
	}
	for _, suffix := range p.cfg.Suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// readUnit loads one file as a SourceUnit
func readUnit(c candidate) (types.SourceUnit, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return types.SourceUnit{}, &types.IOError{Op: "read", Path: c.id, Err: err}
	}
	if !utf8.Valid(data) {
		return types.SourceUnit{}, &types.IOError{Op: "decode", Path: c.id, Err: ErrInvalidUTF8}
	}

	return types.SourceUnit{
		ID:       c.id,
		Path:     c.path,
		Text:     string(data),
		Language: parser.LanguageForPath(c.path),
	}, nil
}

// modulePath returns the module path declared by root's go.mod, "" when
// there is none
func modulePath(root string) string {
	content, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	return modfile.ModulePath(content)
}
