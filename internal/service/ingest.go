package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/dshills/codescribe/internal/pipeline"
	"github.com/dshills/codescribe/pkg/types"
)

// ErrNotDirectory is returned by IndexReports when dir is not a directory
var ErrNotDirectory = errors.New("not a directory")

// IngestResult is the outcome of IndexReports
type IngestResult struct {
	Dir      string
	Indexed  []string // File names stored, in insertion order
	Skipped  []types.Skip
	Duration time.Duration
}

// IndexReports stores every regular file directly inside dir in the
// embedding index, keyed by file name, so earlier reports become
// searchable. Files that cannot be read or embedded are skipped and
// reported; only a missing directory, a missing index or cancellation
// fails the call.
func (s *Service) IndexReports(ctx context.Context, dir string) (*IngestResult, error) {
	if s.index == nil {
		return nil, ErrNoIndex
	}
	start := s.now()

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve report dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &types.IOError{Op: "read", Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, &types.IOError{Op: "read", Path: abs, Err: err}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	res := &IngestResult{Dir: abs, Indexed: []string{}, Skipped: []types.Skip{}}
	skip := func(name string, stage types.Stage, err error) {
		s.logger.Warn("report not indexed", "file", name, "stage", stage, "error", err)
		res.Skipped = append(res.Skipped, types.Skip{UnitID: name, Stage: stage, Reason: err.Error()})
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() {
			continue
		}

		name := e.Name()
		data, err := os.ReadFile(filepath.Join(abs, name))
		if err != nil {
			skip(name, types.StageRead, &types.IOError{Op: "read", Path: name, Err: err})
			continue
		}
		if !utf8.Valid(data) {
			skip(name, types.StageRead, &types.IOError{Op: "read", Path: name, Err: pipeline.ErrInvalidUTF8})
			continue
		}

		if err := s.index.Insert(ctx, name, string(data)); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			skip(name, types.StageIndex, err)
			continue
		}
		res.Indexed = append(res.Indexed, name)
		s.logger.Debug("report indexed", "file", name, "bytes", len(data))
	}

	if s.searcher != nil && len(res.Indexed) > 0 {
		s.searcher.InvalidateCache()
	}
	res.Duration = s.now().Sub(start)

	s.logger.Info("reports indexed", "dir", abs, "indexed", len(res.Indexed), "skipped", len(res.Skipped))
	return res, nil
}
