package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dshills/codescribe/internal/pipeline"
	"github.com/dshills/codescribe/internal/report"
	"github.com/dshills/codescribe/internal/searcher"
	"github.com/dshills/codescribe/internal/storage"
)

// DefaultRecentRuns is the number of runs returned by Status
const DefaultRecentRuns = 5

var (
	// ErrNoIndex is returned by operations that need an embedding index when none is configured
	ErrNoIndex = errors.New("no embedding index configured")

	// ErrNoPipeline is returned by Generate when the service was built for queries only
	ErrNoPipeline = errors.New("no pipeline configured")

	// ErrOutputRequired is returned when Generate has nowhere to write
	ErrOutputRequired = errors.New("output directory is required")
)

// Runner executes the documentation pipeline
type Runner interface {
	Run(ctx context.Context, root string, opts ...pipeline.RunOption) (*pipeline.Result, error)
}

// Index is the write, run history and status surface of the embedding index
type Index interface {
	Insert(ctx context.Context, docID, text string) error
	RecordRun(ctx context.Context, run *storage.Run) error
	Stats(ctx context.Context) (*storage.Status, error)
	Runs(ctx context.Context, limit int) ([]*storage.Run, error)
	Path() string
}

// Searcher answers queries against the embedding index
type Searcher interface {
	Search(ctx context.Context, req searcher.Request) (*searcher.Response, error)
	InvalidateCache()
}

// Deps are the collaborators of a Service. Every one of them is optional;
// operations whose collaborator is missing fail with a sentinel error.
type Deps struct {
	Runner   Runner
	Index    Index
	Searcher Searcher
	Logger   *slog.Logger
	Now      func() time.Time
}

// Service ties a pipeline run to report writing and run history so every
// host produces the same outcome for the same request.
type Service struct {
	runner   Runner
	index    Index
	searcher Searcher
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Service
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		runner:   deps.Runner,
		index:    deps.Index,
		searcher: deps.Searcher,
		logger:   deps.Logger,
		now:      deps.Now,
	}
}

// GenerateRequest describes one documentation run
type GenerateRequest struct {
	Root      string
	OutputDir string
	NoIndex   bool
}

// GenerateResult is the outcome of Generate
type GenerateResult struct {
	*pipeline.Result
	OutputDir string
	Writes    []report.WriteResult
}

// WriteFailures counts artifacts that could not be written
func (r *GenerateResult) WriteFailures() int {
	n := 0
	for _, w := range r.Writes {
		if w.Err != nil {
			n++
		}
	}
	return n
}

// Generate runs the pipeline over req.Root, writes the three report
// artifacts and records the run in the index history. Artifact write
// failures are reported in the result, not as an error.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if s.runner == nil {
		return nil, ErrNoPipeline
	}
	if req.OutputDir == "" {
		return nil, ErrOutputRequired
	}
	outDir, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	var opts []pipeline.RunOption
	if req.NoIndex || s.index == nil {
		opts = append(opts, pipeline.WithoutIndex())
	}

	res, err := s.runner.Run(ctx, req.Root, opts...)
	if err != nil {
		return nil, err
	}

	artifacts, err := report.Render(res.Bundle)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	writes := report.Write(outDir, artifacts)
	for _, w := range writes {
		if w.Err != nil {
			s.logger.Warn("artifact not written", "path", w.Path, "error", w.Err)
			continue
		}
		s.logger.Info("artifact written", "path", w.Path)
	}

	if s.index != nil {
		s.record(ctx, res, outDir)
	}
	if s.searcher != nil && res.Stats.DocumentsIndexed > 0 {
		s.searcher.InvalidateCache()
	}

	return &GenerateResult{Result: res, OutputDir: outDir, Writes: writes}, nil
}

func (s *Service) record(ctx context.Context, res *pipeline.Result, outDir string) {
	run := &storage.Run{
		RunID:            res.Bundle.RunID,
		Root:             res.Bundle.Root,
		OutputDir:        outDir,
		StartedAt:        res.Stats.StartedAt,
		FinishedAt:       res.Stats.StartedAt.Add(res.Stats.Duration),
		UnitsFound:       res.Stats.UnitsFound,
		UnitsSummarized:  res.Stats.UnitsSummarized,
		UnitsSkipped:     res.Stats.Skipped,
		DocumentsIndexed: res.Stats.DocumentsIndexed,
	}
	if err := s.index.RecordRun(ctx, run); err != nil {
		s.logger.Warn("run not recorded", "run_id", run.RunID, "error", err)
	}
}

// Search queries the embedding index
func (s *Service) Search(ctx context.Context, req searcher.Request) (*searcher.Response, error) {
	if s.searcher == nil {
		return nil, ErrNoIndex
	}
	return s.searcher.Search(ctx, req)
}

// Status reports index statistics and the most recent runs
func (s *Service) Status(ctx context.Context, recent int) (*Status, error) {
	if s.index == nil {
		return nil, ErrNoIndex
	}
	if recent <= 0 {
		recent = DefaultRecentRuns
	}

	stats, err := s.index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	runs, err := s.index.Runs(ctx, recent)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return &Status{Path: s.index.Path(), Stats: stats, Runs: runs, CheckedAt: s.now()}, nil
}

// Status is the outcome of Service.Status
type Status struct {
	Path      string
	Stats     *storage.Status
	Runs      []*storage.Run
	CheckedAt time.Time
}
