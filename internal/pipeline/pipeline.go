package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/codescribe/pkg/types"
)

// ErrRunInProgress is returned when Run is called while another run holds the pipeline
var ErrRunInProgress = errors.New("a run is already in progress")

// DefaultSuffixes are the file suffixes discovered when none are configured
var DefaultSuffixes = []string{".go"}

// Extractor turns a source unit into facts
type Extractor interface {
	Extract(unit types.SourceUnit) (*types.FactRecord, error)
}

// Synthesizer produces the prose of a bundle
type Synthesizer interface {
	SummarizeUnit(ctx context.Context, fact *types.FactRecord, rolePrompt string) (*types.Summary, error)
	Overview(ctx context.Context, facts []*types.FactRecord, rolePrompt string) (string, error)
	ModuleInteractions(ctx context.Context, facts []*types.FactRecord, rolePrompt string) (string, error)
}

// Index receives one entry per generated summary
type Index interface {
	Insert(ctx context.Context, docID, text string) error
}

// Prompts are the system roles of the three generation calls; empty uses the synthesizer's default
type Prompts struct {
	Overview     string
	Unit         string
	Interactions string
}

// Config contains configuration for a pipeline
type Config struct {
	Suffixes       []string // File suffixes to include (default: .go)
	Workers        int      // Concurrent extraction and summary calls (default: runtime.NumCPU())
	IncludeTests   bool     // Whether to include _test.go files
	IncludeVendor  bool     // Whether to descend into vendor directories
	IndexSummaries bool     // Whether to insert summaries into the index
	Prompts        Prompts
}

// Deps are the collaborators of a pipeline. Index may be nil.
type Deps struct {
	Extractor   Extractor
	Synthesizer Synthesizer
	Index       Index
	Logger      *slog.Logger
	Now         func() time.Time
	NewRunID    func() string
}

// Stats contains counters for one run
type Stats struct {
	UnitsFound       int
	UnitsExtracted   int
	UnitsSummarized  int
	DocumentsIndexed int
	Skipped          int
	StartedAt        time.Time
	Duration         time.Duration
}

// Result is the outcome of one run
type Result struct {
	Bundle *types.DocumentationBundle
	Stats  Stats
}

// Pipeline coordinates discover -> extract -> summarize -> index
type Pipeline struct {
	deps Deps
	cfg  Config
	lock RunLock
}

// New creates a pipeline
func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if deps.Synthesizer == nil {
		return nil, errors.New("synthesizer is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}

	if len(cfg.Suffixes) == 0 {
		cfg.Suffixes = DefaultSuffixes
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	return &Pipeline{deps: deps, cfg: cfg}, nil
}

// RunOption adjusts a single run
type RunOption func(*runOptions)

type runOptions struct {
	noIndex bool
}

// WithoutIndex skips indexing for this run regardless of configuration
func WithoutIndex() RunOption {
	return func(o *runOptions) { o.noIndex = true }
}

// run holds the mutable state of one execution
type run struct {
	bundle *types.DocumentationBundle
	logger *slog.Logger
	opts   runOptions

	mu      sync.Mutex
	skipped []types.Skip
}

func (r *run) skip(s types.Skip) {
	r.logger.Warn("unit skipped", "unit", s.UnitID, "stage", s.Stage, "reason", s.Reason)
	r.mu.Lock()
	r.skipped = append(r.skipped, s)
	r.mu.Unlock()
}

// Run documents every matching unit under root. Failures local to one unit
// are recorded in the bundle and do not stop the run; only an unusable root
// or a cancelled context return an error.
func (p *Pipeline) Run(ctx context.Context, root string, opts ...RunOption) (*Result, error) {
	if !p.lock.TryAcquire() {
		return nil, ErrRunInProgress
	}
	defer p.lock.Release()

	start := p.deps.Now()

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &types.IOError{Op: "open", Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, &types.IOError{Op: "open", Path: abs, Err: errors.New("not a directory")}
	}

	runID := p.deps.NewRunID()
	r := &run{
		bundle: types.NewBundle(runID, abs, start),
		logger: p.deps.Logger.With("run_id", runID),
	}
	for _, opt := range opts {
		opt(&r.opts)
	}
	if mod := modulePath(abs); mod != "" {
		r.bundle.Module = mod
	}

	r.logger.Info("run started", "root", abs, "workers", p.cfg.Workers, "suffixes", p.cfg.Suffixes)

	candidates, err := p.discover(abs, r.skip)
	if err != nil {
		return nil, &types.IOError{Op: "walk", Path: abs, Err: err}
	}

	facts, err := p.extractAll(ctx, r, candidates)
	if err != nil {
		return nil, err
	}

	if err := p.summarizeAll(ctx, r, facts); err != nil {
		return nil, err
	}

	indexed, err := p.indexAll(ctx, r)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(r.skipped, func(i, j int) bool {
		return r.skipped[i].UnitID < r.skipped[j].UnitID
	})
	r.bundle.Skipped = r.skipped

	stats := Stats{
		UnitsFound:       len(candidates),
		UnitsExtracted:   len(facts),
		UnitsSummarized:  len(r.bundle.UnitSummaries),
		DocumentsIndexed: indexed,
		Skipped:          len(r.skipped),
		StartedAt:        start,
		Duration:         p.deps.Now().Sub(start),
	}

	r.logger.Info("run finished",
		"units", stats.UnitsFound,
		"summarized", stats.UnitsSummarized,
		"indexed", stats.DocumentsIndexed,
		"skipped", stats.Skipped,
		"duration", stats.Duration)

	return &Result{Bundle: r.bundle, Stats: stats}, nil
}

// extractAll reads and extracts candidates with bounded concurrency.
// The returned facts keep discovery order.
func (p *Pipeline) extractAll(ctx context.Context, r *run, candidates []candidate) ([]*types.FactRecord, error) {
	results := make([]*types.FactRecord, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			unit, err := readUnit(c)
			if err != nil {
				r.skip(types.Skip{UnitID: c.id, Stage: types.StageRead, Reason: err.Error()})
				return nil
			}

			fact, err := p.deps.Extractor.Extract(unit)
			if err != nil {
				r.skip(types.Skip{UnitID: c.id, Stage: types.StageExtract, Reason: err.Error()})
				return nil
			}

			results[i] = fact
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	facts := make([]*types.FactRecord, 0, len(results))
	for _, f := range results {
		if f != nil {
			facts = append(facts, f)
			r.bundle.Facts[f.UnitID] = *f
		}
	}
	return facts, nil
}

// summarizeAll produces the overview, the per-unit summaries and the module
// interaction narrative
func (p *Pipeline) summarizeAll(ctx context.Context, r *run, facts []*types.FactRecord) error {
	if len(facts) == 0 {
		r.logger.Info("no units extracted, nothing to summarize")
		return nil
	}

	overview, err := p.deps.Synthesizer.Overview(ctx, facts, p.cfg.Prompts.Overview)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.skip(types.Skip{Stage: types.StageOverview, Reason: err.Error()})
	}
	r.bundle.ProjectOverview = overview

	summaries := make([]*types.Summary, len(facts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, fact := range facts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			sum, err := p.deps.Synthesizer.SummarizeUnit(gctx, fact, p.cfg.Prompts.Unit)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.skip(types.Skip{UnitID: fact.UnitID, Stage: types.StageSummarize, Reason: err.Error()})
				return nil
			}
			summaries[i] = sum
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, s := range summaries {
		if s != nil {
			r.bundle.UnitSummaries[s.UnitID] = *s
		}
	}

	interactions, err := p.deps.Synthesizer.ModuleInteractions(ctx, facts, p.cfg.Prompts.Interactions)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.skip(types.Skip{Stage: types.StageInteract, Reason: err.Error()})
	}
	r.bundle.ModuleInteractions = interactions

	return nil
}

// indexAll inserts every summary in unit ID order and returns how many were stored
func (p *Pipeline) indexAll(ctx context.Context, r *run) (int, error) {
	if !p.cfg.IndexSummaries || p.deps.Index == nil || r.opts.noIndex {
		return 0, nil
	}

	ids := make([]string, 0, len(r.bundle.UnitSummaries))
	for id := range r.bundle.UnitSummaries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	indexed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := p.deps.Index.Insert(ctx, id, r.bundle.UnitSummaries[id].Text); err != nil {
			r.skip(types.Skip{UnitID: id, Stage: types.StageIndex, Reason: err.Error()})
			continue
		}
		indexed++
	}

	r.logger.Info("summaries indexed", "documents", indexed)
	return indexed, nil
}
