package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/dshills/codescribe/internal/config"
	"github.com/dshills/codescribe/internal/embedder"
	"github.com/dshills/codescribe/internal/generator"
	"github.com/dshills/codescribe/internal/parser"
	"github.com/dshills/codescribe/internal/pipeline"
	"github.com/dshills/codescribe/internal/searcher"
	"github.com/dshills/codescribe/internal/service"
	"github.com/dshills/codescribe/internal/synthesizer"
	"github.com/dshills/codescribe/internal/vectorindex"
)

// RunParams contains dependencies for the commands
type RunParams struct {
	LoadSettings  func(configFile string, flags *pflag.FlagSet) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
	NewGenerator  func(generator.Config) (generator.Generator, error)
	NewEmbedder   func(embedder.Config) (embedder.Embedder, error)

	Stdin  io.Reader
	Stdout io.Writer // Command output and, when serving, MCP responses
	Stderr io.Writer // Logs
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettings,
		ValidSettings: config.ValidateSettings,
		NewGenerator:  generator.New,
		NewEmbedder:   embedder.New,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
	}
}

// loadSettings resolves and validates settings and builds the logger
func (p RunParams) loadSettings(flags *pflag.FlagSet) (*config.Settings, *slog.Logger, error) {
	configFile := ""
	if flags != nil {
		configFile, _ = flags.GetString("config")
	}

	settings, err := p.LoadSettings(configFile, flags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := p.ValidSettings(settings); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Logs always go to stderr; stdout carries command output or MCP traffic
	logger, err := config.NewLogger(settings.Log, p.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return settings, logger, nil
}

// needs selects the parts of the stack a command uses
type needs struct {
	generation bool
	embedding  bool
	index      bool
}

// stack is the explicitly constructed set of collaborators shared by one
// command invocation
type stack struct {
	settings *config.Settings
	logger   *slog.Logger

	gen      generator.Generator
	emb      embedder.Embedder
	index    *vectorindex.Index
	searcher *searcher.Searcher
	pipeline *pipeline.Pipeline
	service  *service.Service
}

func (p RunParams) build(ctx context.Context, settings *config.Settings, logger *slog.Logger, n needs) (_ *stack, err error) {
	s := &stack{settings: settings, logger: logger}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if n.embedding || n.index {
		if s.emb, err = p.NewEmbedder(settings.EmbedderConfig()); err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	}
	if n.generation {
		if s.gen, err = p.NewGenerator(settings.GeneratorConfig()); err != nil {
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
	}

	// Summaries and index vectors both come from one synthesizer
	var syn *synthesizer.Synthesizer
	if s.gen != nil || s.emb != nil {
		if syn, err = synthesizer.New(s.gen, s.emb); err != nil {
			return nil, err
		}
	}

	if n.index {
		s.index, err = vectorindex.Open(ctx, settings.Index.Path, syn, vectorindex.Options{
			DisableKeyword: !settings.Index.Keyword,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
		if s.searcher, err = searcher.New(s.index, settings.Search.CacheSize, searcher.DefaultCacheTTL); err != nil {
			return nil, err
		}
	}

	if n.generation {
		deps := pipeline.Deps{
			Extractor:   parser.New(),
			Synthesizer: syn,
			Logger:      logger,
		}
		if s.index != nil {
			deps.Index = s.index
		}
		s.pipeline, err = pipeline.New(deps, pipelineConfig(settings))
		if err != nil {
			return nil, err
		}
	}

	deps := service.Deps{Logger: logger}
	if s.pipeline != nil {
		deps.Runner = s.pipeline
	}
	if s.index != nil {
		deps.Index = s.index
		deps.Searcher = s.searcher
	}
	s.service = service.New(deps)

	return s, nil
}

// Close releases the index and the backends
func (s *stack) Close() error {
	var errs []error
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	if s.emb != nil {
		errs = append(errs, s.emb.Close())
	}
	if s.gen != nil {
		errs = append(errs, s.gen.Close())
	}
	return errors.Join(errs...)
}

func pipelineConfig(s *config.Settings) pipeline.Config {
	return pipeline.Config{
		Suffixes:       s.Pipeline.Suffixes,
		Workers:        s.Pipeline.Workers,
		IncludeTests:   s.Pipeline.IncludeTests,
		IncludeVendor:  s.Pipeline.IncludeVendor,
		IndexSummaries: s.Pipeline.IndexSummaries,
		Prompts: pipeline.Prompts{
			Overview:     s.Pipeline.Prompts.Overview,
			Unit:         s.Pipeline.Prompts.Unit,
			Interactions: s.Pipeline.Prompts.Interactions,
		},
	}
}
