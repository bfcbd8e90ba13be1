package synthesizer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dshills/codescribe/internal/embedder"
	"github.com/dshills/codescribe/internal/generator"
	"github.com/dshills/codescribe/pkg/types"
)

// Default role prompts
const (
	DefaultOverviewRole     = "You are an expert in software project analysis."
	DefaultUnitRole         = "You are an expert in code analysis."
	DefaultInteractionsRole = "You are an expert in software architecture."
)

// Default aggregate instructions
const (
	OverviewInstruction     = "Provide a high-level overview of this project, including its main purpose, architecture, and key components."
	InteractionsInstruction = "Describe how these modules interact with each other, which modules depend on which, and the main flows of data and control between them."
)

// Aggregate subjects reported in GenerationError
const (
	SubjectOverview     = "project overview"
	SubjectInteractions = "module interactions"
)

var (
	ErrNoFacts     = errors.New("at least one fact record is required")
	ErrNoGenerator = errors.New("no generation backend configured")
)

// Synthesizer turns fact records into prose and text into vectors.
// It holds no state between calls and is safe for concurrent use.
type Synthesizer struct {
	gen   generator.Generator
	emb   embedder.Embedder
	now   func() time.Time
	model string
}

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithModel overrides the generator's default model for every request
func WithModel(model string) Option {
	return func(s *Synthesizer) { s.model = model }
}

// WithClock sets the source of GeneratedAt timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// New creates a Synthesizer over the given backends. Either may be nil:
// without a generator only Embed works, without an embedder only the
// summaries do.
func New(gen generator.Generator, emb embedder.Embedder, opts ...Option) (*Synthesizer, error) {
	if gen == nil && emb == nil {
		return nil, errors.New("a generator or an embedder is required")
	}

	s := &Synthesizer{gen: gen, emb: emb, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SummarizeUnit describes one unit
func (s *Synthesizer) SummarizeUnit(ctx context.Context, fact *types.FactRecord, rolePrompt string) (*types.Summary, error) {
	if fact == nil || fact.UnitID == "" {
		return nil, types.ErrMissingUnitID
	}
	if rolePrompt == "" {
		rolePrompt = DefaultUnitRole
	}

	text, err := s.generate(ctx, rolePrompt, UnitPrompt(fact))
	if err != nil {
		return nil, &types.GenerationError{Subject: fact.UnitID, Err: err}
	}

	return &types.Summary{UnitID: fact.UnitID, Text: text, GeneratedAt: s.now()}, nil
}

// SummarizeAggregate describes a set of units in one call. subject names the
// aggregate in errors.
func (s *Synthesizer) SummarizeAggregate(ctx context.Context, subject string, facts []*types.FactRecord, rolePrompt, instruction string) (string, error) {
	if len(facts) == 0 {
		return "", &types.GenerationError{Subject: subject, Err: ErrNoFacts}
	}

	text, err := s.generate(ctx, rolePrompt, AggregatePrompt(facts, instruction, subject == SubjectInteractions))
	if err != nil {
		return "", &types.GenerationError{Subject: subject, Err: err}
	}
	return text, nil
}

// Overview produces the project-level summary
func (s *Synthesizer) Overview(ctx context.Context, facts []*types.FactRecord, rolePrompt string) (string, error) {
	if rolePrompt == "" {
		rolePrompt = DefaultOverviewRole
	}
	return s.SummarizeAggregate(ctx, SubjectOverview, facts, rolePrompt, OverviewInstruction)
}

// ModuleInteractions produces the narrative of how units depend on each other
func (s *Synthesizer) ModuleInteractions(ctx context.Context, facts []*types.FactRecord, rolePrompt string) (string, error) {
	if rolePrompt == "" {
		rolePrompt = DefaultInteractionsRole
	}
	return s.SummarizeAggregate(ctx, SubjectInteractions, facts, rolePrompt, InteractionsInstruction)
}

func (s *Synthesizer) generate(ctx context.Context, system, user string) (string, error) {
	if s.gen == nil {
		return "", ErrNoGenerator
	}
	req := generator.Prompt(system, user)
	req.Model = s.model

	resp, err := s.gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", generator.ErrEmptyResponse
	}
	return text, nil
}

// Embed vectorizes text with the configured embedding backend
func (s *Synthesizer) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.emb == nil {
		return nil, &types.EmbeddingError{Err: embedder.ErrNoProviderEnabled}
	}

	e, err := s.emb.Embed(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, &types.EmbeddingError{Err: err}
	}
	return e.Vector, nil
}

// EmbeddingProvider names the backend behind Embed
func (s *Synthesizer) EmbeddingProvider() string {
	if s.emb == nil {
		return ""
	}
	return s.emb.Provider()
}

// EmbeddingModel identifies the vectors produced by Embed
func (s *Synthesizer) EmbeddingModel() string {
	if s.emb == nil {
		return ""
	}
	return s.emb.Model()
}

// EmbeddingDimension is the length of vectors produced by Embed, 0 if unknown
func (s *Synthesizer) EmbeddingDimension() int {
	if s.emb == nil {
		return 0
	}
	return s.emb.Dimension()
}
