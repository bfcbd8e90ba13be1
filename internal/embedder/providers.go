package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/dshills/codescribe/internal/apiclient"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderJina   = "jina"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	// Default endpoints
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultJinaBaseURL   = "https://api.jina.ai/v1"
	DefaultOllamaBaseURL = "http://localhost:11434"

	// Default models
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOllamaModel = "mxbai-embed-large"
	DefaultLocalModel  = "local-hash-v1"

	// LocalDimension is the vector length of the offline provider
	LocalDimension = 384

	// Environment fallbacks for API keys
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvJinaAPIKey   = "JINA_API_KEY"
)

// CompatibleProvider implements Embedder against any endpoint speaking the
// OpenAI /embeddings wire format (OpenAI, Jina, Ollama's /v1, vLLM, ...)
type CompatibleProvider struct {
	name   string
	model  string
	client *apiclient.Client
	dim    dimensionTracker
}

// NewCompatibleProvider creates an OpenAI-format embedder named name
func NewCompatibleProvider(name, model string, client *apiclient.Client) *CompatibleProvider {
	return &CompatibleProvider{name: name, model: model, client: client}
}

func (p *CompatibleProvider) Embed(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"input": []string{req.Text},
		"model": p.model,
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := p.client.PostJSON(ctx, "/embeddings", reqBody, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return p.finish(apiResp.Data[0].Embedding)
}

func (p *CompatibleProvider) finish(vector []float32) (*Embedding, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailed, ErrEmptyVector)
	}
	p.dim.observe(len(vector))

	return &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  p.name,
		Model:     p.model,
	}, nil
}

func (p *CompatibleProvider) Dimension() int {
	return p.dim.get()
}

func (p *CompatibleProvider) Provider() string {
	return p.name
}

func (p *CompatibleProvider) Model() string {
	return p.model
}

func (p *CompatibleProvider) Close() error {
	p.client.Close()
	return nil
}

// OllamaProvider implements Embedder using Ollama's native /api/embeddings endpoint
type OllamaProvider struct {
	model  string
	client *apiclient.Client
	dim    dimensionTracker
}

// NewOllamaProvider creates a native Ollama embedder
func NewOllamaProvider(model string, client *apiclient.Client) *OllamaProvider {
	return &OllamaProvider{model: model, client: client}
}

func (o *OllamaProvider) Embed(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"model":  o.model,
		"prompt": req.Text,
	}

	var apiResp struct {
		Embedding []float32 `json:"embedding"`
	}

	if err := o.client.PostJSON(ctx, "/api/embeddings", reqBody, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if len(apiResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailed, ErrEmptyVector)
	}
	o.dim.observe(len(apiResp.Embedding))

	return &Embedding{
		Vector:    apiResp.Embedding,
		Dimension: len(apiResp.Embedding),
		Provider:  ProviderOllama,
		Model:     o.model,
	}, nil
}

func (o *OllamaProvider) Dimension() int {
	return o.dim.get()
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.model
}

func (o *OllamaProvider) Close() error {
	o.client.Close()
	return nil
}

// LocalProvider produces deterministic offline embeddings by hashing word
// tokens into a fixed number of buckets. Texts sharing words land close
// together; it has no notion of synonyms.
type LocalProvider struct {
	model string
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{model: DefaultLocalModel}
}

func (l *LocalProvider) Embed(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	vector := make([]float32, LocalDimension)

	tokens := tokenize(req.Text)
	if len(tokens) == 0 {
		tokens = []string{strings.TrimSpace(req.Text)}
	}

	for _, tok := range tokens {
		sum := sha256.Sum256([]byte(tok))
		bucket := binary.BigEndian.Uint32(sum[:4]) % LocalDimension
		if sum[4]&1 == 0 {
			vector[bucket]++
		} else {
			vector[bucket]--
		}
	}

	vector = NormalizeVector(vector)

	return &Embedding{
		Vector:    vector,
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      ComputeHash(req.Text),
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// tokenize lowercases text and splits it on anything that is not a letter or digit
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NormalizeVector normalizes a vector to unit length
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
