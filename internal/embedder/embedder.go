package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
	ErrEmptyVector       = errors.New("provider returned an empty vector")
)

// Embedding represents a vector embedding with metadata
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // Content hash of the embedded text
}

// EmbeddingRequest represents a request to generate an embedding
type EmbeddingRequest struct {
	Text string
}

// Embedder turns text into fixed-length vectors. The same Embedder (and
// therefore the same model) must be used for indexing and for querying.
type Embedder interface {
	// Embed generates the embedding for the given text
	Embed(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// Dimension returns the vector length, or 0 when the provider only learns
	// it from its first response
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model identifier
	Model() string

	// Close releases any resources held by the embedder
	Close() error
}

// Cache provides in-memory LRU caching of embeddings by content hash
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates a new embedding cache with LRU eviction
func NewCache(maxLen int) (*Cache, error) {
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		return nil, err
	}
	return &Cache{cache: cache}, nil
}

// Get retrieves a copy of a cached embedding so callers cannot mutate the cached vector
func (c *Cache) Get(hash string) (*Embedding, bool) {
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}

	vectorCopy := make([]float32, len(emb.Vector))
	copy(vectorCopy, emb.Vector)

	return &Embedding{
		Vector:    vectorCopy,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     emb.Model,
		Hash:      emb.Hash,
	}, true
}

// Set stores an embedding
func (c *Cache) Set(hash string, emb *Embedding) {
	c.cache.Add(hash, emb)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// cachedEmbedder consults a Cache before delegating to the wrapped provider
type cachedEmbedder struct {
	Embedder
	cache *Cache
}

// WithCache wraps an embedder with an LRU cache holding up to size entries.
// A size <= 0 returns the embedder unchanged.
func WithCache(e Embedder, size int) (Embedder, error) {
	if size <= 0 {
		return e, nil
	}
	cache, err := NewCache(size)
	if err != nil {
		return nil, err
	}
	return &cachedEmbedder{Embedder: e, cache: cache}, nil
}

func (c *cachedEmbedder) Embed(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if emb, ok := c.cache.Get(hash); ok {
		return emb, nil
	}

	emb, err := c.Embedder.Embed(ctx, req)
	if err != nil {
		return nil, err
	}
	emb.Hash = hash
	c.cache.Set(hash, emb)

	return emb, nil
}

// dimensionTracker remembers the vector length reported by a remote provider
type dimensionTracker struct {
	mu  sync.RWMutex
	dim int
}

func (d *dimensionTracker) get() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dim
}

func (d *dimensionTracker) observe(n int) {
	d.mu.Lock()
	if d.dim == 0 {
		d.dim = n
	}
	d.mu.Unlock()
}

// ComputeHash computes SHA-256 hash of text
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ValidateRequest validates an embedding request
func ValidateRequest(req EmbeddingRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return ErrEmptyText
	}
	return nil
}
