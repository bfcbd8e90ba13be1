package embedder

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records how often the wrapped provider is reached
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3, Provider: "count", Model: "m"}, nil
}

func (c *countingEmbedder) Dimension() int   { return 3 }
func (c *countingEmbedder) Provider() string { return "count" }
func (c *countingEmbedder) Model() string    { return "m" }
func (c *countingEmbedder) Close() error     { return nil }

func TestComputeHash(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty string", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"simple text", "hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeHash(tt.text))
		})
	}
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(EmbeddingRequest{Text: "func main() {}"}))
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{Text: ""}), ErrEmptyText)
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{Text: " \n\t"}), ErrEmptyText)
}

func TestCache(t *testing.T) {
	t.Run("get returns a copy", func(t *testing.T) {
		cache, err := NewCache(4)
		require.NoError(t, err)

		cache.Set("h", &Embedding{Vector: []float32{1, 2}, Dimension: 2})
		got, ok := cache.Get("h")
		require.True(t, ok)
		got.Vector[0] = 99

		again, ok := cache.Get("h")
		require.True(t, ok)
		assert.Equal(t, float32(1), again.Vector[0])
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		cache, err := NewCache(2)
		require.NoError(t, err)

		cache.Set("a", &Embedding{})
		cache.Set("b", &Embedding{})
		cache.Set("c", &Embedding{})

		assert.Equal(t, 2, cache.Size())
		_, ok := cache.Get("a")
		assert.False(t, ok)

		cache.Clear()
		assert.Equal(t, 0, cache.Size())
	})

	t.Run("rejects non-positive size", func(t *testing.T) {
		_, err := NewCache(0)
		assert.Error(t, err)
	})
}

func TestWithCache(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled by default", func(t *testing.T) {
		inner := &countingEmbedder{}
		emb, err := WithCache(inner, 0)
		require.NoError(t, err)
		assert.Same(t, inner, emb)
	})

	t.Run("serves repeats from cache", func(t *testing.T) {
		inner := &countingEmbedder{}
		emb, err := WithCache(inner, 8)
		require.NoError(t, err)

		first, err := emb.Embed(ctx, EmbeddingRequest{Text: "same"})
		require.NoError(t, err)
		second, err := emb.Embed(ctx, EmbeddingRequest{Text: "same"})
		require.NoError(t, err)

		assert.Equal(t, first.Vector, second.Vector)
		assert.Equal(t, ComputeHash("same"), second.Hash)
		assert.Equal(t, 1, inner.calls)
		assert.Equal(t, "count", emb.Provider())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		inner := &countingEmbedder{err: errors.New("down")}
		emb, err := WithCache(inner, 8)
		require.NoError(t, err)

		_, err = emb.Embed(ctx, EmbeddingRequest{Text: "x"})
		assert.Error(t, err)
		_, err = emb.Embed(ctx, EmbeddingRequest{Text: "x"})
		assert.Error(t, err)
		assert.Equal(t, 2, inner.calls)
	})
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider()

	t.Run("metadata", func(t *testing.T) {
		assert.Equal(t, ProviderLocal, p.Provider())
		assert.Equal(t, DefaultLocalModel, p.Model())
		assert.Equal(t, LocalDimension, p.Dimension())
		assert.NoError(t, p.Close())
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := p.Embed(ctx, EmbeddingRequest{Text: "handles user login"})
		require.NoError(t, err)
		b, err := p.Embed(ctx, EmbeddingRequest{Text: "handles user login"})
		require.NoError(t, err)

		assert.Equal(t, a.Vector, b.Vector)
		assert.Len(t, a.Vector, LocalDimension)
		assert.Equal(t, LocalDimension, a.Dimension)
	})

	t.Run("unit length", func(t *testing.T) {
		emb, err := p.Embed(ctx, EmbeddingRequest{Text: "computes tax totals"})
		require.NoError(t, err)

		var sum float64
		for _, v := range emb.Vector {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	})

	t.Run("punctuation only still yields a vector", func(t *testing.T) {
		emb, err := p.Embed(ctx, EmbeddingRequest{Text: "!!!"})
		require.NoError(t, err)
		assert.NotEqual(t, make([]float32, LocalDimension), emb.Vector)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := p.Embed(ctx, EmbeddingRequest{Text: ""})
		assert.ErrorIs(t, err, ErrEmptyText)
	})
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"parse", "file", "v2", "go"}, tokenize("Parse-File (v2).go"))
	assert.Empty(t, tokenize("--"))
}

func TestNormalizeVector(t *testing.T) {
	assert.Equal(t, []float32{0.6, 0.8}, NormalizeVector([]float32{3, 4}))

	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}
