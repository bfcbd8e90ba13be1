package searcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codescribe/pkg/types"
)

// fakeIndex returns canned rankings and counts calls
type fakeIndex struct {
	mu         sync.Mutex
	vector     []types.SearchHit
	keyword    []types.SearchHit
	vectorErr  error
	keywordErr error
	calls      int
	lastK      int
}

func (f *fakeIndex) Search(ctx context.Context, query string, k int) ([]types.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastK = k
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	return truncate(f.vector, k), nil
}

func (f *fakeIndex) KeywordSearch(ctx context.Context, query string, k int) ([]types.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	return truncate(f.keyword, k), nil
}

func truncate(hits []types.SearchHit, k int) []types.SearchHit {
	if len(hits) > k {
		return hits[:k]
	}
	return hits
}

func ranked(ids ...string) []types.SearchHit {
	hits := make([]types.SearchHit, len(ids))
	for i, id := range ids {
		hits[i] = types.SearchHit{DocID: id, RawText: "text of " + id, Score: 1 / float64(i+1), Rank: i + 1}
	}
	return hits
}

func TestNew(t *testing.T) {
	_, err := New(nil, 0, 0)
	assert.Error(t, err)

	s, err := New(&fakeIndex{}, 0, 0)
	require.NoError(t, err)
	assert.Nil(t, s.cache)
	assert.Equal(t, DefaultCacheTTL, s.ttl)
}

func TestSearch_Validation(t *testing.T) {
	s, err := New(&fakeIndex{}, 0, 0)
	require.NoError(t, err)

	_, err = s.Search(context.Background(), Request{Query: "   ", K: 1})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = s.Search(context.Background(), Request{Query: "q", K: 1, Mode: "fuzzy"})
	assert.ErrorIs(t, err, ErrUnsupportedMode)

	for _, k := range []int{0, -3} {
		_, err = s.Search(context.Background(), Request{Query: "q", K: k})
		assert.ErrorIs(t, err, ErrInvalidK)
	}
}

func TestSearch_DefaultsToVector(t *testing.T) {
	idx := &fakeIndex{vector: ranked("a", "b", "c", "d", "e", "f", "g")}
	s, err := New(idx, 0, 0)
	require.NoError(t, err)

	resp, err := s.Search(context.Background(), Request{Query: "auth", K: DefaultK})
	require.NoError(t, err)
	assert.Equal(t, SearchModeVector, resp.Mode)
	assert.Equal(t, DefaultK, idx.lastK)
	assert.Len(t, resp.Hits, DefaultK)
	assert.Equal(t, "a", resp.Hits[0].DocID)
	assert.Equal(t, DefaultK, resp.VectorResults)
	assert.Zero(t, resp.TextResults)
}

func TestSearch_LargeKReturnsEveryRecord(t *testing.T) {
	ids := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("doc-%03d", i)
	}
	idx := &fakeIndex{vector: ranked(ids...), keyword: ranked(ids...)}
	s, err := New(idx, 0, 0)
	require.NoError(t, err)

	resp, err := s.Search(context.Background(), Request{Query: "q", K: 150})
	require.NoError(t, err)
	assert.Equal(t, 150, idx.lastK)
	require.Len(t, resp.Hits, 150)
	assert.Equal(t, "doc-149", resp.Hits[149].DocID)

	resp, err = s.Search(context.Background(), Request{Query: "q", K: 1000})
	require.NoError(t, err)
	assert.Len(t, resp.Hits, 150)

	resp, err = s.Search(context.Background(), Request{Query: "q", K: 1000, Mode: SearchModeHybrid})
	require.NoError(t, err)
	assert.Len(t, resp.Hits, 150)
}

func TestSearch_Keyword(t *testing.T) {
	idx := &fakeIndex{keyword: ranked("k1", "k2")}
	s, err := New(idx, 0, 0)
	require.NoError(t, err)

	resp, err := s.Search(context.Background(), Request{Query: "login", K: 3, Mode: SearchModeKeyword})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "k1", resp.Hits[0].DocID)
	assert.Equal(t, 2, resp.TextResults)
}

func TestSearch_VectorErrorPropagates(t *testing.T) {
	cause := &types.EmbeddingError{Err: errors.New("provider down")}
	s, err := New(&fakeIndex{vectorErr: cause}, 0, 0)
	require.NoError(t, err)

	_, err = s.Search(context.Background(), Request{Query: "q", K: 1})
	var embErr *types.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
}

func TestSearch_Hybrid(t *testing.T) {
	idx := &fakeIndex{
		vector:  ranked("a", "b", "c"),
		keyword: ranked("c", "a", "d"),
	}
	s, err := New(idx, 0, 0)
	require.NoError(t, err)

	resp, err := s.Search(context.Background(), Request{Query: "q", K: 3, Mode: SearchModeHybrid})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 3)

	// a: 1/61 + 1/62, c: 1/63 + 1/61, b: 1/62
	assert.Equal(t, []string{"a", "c", "b"}, []string{resp.Hits[0].DocID, resp.Hits[1].DocID, resp.Hits[2].DocID})
	assert.InDelta(t, 1.0/61+1.0/62, resp.Hits[0].Score, 1e-12)
	assert.Equal(t, "text of a", resp.Hits[0].RawText)
	for i, h := range resp.Hits {
		assert.Equal(t, i+1, h.Rank)
	}
	assert.Equal(t, 3, resp.VectorResults)
	assert.Equal(t, 3, resp.TextResults)
}

func TestSearch_HybridOneSideFails(t *testing.T) {
	idx := &fakeIndex{vector: ranked("a", "b"), keywordErr: errors.New("keyword disabled")}
	s, err := New(idx, 0, 0)
	require.NoError(t, err)

	resp, err := s.Search(context.Background(), Request{Query: "q", K: 5, Mode: SearchModeHybrid})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "a", resp.Hits[0].DocID)

	idx.keywordErr = nil
	idx.keyword = ranked("a", "c")
	idx.vectorErr = &types.EmbeddingError{Err: errors.New("embedding down")}
	_, err = s.Search(context.Background(), Request{Query: "q", K: 5, Mode: SearchModeHybrid})
	var embErr *types.EmbeddingError
	require.ErrorAs(t, err, &embErr, "keyword hits do not rescue a query that cannot be vectorized")
}

func TestApplyRRF_TiesByDocID(t *testing.T) {
	fused := applyRRF(ranked("z"), ranked("m"), 60)
	require.Len(t, fused, 2)
	assert.Equal(t, "m", fused[0].DocID)
	assert.Equal(t, "z", fused[1].DocID)
	assert.Equal(t, fused[0].Score, fused[1].Score)
}

func TestApplyRRF_Empty(t *testing.T) {
	assert.Empty(t, applyRRF(nil, nil, 0))
}

func TestSearch_Cache(t *testing.T) {
	idx := &fakeIndex{vector: ranked("a")}
	s, err := New(idx, 8, 0)
	require.NoError(t, err)

	req := Request{Query: "q", K: 1, UseCache: true}
	first, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Hits, second.Hits)
	assert.Equal(t, 1, idx.calls)

	// Mutating a returned response does not leak into the cache
	second.Hits[0].DocID = "mutated"
	third, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "a", third.Hits[0].DocID)

	s.InvalidateCache()
	_, err = s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.calls)

	_, err = s.Search(context.Background(), Request{Query: "q", K: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.calls, "requests without UseCache bypass the cache")
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    SearchMode
		wantErr bool
	}{
		{in: "", want: SearchModeVector},
		{in: "vector", want: SearchModeVector},
		{in: "KEYWORD", want: SearchModeKeyword},
		{in: " hybrid ", want: SearchModeHybrid},
		{in: "bm25", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
