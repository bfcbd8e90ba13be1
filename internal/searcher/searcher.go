package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codescribe/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeVector  SearchMode = "vector"  // Embedding similarity only
	SearchModeKeyword SearchMode = "keyword" // Full-text relevance only
	SearchModeHybrid  SearchMode = "hybrid"  // Vector + keyword with RRF
)

// Defaults
const (
	DefaultK           = 5
	DefaultRRFConstant = 60
	DefaultCacheSize   = 256
	DefaultCacheTTL    = 10 * time.Minute
)

var (
	ErrEmptyQuery      = errors.New("query cannot be empty")
	ErrInvalidK        = errors.New("k must be >= 1")
	ErrUnsupportedMode = errors.New("unsupported search mode")
)

// Index is the subset of the embedding index the searcher reads from
type Index interface {
	Search(ctx context.Context, query string, k int) ([]types.SearchHit, error)
	KeywordSearch(ctx context.Context, query string, k int) ([]types.SearchHit, error)
}

// Request contains parameters for a search operation
type Request struct {
	Query       string
	K           int
	Mode        SearchMode
	UseCache    bool
	RRFConstant float64 // k value for Reciprocal Rank Fusion (default 60)
}

// Response contains search results and metadata
type Response struct {
	Hits          []types.SearchHit
	Mode          SearchMode
	Duration      time.Duration
	CacheHit      bool
	VectorResults int
	TextResults   int
}

type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher serves ranked queries against an index
type Searcher struct {
	index   Index
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.Mutex
	ttl     time.Duration
}

// New creates a Searcher. A cacheSize of zero disables the query cache.
func New(index Index, cacheSize int, ttl time.Duration) (*Searcher, error) {
	if index == nil {
		return nil, errors.New("index is required")
	}

	s := &Searcher{index: index, ttl: ttl}
	if s.ttl <= 0 {
		s.ttl = DefaultCacheTTL
	}
	if cacheSize > 0 {
		cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create query cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	useCache := req.UseCache && s.cache != nil
	if useCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	var (
		resp *Response
		err  error
	)
	switch req.Mode {
	case SearchModeVector:
		resp, err = s.vectorSearch(ctx, req)
	case SearchModeKeyword:
		resp, err = s.keywordSearch(ctx, req)
	case SearchModeHybrid:
		resp, err = s.hybridSearch(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, req.Mode)
	}
	if err != nil {
		return nil, err
	}

	resp.Mode = req.Mode
	resp.Duration = time.Since(start)

	if useCache {
		s.storeInCache(req, resp)
	}
	return resp, nil
}

func (s *Searcher) vectorSearch(ctx context.Context, req Request) (*Response, error) {
	hits, err := s.index.Search(ctx, req.Query, req.K)
	if err != nil {
		return nil, err
	}
	return &Response{Hits: hits, VectorResults: len(hits)}, nil
}

func (s *Searcher) keywordSearch(ctx context.Context, req Request) (*Response, error) {
	hits, err := s.index.KeywordSearch(ctx, req.Query, req.K)
	if err != nil {
		return nil, err
	}
	return &Response{Hits: hits, TextResults: len(hits)}, nil
}

type searchResult struct {
	hits []types.SearchHit
	err  error
}

// hybridSearch runs both searches concurrently and fuses their rankings
func (s *Searcher) hybridSearch(ctx context.Context, req Request) (*Response, error) {
	vectorChan := make(chan searchResult, 1)
	textChan := make(chan searchResult, 1)
	depth := req.K * 2

	go func() {
		hits, err := s.index.Search(ctx, req.Query, depth)
		vectorChan <- searchResult{hits: hits, err: err}
	}()
	go func() {
		hits, err := s.index.KeywordSearch(ctx, req.Query, depth)
		textChan <- searchResult{hits: hits, err: err}
	}()

	var vectorRes, textRes searchResult
	for done := 0; done < 2; done++ {
		select {
		case vectorRes = <-vectorChan:
		case textRes = <-textChan:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// A query that cannot be vectorized fails the search. A missing or
	// failing keyword side leaves the vector ranking alone.
	if vectorRes.err != nil {
		return nil, vectorRes.err
	}

	fused := applyRRF(vectorRes.hits, textRes.hits, req.RRFConstant)
	if len(fused) > req.K {
		fused = fused[:req.K]
	}

	return &Response{
		Hits:          fused,
		VectorResults: len(vectorRes.hits),
		TextResults:   len(textRes.hits),
	}, nil
}

// applyRRF merges rankings: RRF(d) = Σ 1/(k + rank(d)). Ties are ordered by doc ID.
func applyRRF(vector, text []types.SearchHit, k float64) []types.SearchHit {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	scores := make(map[string]float64)
	raw := make(map[string]string)
	for _, list := range [][]types.SearchHit{vector, text} {
		for rank, h := range list {
			scores[h.DocID] += 1.0 / (k + float64(rank+1))
			raw[h.DocID] = h.RawText
		}
	}

	fused := make([]types.SearchHit, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, types.SearchHit{DocID: id, RawText: raw[id], Score: score})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].DocID < fused[j].DocID
	})

	for i := range fused {
		fused[i].Rank = i + 1
	}
	return fused
}

func validateRequest(req *Request) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return ErrEmptyQuery
	}

	if req.K < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidK, req.K)
	}

	if req.Mode == "" {
		req.Mode = SearchModeVector
	}
	if req.RRFConstant <= 0 {
		req.RRFConstant = DefaultRRFConstant
	}
	return nil
}

// ParseMode maps a user-supplied mode name onto a SearchMode
func ParseMode(s string) (SearchMode, error) {
	switch mode := SearchMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return SearchModeVector, nil
	case SearchModeVector, SearchModeKeyword, SearchModeHybrid:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMode, s)
	}
}

func (s *Searcher) checkCache(req Request) *Response {
	hash := computeQueryHash(req)

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, found := s.cache.Get(hash)
	if !found {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		s.cache.Remove(hash)
		return nil
	}
	return copyResponse(entry.response)
}

func (s *Searcher) storeInCache(req Request, resp *Response) {
	entry := &cacheEntry{
		response:  copyResponse(resp),
		expiresAt: time.Now().Add(s.ttl),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response; call it after the index changes
func (s *Searcher) InvalidateCache() {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

func copyResponse(src *Response) *Response {
	dst := *src
	dst.Hits = make([]types.SearchHit, len(src.Hits))
	copy(dst.Hits, src.Hits)
	return &dst
}

func computeQueryHash(req Request) [32]byte {
	key := fmt.Sprintf("%s|%s|%d|%.2f", req.Query, req.Mode, req.K, req.RRFConstant)
	return sha256.Sum256([]byte(key))
}
