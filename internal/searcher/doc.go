// Package searcher serves queries against the summary index.
//
// Three modes are supported:
//   - vector (default): exact embedding similarity, highest score first,
//     ties in insertion order
//   - keyword: full-text relevance over summary text
//   - hybrid: both rankings merged with Reciprocal Rank Fusion
//
// # Basic Usage
//
//	s, err := searcher.New(idx, 0, 0)
//	if err != nil {
//		return err
//	}
//
//	resp, err := s.Search(ctx, searcher.Request{
//		Query: "authentication flow",
//		K:     5,
//	})
//
//	for _, hit := range resp.Hits {
//		fmt.Printf("[%d] %s (score: %.3f)\n", hit.Rank, hit.DocID, hit.Score)
//	}
//
// # Reciprocal Rank Fusion
//
// Hybrid mode fetches 2k candidates from each side and scores every document
// as the sum of 1/(60 + rank) over the lists it appears in. Documents with
// equal fused scores are ordered by ID. If the keyword side fails the vector
// ranking is used alone; if the query cannot be vectorized the search fails.
//
// K must be at least 1. It is not capped: asking for more results than the
// index holds returns every record.
//
// # Caching
//
// A positive cache size keeps recent responses in an LRU for the TTL.
// Requests opt in with UseCache, and callers that modify the index must call
// InvalidateCache.
package searcher
