// Package vectorindex stores embedded summaries and answers nearest
// neighbour queries over them.
//
// Ranking is exact: every stored vector is scored against the query and
// results are ordered by descending similarity, ties in insertion order.
// Records live in SQLite under the index directory, with an optional bleve
// index alongside for keyword search.
//
//	idx, err := vectorindex.Open(ctx, ".codescribe", syn, vectorindex.Options{})
//	if err != nil {
//		return err
//	}
//	defer idx.Close()
//
//	err = idx.Insert(ctx, "internal/auth/login.go", summary)
//	hits, err := idx.Search(ctx, "authentication flow", 5)
package vectorindex
