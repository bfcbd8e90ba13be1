package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/codescribe/internal/keyword"
	"github.com/dshills/codescribe/internal/similarity"
	"github.com/dshills/codescribe/internal/storage"
	"github.com/dshills/codescribe/pkg/types"
)

// Layout of an index directory
const (
	DBFile     = "index.db"
	KeywordDir = "keyword.bleve"
)

var (
	ErrInvalidK          = errors.New("k must be >= 1")
	ErrEmptyDocID        = errors.New("doc_id cannot be empty")
	ErrDimensionMismatch = errors.New("embedding dimension does not match index")
	ErrModelMismatch     = errors.New("embedding model does not match index")
	ErrClosed            = errors.New("index is closed")
	ErrNoKeywordIndex    = errors.New("keyword index is disabled")
	ErrNotFound          = errors.New("document not found")
)

// Vectorizer produces the vectors the index stores and compares. The
// synthesizer's embedding capability satisfies it.
type Vectorizer interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbeddingProvider() string
	EmbeddingModel() string
	EmbeddingDimension() int // 0 if not known before the first call
}

// Options tune an Index
type Options struct {
	// DisableKeyword skips the full-text companion index
	DisableKeyword bool
	Logger         *slog.Logger
}

// Index is a persistent, exactly ranked embedding index. Readers may overlap;
// writers are exclusive of each other and of readers. Embedding calls happen
// outside the lock.
type Index struct {
	b      *backend
	vec    Vectorizer
	logger *slog.Logger

	closeOnce sync.Once
}

// Open loads or creates the index stored under dir. Handles opened for the
// same directory share storage and locking; each must be closed.
func Open(ctx context.Context, dir string, vec Vectorizer, opts Options) (*Index, error) {
	if vec == nil {
		return nil, errors.New("vectorizer is required")
	}

	b, err := acquire(ctx, dir, !opts.DisableKeyword)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		b:      b,
		vec:    vec,
		logger: opts.Logger,
	}
	if idx.logger == nil {
		idx.logger = slog.Default()
	}

	if err := idx.checkCompatible(); err != nil {
		_ = idx.Close()
		return nil, err
	}

	return idx, nil
}

// checkCompatible rejects an embedder whose vectors cannot be compared with
// the ones already stored
func (i *Index) checkCompatible() error {
	i.b.mu.RLock()
	defer i.b.mu.RUnlock()

	meta := i.b.meta
	if meta == nil {
		return nil
	}
	if meta.Model != i.vec.EmbeddingModel() {
		return fmt.Errorf("%w: index built with %q, embedder uses %q", ErrModelMismatch, meta.Model, i.vec.EmbeddingModel())
	}
	if dim := i.vec.EmbeddingDimension(); dim > 0 && dim != meta.Dimension {
		return fmt.Errorf("%w: index has %d, embedder produces %d", ErrDimensionMismatch, meta.Dimension, dim)
	}
	return nil
}

// Insert embeds text and stores it under docID, replacing any previous
// record with that ID. Nothing is written if any step fails.
func (i *Index) Insert(ctx context.Context, docID, text string) error {
	if strings.TrimSpace(docID) == "" {
		return ErrEmptyDocID
	}

	vector, err := i.vec.Embed(ctx, text)
	if err != nil {
		return embeddingError(docID, err)
	}
	if similarity.Magnitude(vector) == 0 {
		return &types.EmbeddingError{DocID: docID, Err: similarity.ErrZeroVector}
	}

	i.b.mu.Lock()
	defer i.b.mu.Unlock()

	if i.b.closed {
		return ErrClosed
	}

	return i.b.write(ctx, &storage.Document{
		DocID:   docID,
		RawText: text,
		Vector:  vector,
		Model:   i.vec.EmbeddingModel(),
	}, i.vec.EmbeddingProvider())
}

type candidate struct {
	doc   *storage.Document
	score float64
}

// Search returns up to k records ranked by similarity to query, best first.
// Equal scores keep insertion order.
func (i *Index) Search(ctx context.Context, query string, k int) ([]types.SearchHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}

	n, err := i.Len(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []types.SearchHit{}, nil
	}

	vector, err := i.vec.Embed(ctx, query)
	if err != nil {
		return nil, embeddingError("", err)
	}
	if similarity.Magnitude(vector) == 0 {
		return nil, &types.EmbeddingError{Err: similarity.ErrZeroVector}
	}

	candidates, err := i.score(ctx, vector)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].doc.Seq < candidates[b].doc.Seq
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	hits := make([]types.SearchHit, len(candidates))
	for r, c := range candidates {
		hits[r] = types.SearchHit{
			DocID:   c.doc.DocID,
			RawText: c.doc.RawText,
			Score:   c.score,
			Rank:    r + 1,
		}
	}
	return hits, nil
}

// score computes the similarity of every stored record under the read lock
func (i *Index) score(ctx context.Context, query []float32) ([]candidate, error) {
	i.b.mu.RLock()
	defer i.b.mu.RUnlock()

	if i.b.closed {
		return nil, ErrClosed
	}

	var candidates []candidate
	err := i.b.store.ScanDocuments(ctx, func(doc *storage.Document) error {
		s, err := similarity.Cosine(query, doc.Vector)
		if err != nil {
			if errors.Is(err, similarity.ErrDimensionMismatch) {
				return fmt.Errorf("%w: stored %d, query %d", ErrDimensionMismatch, doc.Dimension, len(query))
			}
			i.logger.Warn("skipping unscorable document", "doc_id", doc.DocID, "error", err)
			return nil
		}
		candidates = append(candidates, candidate{doc: doc, score: s})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return candidates, nil
}

// KeywordSearch ranks records by full-text relevance of their raw text
func (i *Index) KeywordSearch(ctx context.Context, query string, k int) ([]types.SearchHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}

	i.b.mu.RLock()
	defer i.b.mu.RUnlock()

	if i.b.closed {
		return nil, ErrClosed
	}
	if i.b.kw == nil {
		return nil, ErrNoKeywordIndex
	}

	kwHits, err := i.b.kw.Search(query, k)
	if err != nil {
		return nil, err
	}

	hits := make([]types.SearchHit, 0, len(kwHits))
	for _, h := range kwHits {
		doc, err := i.b.store.GetDocument(ctx, h.DocID)
		if errors.Is(err, storage.ErrNotFound) {
			i.logger.Warn("keyword index references missing document", "doc_id", h.DocID)
			continue
		}
		if err != nil {
			return nil, err
		}
		hits = append(hits, types.SearchHit{
			DocID:   doc.DocID,
			RawText: doc.RawText,
			Score:   h.Score,
			Rank:    len(hits) + 1,
		})
	}
	return hits, nil
}

// Get returns the stored record for docID
func (i *Index) Get(ctx context.Context, docID string) (*types.EmbeddingRecord, error) {
	i.b.mu.RLock()
	defer i.b.mu.RUnlock()

	if i.b.closed {
		return nil, ErrClosed
	}

	doc, err := i.b.store.GetDocument(ctx, docID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	if err != nil {
		return nil, err
	}

	return &types.EmbeddingRecord{DocID: doc.DocID, Vector: doc.Vector, RawText: doc.RawText}, nil
}

// Delete removes docID from the index
func (i *Index) Delete(ctx context.Context, docID string) error {
	i.b.mu.Lock()
	defer i.b.mu.Unlock()

	if i.b.closed {
		return ErrClosed
	}

	return i.b.remove(ctx, docID)
}

// Len returns the number of stored records
func (i *Index) Len(ctx context.Context) (int, error) {
	i.b.mu.RLock()
	defer i.b.mu.RUnlock()

	if i.b.closed {
		return 0, ErrClosed
	}
	return i.b.store.CountDocuments(ctx)
}

// Stats reports the state of the underlying storage
func (i *Index) Stats(ctx context.Context) (*storage.Status, error) {
	i.b.mu.RLock()
	defer i.b.mu.RUnlock()

	if i.b.closed {
		return nil, ErrClosed
	}
	return i.b.store.GetStatus(ctx)
}

// RecordRun appends a pipeline run to the index history
func (i *Index) RecordRun(ctx context.Context, run *storage.Run) error {
	i.b.mu.Lock()
	defer i.b.mu.Unlock()

	if i.b.closed {
		return ErrClosed
	}
	return i.b.store.RecordRun(ctx, run)
}

// Runs lists recorded runs, most recent first
func (i *Index) Runs(ctx context.Context, limit int) ([]*storage.Run, error) {
	i.b.mu.RLock()
	defer i.b.mu.RUnlock()

	if i.b.closed {
		return nil, ErrClosed
	}
	return i.b.store.ListRuns(ctx, limit)
}

// Path returns the index directory
func (i *Index) Path() string {
	return i.b.path
}

// EmbeddingModel returns the model used for both indexing and querying
func (i *Index) EmbeddingModel() string {
	return i.vec.EmbeddingModel()
}

// embeddingError attributes a failed embedding call to docID, flattening an
// EmbeddingError already produced by the vectorizer
func embeddingError(docID string, err error) error {
	var ee *types.EmbeddingError
	if errors.As(err, &ee) {
		err = ee.Err
	}
	return &types.EmbeddingError{DocID: docID, Err: err}
}

// Close releases this handle; storage closes with the last handle
func (i *Index) Close() error {
	var err error
	i.closeOnce.Do(func() {
		err = release(i.b)
	})
	return err
}

// ensureDir creates the index directory if needed
func ensureDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("index path is required")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve index path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", &types.IOError{Op: "create", Path: abs, Err: err}
	}
	return abs, nil
}
