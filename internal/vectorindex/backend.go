package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dshills/codescribe/internal/keyword"
	"github.com/dshills/codescribe/internal/storage"
)

// backend is the shared state of one index directory
type backend struct {
	path  string
	mu    sync.RWMutex
	store *storage.SQLiteStorage
	kw    *keyword.Index // nil when disabled
	meta  *storage.IndexMeta

	closed bool
	refs   int // guarded by registryMu
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]*backend)
)

// acquire returns the backend for dir, opening it on first use
func acquire(ctx context.Context, dir string, withKeyword bool) (*backend, error) {
	abs, err := ensureDir(dir)
	if err != nil {
		return nil, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if b, ok := registry[abs]; ok {
		if withKeyword && b.kw == nil {
			return nil, fmt.Errorf("index %s already open without keyword search", abs)
		}
		b.refs++
		return b, nil
	}

	b, err := openBackend(ctx, abs, withKeyword)
	if err != nil {
		return nil, err
	}
	b.refs = 1
	registry[abs] = b
	return b, nil
}

// release drops one reference and closes the backend with the last one
func release(b *backend) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	b.refs--
	if b.refs > 0 {
		return nil
	}
	delete(registry, b.path)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true

	var errs []error
	if b.kw != nil {
		errs = append(errs, b.kw.Close())
	}
	errs = append(errs, b.store.Close())
	return errors.Join(errs...)
}

func openBackend(ctx context.Context, abs string, withKeyword bool) (*backend, error) {
	store, err := storage.NewSQLiteStorage(filepath.Join(abs, DBFile))
	if err != nil {
		return nil, err
	}

	b := &backend{path: abs, store: store}

	meta, err := store.GetMeta(ctx)
	switch {
	case err == nil:
		b.meta = meta
	case !errors.Is(err, storage.ErrNotFound):
		_ = store.Close()
		return nil, err
	}

	if withKeyword {
		kw, err := keyword.Open(filepath.Join(abs, KeywordDir))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		b.kw = kw
	}

	return b, nil
}

// write upserts one document and its keyword entry atomically.
// The caller holds mu for writing.
func (b *backend) write(ctx context.Context, doc *storage.Document, provider string) (err error) {
	if b.meta != nil {
		if len(doc.Vector) != b.meta.Dimension {
			return fmt.Errorf("%w: index has %d, got %d", ErrDimensionMismatch, b.meta.Dimension, len(doc.Vector))
		}
		if doc.Model != b.meta.Model {
			return fmt.Errorf("%w: index built with %q, got %q", ErrModelMismatch, b.meta.Model, doc.Model)
		}
	}

	tx, err := b.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var newMeta *storage.IndexMeta
	if b.meta == nil {
		newMeta = &storage.IndexMeta{Dimension: len(doc.Vector), Model: doc.Model, Provider: provider}
		if err = tx.SetMeta(ctx, newMeta); err != nil {
			return err
		}
	}

	var previous *storage.Document
	previous, err = tx.GetDocument(ctx, doc.DocID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if err = tx.UpsertDocument(ctx, doc); err != nil {
		return err
	}

	if b.kw != nil {
		if err = b.kw.Put(doc.DocID, doc.RawText); err != nil {
			return fmt.Errorf("keyword index: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		b.restoreKeyword(doc.DocID, previous)
		return fmt.Errorf("commit: %w", err)
	}

	if newMeta != nil {
		b.meta = newMeta
	}
	return nil
}

// remove deletes one document and its keyword entry. The caller holds mu for writing.
func (b *backend) remove(ctx context.Context, docID string) (err error) {
	tx, err := b.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	previous, err := tx.GetDocument(ctx, docID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	if err != nil {
		return err
	}

	if err = tx.DeleteDocument(ctx, docID); err != nil {
		return err
	}

	if b.kw != nil {
		if err = b.kw.Delete(docID); err != nil {
			return fmt.Errorf("keyword index: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		b.restoreKeyword(docID, previous)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// restoreKeyword puts the keyword index back to the committed state of docID
func (b *backend) restoreKeyword(docID string, previous *storage.Document) {
	if b.kw == nil {
		return
	}
	if previous == nil {
		_ = b.kw.Delete(docID)
		return
	}
	_ = b.kw.Put(docID, previous.RawText)
}
