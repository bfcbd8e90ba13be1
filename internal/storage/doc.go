// Package storage provides SQLite-based persistence for an embedding index.
//
// One database file backs one index directory and holds:
//   - documents: doc_id, raw text, the serialized vector and the model that
//     produced it. seq records insertion order and survives upserts.
//   - index_meta: the dimension and embedding model fixed when the first
//     document was stored.
//   - runs: the history of pipeline runs that wrote to the index.
//
// Schema changes are versioned migrations compared with semver.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage(filepath.Join(dir, "index.db"))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	err = db.UpsertDocument(ctx, &storage.Document{
//	    DocID:   "internal/auth/login.go",
//	    RawText: summary,
//	    Vector:  vec,
//	    Model:   "mxbai-embed-large",
//	})
//
// # Transactions
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if err := tx.SetMeta(ctx, meta); err != nil {
//	    return err
//	}
//	if err := tx.UpsertDocument(ctx, doc); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Drivers
//
// The default build uses modernc.org/sqlite (pure Go). Building with
// -tags sqlite_cgo switches to github.com/mattn/go-sqlite3.
//
// Vectors are stored as little-endian float32 blobs. Similarity is computed
// in Go by the caller after a full scan, which keeps ranking exact.
package storage
