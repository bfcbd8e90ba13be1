package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidDocument is returned when a document fails validation before write
	ErrInvalidDocument = errors.New("invalid document")
)

// Metadata keys in index_meta
const (
	metaDimension = "dimension"
	metaModel     = "embedding_model"
	metaProvider  = "embedding_provider"
	metaCreatedAt = "created_at"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	*queries
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.queries = &queries{q: db, status: s.status}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{queries: &queries{q: tx, status: s.status}, tx: tx}, nil
}

// status reports row counts and the on-disk size
func (s *SQLiteStorage) status(ctx context.Context, q querier) (*Status, error) {
	st := &Status{BuildMode: BuildMode}

	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&st.Documents); err != nil {
		return nil, err
	}
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&st.Runs); err != nil {
		return nil, err
	}

	qs := &queries{q: q}
	meta, err := qs.GetMeta(ctx)
	switch {
	case err == nil:
		st.Meta = meta
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	runs, err := qs.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		st.LastRun = runs[0]
	}

	var pageCount, pageSize int64
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			st.DatabaseSize = pageCount * pageSize
		}
	}

	return st, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	*queries
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

// queries implements every data operation against a querier, so the
// database and its transactions share one implementation
type queries struct {
	q      querier
	status func(ctx context.Context, q querier) (*Status, error)
}

// Document operations

func (s *queries) UpsertDocument(ctx context.Context, doc *Document) error {
	if doc.DocID == "" {
		return fmt.Errorf("%w: empty doc_id", ErrInvalidDocument)
	}
	if len(doc.Vector) == 0 {
		return fmt.Errorf("%w: empty vector for %s", ErrInvalidDocument, doc.DocID)
	}

	now := time.Now()
	query := `
		INSERT INTO documents (doc_id, raw_text, vector, dimension, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			raw_text = excluded.raw_text,
			vector = excluded.vector,
			dimension = excluded.dimension,
			model = excluded.model,
			updated_at = excluded.updated_at
		RETURNING seq, created_at
	`

	var createdAt int64
	err := s.q.QueryRowContext(ctx, query,
		doc.DocID, doc.RawText, serializeVector(doc.Vector), len(doc.Vector), doc.Model,
		now.UnixNano(), now.UnixNano()).Scan(&doc.Seq, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.DocID, err)
	}

	doc.Dimension = len(doc.Vector)
	doc.CreatedAt = time.Unix(0, createdAt)
	doc.UpdatedAt = now
	return nil
}

const documentColumns = `seq, doc_id, raw_text, vector, dimension, model, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc                  Document
		blob                 []byte
		createdAt, updatedAt int64
	)
	if err := row.Scan(&doc.Seq, &doc.DocID, &doc.RawText, &blob, &doc.Dimension, &doc.Model, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	vector, err := deserializeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.DocID, err)
	}
	doc.Vector = vector
	doc.CreatedAt = time.Unix(0, createdAt)
	doc.UpdatedAt = time.Unix(0, updatedAt)
	return &doc, nil
}

func (s *queries) GetDocument(ctx context.Context, docID string) (*Document, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE doc_id = ?", docID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *queries) DeleteDocument(ctx context.Context, docID string) error {
	result, err := s.q.ExecContext(ctx, "DELETE FROM documents WHERE doc_id = ?", docID)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", docID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ScanDocuments streams every document in insertion order
func (s *queries) ScanDocuments(ctx context.Context, fn func(*Document) error) error {
	rows, err := s.q.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY seq ASC")
	if err != nil {
		return fmt.Errorf("failed to scan documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}

	return rows.Err()
}

func (s *queries) ListDocuments(ctx context.Context) ([]*Document, error) {
	var docs []*Document
	err := s.ScanDocuments(ctx, func(d *Document) error {
		docs = append(docs, d)
		return nil
	})
	return docs, err
}

func (s *queries) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}

// Index metadata operations

func (s *queries) GetMeta(ctx context.Context) (*IndexMeta, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT key, value FROM index_meta")
	if err != nil {
		return nil, fmt.Errorf("failed to read index metadata: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dimStr, ok := values[metaDimension]
	if !ok {
		return nil, ErrNotFound
	}

	dim, err := strconv.Atoi(dimStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored dimension %q: %w", dimStr, err)
	}

	meta := &IndexMeta{
		Dimension: dim,
		Model:     values[metaModel],
		Provider:  values[metaProvider],
	}
	if ts, err := strconv.ParseInt(values[metaCreatedAt], 10, 64); err == nil {
		meta.CreatedAt = time.Unix(0, ts)
	}

	return meta, nil
}

func (s *queries) SetMeta(ctx context.Context, meta *IndexMeta) error {
	if meta.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", meta.Dimension)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	values := map[string]string{
		metaDimension: strconv.Itoa(meta.Dimension),
		metaModel:     meta.Model,
		metaProvider:  meta.Provider,
		metaCreatedAt: strconv.FormatInt(meta.CreatedAt.UnixNano(), 10),
	}

	for k, v := range values {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO index_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, v)
		if err != nil {
			return fmt.Errorf("failed to write index metadata %s: %w", k, err)
		}
	}

	return nil
}

// Run history operations

func (s *queries) RecordRun(ctx context.Context, run *Run) error {
	if run.RunID == "" {
		return errors.New("run ID is required")
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO runs (run_id, root, output_dir, started_at, finished_at,
			units_found, units_summarized, units_skipped, documents_indexed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			units_found = excluded.units_found,
			units_summarized = excluded.units_summarized,
			units_skipped = excluded.units_skipped,
			documents_indexed = excluded.documents_indexed
	`, run.RunID, run.Root, run.OutputDir, run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(),
		run.UnitsFound, run.UnitsSummarized, run.UnitsSkipped, run.DocumentsIndexed)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first; limit <= 0 returns all
func (s *queries) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `
		SELECT run_id, root, COALESCE(output_dir, ''), started_at, finished_at,
			units_found, units_summarized, units_skipped, documents_indexed
		FROM runs ORDER BY started_at DESC, run_id ASC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []*Run
	for rows.Next() {
		var (
			run               Run
			started, finished int64
		)
		if err := rows.Scan(&run.RunID, &run.Root, &run.OutputDir, &started, &finished,
			&run.UnitsFound, &run.UnitsSummarized, &run.UnitsSkipped, &run.DocumentsIndexed); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(0, started)
		run.FinishedAt = time.Unix(0, finished)
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// Status operations

func (s *queries) GetStatus(ctx context.Context) (*Status, error) {
	return s.status(ctx, s.q)
}

func nowNanos() int64 {
	return time.Now().UnixNano()
}
