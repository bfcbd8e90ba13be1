package storage

import (
	"context"
	"time"
)

// Storage persists the embedding index and the run history of one index directory
type Storage interface {
	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, docID string) (*Document, error)
	DeleteDocument(ctx context.Context, docID string) error
	ScanDocuments(ctx context.Context, fn func(*Document) error) error
	ListDocuments(ctx context.Context) ([]*Document, error)
	CountDocuments(ctx context.Context) (int, error)

	// Index metadata operations
	GetMeta(ctx context.Context) (*IndexMeta, error)
	SetMeta(ctx context.Context, meta *IndexMeta) error

	// Run history operations
	RecordRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Document is one persisted embedding record
type Document struct {
	DocID     string
	RawText   string
	Vector    []float32
	Dimension int
	Model     string
	Seq       int64 // Insertion order; preserved when the document is overwritten
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IndexMeta fixes the embedding space of an index at creation time
type IndexMeta struct {
	Dimension int
	Model     string
	Provider  string
	CreatedAt time.Time
}

// Run is one recorded pipeline execution
type Run struct {
	RunID            string
	Root             string
	OutputDir        string
	StartedAt        time.Time
	FinishedAt       time.Time
	UnitsFound       int
	UnitsSummarized  int
	UnitsSkipped     int
	DocumentsIndexed int
}

// Status summarizes an index
type Status struct {
	Documents    int
	Meta         *IndexMeta // nil until the first document is stored
	Runs         int
	LastRun      *Run
	DatabaseSize int64
	BuildMode    string
}
