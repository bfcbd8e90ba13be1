package types

import (
	"errors"
	"fmt"
)

// Domain errors for type validation
var (
	ErrMissingUnitID     = errors.New("unit ID is required")
	ErrEmptyDeclaration  = errors.New("declaration name cannot be empty")
	ErrEmptyCallable     = errors.New("callable name cannot be empty")
	ErrNegativeSize      = errors.New("size metric must be >= 0")
	ErrEmptySummary      = errors.New("summary text cannot be empty")
	ErrMissingDocID      = errors.New("document ID is required")
	ErrInvalidRank       = errors.New("rank must be >= 1")
	ErrUnsupportedLang   = errors.New("unsupported language")
	ErrMissingGeneration = errors.New("generation timestamp is required")
)

// ParseError reports that a unit's text is not valid in its declared language.
type ParseError struct {
	Unit    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	if pe.Line > 0 {
		return fmt.Sprintf("parse %s:%d:%d: %s", pe.Unit, pe.Line, pe.Column, pe.Message)
	}
	return fmt.Sprintf("parse %s: %s", pe.Unit, pe.Message)
}

func (pe *ParseError) Unwrap() error { return pe.Err }

// GenerationError reports a failed text-generation call.
type GenerationError struct {
	// Subject names what was being generated: a unit ID, "project_overview"
	// or "module_interactions".
	Subject string
	Err     error
}

func (ge *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", ge.Subject, ge.Err)
}

func (ge *GenerationError) Unwrap() error { return ge.Err }

// EmbeddingError reports a failed embedding call, either while inserting a
// document or while vectorizing a query.
type EmbeddingError struct {
	DocID string // empty for queries
	Err   error
}

func (ee *EmbeddingError) Error() string {
	if ee.DocID == "" {
		return fmt.Sprintf("embed query: %v", ee.Err)
	}
	return fmt.Sprintf("embed %s: %v", ee.DocID, ee.Err)
}

func (ee *EmbeddingError) Unwrap() error { return ee.Err }

// IOError reports a read failure for one source unit or a write failure for
// one output artifact.
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (ie *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", ie.Op, ie.Path, ie.Err)
}

func (ie *IOError) Unwrap() error { return ie.Err }
