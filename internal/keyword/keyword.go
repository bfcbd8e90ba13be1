// Package keyword maintains a full-text index over generated summaries so
// they can be searched by term as well as by embedding similarity.
package keyword

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names of an indexed summary
const (
	FieldDocID = "doc_id"
	FieldText  = "text"
)

// ErrEmptyQuery is returned for blank queries
var ErrEmptyQuery = errors.New("keyword query cannot be empty")

// Hit is one keyword match
type Hit struct {
	DocID string
	Score float64
}

type document struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text"`
}

// Index wraps a bleve index keyed by document ID
type Index struct {
	idx bleve.Index
}

// NewMapping creates the bleve mapping for summary documents
func NewMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = false
	docMapping.AddFieldMappingsAt(FieldText, textField)

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	idField.Store = true
	docMapping.AddFieldMappingsAt(FieldDocID, idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Open opens the index at path, creating it if absent. An empty path
// creates an in-memory index.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(NewMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory keyword index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	idx, err := bleve.Open(path)
	if err == nil {
		return &Index{idx: idx}, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("failed to open keyword index: %w", err)
	}

	idx, err = bleve.New(path, NewMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Put indexes text under docID, replacing any previous entry
func (i *Index) Put(docID, text string) error {
	return i.idx.Index(docID, document{DocID: docID, Text: text})
}

// Delete removes docID; deleting a missing document is not an error
func (i *Index) Delete(docID string) error {
	return i.idx.Delete(docID)
}

// Search returns up to k documents matching query, best first. Equal scores
// are ordered by document ID.
func (i *Index) Search(query string, k int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}

	match := bleve.NewMatchQuery(query)
	match.SetField(FieldText)

	req := bleve.NewSearchRequest(match)
	req.Size = k
	req.SortBy([]string{"-_score", "_id"})

	results, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	hits := make([]Hit, 0, len(results.Hits))
	for _, h := range results.Hits {
		hits = append(hits, Hit{DocID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Count returns the number of indexed documents
func (i *Index) Count() (uint64, error) {
	return i.idx.DocCount()
}

// Close closes the underlying index
func (i *Index) Close() error {
	return i.idx.Close()
}
