package types

// SearchHit is one ranked entry returned from the embedding index
type SearchHit struct {
	DocID   string  `json:"doc_id"`
	RawText string  `json:"raw_text"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"` // Position in result set (1-based)
}

// Validate checks if the hit is well formed
func (h *SearchHit) Validate() error {
	if h.DocID == "" {
		return ErrMissingDocID
	}
	if h.Rank < 1 {
		return ErrInvalidRank
	}
	return nil
}

// EmbeddingRecord is one stored entry of the embedding index
type EmbeddingRecord struct {
	DocID   string    `json:"doc_id"`
	Vector  []float32 `json:"vector"`
	RawText string    `json:"raw_text"`
}
