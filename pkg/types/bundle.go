package types

import (
	"strings"
	"time"
)

// Summary is generated text describing one unit
type Summary struct {
	UnitID      string    `json:"unit_id"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Validate checks if the summary is usable
func (s *Summary) Validate() error {
	if s.UnitID == "" {
		return ErrMissingUnitID
	}
	if strings.TrimSpace(s.Text) == "" {
		return ErrEmptySummary
	}
	if s.GeneratedAt.IsZero() {
		return ErrMissingGeneration
	}
	return nil
}

// Stage names the pipeline step at which a unit was skipped
type Stage string

const (
	StageRead      Stage = "read"
	StageExtract   Stage = "extract"
	StageSummarize Stage = "summarize"
	StageIndex     Stage = "index"
	StageOverview  Stage = "overview"
	StageInteract  Stage = "module_interactions"
)

// Skip records why a unit did not make it into the bundle
type Skip struct {
	UnitID string `json:"unit_id"`
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// DocumentationBundle is the aggregate result of one pipeline run
type DocumentationBundle struct {
	RunID              string                `json:"run_id,omitempty"`
	Root               string                `json:"root,omitempty"`
	Module             string                `json:"module,omitempty"` // Module path from go.mod, if any
	GeneratedAt        time.Time             `json:"generated_at"`
	ProjectOverview    string                `json:"project_overview"`
	UnitSummaries      map[string]Summary    `json:"unit_summaries"`
	Facts              map[string]FactRecord `json:"facts,omitempty"`
	ModuleInteractions string                `json:"module_interactions"`
	Skipped            []Skip                `json:"skipped,omitempty"`
}

// NewBundle creates an empty bundle
func NewBundle(runID, root string, at time.Time) *DocumentationBundle {
	return &DocumentationBundle{
		RunID:         runID,
		Root:          root,
		GeneratedAt:   at,
		UnitSummaries: make(map[string]Summary),
		Facts:         make(map[string]FactRecord),
	}
}
