package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codescribe/internal/pipeline"
	"github.com/dshills/codescribe/internal/report"
	"github.com/dshills/codescribe/internal/searcher"
	"github.com/dshills/codescribe/internal/service"
	"github.com/dshills/codescribe/internal/storage"
	"github.com/dshills/codescribe/pkg/types"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()
	require.NotNil(t, theme)
	assert.NotEmpty(t, string(theme.Primary))
	assert.NotEqual(t, theme.Success, theme.Error)
}

func TestRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, nil)

	b := types.NewBundle("run-42", "/src/demo", time.Now())
	b.Module = "example.com/demo"
	b.UnitSummaries["a.go"] = types.Summary{UnitID: "a.go", Text: "x", GeneratedAt: time.Now()}
	b.Skipped = []types.Skip{
		{UnitID: "b.go", Stage: types.StageExtract, Reason: "b.go:1:1: expected\n'package'"},
		{Stage: types.StageOverview, Reason: "timeout"},
	}

	p.RunSummary(&pipeline.Result{
		Bundle: b,
		Stats:  pipeline.Stats{UnitsFound: 2, UnitsSummarized: 1, DocumentsIndexed: 1, Duration: 1500 * time.Millisecond},
	}, []report.WriteResult{
		{Path: "docs/project_documentation.json"},
		{Path: "docs/project_documentation.md", Err: errors.New("disk full")},
	})

	out := buf.String()
	assert.Contains(t, out, "Documentation run complete")
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "example.com/demo")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "✓ docs/project_documentation.json")
	assert.Contains(t, out, "✗ docs/project_documentation.md: disk full")
	assert.Contains(t, out, "Skipped (2)")
	assert.Contains(t, out, "b.go [extract] b.go:1:1: expected 'package'")
	assert.Contains(t, out, "(project) [overview] timeout")
	assert.NotContains(t, out, "\x1b[", "non-terminal output has no colour codes")
}

func TestSearchResults(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, nil)

	p.SearchResults("auth", &searcher.Response{
		Mode: searcher.SearchModeVector,
		Hits: []types.SearchHit{{DocID: "a.go", RawText: strings.Repeat("login ", 100), Score: 0.91234, Rank: 1}},
	})

	out := buf.String()
	assert.Contains(t, out, "Results for auth")
	assert.Contains(t, out, "mode=vector hits=1")
	assert.Contains(t, out, "1. a.go (0.9123)")
	assert.Contains(t, out, "…")

	buf.Reset()
	p.SearchResults("nothing", &searcher.Response{Mode: searcher.SearchModeKeyword})
	assert.Contains(t, buf.String(), "no matches")
}

func TestStatus(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, nil)

	p.Status(".codescribe", &storage.Status{Documents: 0, BuildMode: "purego"}, nil)
	assert.Contains(t, buf.String(), "(empty index)")

	buf.Reset()
	started := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	p.Status(".codescribe", &storage.Status{
		Documents: 3,
		BuildMode: "purego",
		Meta:      &storage.IndexMeta{Model: "mxbai-embed-large", Dimension: 1024},
	}, []*storage.Run{{RunID: "r1", Root: "/src", StartedAt: started, UnitsSummarized: 3, DocumentsIndexed: 3}})

	out := buf.String()
	assert.Contains(t, out, "mxbai-embed-large")
	assert.Contains(t, out, "1024")
	assert.Contains(t, out, "Recent runs")
	assert.Contains(t, out, "2026-05-06T07:08:09Z r1 /src summarized=3 skipped=0 indexed=3")
}

func TestIngest(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, nil)

	p.Ingest(&service.IngestResult{
		Dir:      "/reports",
		Indexed:  []string{"billing.md", "shop.md"},
		Skipped:  []types.Skip{{UnitID: "broken.bin", Stage: types.StageRead, Reason: "invalid utf-8"}},
		Duration: 2 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "Reports indexed")
	assert.Contains(t, out, "/reports")
	assert.Contains(t, out, "Skipped (1)")
	assert.Contains(t, out, "broken.bin [read] invalid utf-8")

	buf.Reset()
	p.Ingest(&service.IngestResult{Dir: "/empty"})
	assert.NotContains(t, buf.String(), "Skipped")
}

func TestCheckAndError(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, nil)

	p.Check("generation", "gpt-4o-mini", "12 chars", nil)
	p.Check("embedding", "mxbai", "", errors.New("connection refused"))
	p.Error(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "✓ generation (gpt-4o-mini) 12 chars")
	assert.Contains(t, out, "✗ embedding (mxbai): connection refused")
	assert.Contains(t, out, "error: boom")
}
