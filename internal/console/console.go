// Package console renders run reports, search hits and index status for a
// terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/codescribe/internal/pipeline"
	"github.com/dshills/codescribe/internal/report"
	"github.com/dshills/codescribe/internal/searcher"
	"github.com/dshills/codescribe/internal/service"
	"github.com/dshills/codescribe/internal/storage"
	"github.com/dshills/codescribe/pkg/types"
)

// Theme defines the colour palette
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
}

// DefaultTheme returns the default colour theme
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#7C3AED"), // Purple
		Secondary: lipgloss.Color("#06B6D4"), // Cyan
		Muted:     lipgloss.Color("#6C7086"), // Medium gray
		Success:   lipgloss.Color("#A6E3A1"), // Green
		Warning:   lipgloss.Color("#F9E2AF"), // Yellow
		Error:     lipgloss.Color("#F38BA8"), // Red
	}
}

// Printer writes styled output. Colours are dropped when w is not a terminal.
type Printer struct {
	w io.Writer

	title    lipgloss.Style
	subtitle lipgloss.Style
	label    lipgloss.Style
	muted    lipgloss.Style
	success  lipgloss.Style
	warning  lipgloss.Style
	errStyle lipgloss.Style
}

// New creates a Printer for w
func New(w io.Writer, theme *Theme) *Printer {
	if theme == nil {
		theme = DefaultTheme()
	}
	r := lipgloss.NewRenderer(w)

	return &Printer{
		w:        w,
		title:    r.NewStyle().Bold(true).Foreground(theme.Primary),
		subtitle: r.NewStyle().Bold(true).Foreground(theme.Secondary),
		label:    r.NewStyle().Width(18),
		muted:    r.NewStyle().Foreground(theme.Muted),
		success:  r.NewStyle().Foreground(theme.Success),
		warning:  r.NewStyle().Foreground(theme.Warning),
		errStyle: r.NewStyle().Bold(true).Foreground(theme.Error),
	}
}

func (p *Printer) line(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) field(name string, value any) {
	p.line("  %s%v", p.label.Render(name), value)
}

// RunSummary prints the outcome of a pipeline run and its artifact writes
func (p *Printer) RunSummary(res *pipeline.Result, writes []report.WriteResult) {
	b := res.Bundle
	s := res.Stats

	p.line(p.title.Render("Documentation run complete"))
	p.field("Run", b.RunID)
	p.field("Root", b.Root)
	if b.Module != "" {
		p.field("Module", b.Module)
	}
	p.field("Units found", s.UnitsFound)
	p.field("Summarized", p.success.Render(fmt.Sprint(s.UnitsSummarized)))
	p.field("Indexed", s.DocumentsIndexed)
	p.field("Duration", s.Duration.Round(time.Millisecond))

	if len(writes) > 0 {
		p.line("")
		p.line(p.subtitle.Render("Artifacts"))
		for _, wr := range writes {
			if wr.Err != nil {
				p.line("  %s %s: %v", p.errStyle.Render("✗"), wr.Path, wr.Err)
				continue
			}
			p.line("  %s %s", p.success.Render("✓"), wr.Path)
		}
	}

	p.skipped(b.Skipped)
}

// Ingest prints the outcome of indexing a directory of reports
func (p *Printer) Ingest(res *service.IngestResult) {
	p.line(p.title.Render("Reports indexed"))
	p.field("Directory", res.Dir)
	p.field("Indexed", p.success.Render(fmt.Sprint(len(res.Indexed))))
	p.field("Duration", res.Duration.Round(time.Millisecond))
	p.skipped(res.Skipped)
}

func (p *Printer) skipped(skips []types.Skip) {
	if len(skips) == 0 {
		return
	}
	p.line("")
	p.line(p.warning.Render(fmt.Sprintf("Skipped (%d)", len(skips))))
	for _, sk := range skips {
		unit := sk.UnitID
		if unit == "" {
			unit = "(project)"
		}
		p.line("  %s %s %s", unit, p.muted.Render("["+string(sk.Stage)+"]"), oneLine(sk.Reason))
	}
}

// SearchResults prints ranked hits
func (p *Printer) SearchResults(query string, resp *searcher.Response) {
	p.line("%s %s", p.title.Render("Results for"), query)
	p.line(p.muted.Render(fmt.Sprintf("mode=%s hits=%d took=%s", resp.Mode, len(resp.Hits), resp.Duration.Round(time.Microsecond))))

	if len(resp.Hits) == 0 {
		p.line("  no matches")
		return
	}

	for _, h := range resp.Hits {
		p.line("")
		p.line("%s %s %s", p.subtitle.Render(fmt.Sprintf("%d.", h.Rank)), h.DocID, p.muted.Render(fmt.Sprintf("(%.4f)", h.Score)))
		p.line("   %s", excerpt(h.RawText, 240))
	}
}

// Status prints index statistics and recent runs
func (p *Printer) Status(path string, st *storage.Status, runs []*storage.Run) {
	p.line(p.title.Render("Index status"))
	p.field("Path", path)
	p.field("Documents", st.Documents)
	p.field("Storage", fmt.Sprintf("%s, %d bytes", st.BuildMode, st.DatabaseSize))
	if st.Meta != nil {
		p.field("Model", st.Meta.Model)
		p.field("Dimension", st.Meta.Dimension)
	} else {
		p.field("Model", p.muted.Render("(empty index)"))
	}

	if len(runs) == 0 {
		return
	}
	p.line("")
	p.line(p.subtitle.Render("Recent runs"))
	for _, r := range runs {
		p.line("  %s %s %s summarized=%d skipped=%d indexed=%d",
			r.StartedAt.Format(time.RFC3339), r.RunID, r.Root, r.UnitsSummarized, r.UnitsSkipped, r.DocumentsIndexed)
	}
}

// Check prints the outcome of one backend check
func (p *Printer) Check(name, model string, detail string, err error) {
	if err != nil {
		p.line("%s %s (%s): %v", p.errStyle.Render("✗"), name, model, err)
		return
	}
	p.line("%s %s (%s) %s", p.success.Render("✓"), name, model, p.muted.Render(detail))
}

// Error prints err in the error style
func (p *Printer) Error(err error) {
	p.line("%s %v", p.errStyle.Render("error:"), err)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func excerpt(s string, n int) string {
	s = oneLine(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
