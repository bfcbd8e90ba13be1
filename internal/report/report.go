package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dshills/codescribe/pkg/types"
)

// Artifact file names
const (
	JSONFile     = "project_documentation.json"
	MarkdownFile = "project_documentation.md"
	HTMLFile     = "project_documentation.html"
)

const title = "Project Documentation"

var ErrNilBundle = errors.New("bundle is nil")

// Artifacts are the three renderings of one bundle
type Artifacts struct {
	Structured []byte // JSON document mirroring the bundle
	Markdown   []byte
	HTML       []byte
}

// WriteResult reports the outcome of writing one artifact
type WriteResult struct {
	Path string
	Err  error
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2em auto; padding: 0 1em; line-height: 1.5; }
code, pre { background: #f4f4f4; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.25em 0.5em; text-align: left; }
</style>
</head>
<body>
<main>
{{.Body}}
</main>
</body>
</html>
`))

// Render produces all artifacts for bundle. Output depends only on the
// bundle contents.
func Render(bundle *types.DocumentationBundle) (*Artifacts, error) {
	if bundle == nil {
		return nil, ErrNilBundle
	}

	structured, err := RenderJSON(bundle)
	if err != nil {
		return nil, err
	}

	md := RenderMarkdown(bundle)

	html, err := RenderHTML(bundle.Module, md)
	if err != nil {
		return nil, err
	}

	return &Artifacts{Structured: structured, Markdown: md, HTML: html}, nil
}

// RenderJSON encodes the bundle with sorted map keys and a trailing newline
func RenderJSON(bundle *types.DocumentationBundle) ([]byte, error) {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderMarkdown lays out the bundle as a narrative document
func RenderMarkdown(bundle *types.DocumentationBundle) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	if bundle.Module != "" {
		fmt.Fprintf(&b, "Module: `%s`\n\n", bundle.Module)
	}
	if !bundle.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated: %s\n\n", bundle.GeneratedAt.UTC().Format(time.RFC3339))
	}

	b.WriteString("## Project Overview\n\n")
	b.WriteString(orPlaceholder(bundle.ProjectOverview, "_No overview was generated._"))
	b.WriteString("\n\n## Module Interactions\n\n")
	b.WriteString(orPlaceholder(bundle.ModuleInteractions, "_No module interaction analysis was generated._"))
	b.WriteString("\n\n## File Summaries\n")

	ids := make([]string, 0, len(bundle.UnitSummaries))
	for id := range bundle.UnitSummaries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		b.WriteString("\n_No file summaries were generated._\n")
	}

	for _, id := range ids {
		fmt.Fprintf(&b, "\n### %s\n\n", id)
		b.WriteString(strings.TrimSpace(bundle.UnitSummaries[id].Text))
		b.WriteString("\n")

		if fact, ok := bundle.Facts[id]; ok {
			writeComponents(&b, &fact)
		}
	}

	if len(bundle.Skipped) > 0 {
		b.WriteString("\n## Skipped Units\n\n")
		b.WriteString("| Unit | Stage | Reason |\n")
		b.WriteString("|------|-------|--------|\n")
		for _, s := range bundle.Skipped {
			unit := s.UnitID
			if unit == "" {
				unit = "(project)"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(unit), s.Stage, cell(s.Reason))
		}
	}

	return []byte(b.String())
}

func writeComponents(b *strings.Builder, fact *types.FactRecord) {
	b.WriteString("\n#### Detailed Components\n\n")

	if len(fact.Declarations) == 0 && len(fact.Callables) == 0 {
		b.WriteString("- None\n")
		return
	}

	for _, d := range fact.Declarations {
		fmt.Fprintf(b, "- **%s** `%s`", d.Kind, d.Name)
		if len(d.MemberNames) > 0 {
			fmt.Fprintf(b, ": %s", strings.Join(d.MemberNames, ", "))
		}
		if len(d.Roles) > 0 {
			roles := make([]string, len(d.Roles))
			for i, r := range d.Roles {
				roles[i] = string(r)
			}
			fmt.Fprintf(b, " _(%s)_", strings.Join(roles, ", "))
		}
		b.WriteString("\n")
	}

	for _, c := range fact.Callables {
		fmt.Fprintf(b, "- **func** `%s(%s)` size %d\n", c.Name, strings.Join(c.ParameterNames, ", "), c.SizeMetric)
	}
}

// RenderHTML converts markdown into a standalone page
func RenderHTML(module string, md []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert(md, &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	pageTitle := title
	if module != "" {
		pageTitle += ": " + module
	}

	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: pageTitle,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return out.Bytes(), nil
}

// Write stores each artifact under dir. Every write is attempted even if an
// earlier one fails; the results list one entry per artifact.
func Write(dir string, a *Artifacts) []WriteResult {
	files := []struct {
		name string
		data []byte
	}{
		{JSONFile, a.Structured},
		{MarkdownFile, a.Markdown},
		{HTMLFile, a.HTML},
	}

	mkErr := os.MkdirAll(dir, 0o755)

	results := make([]WriteResult, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if mkErr != nil {
			results = append(results, WriteResult{Path: path, Err: &types.IOError{Op: "write", Path: path, Err: mkErr}})
			continue
		}

		var err error
		if werr := os.WriteFile(path, f.data, 0o644); werr != nil {
			err = &types.IOError{Op: "write", Path: path, Err: werr}
		}
		results = append(results, WriteResult{Path: path, Err: err})
	}
	return results
}

func orPlaceholder(text, placeholder string) string {
	if t := strings.TrimSpace(text); t != "" {
		return t
	}
	return placeholder
}

// cell makes text safe inside a markdown table cell
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
