package synthesizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/codescribe/pkg/types"
)

// UnitPrompt renders the per-unit request
func UnitPrompt(fact *types.FactRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the file %s and explain its purpose and key components.\n\n", fact.UnitID)
	if fact.Package != "" {
		fmt.Fprintf(&b, "Package: %s\n", fact.Package)
	}
	fmt.Fprintf(&b, "Classes: %s\n", list(declarationLabels(fact)))
	fmt.Fprintf(&b, "Functions: %s\n", list(callableLabels(fact)))

	if len(fact.References) > 0 {
		fmt.Fprintf(&b, "Imports: %s\n", strings.Join(fact.References, ", "))
	}
	if len(fact.DocComments) > 0 {
		b.WriteString("\nDocumentation comments:\n")
		for _, c := range fact.DocComments {
			fmt.Fprintf(&b, "- %s\n", oneLine(c))
		}
	}
	return b.String()
}

// AggregatePrompt enumerates every unit's declarations and callables, and
// optionally its references, followed by the instruction
func AggregatePrompt(facts []*types.FactRecord, instruction string, withReferences bool) string {
	sorted := make([]*types.FactRecord, len(facts))
	copy(sorted, facts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UnitID < sorted[j].UnitID })

	var b strings.Builder
	b.WriteString("Project structure:\n")
	for _, f := range sorted {
		fmt.Fprintf(&b, "\nFile: %s\n", f.UnitID)
		fmt.Fprintf(&b, "  Classes: %s\n", list(f.DeclarationNames()))
		fmt.Fprintf(&b, "  Functions: %s\n", list(f.CallableNames()))
		if withReferences {
			fmt.Fprintf(&b, "  Imports: %s\n", list(f.References))
		}
	}
	b.WriteString("\n")
	b.WriteString(instruction)
	return b.String()
}

func declarationLabels(fact *types.FactRecord) []string {
	labels := make([]string, 0, len(fact.Declarations))
	for _, d := range fact.Declarations {
		label := d.Name
		if len(d.MemberNames) > 0 {
			label += " (" + strings.Join(d.MemberNames, ", ") + ")"
		}
		if len(d.Roles) > 0 {
			roles := make([]string, len(d.Roles))
			for i, r := range d.Roles {
				roles[i] = string(r)
			}
			label += " [" + strings.Join(roles, ", ") + "]"
		}
		labels = append(labels, label)
	}
	return labels
}

func callableLabels(fact *types.FactRecord) []string {
	labels := make([]string, 0, len(fact.Callables))
	for _, c := range fact.Callables {
		labels = append(labels, fmt.Sprintf("%s(%s)", c.Name, strings.Join(c.ParameterNames, ", ")))
	}
	return labels
}

func list(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
