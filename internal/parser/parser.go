package parser

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"path/filepath"
	"strings"

	"github.com/dshills/codescribe/pkg/types"
)

// languageBySuffix maps file suffixes to the language tags the parser understands
var languageBySuffix = map[string]string{
	".go": types.LanguageGo,
}

// LanguageForPath returns the language tag for a file path, or "" if unknown
func LanguageForPath(path string) string {
	return languageBySuffix[strings.ToLower(filepath.Ext(path))]
}

// Languages returns the supported language tags
func Languages() []string {
	return []string{types.LanguageGo}
}

// Parser extracts structural facts from source units using the Go AST.
// It keeps no state between calls and is safe for concurrent use.
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// Extract parses a source unit and returns its fact record.
// A unit that is not valid source in its language yields a *types.ParseError.
func (p *Parser) Extract(unit types.SourceUnit) (*types.FactRecord, error) {
	if unit.Language != types.LanguageGo {
		return nil, &types.ParseError{
			Unit:    unit.ID,
			Message: fmt.Sprintf("language %q", unit.Language),
			Err:     types.ErrUnsupportedLang,
		}
	}

	record := &types.FactRecord{
		UnitID:       unit.ID,
		Language:     unit.Language,
		Declarations: make([]types.Declaration, 0),
		Callables:    make([]types.Callable, 0),
		References:   make([]string, 0),
		DocComments:  make([]string, 0),
	}

	// A blank file declares nothing; go/parser would reject the missing package clause
	if strings.TrimSpace(unit.Text) == "" {
		return record, nil
	}

	// Positions are only needed until the ParseError is built
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, unit.ID, unit.Text, parser.ParseComments|parser.AllErrors)
	if err != nil {
		return nil, newParseError(unit.ID, err)
	}

	record.References = extractReferences(file)
	if file.Name != nil {
		record.Package = file.Name.Name
	}

	e := &factExtractor{record: record, byName: make(map[string]int)}
	e.collectDocComments(file)
	e.collectTypes(file)
	e.collectFuncs(file)

	return record, nil
}

// newParseError converts a go/parser failure into a ParseError positioned at
// the first reported syntax error
func newParseError(unitID string, err error) *types.ParseError {
	pe := &types.ParseError{Unit: unitID, Message: err.Error(), Err: err}

	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		pe.Line = list[0].Pos.Line
		pe.Column = list[0].Pos.Column
		pe.Message = list[0].Msg
	}
	return pe
}

// extractReferences renders import specs as they appear in source
func extractReferences(file *ast.File) []string {
	refs := make([]string, 0, len(file.Imports))

	for _, imp := range file.Imports {
		ref := imp.Path.Value
		if imp.Name != nil {
			ref = imp.Name.Name + " " + ref
		}
		refs = append(refs, ref)
	}

	return refs
}

// factExtractor accumulates declarations and callables for one file
type factExtractor struct {
	record *types.FactRecord
	byName map[string]int // declaration name -> index in record.Declarations
}

// collectDocComments gathers the package doc followed by top-level declaration docs
func (e *factExtractor) collectDocComments(file *ast.File) {
	e.addDoc(file.Doc)

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			e.addDoc(d.Doc)
		case *ast.GenDecl:
			if d.Tok == token.IMPORT {
				continue
			}
			e.addDoc(d.Doc)
			if d.Lparen.IsValid() {
				for _, spec := range d.Specs {
					switch s := spec.(type) {
					case *ast.TypeSpec:
						e.addDoc(s.Doc)
					case *ast.ValueSpec:
						e.addDoc(s.Doc)
					}
				}
			}
		}
	}
}

func (e *factExtractor) addDoc(doc *ast.CommentGroup) {
	if doc == nil {
		return
	}
	if text := strings.TrimSpace(doc.Text()); text != "" {
		e.record.DocComments = append(e.record.DocComments, text)
	}
}

// collectTypes records every type declared at top level in source order
func (e *factExtractor) collectTypes(file *ast.File) {
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}

		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			e.addTypeSpec(typeSpec)
		}
	}
}

func (e *factExtractor) addTypeSpec(typeSpec *ast.TypeSpec) {
	decl := types.Declaration{
		Name:        typeSpec.Name.Name,
		Kind:        types.DeclType,
		MemberNames: make([]string, 0),
	}

	switch t := typeSpec.Type.(type) {
	case *ast.StructType:
		decl.Kind = types.DeclStruct
		decl.MemberNames = append(decl.MemberNames, fieldNames(t.Fields)...)
	case *ast.InterfaceType:
		decl.Kind = types.DeclInterface
		decl.MemberNames = append(decl.MemberNames, fieldNames(t.Methods)...)
	}

	decl.Roles = detectRoles(decl.Name, decl.MemberNames)

	e.byName[decl.Name] = len(e.record.Declarations)
	e.record.Declarations = append(e.record.Declarations, decl)
}

// collectFuncs attaches methods to their receiver declarations and records
// plain functions as callables
func (e *factExtractor) collectFuncs(file *ast.File) {
	for _, decl := range file.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}

		if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
			e.addMethod(receiverTypeName(funcDecl.Recv.List[0].Type), funcDecl.Name.Name)
			continue
		}

		e.record.Callables = append(e.record.Callables, types.Callable{
			Name:           funcDecl.Name.Name,
			ParameterNames: parameterNames(funcDecl.Type.Params),
			SizeMetric:     countNodes(funcDecl),
		})
	}
}

func (e *factExtractor) addMethod(receiver, method string) {
	if receiver == "" {
		return
	}

	idx, ok := e.byName[receiver]
	if !ok {
		// Receiver type lives in another file of the package
		idx = len(e.record.Declarations)
		e.byName[receiver] = idx
		e.record.Declarations = append(e.record.Declarations, types.Declaration{
			Name:        receiver,
			Kind:        types.DeclExternal,
			MemberNames: make([]string, 0),
		})
	}

	d := &e.record.Declarations[idx]
	d.MemberNames = append(d.MemberNames, method)
	if d.Kind == types.DeclExternal {
		d.Roles = detectRoles(d.Name, nil)
	}
}

// countNodes returns the number of syntax nodes reachable from n
func countNodes(n ast.Node) int {
	count := 0
	ast.Inspect(n, func(node ast.Node) bool {
		if node != nil {
			count++
		}
		return true
	})
	return count
}

// fieldNames lists named fields, or the type name for embedded fields
func fieldNames(fields *ast.FieldList) []string {
	if fields == nil {
		return nil
	}

	var names []string
	for _, field := range fields.List {
		if len(field.Names) == 0 {
			if name := embeddedName(field.Type); name != "" {
				names = append(names, name)
			}
			continue
		}
		for _, name := range field.Names {
			names = append(names, name.Name)
		}
	}
	return names
}

// parameterNames lists parameter names in order; unnamed parameters are "_"
func parameterNames(params *ast.FieldList) []string {
	names := make([]string, 0)
	if params == nil {
		return names
	}

	for _, field := range params.List {
		if len(field.Names) == 0 {
			names = append(names, "_")
			continue
		}
		for _, name := range field.Names {
			names = append(names, name.Name)
		}
	}
	return names
}

// receiverTypeName extracts the base type name of a method receiver
func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	case *ast.ParenExpr:
		return receiverTypeName(t.X)
	}
	return ""
}

// embeddedName returns the name an embedded field is accessed by
func embeddedName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return embeddedName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.IndexExpr:
		return embeddedName(t.X)
	case *ast.IndexListExpr:
		return embeddedName(t.X)
	}
	return ""
}
