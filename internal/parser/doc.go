// Package parser extracts structural facts from source units using Go's AST.
//
// The parser relies on go/parser, go/ast and go/token. It is a pure function
// of file contents: no filesystem access happens here, the pipeline reads the
// unit and hands over its text.
//
// # Basic Usage
//
//	p := parser.New()
//	facts, err := p.Extract(types.SourceUnit{ID: "auth/login.go", Text: src, Language: types.LanguageGo})
//	var perr *types.ParseError
//	if errors.As(err, &perr) {
//	    // skip the unit
//	}
//
// # Extracted Facts
//
//   - Declarations: every top-level type in source order. Members are struct
//     field names or interface method names, followed by the methods declared
//     on the type. Methods whose receiver is declared in another file produce
//     an "external" declaration.
//   - Callables: top-level functions with their parameter names. SizeMetric is
//     the number of AST nodes reachable from the function declaration.
//   - References: import specs, quoted, with an alias prefix when present.
//   - DocComments: the package comment followed by top-level declaration docs.
//
// # Roles
//
// Declarations are tagged by naming convention (Repository, Service,
// Handler, Command, Query, Aggregate, ValueObject, Entity). Types with an ID
// field and no other role are tagged as entities.
package parser
