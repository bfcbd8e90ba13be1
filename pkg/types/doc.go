// Package types provides shared type definitions for codescribe.
//
// This package defines the domain types that flow between the extractor,
// the synthesizer, the embedding index, and the report assembler.
//
// # Core Types
//
// SourceUnit is one file read from the project tree. It is immutable once read:
//
//	unit := types.SourceUnit{
//	    ID:       "internal/auth/login.go",
//	    Path:     "/src/project/internal/auth/login.go",
//	    Text:     content,
//	    Language: types.LanguageGo,
//	}
//
// FactRecord is the structural extraction of a SourceUnit. Declarations and
// callables keep their source order so prompts and reports are stable:
//
//	facts := &types.FactRecord{
//	    UnitID:       unit.ID,
//	    Declarations: []types.Declaration{{Name: "LoginService", MemberNames: []string{"Login"}}},
//	    Callables:    []types.Callable{{Name: "NewLoginService", ParameterNames: []string{"repo"}, SizeMetric: 42}},
//	    References:   []string{`"context"`},
//	}
//
// Summary is generated text for one unit. DocumentationBundle aggregates the
// summaries of a run together with the project overview and the
// module-interaction narrative.
//
// # Errors
//
// The error taxonomy of a run is expressed as typed errors that wrap their
// cause: ParseError, GenerationError, EmbeddingError and IOError. Use
// errors.As to classify a failure:
//
//	var genErr *types.GenerationError
//	if errors.As(err, &genErr) {
//	    // skip the summary, continue the batch
//	}
//
// # Roles
//
// Declarations carry naming-convention roles (repository, service, handler,
// ...) that feed the generation prompts:
//
//	decl.HasRole(types.RoleRepository)
package types
