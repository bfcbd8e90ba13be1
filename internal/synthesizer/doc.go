// Package synthesizer produces natural-language descriptions of extracted
// source facts and embeds text for the index.
//
// The text and embedding backends are injected as generator.Generator and
// embedder.Embedder so tests can substitute deterministic fakes. Calls are
// made once; failures come back as *types.GenerationError or
// *types.EmbeddingError carrying the cause, and retrying is up to the caller.
//
// Prompts:
//
//   - per unit: the file name, its declarations ("Classes") and top-level
//     functions ("Functions"), imports and doc comments
//   - overview: every unit's declarations and functions, sorted by unit ID
//   - module interactions: as the overview, plus each unit's imports
package synthesizer
