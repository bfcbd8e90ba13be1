// Package pipeline runs one documentation pass over a source tree.
//
// A run discovers files under a root, extracts facts from each, asks the
// synthesizer for a project overview, one summary per unit and a module
// interaction narrative, and optionally stores every summary in the index
// keyed by unit ID. Extraction and summarization use a bounded worker pool.
//
// Failures that concern a single unit (unreadable file, invalid UTF-8,
// syntax error, failed generation, failed embedding) are logged and
// recorded as a types.Skip with the stage at which the unit dropped out;
// the run continues. A failed overview or interaction call leaves that field
// empty. Run only returns an error when the root cannot be walked or the
// context is cancelled.
//
// Unit IDs are slash-separated paths relative to the root, so re-running
// over the same tree overwrites earlier summaries and index entries instead
// of adding new ones.
package pipeline
