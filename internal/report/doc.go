// Package report renders a documentation bundle as JSON, Markdown and HTML
// and writes the results to an output directory.
//
// Rendering is a pure function of the bundle: unit sections are sorted by
// ID and JSON map keys are sorted, so the same bundle always produces the
// same bytes. The HTML page is the Markdown converted by goldmark with raw
// HTML disabled, so generated text cannot inject markup.
package report
