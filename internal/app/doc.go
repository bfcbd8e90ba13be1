// Package app wires settings, backends, the embedding index and the
// pipeline into the codescribe command tree.
package app
