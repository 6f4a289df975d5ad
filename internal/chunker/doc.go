// Package chunker splits processed document text into ordered,
// size-bounded chunks ready for embedding.
//
// Three strategies are available, chosen by configuration: a simple
// character window with sentence-boundary pullback, a recursive splitter
// that prefers paragraph and sentence separators, and a section-aware
// splitter keyed on heading lines. All strategies emit chunks whose
// chunk_index matches their position in the returned slice and whose
// identifiers are deterministic for a given document and settings.
package chunker
