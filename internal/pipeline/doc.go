// Package pipeline orchestrates indexing and search.
//
// Indexing walks the content tree, chunks each document, embeds the
// chunks, and replaces the document's rows in the store. Documents are
// processed concurrently under a worker limit; one document failing is
// recorded in the result and never aborts the others. A non-forced run
// skips documents whose content hash already matches the index.
//
// Search comes in three modes: semantic (vector distance), keyword
// (weighted term occurrence), and hybrid (both, merged by chunk). The
// semantic path degrades to empty results when the embedding backend is
// unreachable, so a keyword-only deployment still works.
package pipeline
