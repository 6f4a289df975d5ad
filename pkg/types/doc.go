// Package types provides the shared data model for the content index.
//
// The model distinguishes transient and persisted entities:
//
//   - Document, Chunk and EmbeddingVector exist in memory only. They are
//     rebuilt from the content tree on every indexing run.
//   - IndexRecord is the single persisted entity: the flattened join of a
//     chunk, its embedding, and the denormalized document fields a search
//     result needs.
//
// IndexingResult tracks one indexing operation from start to a terminal
// status, accumulating counters and per-document errors along the way.
//
// # Chunk Identity
//
// Chunk IDs are deterministic, derived from category, slug and ordinal:
//
//	types.ChunkID("blog", "my-post", 2) // "blog_my-post_002"
//
// Chunking the same text with the same configuration twice yields the
// same ID sequence, so re-indexing an unchanged document replaces its
// rows instead of duplicating them.
package types
