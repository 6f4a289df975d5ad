// Package storage is the embedded vector store.
//
// One SQLite table holds everything a search result needs: chunk text,
// document metadata, and the embedding vector serialized as a
// little-endian float32 blob. Vector distance is computed in Go over
// candidate rows; SQLite handles persistence, filtering, and the
// substring matching behind keyword search.
//
// The content table is keyed by chunk_id, so re-indexing a document
// replaces its rows in place. EnsureSchema rebuilds the table when it
// was created for a different embedding model or dimension, or when its
// column layout predates this code. The rebuild drops data and is
// logged; callers must reindex afterwards.
//
// Two SQLite drivers are supported through build tags: modernc.org/sqlite
// for pure Go builds (the default) and mattn/go-sqlite3 when built with
// the cgo_sqlite tag.
package storage
