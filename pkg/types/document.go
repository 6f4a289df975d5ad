package types

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Document is one directory of the content tree loaded into memory:
// the metadata descriptor, the raw markdown, and the plain text the
// chunker consumes. Documents are transient; only their chunks persist.
type Document struct {
	DirectoryPath string
	MarkdownFile  string
	MetadataFile  string

	Metadata Metadata

	RawContent       string
	ProcessedContent string

	// Chunks is populated by the pipeline after chunking.
	Chunks []Chunk

	FileSizeBytes int64
	FileModTime   time.Time
}

// ContentHash fingerprints the document for change detection. It covers
// the raw content plus the metadata fields that alter indexed rows, so
// a title edit forces a reindex even when the body is untouched.
func (d *Document) ContentHash() string {
	h := sha256.New()
	h.Write([]byte(d.RawContent))
	fmt.Fprintf(h, "|%s|%s|%s|%s",
		d.Metadata.Title, d.Metadata.Slug, d.Metadata.Category, d.Metadata.LastModified)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ChunkCount returns the number of chunks produced so far.
func (d *Document) ChunkCount() int {
	return len(d.Chunks)
}

// TotalWordCount sums the word counts of all chunks.
func (d *Document) TotalWordCount() int {
	total := 0
	for i := range d.Chunks {
		total += d.Chunks[i].WordCount
	}
	return total
}
