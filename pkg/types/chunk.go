package types

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Chunk is a contiguous slice of a document's processed text, the atomic
// unit of embedding and retrieval.
type Chunk struct {
	// ChunkID is deterministic: {category}_{slug}_{index:03d}. Re-chunking
	// identical content yields identical IDs, which makes replace-on-reindex
	// at the storage layer idempotent.
	ChunkID string

	// Source information
	Slug     string
	Category Category

	// Content
	Content    string
	ChunkIndex int

	// Character offsets into the processed document text. Ranges of
	// consecutive chunks may overlap by the configured overlap window but
	// never move backwards.
	StartChar int
	EndChar   int

	WordCount int
	CharCount int

	// SectionTitle is set when the chunk was produced by the section-aware
	// strategy.
	SectionTitle string
}

// ChunkID formats the deterministic chunk identifier.
func ChunkID(category Category, slug string, index int) string {
	return fmt.Sprintf("%s_%s_%03d", category, slug, index)
}

// ContentHash returns a hash of the chunk content for change detection.
func (c *Chunk) ContentHash() string {
	sum := sha256.Sum256([]byte(c.Content))
	return fmt.Sprintf("%x", sum)
}

// Validate checks the chunk invariants.
func (c *Chunk) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return ErrEmptyContent
	}
	if c.ChunkID == "" {
		return fmt.Errorf("%w: chunk ID is empty", ErrInvalidChunk)
	}
	if c.ChunkIndex < 0 {
		return fmt.Errorf("%w: negative chunk index", ErrInvalidChunk)
	}
	if c.StartChar < 0 || c.EndChar < c.StartChar {
		return fmt.Errorf("%w: bad character range [%d, %d)", ErrInvalidChunk, c.StartChar, c.EndChar)
	}
	return nil
}
