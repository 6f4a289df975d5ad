package types

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EmbeddingVector is a fixed-length float vector attached to a chunk.
//
// Vectors from different models are never comparable; the storage layer
// enforces that a table holds vectors from exactly one (model, dimension)
// pair at a time.
type EmbeddingVector struct {
	ChunkID string

	Vector    []float32
	VectorDim int

	ModelName    string
	ModelVersion string

	CreatedAt        time.Time
	ProcessingTimeMS float64
}

// Validate checks the embedding invariants. A dimension that disagrees
// with the vector length is corrected in place: the vector itself is
// authoritative.
func (e *EmbeddingVector) Validate() error {
	if len(e.Vector) == 0 {
		return ErrEmptyVector
	}
	if e.VectorDim != len(e.Vector) {
		e.VectorDim = len(e.Vector)
	}
	return nil
}

// VectorHash fingerprints the vector values for deduplication.
func (e *EmbeddingVector) VectorHash() string {
	var b strings.Builder
	for i, v := range e.Vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", sum)
}
