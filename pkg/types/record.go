package types

import (
	"strings"
	"time"
)

// IndexRecord is the flattened join of Chunk + EmbeddingVector plus the
// denormalized document fields needed to render a search result without a
// second lookup. It is the only persisted entity.
type IndexRecord struct {
	ChunkID  string
	Slug     string
	Category Category

	// Denormalized document fields
	Title       string
	PublishDate string
	Tags        []string
	URL         string

	Content      string
	ChunkIndex   int
	StartChar    int
	EndChar      int
	WordCount    int
	SectionTitle string

	Vector       []float32
	VectorDim    int
	ModelName    string
	ModelVersion string

	CreatedAt        time.Time
	ProcessingTimeMS float64

	// ContentHash is the owning document's content hash, used to skip
	// unchanged documents on a non-forced reindex.
	ContentHash string
}

// NewIndexRecord flattens a chunk and its embedding with the owning
// document's metadata.
func NewIndexRecord(doc *Document, chunk *Chunk, emb *EmbeddingVector, baseURL string) IndexRecord {
	return IndexRecord{
		ChunkID:          chunk.ChunkID,
		Slug:             chunk.Slug,
		Category:         chunk.Category,
		Title:            doc.Metadata.Title,
		PublishDate:      doc.Metadata.PublishDate,
		Tags:             doc.Metadata.Tags,
		URL:              doc.Metadata.CanonicalURL(baseURL),
		Content:          chunk.Content,
		ChunkIndex:       chunk.ChunkIndex,
		StartChar:        chunk.StartChar,
		EndChar:          chunk.EndChar,
		WordCount:        chunk.WordCount,
		SectionTitle:     chunk.SectionTitle,
		Vector:           emb.Vector,
		VectorDim:        emb.VectorDim,
		ModelName:        emb.ModelName,
		ModelVersion:     emb.ModelVersion,
		CreatedAt:        emb.CreatedAt,
		ProcessingTimeMS: emb.ProcessingTimeMS,
		ContentHash:      doc.ContentHash(),
	}
}

// Validate reports whether the record is fit for insertion. Empty content
// or an empty vector rejects the record; a wrong declared dimension is
// corrected, not rejected.
func (r *IndexRecord) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyContent
	}
	if len(r.Vector) == 0 {
		return ErrEmptyVector
	}
	if r.VectorDim != len(r.Vector) {
		r.VectorDim = len(r.Vector)
	}
	return nil
}
