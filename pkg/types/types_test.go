package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "blog_my-post_000", ChunkID(CategoryBlog, "my-post", 0))
	assert.Equal(t, "engineering_search_042", ChunkID(CategoryEngineering, "search", 42))
	assert.Equal(t, "blog_my-post_1000", ChunkID(CategoryBlog, "my-post", 1000))
}

func TestChunkValidate(t *testing.T) {
	valid := Chunk{
		ChunkID:    ChunkID(CategoryBlog, "post", 0),
		Slug:       "post",
		Category:   CategoryBlog,
		Content:    "some content",
		ChunkIndex: 0,
		StartChar:  0,
		EndChar:    12,
	}
	assert.NoError(t, valid.Validate())

	empty := valid
	empty.Content = "   \n"
	assert.ErrorIs(t, empty.Validate(), ErrEmptyContent)

	noID := valid
	noID.ChunkID = ""
	assert.ErrorIs(t, noID.Validate(), ErrInvalidChunk)

	badRange := valid
	badRange.StartChar = 10
	badRange.EndChar = 5
	assert.ErrorIs(t, badRange.Validate(), ErrInvalidChunk)
}

// validMetadata returns a descriptor passing every Validate check.
func validMetadata() Metadata {
	return Metadata{
		Title:        "A Post",
		Slug:         "a-post",
		Author:       "Jane Author",
		PublishDate:  "2025-03-01",
		LastModified: "2025-03-02",
		Category:     CategoryBlog,
		Description:  "A short description.",
		Excerpt:      "An excerpt.",
		ReadingTime:  3,
		WordCount:    600,
	}
}

func TestMetadataValidate(t *testing.T) {
	supported := []Category{CategoryBlog, CategoryEngineering}

	m := validMetadata()
	require.NoError(t, m.Validate(supported))
	assert.Equal(t, StatusPublished, m.Status, "empty status defaults to published")

	// Every descriptive field is required, not just title and slug.
	blank := map[string]func(*Metadata){
		"title":         func(m *Metadata) { m.Title = "" },
		"slug":          func(m *Metadata) { m.Slug = " " },
		"author":        func(m *Metadata) { m.Author = "" },
		"publish_date":  func(m *Metadata) { m.PublishDate = "" },
		"last_modified": func(m *Metadata) { m.LastModified = "" },
		"description":   func(m *Metadata) { m.Description = "" },
		"excerpt":       func(m *Metadata) { m.Excerpt = "" },
		"reading_time":  func(m *Metadata) { m.ReadingTime = 0 },
		"word_count":    func(m *Metadata) { m.WordCount = -1 },
	}
	for field, clear := range blank {
		m := validMetadata()
		clear(&m)
		err := m.Validate(supported)
		assert.ErrorIs(t, err, ErrInvalidMetadata, field)
		assert.Contains(t, err.Error(), field)
	}

	m = validMetadata()
	m.Category = "recipes"
	assert.ErrorIs(t, m.Validate(supported), ErrInvalidMetadata)

	m = validMetadata()
	m.Status = "pending"
	assert.ErrorIs(t, m.Validate(supported), ErrInvalidMetadata)

	m = validMetadata()
	m.Status = StatusDraft
	assert.NoError(t, m.Validate(supported))
}

func TestCanonicalURL(t *testing.T) {
	m := Metadata{Slug: "my-post", Category: CategoryBlog}
	assert.Equal(t, "https://example.com/blog/my-post/", m.CanonicalURL("https://example.com"))
	assert.Equal(t, "https://example.com/blog/my-post/", m.CanonicalURL("https://example.com/"))
	assert.Equal(t, "", m.CanonicalURL(""))
}

func TestDocumentContentHash(t *testing.T) {
	doc := Document{
		RawContent: "# Title\n\nBody text.",
		Metadata:   Metadata{Title: "A Post", Slug: "a-post", Category: CategoryBlog},
	}
	base := doc.ContentHash()
	assert.Equal(t, base, doc.ContentHash(), "hash is deterministic")

	edited := doc
	edited.RawContent += " More."
	assert.NotEqual(t, base, edited.ContentHash())

	retitled := doc
	retitled.Metadata.Title = "A Post, Renamed"
	assert.NotEqual(t, base, retitled.ContentHash(), "title edits change the hash")

	touched := doc
	touched.Metadata.LastModified = "2025-06-01"
	assert.NotEqual(t, base, touched.ContentHash())

	// Fields that never reach indexed rows do not affect the hash.
	reattributed := doc
	reattributed.Metadata.Author = "Someone Else"
	assert.Equal(t, base, reattributed.ContentHash())
}

func TestIndexingResultLifecycle(t *testing.T) {
	r := NewIndexingResult()
	assert.NotEmpty(t, r.OperationID)
	assert.Equal(t, StatusRunning, r.Status)
	assert.True(t, r.CompletedAt.IsZero())
	assert.Equal(t, time.Duration(0), r.Duration())

	r.Finish(StatusCompleted)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.False(t, r.CompletedAt.IsZero())
	assert.GreaterOrEqual(t, r.Duration(), time.Duration(0))

	// Terminal states are final.
	r.Finish(StatusFailed)
	assert.Equal(t, StatusCompleted, r.Status)
}

func TestIndexingResultSuccessRate(t *testing.T) {
	r := NewIndexingResult()
	assert.Equal(t, 0.0, r.SuccessRate())

	r.DocsProcessed = 3
	r.DocsSkipped = 1
	assert.InDelta(t, 0.75, r.SuccessRate(), 1e-9)
}

func TestEmbeddingVectorValidate(t *testing.T) {
	e := EmbeddingVector{Vector: []float32{1, 2, 3}, VectorDim: 5}
	require.NoError(t, e.Validate())
	assert.Equal(t, 3, e.VectorDim, "declared dimension corrected from the vector")

	empty := EmbeddingVector{}
	assert.ErrorIs(t, empty.Validate(), ErrEmptyVector)
}

func TestVectorHash(t *testing.T) {
	a := EmbeddingVector{Vector: []float32{0.1, 0.2}}
	b := EmbeddingVector{Vector: []float32{0.1, 0.2}}
	c := EmbeddingVector{Vector: []float32{0.2, 0.1}}
	assert.Equal(t, a.VectorHash(), b.VectorHash())
	assert.NotEqual(t, a.VectorHash(), c.VectorHash())
}

func TestNewIndexRecord(t *testing.T) {
	doc := &Document{
		RawContent: "body",
		Metadata: Metadata{
			Title:       "A Post",
			Slug:        "a-post",
			Category:    CategoryBlog,
			PublishDate: "2025-03-01",
			Tags:        []string{"go"},
		},
	}
	chunk := &Chunk{
		ChunkID:    ChunkID(CategoryBlog, "a-post", 2),
		Slug:       "a-post",
		Category:   CategoryBlog,
		Content:    "chunk text",
		ChunkIndex: 2,
		StartChar:  100,
		EndChar:    110,
		WordCount:  2,
	}
	emb := &EmbeddingVector{
		ChunkID:      chunk.ChunkID,
		Vector:       []float32{1, 0},
		VectorDim:    2,
		ModelName:    "test-model",
		ModelVersion: "1",
		CreatedAt:    time.Now().UTC(),
	}

	rec := NewIndexRecord(doc, chunk, emb, "https://example.com")
	assert.Equal(t, "blog_a-post_002", rec.ChunkID)
	assert.Equal(t, "A Post", rec.Title)
	assert.Equal(t, "https://example.com/blog/a-post/", rec.URL)
	assert.Equal(t, doc.ContentHash(), rec.ContentHash)
	assert.Equal(t, "test-model", rec.ModelName)

	require.NoError(t, rec.Validate())

	rec.Vector = nil
	assert.ErrorIs(t, rec.Validate(), ErrEmptyVector)
}

func TestDocumentCounts(t *testing.T) {
	doc := Document{Chunks: []Chunk{{WordCount: 10}, {WordCount: 7}}}
	assert.Equal(t, 2, doc.ChunkCount())
	assert.Equal(t, 17, doc.TotalWordCount())
}
