package pipeline

import (
	"context"
	"fmt"

	"github.com/jmorgan/contentindex/internal/embedder"
	"github.com/jmorgan/contentindex/internal/loader"
	"github.com/jmorgan/contentindex/internal/storage"
)

// Stats combines the index's state with the content tree it was built
// from, so drift between the two is visible at a glance.
type Stats struct {
	Index         *storage.TableStats `json:"index"`
	Content       *loader.TreeStats   `json:"content"`
	Model         embedder.ModelInfo  `json:"model"`
	CachedVectors int                 `json:"cached_vectors"`
	DatabasePath  string              `json:"database_path"`
}

// Stats gathers store and content-tree statistics.
func (p *Pipeline) Stats(ctx context.Context) (*Stats, error) {
	index, err := p.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}

	content, err := p.loader.Stats()
	if err != nil {
		return nil, fmt.Errorf("content stats: %w", err)
	}

	return &Stats{
		Index:         index,
		Content:       content,
		Model:         p.embedder.Info(),
		CachedVectors: p.embedder.CacheLen(),
		DatabasePath:  p.store.Path(),
	}, nil
}

// Health reports whether each dependency of the engine works.
type Health struct {
	Healthy        bool     `json:"healthy"`
	Database       bool     `json:"database"`
	EmbeddingModel bool     `json:"embedding_model"`
	SampleSearch   bool     `json:"sample_search"`
	IndexedChunks  int64    `json:"indexed_chunks"`
	Notes          []string `json:"notes,omitempty"`
}

// Health checks the store, the embedding model, and, when the index has
// rows, a sample search through the full read path.
func (p *Pipeline) Health(ctx context.Context) *Health {
	h := &Health{}

	if err := p.store.Ping(ctx); err != nil {
		h.Notes = append(h.Notes, fmt.Sprintf("database: %v", err))
	} else {
		h.Database = true
		if n, err := p.store.Count(ctx); err == nil {
			h.IndexedChunks = n
		} else {
			h.Notes = append(h.Notes, fmt.Sprintf("index not initialized: %v", err))
		}
	}

	if err := p.embedder.SelfTest(ctx); err != nil {
		h.Notes = append(h.Notes, fmt.Sprintf("embedding model: %v", err))
	} else {
		h.EmbeddingModel = true
	}

	// A sample search only proves anything when both halves work and
	// there is something to find.
	if h.Database && h.EmbeddingModel && h.IndexedChunks > 0 {
		if _, err := p.SemanticSearch(ctx, "health check", 1, ""); err != nil {
			h.Notes = append(h.Notes, fmt.Sprintf("sample search: %v", err))
		} else {
			h.SampleSearch = true
		}
	}

	h.Healthy = h.Database && h.EmbeddingModel && (h.IndexedChunks == 0 || h.SampleSearch)
	return h
}
