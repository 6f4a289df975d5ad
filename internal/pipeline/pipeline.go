package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jmorgan/contentindex/internal/chunker"
	"github.com/jmorgan/contentindex/internal/config"
	"github.com/jmorgan/contentindex/internal/embedder"
	"github.com/jmorgan/contentindex/internal/loader"
	"github.com/jmorgan/contentindex/internal/storage"
	"github.com/jmorgan/contentindex/pkg/types"
)

var (
	// ErrDocumentNotFound is returned by IndexOne for an unknown slug
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDocumentExcluded is returned when a document's status keeps it out of the index
	ErrDocumentExcluded = errors.New("document excluded by status")
	// ErrEmptyQuery rejects blank search queries
	ErrEmptyQuery = errors.New("empty query")
)

// Pipeline wires the loader, chunker, embedder, and store into the
// indexing and search operations the CLI exposes.
type Pipeline struct {
	cfg      *config.Config
	loader   *loader.Loader
	chunker  *chunker.Chunker
	embedder *embedder.Generator
	store    *storage.Store
}

// New assembles a pipeline from already-constructed components.
func New(cfg *config.Config, ld *loader.Loader, ck *chunker.Chunker, gen *embedder.Generator, st *storage.Store) *Pipeline {
	return &Pipeline{cfg: cfg, loader: ld, chunker: ck, embedder: gen, store: st}
}

// NewFromConfig builds every component from configuration, failing fast
// on the first constructor error.
func NewFromConfig(cfg *config.Config) (*Pipeline, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", errs[0].Error())
	}

	ld, err := loader.New(cfg)
	if err != nil {
		return nil, err
	}

	ck, err := chunker.New(cfg)
	if err != nil {
		return nil, err
	}

	gen, err := embedder.New(cfg)
	if err != nil {
		return nil, err
	}

	st, err := storage.Open(cfg.Database.Path, cfg.Database.TableName)
	if err != nil {
		_ = gen.Close()
		return nil, err
	}

	return New(cfg, ld, ck, gen, st), nil
}

// Close releases the embedder (persisting its cache) and the store.
func (p *Pipeline) Close() error {
	err := p.embedder.Close()
	if cerr := p.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// prepareSchema verifies the model responds and aligns the store's
// table with the model's name and dimension.
func (p *Pipeline) prepareSchema(ctx context.Context) error {
	if err := p.embedder.SelfTest(ctx); err != nil {
		return err
	}
	info := p.embedder.Info()
	return p.store.EnsureSchema(ctx, info.Name, info.Dimension)
}

// IndexAll indexes every includable document, restricted to one
// category when categoryFilter is non-empty. Documents whose stored
// content hash matches the current content are skipped unless force is
// set. Per-document failures are reported in the result, never fatal;
// only context cancellation stops the run early.
func (p *Pipeline) IndexAll(ctx context.Context, categoryFilter string, force bool) (*types.IndexingResult, error) {
	result := types.NewIndexingResult()

	if categoryFilter != "" && !p.knownCategory(categoryFilter) {
		result.Finish(types.StatusFailed)
		return result, fmt.Errorf("unknown category %q", categoryFilter)
	}

	if err := p.prepareSchema(ctx); err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.Finish(types.StatusFailed)
		return result, err
	}

	docs, loadErrs := p.loader.LoadAll()
	for _, e := range loadErrs {
		result.Warnings = append(result.Warnings, e.Error())
	}

	known := map[string]string{}
	if !force {
		if hashes, err := p.store.ContentHashes(ctx); err == nil {
			known = hashes
		} else {
			result.Warnings = append(result.Warnings, fmt.Sprintf("content hashes unavailable, reindexing everything: %v", err))
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	workers := p.cfg.Processing.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, doc := range docs {
		doc := doc
		if categoryFilter != "" && string(doc.Metadata.Category) != categoryFilter {
			continue
		}
		key := string(doc.Metadata.Category) + "/" + doc.Metadata.Slug
		prevHash, existed := known[key]
		if !force && existed && prevHash == doc.ContentHash() {
			result.DocsSkipped++
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			chunks, stored, err := p.processDocument(gctx, doc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", key, err))
				return nil
			}
			result.DocsProcessed++
			if existed {
				result.DocsUpdated++
			}
			result.ChunksCreated += len(chunks)
			result.EmbeddingsGenerated += stored
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		result.Finish(types.StatusCancelled)
		return result, err
	}

	if err := p.embedder.SaveCache(); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("saving embedding cache: %v", err))
	}

	if result.DocsProcessed == 0 && len(result.Errors) > 0 {
		result.Finish(types.StatusFailed)
	} else {
		result.Finish(types.StatusCompleted)
	}
	return result, nil
}

// IndexOne indexes a single document by category and slug.
func (p *Pipeline) IndexOne(ctx context.Context, category types.Category, slug string, force bool) (*types.IndexingResult, error) {
	result := types.NewIndexingResult()

	if err := p.prepareSchema(ctx); err != nil {
		result.Finish(types.StatusFailed)
		return result, err
	}

	doc, err := p.loader.LoadBySlug(category, slug)
	if err != nil {
		result.Finish(types.StatusFailed)
		return result, err
	}
	if doc == nil {
		result.Finish(types.StatusFailed)
		return result, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, category, slug)
	}
	if !p.loader.ShouldInclude(&doc.Metadata) {
		result.Finish(types.StatusFailed)
		return result, fmt.Errorf("%w: %s/%s is %s", ErrDocumentExcluded, category, slug, doc.Metadata.Status)
	}

	if !force {
		if hashes, err := p.store.ContentHashes(ctx); err == nil {
			key := string(category) + "/" + slug
			if hashes[key] == doc.ContentHash() {
				result.DocsSkipped++
				result.Finish(types.StatusCompleted)
				return result, nil
			}
		}
	}

	chunks, stored, err := p.processDocument(ctx, doc)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.Finish(types.StatusFailed)
		return result, err
	}

	result.DocsProcessed++
	result.ChunksCreated += len(chunks)
	result.EmbeddingsGenerated += stored
	result.Finish(types.StatusCompleted)
	return result, nil
}

// processDocument runs chunk, embed, store for one document. Old rows
// are removed only after the replacement records are fully built, so a
// failed run never leaves a document half-deleted.
func (p *Pipeline) processDocument(ctx context.Context, doc *types.Document) ([]types.Chunk, int, error) {
	meta := &doc.Metadata

	chunks, err := p.chunker.Chunk(doc.ProcessedContent, meta.Slug, meta.Category)
	if err != nil {
		return nil, 0, fmt.Errorf("chunking: %w", err)
	}
	if len(chunks) == 0 {
		return nil, 0, fmt.Errorf("no chunks produced")
	}
	doc.Chunks = chunks

	embeddings, err := p.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return nil, 0, fmt.Errorf("embedding: %w", err)
	}

	byChunk := make(map[string]*types.EmbeddingVector, len(embeddings))
	for i := range embeddings {
		byChunk[embeddings[i].ChunkID] = &embeddings[i]
	}

	records := make([]types.IndexRecord, 0, len(chunks))
	for i := range chunks {
		emb, ok := byChunk[chunks[i].ChunkID]
		if !ok {
			continue // empty chunk, no vector
		}
		records = append(records, types.NewIndexRecord(doc, &chunks[i], emb, p.cfg.Content.BaseURL))
	}
	if len(records) == 0 {
		return nil, 0, fmt.Errorf("no embeddable chunks")
	}

	// Replace the document's rows. Chunk IDs are deterministic, so the
	// insert overwrites matching rows; the delete clears leftovers from
	// a previous, longer version of the document.
	if _, err := p.store.DeleteBySlug(ctx, meta.Category, meta.Slug); err != nil {
		return nil, 0, fmt.Errorf("removing stale rows: %w", err)
	}
	// Records that fail store-side validation are dropped there; report
	// only what was actually written.
	inserted, _, err := p.store.Insert(ctx, records)
	if err != nil {
		return nil, 0, fmt.Errorf("storing: %w", err)
	}

	return chunks, inserted, nil
}

// Clear removes indexed rows, optionally restricted to one category.
func (p *Pipeline) Clear(ctx context.Context, category string) (int64, error) {
	if category != "" && !p.knownCategory(category) {
		return 0, fmt.Errorf("unknown category %q", category)
	}
	return p.store.Clear(ctx, category)
}

func (p *Pipeline) knownCategory(category string) bool {
	for _, c := range p.cfg.Categories() {
		if string(c) == category {
			return true
		}
	}
	return false
}
