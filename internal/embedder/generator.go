package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmorgan/contentindex/pkg/types"
)

// charsPerToken approximates the model's token budget in characters.
const charsPerToken = 4

// Generator wraps a Provider with caching, input truncation, and
// fixed-size batching. It is the only embedding surface the rest of the
// engine talks to.
type Generator struct {
	provider  Provider
	cache     *Cache
	batchSize int
	maxChars  int
	dim       int    // observed output dimension, 0 until the first call
	device    string // configured compute device, reported via Info
}

// NewGenerator assembles a Generator around an existing provider. cache
// may be nil to disable caching. maxSeqLen is the model's sequence limit
// in tokens; zero disables truncation.
func NewGenerator(provider Provider, cache *Cache, batchSize, maxSeqLen int) *Generator {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Generator{
		provider:  provider,
		cache:     cache,
		batchSize: batchSize,
		maxChars:  maxSeqLen * charsPerToken,
		dim:       provider.Info().Dimension,
	}
}

// Info reports the model identity. The dimension reflects what the
// provider has actually returned once at least one call has completed.
func (g *Generator) Info() ModelInfo {
	info := g.provider.Info()
	if g.dim > 0 {
		info.Dimension = g.dim
	}
	if g.device != "" {
		info.Device = g.device
	}
	return info
}

// Embed generates a single vector. Empty text is an error here; batch
// callers that want silent skipping use EmbedBatch.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	vectors, kept, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: no vector returned", ErrProviderFailed)
	}
	return vectors[0], nil
}

// EmbedBatch embeds the non-empty texts and returns the vectors together
// with the source indexes they correspond to. Empty or whitespace-only
// inputs are skipped, never sent to the provider, and absent from the
// returned index list, so callers can always tell which inputs produced
// no vector.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []int, error) {
	if len(texts) == 0 {
		return nil, nil, fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}

	type pending struct {
		source int
		text   string
	}

	info := g.provider.Info()
	vectors := make([][]float32, 0, len(texts))
	kept := make([]int, 0, len(texts))
	var misses []pending
	slots := make(map[int]int, len(texts)) // source index -> position in vectors

	for i, text := range texts {
		t := Truncate(strings.TrimSpace(text), g.maxChars)
		if t == "" {
			continue
		}
		slots[i] = len(vectors)
		vectors = append(vectors, nil)
		kept = append(kept, i)

		if g.cache != nil {
			if v, ok := g.cache.Get(cacheKey(info, t)); ok {
				vectors[slots[i]] = v
				continue
			}
		}
		misses = append(misses, pending{source: i, text: t})
	}

	for start := 0; start < len(misses); start += g.batchSize {
		end := start + g.batchSize
		if end > len(misses) {
			end = len(misses)
		}
		batch := misses[start:end]

		inputs := make([]string, len(batch))
		for i, p := range batch {
			inputs[i] = p.text
		}

		out, err := g.provider.EmbedBatch(ctx, inputs)
		if err != nil {
			return nil, nil, err
		}
		if len(out) != len(inputs) {
			return nil, nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrProviderFailed, len(inputs), len(out))
		}

		for i, p := range batch {
			v := out[i]
			if len(v) == 0 {
				return nil, nil, fmt.Errorf("%w: empty vector for input %d", ErrProviderFailed, p.source)
			}
			if g.dim == 0 {
				g.dim = len(v)
			}
			vectors[slots[p.source]] = v
			if g.cache != nil {
				g.cache.Set(cacheKey(info, p.text), v)
			}
		}
	}

	return vectors, kept, nil
}

// EmbedChunks embeds chunk contents and pairs each vector with its chunk
// identifier. Chunks with empty content yield no entry.
func (g *Generator) EmbedChunks(ctx context.Context, chunks []types.Chunk) ([]types.EmbeddingVector, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	started := time.Now()
	vectors, kept, err := g.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	elapsed := float64(time.Since(started).Microseconds()) / 1000.0

	perChunk := 0.0
	if len(kept) > 0 {
		perChunk = elapsed / float64(len(kept))
	}

	info := g.Info()
	out := make([]types.EmbeddingVector, len(kept))
	for i, src := range kept {
		out[i] = types.EmbeddingVector{
			ChunkID:          chunks[src].ChunkID,
			Vector:           vectors[i],
			VectorDim:        len(vectors[i]),
			ModelName:        info.Name,
			ModelVersion:     info.Version,
			CreatedAt:        time.Now().UTC(),
			ProcessingTimeMS: perChunk,
		}
	}
	return out, nil
}

// SelfTest embeds a fixed probe sentence and checks the vector shape.
// It is the health check used before indexing runs.
func (g *Generator) SelfTest(ctx context.Context) error {
	v, err := g.Embed(ctx, "The quick brown fox jumps over the lazy dog.")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	if len(v) == 0 {
		return fmt.Errorf("%w: model returned an empty vector", ErrNotAvailable)
	}
	return nil
}

// SaveCache persists the embedding cache to disk, if one is configured.
func (g *Generator) SaveCache() error {
	if g.cache == nil {
		return nil
	}
	return g.cache.Save()
}

// CacheLen reports the number of cached vectors, 0 when caching is off.
func (g *Generator) CacheLen() int {
	if g.cache == nil {
		return 0
	}
	return g.cache.Len()
}

// Close saves the cache and releases provider resources.
func (g *Generator) Close() error {
	if err := g.SaveCache(); err != nil {
		return err
	}
	return g.provider.Close()
}
