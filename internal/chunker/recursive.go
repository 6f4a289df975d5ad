package chunker

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/jmorgan/contentindex/internal/config"
	"github.com/jmorgan/contentindex/pkg/types"
)

// recursiveStrategy splits on a descending ladder of separators, paragraph
// break first, then line break, sentence, clause, word, and finally raw
// characters, so chunks break at the most natural boundary available.
type recursiveStrategy struct {
	cfg      *config.Config
	splitter textsplitter.RecursiveCharacter
}

func newRecursiveStrategy(cfg *config.Config) *recursiveStrategy {
	return &recursiveStrategy{
		cfg: cfg,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.Chunking.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.Chunking.ChunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", ", ", " ", ""}),
		),
	}
}

func (r *recursiveStrategy) Name() string { return "recursive" }

func (r *recursiveStrategy) Split(text, slug string, category types.Category) ([]types.Chunk, error) {
	pieces, err := r.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("recursive split: %w", err)
	}

	minSize := r.cfg.Chunking.MinChunkSize
	var chunks []types.Chunk
	index := 0
	searchFrom := 0

	for _, piece := range pieces {
		content := strings.TrimSpace(piece)
		if len(content) < minSize {
			continue
		}

		// The splitter reports no offsets, so locate each piece in the
		// source. Pieces come back in order; searching from the previous
		// start keeps offsets non-decreasing even with overlap.
		start := searchFrom
		if p := strings.Index(text[searchFrom:], content); p >= 0 {
			start = searchFrom + p
		}
		end := start + len(content)
		searchFrom = start

		chunks = append(chunks, newChunk(category, slug, index, content, start, end))
		index++
	}

	return chunks, nil
}
