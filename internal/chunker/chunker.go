package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jmorgan/contentindex/internal/config"
	"github.com/jmorgan/contentindex/pkg/types"
)

// Strategy produces ordered chunks from cleaned text. Implementations are
// selected at construction time by configuration, never by runtime
// probing, and must be deterministic for identical input and settings.
type Strategy interface {
	Name() string
	Split(text string, slug string, category types.Category) ([]types.Chunk, error)
}

// Chunker cleans text and delegates to the configured strategy.
type Chunker struct {
	cfg      *config.Config
	strategy Strategy
}

// New creates a Chunker with the strategy named in the configuration.
func New(cfg *config.Config) (*Chunker, error) {
	var s Strategy
	switch cfg.Chunking.Strategy {
	case "simple":
		s = &simpleStrategy{cfg: cfg}
	case "recursive":
		s = newRecursiveStrategy(cfg)
	case "sections":
		s = &sectionStrategy{cfg: cfg, inner: &simpleStrategy{cfg: cfg}}
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", cfg.Chunking.Strategy)
	}
	return &Chunker{cfg: cfg, strategy: s}, nil
}

// Strategy returns the name of the active strategy.
func (c *Chunker) Strategy() string {
	return c.strategy.Name()
}

// Chunk splits text into ordered, size-bounded chunks. Empty input yields
// no chunks and no error.
func (c *Chunker) Chunk(text, slug string, category types.Category) ([]types.Chunk, error) {
	text = CleanText(text)
	if text == "" {
		return nil, nil
	}
	return c.strategy.Split(text, slug, category)
}

var (
	reRunsOfSpace = regexp.MustCompile(`[ \t]+`)
	reBlankRuns   = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes whitespace while keeping paragraph breaks.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = reRunsOfSpace.ReplaceAllString(text, " ")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// simpleStrategy advances a character window of chunk_size with
// chunk_overlap of back-overlap. When not at the end of the text the right
// edge is pulled back to the nearest sentence terminator within the last
// 100 characters of the window, else to the nearest paragraph break.
type simpleStrategy struct {
	cfg *config.Config
}

func (s *simpleStrategy) Name() string { return "simple" }

// boundaryWindow is how far back from the window edge we look for a
// sentence terminator or paragraph break.
const boundaryWindow = 100

func (s *simpleStrategy) Split(text, slug string, category types.Category) ([]types.Chunk, error) {
	chunkSize := s.cfg.Chunking.ChunkSize
	overlap := s.cfg.Chunking.ChunkOverlap
	minSize := s.cfg.Chunking.MinChunkSize

	var chunks []types.Chunk
	start := 0
	index := 0

	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			searchStart := end - boundaryWindow
			if searchStart < start {
				searchStart = start
			}
			if p := strings.LastIndex(text[searchStart:end], "."); p >= 0 {
				end = searchStart + p + 1
			} else if p := strings.LastIndex(text[searchStart:end], "\n\n"); p >= 0 {
				end = searchStart + p + 2
			}
		}

		content := strings.TrimSpace(text[start:end])
		if len(content) < minSize {
			// Too small to keep; advance past it without overlap.
			if end <= start {
				end = start + chunkSize
			}
			start = end
			continue
		}

		chunks = append(chunks, newChunk(category, slug, index, content, start, end))
		index++

		next := start + chunkSize - overlap
		if n := end - overlap; n > next {
			next = n
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

func newChunk(category types.Category, slug string, index int, content string, start, end int) types.Chunk {
	return types.Chunk{
		ChunkID:    types.ChunkID(category, slug, index),
		Slug:       slug,
		Category:   category,
		Content:    content,
		ChunkIndex: index,
		StartChar:  start,
		EndChar:    end,
		WordCount:  WordCount(content),
		CharCount:  len(content),
	}
}
