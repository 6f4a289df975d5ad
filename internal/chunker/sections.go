package chunker

import (
	"regexp"
	"strings"

	"github.com/jmorgan/contentindex/internal/config"
	"github.com/jmorgan/contentindex/pkg/types"
)

var reSectionHeading = regexp.MustCompile(`^#{3,}\s+(.+)$`)

// section is a heading-delimited slice of the source text. start/end are
// byte offsets of the body, excluding the heading line itself.
type section struct {
	title string
	body  string
	start int
	end   int
}

// sectionStrategy splits text on heading lines of level three or deeper.
// Sections that fit within chunk_size become a single chunk carrying the
// section title; oversized sections are delegated to the simple strategy
// and each resulting chunk keeps the title. Text without headings is
// treated as one untitled section.
type sectionStrategy struct {
	cfg   *config.Config
	inner *simpleStrategy
}

func (s *sectionStrategy) Name() string { return "sections" }

func (s *sectionStrategy) Split(text, slug string, category types.Category) ([]types.Chunk, error) {
	minSize := s.cfg.Chunking.MinChunkSize
	chunkSize := s.cfg.Chunking.ChunkSize

	var chunks []types.Chunk
	index := 0

	for _, sec := range splitSections(text) {
		body := strings.TrimSpace(sec.body)
		if len(body) < minSize {
			continue
		}

		if len(body) <= chunkSize {
			ch := newChunk(category, slug, index, body, sec.start, sec.end)
			ch.SectionTitle = sec.title
			chunks = append(chunks, ch)
			index++
			continue
		}

		sub, err := s.inner.Split(sec.body, slug, category)
		if err != nil {
			return nil, err
		}
		for _, ch := range sub {
			// Re-key into the document-wide sequence and shift offsets
			// from section-local to document-local.
			ch.ChunkIndex = index
			ch.ChunkID = types.ChunkID(category, slug, index)
			ch.StartChar += sec.start
			ch.EndChar += sec.start
			ch.SectionTitle = sec.title
			chunks = append(chunks, ch)
			index++
		}
	}

	return chunks, nil
}

// splitSections walks the text line by line, starting a new section at
// every heading of level three or deeper.
func splitSections(text string) []section {
	lines := strings.Split(text, "\n")

	var sections []section
	cur := section{}
	offset := 0
	open := false

	flush := func(end int) {
		if open && strings.TrimSpace(cur.body) != "" {
			cur.end = end
			sections = append(sections, cur)
		}
	}

	for _, line := range lines {
		lineStart := offset
		offset += len(line) + 1

		if m := reSectionHeading.FindStringSubmatch(line); m != nil {
			flush(lineStart)
			cur = section{title: strings.TrimSpace(m[1]), start: offset}
			cur.body = ""
			open = true
			continue
		}

		if !open {
			cur = section{start: lineStart}
			open = true
		}
		cur.body += line + "\n"
	}
	flush(len(text))

	return sections
}
