package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/jmorgan/contentindex/internal/embedder"
	"github.com/jmorgan/contentindex/internal/storage"
	"github.com/jmorgan/contentindex/pkg/types"
)

// Search modes
const (
	ModeSemantic = "semantic"
	ModeKeyword  = "keyword"
	ModeHybrid   = "hybrid"
)

// Keyword scoring weights. A content occurrence is worth 0.1, an early
// first occurrence 0.3, a title occurrence 0.5, and full term coverage
// another 0.5; the total clips at 1.0.
const (
	contentHitWeight = 0.1
	earlyHitBonus    = 0.3
	titleHitWeight   = 0.5
	coverageWeight   = 0.5
	earlyHitWindow   = 100
)

const excerptLength = 200

// SearchOptions controls one unified search call.
type SearchOptions struct {
	// Mode selects semantic, keyword or hybrid; empty means semantic.
	Mode string

	// Limit caps the result count; zero uses the configured default.
	Limit int

	// Category restricts results to one category when non-empty.
	Category string

	// Threshold overrides the configured similarity threshold for
	// semantic results. Negative means "use the configured value".
	Threshold float64

	// CaseSensitive makes keyword matching case sensitive. Semantic
	// search ignores it.
	CaseSensitive bool
}

// NewSearchOptions returns the default options: semantic mode, the
// configured limit and similarity threshold, case-insensitive.
func NewSearchOptions() SearchOptions {
	return SearchOptions{Mode: ModeSemantic, Threshold: -1}
}

// Search routes a query to one search mode. Hybrid runs both modes and
// merges by chunk, keeping the higher score.
func (p *Pipeline) Search(ctx context.Context, query string, opts SearchOptions) ([]types.SearchResult, error) {
	switch opts.Mode {
	case ModeSemantic, "":
		return p.semanticSearch(ctx, query, opts)
	case ModeKeyword:
		return p.keywordSearch(ctx, query, opts)
	case ModeHybrid:
		return p.hybridSearch(ctx, query, opts)
	default:
		return nil, fmt.Errorf("unknown search mode %q", opts.Mode)
	}
}

// SemanticSearch ranks stored chunks by vector distance to the query
// embedding, using the configured similarity threshold.
func (p *Pipeline) SemanticSearch(ctx context.Context, query string, limit int, category string) ([]types.SearchResult, error) {
	opts := NewSearchOptions()
	opts.Limit = limit
	opts.Category = category
	return p.semanticSearch(ctx, query, opts)
}

// KeywordSearch ranks chunks by weighted term occurrence, using the
// configured result limit when limit is zero.
func (p *Pipeline) KeywordSearch(ctx context.Context, query string, limit int, category string) ([]types.SearchResult, error) {
	opts := NewSearchOptions()
	opts.Mode = ModeKeyword
	opts.Limit = limit
	opts.Category = category
	return p.keywordSearch(ctx, query, opts)
}

// semanticSearch embeds the query and ranks stored chunks by vector
// distance. Results below the similarity threshold are dropped. When
// the embedding backend is unreachable the search degrades to empty
// results instead of failing the caller.
func (p *Pipeline) semanticSearch(ctx context.Context, query string, opts SearchOptions) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	limit := p.effectiveLimit(opts.Limit)

	queryVector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, embedder.ErrNotAvailable) || errors.Is(err, embedder.ErrProviderFailed) {
			log.Printf("pipeline: semantic search degraded, embedding unavailable: %v", err)
			return []types.SearchResult{}, nil
		}
		return nil, err
	}

	hits, err := p.store.VectorSearch(ctx, queryVector, limit, storage.Filters{Category: opts.Category})
	if err != nil {
		return nil, err
	}

	maxDistance := p.cfg.Search.MaxDistance
	threshold := opts.Threshold
	if threshold < 0 {
		threshold = p.cfg.Search.SimilarityThreshold
	}

	results := make([]types.SearchResult, 0, len(hits))
	for _, hit := range hits {
		score := distanceToScore(hit.Distance, maxDistance)
		if score < threshold {
			continue
		}
		r := resultFromRecord(hit.Record)
		r.Score = score
		r.Distance = hit.Distance
		r.Excerpt = buildExcerpt(hit.Record.Content, 0)
		results = append(results, r)
	}
	return results, nil
}

// keywordSearch ranks chunks by weighted term occurrence. The store
// over-fetches so that ranking has more candidates than the final
// limit. Candidate retrieval is always case-insensitive; with
// CaseSensitive set the scoring pass rejects candidates whose casing
// does not match, so they fall out as zero scores.
func (p *Pipeline) keywordSearch(ctx context.Context, query string, opts SearchOptions) ([]types.SearchResult, error) {
	terms := tokenize(query, opts.CaseSensitive)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}
	limit := p.effectiveLimit(opts.Limit)

	rows, err := p.store.TextSearch(ctx, lowerAll(terms), limit*2, storage.Filters{Category: opts.Category})
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, 0, len(rows))
	for _, rec := range rows {
		score, matched, firstHit := keywordScore(rec, terms, opts.CaseSensitive)
		if score <= 0 {
			continue
		}
		r := resultFromRecord(rec)
		r.Score = score
		r.TermMatches = matched
		r.Excerpt = buildExcerpt(rec.Content, firstHit)
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (p *Pipeline) hybridSearch(ctx context.Context, query string, opts SearchOptions) ([]types.SearchResult, error) {
	limit := p.effectiveLimit(opts.Limit)

	semantic, err := p.semanticSearch(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	keyword, err := p.keywordSearch(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]types.SearchResult, len(semantic)+len(keyword))
	order := make([]string, 0, len(semantic)+len(keyword))
	for _, r := range semantic {
		merged[r.ChunkID] = r
		order = append(order, r.ChunkID)
	}
	for _, r := range keyword {
		if prev, ok := merged[r.ChunkID]; ok {
			if r.Score > prev.Score {
				prev.Score = r.Score
			}
			prev.TermMatches = r.TermMatches
			merged[r.ChunkID] = prev
			continue
		}
		merged[r.ChunkID] = r
		order = append(order, r.ChunkID)
	}

	results := make([]types.SearchResult, 0, len(order))
	for _, id := range order {
		results = append(results, merged[id])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (p *Pipeline) effectiveLimit(limit int) int {
	if limit > 0 {
		return limit
	}
	if p.cfg.Search.DefaultLimit > 0 {
		return p.cfg.Search.DefaultLimit
	}
	return 10
}

// distanceToScore maps squared Euclidean distance onto [0, 1], where 0
// distance is a perfect 1.0 and anything at or beyond maxDistance is 0.
func distanceToScore(distance, maxDistance float64) float64 {
	if maxDistance <= 0 {
		return 0
	}
	score := 1.0 - distance/maxDistance
	if score < 0 {
		return 0
	}
	return score
}

// keywordScore computes the weighted occurrence score for one record.
// It returns the clipped score, the count of distinct terms matched,
// and the offset of the earliest content match for excerpt building.
func keywordScore(rec *types.IndexRecord, terms []string, caseSensitive bool) (float64, int, int) {
	content := rec.Content
	title := rec.Title
	if !caseSensitive {
		content = strings.ToLower(content)
		title = strings.ToLower(title)
	}

	score := 0.0
	matched := 0
	firstHit := -1

	for _, term := range terms {
		hits := strings.Count(content, term)
		titleHits := strings.Count(title, term)
		if hits == 0 && titleHits == 0 {
			continue
		}
		matched++

		score += contentHitWeight * float64(hits)
		score += titleHitWeight * float64(titleHits)

		if pos := strings.Index(content, term); pos >= 0 {
			if pos < earlyHitWindow {
				score += earlyHitBonus
			}
			if firstHit < 0 || pos < firstHit {
				firstHit = pos
			}
		}
	}

	// Coverage only means something when there is more than one term
	// to cover.
	if matched > 0 && len(terms) > 1 {
		score += coverageWeight * float64(matched) / float64(len(terms))
	}
	if score > 1.0 {
		score = 1.0
	}
	if firstHit < 0 {
		firstHit = 0
	}
	return score, matched, firstHit
}

// tokenize splits a query into terms, lowercased unless the search is
// case sensitive.
func tokenize(query string, caseSensitive bool) []string {
	if !caseSensitive {
		query = strings.ToLower(query)
	}
	fields := strings.Fields(query)
	terms := fields[:0:0]
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()[]{}`)
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}

// buildExcerpt returns a short window of content around the given
// offset, widened to word boundaries.
func buildExcerpt(content string, around int) string {
	if len(content) <= excerptLength {
		return content
	}

	start := around - excerptLength/4
	if start < 0 {
		start = 0
	}
	end := start + excerptLength
	if end > len(content) {
		end = len(content)
		start = end - excerptLength
	}

	// Snap to word boundaries.
	if start > 0 {
		if sp := strings.IndexByte(content[start:end], ' '); sp >= 0 {
			start += sp + 1
		}
	}
	if end < len(content) {
		if sp := strings.LastIndexByte(content[start:end], ' '); sp > 0 {
			end = start + sp
		}
	}

	excerpt := strings.TrimSpace(content[start:end])
	if start > 0 {
		excerpt = "..." + excerpt
	}
	if end < len(content) {
		excerpt += "..."
	}
	return excerpt
}

func resultFromRecord(rec *types.IndexRecord) types.SearchResult {
	return types.SearchResult{
		Title:       rec.Title,
		Category:    rec.Category,
		Slug:        rec.Slug,
		ChunkID:     rec.ChunkID,
		Content:     rec.Content,
		URL:         rec.URL,
		Tags:        rec.Tags,
		PublishDate: rec.PublishDate,
	}
}
