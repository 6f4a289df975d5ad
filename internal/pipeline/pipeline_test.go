package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorgan/contentindex/internal/config"
	"github.com/jmorgan/contentindex/pkg/types"
)

func writeTestDoc(t *testing.T, root, category, slug, title, status string, body string) {
	t.Helper()
	dir := filepath.Join(root, category, slug)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	meta := fmt.Sprintf(`title: %q
slug: %s
category: %s
status: %s
author: Test Author
publish_date: "2025-03-01"
last_modified: "2025-03-02"
description: A short description.
excerpt: An excerpt.
reading_time: 3
word_count: 600
tags:
  - go
  - testing
`, title, slug, category, status)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(meta), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "body.md"), []byte(body), 0o644))
}

// paragraphs builds markdown long enough to clear the minimum content
// length and span multiple chunks.
func paragraphs(topic string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", topic)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "This paragraph discusses %s in practical detail, covering part %d of the series. ", topic, i)
		fmt.Fprintf(&b, "It explains how teams apply %s day to day and what commonly goes wrong.\n\n", topic)
	}
	return b.String()
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	root := t.TempDir()

	writeTestDoc(t, root, "blog", "python-testing", "Python Testing Guide", "published",
		"Python testing starts with small, fast unit tests.\n\n"+paragraphs("python testing", 12))
	writeTestDoc(t, root, "blog", "go-errors", "Error Handling in Go", "published",
		paragraphs("go error handling", 12))
	writeTestDoc(t, root, "engineering", "search-infra", "Search Infrastructure", "published",
		paragraphs("search infrastructure", 12))
	writeTestDoc(t, root, "blog", "wip-notes", "Unfinished Notes", "draft",
		paragraphs("draft material", 12))

	cfg := config.Default()
	cfg.Content.Root = root
	cfg.Content.MinContentLength = 50
	cfg.Content.BaseURL = "https://example.com"
	cfg.Database.Path = filepath.Join(t.TempDir(), "index.db")
	cfg.Embedding.Provider = "local"
	cfg.Processing.EnableCache = false
	cfg.Processing.MaxWorkers = 2
	cfg.Chunking.ChunkSize = 400
	cfg.Chunking.ChunkOverlap = 80
	cfg.Chunking.MinChunkSize = 40
	cfg.Search.SimilarityThreshold = 0

	p, err := NewFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.Close()
	})
	return p
}

func TestIndexAll(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	result, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.Equal(t, 3, result.DocsProcessed) // draft excluded
	assert.Equal(t, 0, result.DocsSkipped)
	assert.Greater(t, result.ChunksCreated, 3)
	assert.Equal(t, result.ChunksCreated, result.EmbeddingsGenerated)
	assert.Empty(t, result.Errors)
	assert.False(t, result.CompletedAt.IsZero())

	stats, err := p.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Index.TotalDocuments)
	assert.EqualValues(t, result.ChunksCreated, stats.Index.TotalChunks)
	assert.EqualValues(t, result.EmbeddingsGenerated, stats.Index.TotalChunks,
		"reported embeddings match the rows actually stored")
	assert.Equal(t, "local-embeddings", stats.Index.ModelName)
	assert.Equal(t, "cpu", stats.Model.Device)
	assert.Equal(t, 4, stats.Content.TotalDocuments) // tree stats count the draft
}

func TestIndexAllSkipsUnchanged(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	first, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)
	require.Equal(t, 3, first.DocsProcessed)

	before, err := p.store.Count(ctx)
	require.NoError(t, err)

	second, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.DocsProcessed)
	assert.Equal(t, 3, second.DocsSkipped)

	// Force reprocesses everything but leaves the same rows behind.
	forced, err := p.IndexAll(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, 3, forced.DocsProcessed)
	assert.Equal(t, 0, forced.DocsSkipped)

	after, err := p.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestIndexOne(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	result, err := p.IndexOne(ctx, types.CategoryBlog, "go-errors", false)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.Equal(t, 1, result.DocsProcessed)

	// Unchanged, so a second run skips.
	result, err = p.IndexOne(ctx, types.CategoryBlog, "go-errors", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocsSkipped)

	_, err = p.IndexOne(ctx, types.CategoryBlog, "no-such-post", false)
	require.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = p.IndexOne(ctx, types.CategoryBlog, "wip-notes", false)
	require.ErrorIs(t, err, ErrDocumentExcluded)
}

func TestSemanticSearch(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)

	results, err := p.SemanticSearch(ctx, "how do teams test python code", 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for i, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
		assert.NotEmpty(t, r.ChunkID)
		assert.NotEmpty(t, r.Excerpt)
		assert.Contains(t, r.URL, "https://example.com/")
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
	}

	// Category filter restricts the candidate set.
	results, err = p.SemanticSearch(ctx, "infrastructure", 10, "engineering")
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, types.CategoryEngineering, r.Category)
	}

	_, err = p.SemanticSearch(ctx, "   ", 5, "")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestKeywordSearch(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)

	results, err := p.KeywordSearch(ctx, "python testing", 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// The python post matches both terms in title and content, early,
	// so it must rank first.
	assert.Equal(t, "python-testing", results[0].Slug)
	assert.Equal(t, 2, results[0].TermMatches)
	assert.LessOrEqual(t, results[0].Score, 1.0)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	// Terms that match nothing yield no results, not errors.
	results, err = p.KeywordSearch(ctx, "zyzzyva", 5, "")
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = p.KeywordSearch(ctx, "  ", 5, "")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchModeRouting(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)

	for _, mode := range []string{ModeSemantic, ModeKeyword, ModeHybrid, ""} {
		opts := NewSearchOptions()
		opts.Mode = mode
		opts.Limit = 5
		results, err := p.Search(ctx, "python testing", opts)
		require.NoError(t, err, "mode %q", mode)
		assert.LessOrEqual(t, len(results), 5)
	}

	opts := NewSearchOptions()
	opts.Mode = "telepathy"
	_, err = p.Search(ctx, "python", opts)
	require.Error(t, err)
}

func TestSearchThresholdOverride(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)

	opts := NewSearchOptions()
	opts.Limit = 10
	all, err := p.Search(ctx, "python testing", opts)
	require.NoError(t, err)
	require.NotEmpty(t, all)

	// A threshold above every score filters everything out.
	strict := opts
	strict.Threshold = 1.1
	none, err := p.Search(ctx, "python testing", strict)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestKeywordSearchCaseSensitive(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)

	opts := NewSearchOptions()
	opts.Mode = ModeKeyword
	opts.Limit = 10
	opts.CaseSensitive = true

	// "Python" capitalized only occurs in the python post's title and
	// opening sentence, so every hit must come from that document.
	results, err := p.Search(ctx, "Python", opts)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "python-testing", r.Slug)
		assert.Greater(t, r.Score, 0.0)
	}

	none, err := p.Search(ctx, "PYTHON", opts)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIndexAllCategoryFilter(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	result, err := p.IndexAll(ctx, "engineering", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocsProcessed)

	stats, err := p.Stats(ctx)
	require.NoError(t, err)
	_, hasBlog := stats.Index.Categories["blog"]
	assert.False(t, hasBlog)

	_, err = p.IndexAll(ctx, "nonsense", false)
	require.Error(t, err)
}

func TestHybridMergesByChunk(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)

	opts := NewSearchOptions()
	opts.Mode = ModeHybrid
	opts.Limit = 10
	results, err := p.Search(ctx, "python testing", opts)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.ChunkID], "duplicate chunk %s", r.ChunkID)
		seen[r.ChunkID] = true
	}
}

func TestClear(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)

	removed, err := p.Clear(ctx, "engineering")
	require.NoError(t, err)
	assert.Greater(t, removed, int64(0))

	stats, err := p.Stats(ctx)
	require.NoError(t, err)
	_, ok := stats.Index.Categories["engineering"]
	assert.False(t, ok)

	_, err = p.Clear(ctx, "nonsense")
	require.Error(t, err)

	removed, err = p.Clear(ctx, "")
	require.NoError(t, err)
	assert.Greater(t, removed, int64(0))

	n, err := p.store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestHealth(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	// Healthy even before indexing: an empty index is a valid state.
	h := p.Health(ctx)
	assert.True(t, h.Database)
	assert.True(t, h.EmbeddingModel)

	_, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)

	h = p.Health(ctx)
	assert.True(t, h.Healthy)
	assert.True(t, h.SampleSearch)
	assert.Greater(t, h.IndexedChunks, int64(0))
}

func TestReindexAfterEdit(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)

	// Edit one document; only it should be reprocessed.
	body := "Python testing, revised edition.\n\n" + paragraphs("python testing revisited", 12)
	path := filepath.Join(p.cfg.Content.Root, "blog", "python-testing", "body.md")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	result, err := p.IndexAll(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocsProcessed)
	assert.Equal(t, 1, result.DocsUpdated)
	assert.Equal(t, 2, result.DocsSkipped)

	rows, err := p.KeywordSearch(ctx, "revised", 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "python-testing", rows[0].Slug)
}

func TestDistanceToScore(t *testing.T) {
	assert.InDelta(t, 1.0, distanceToScore(0, 4), 1e-9)
	assert.InDelta(t, 0.5, distanceToScore(2, 4), 1e-9)
	assert.InDelta(t, 0.0, distanceToScore(4, 4), 1e-9)
	assert.InDelta(t, 0.0, distanceToScore(5, 4), 1e-9)
	assert.InDelta(t, 0.0, distanceToScore(1, 0), 1e-9)
}

func TestKeywordScoreWeighting(t *testing.T) {
	terms := []string{"python", "testing"}

	titled := &types.IndexRecord{
		Title:   "Python Testing Guide",
		Content: "Python testing starts with small, fast unit tests.",
	}
	filler := strings.Repeat("filler words without anything notable here. ", 4)
	contentOnly := &types.IndexRecord{
		Title:   "Release Notes",
		Content: filler + "python appears exactly once, late in the chunk.",
	}

	// Title hits at 0.5 per term dominate content hits and push the
	// score past the clip.
	strong, strongMatched, strongFirst := keywordScore(titled, terms, false)
	assert.Equal(t, 1.0, strong)
	assert.Equal(t, 2, strongMatched)
	assert.Equal(t, 0, strongFirst)

	// One late content hit: 0.1 occurrence + 0.25 coverage, no early
	// bonus, no title bonus.
	weak, weakMatched, weakFirst := keywordScore(contentOnly, terms, false)
	assert.InDelta(t, 0.35, weak, 1e-9)
	assert.Equal(t, 1, weakMatched)
	assert.GreaterOrEqual(t, weakFirst, earlyHitWindow)
	assert.Greater(t, strong, weak)

	// A single-term query gets no coverage bonus at all.
	single, _, _ := keywordScore(contentOnly, []string{"python"}, false)
	assert.InDelta(t, 0.1, single, 1e-9)
}

func TestBuildExcerpt(t *testing.T) {
	short := "a short body"
	assert.Equal(t, short, buildExcerpt(short, 0))

	long := strings.Repeat("word ", 100)
	ex := buildExcerpt(long, 0)
	assert.LessOrEqual(t, len(ex), excerptLength+6)
	assert.True(t, strings.HasSuffix(ex, "..."))

	ex = buildExcerpt(long, 300)
	assert.True(t, strings.HasPrefix(ex, "..."))
}
