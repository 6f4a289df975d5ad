package loader

import (
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

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Content.Root = t.TempDir()
	cfg.Content.MinContentLength = 20
	return cfg
}

func writeDoc(t *testing.T, cfg *config.Config, category, slug, metadata, body string) string {
	t.Helper()
	dir := filepath.Join(cfg.Content.Root, category, slug)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if metadata != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, cfg.Content.MetadataFile), []byte(metadata), 0o644))
	}
	if body != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, cfg.Content.MarkdownFile), []byte(body), 0o644))
	}
	return dir
}

func metaYAML(title, slug, category, status string) string {
	return fmt.Sprintf(`title: %q
slug: %s
category: %s
status: %s
author: Jane Author
publish_date: "2025-03-01"
last_modified: "2025-03-02"
description: A short description.
excerpt: An excerpt.
reading_time: 3
word_count: 600
`, title, slug, category, status)
}

const sampleBody = "# Heading\n\nThis is a body long enough to index, with several words in it.\n"

func TestNewRequiresContentRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Content.Root = filepath.Join(t.TempDir(), "missing")
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg, "blog", "complete", metaYAML("Complete", "complete", "blog", "published"), sampleBody)
	writeDoc(t, cfg, "blog", "no-body", metaYAML("No Body", "no-body", "blog", "published"), "")
	writeDoc(t, cfg, "blog", "no-meta", "", sampleBody)
	writeDoc(t, cfg, "engineering", "infra", metaYAML("Infra", "infra", "engineering", "published"), sampleBody)

	// Stray file at category level must be ignored.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Content.Root, "blog", "README.md"), []byte("x"), 0o644))

	// Unsupported categories are not walked.
	writeDoc(t, cfg, "recipes", "soup", metaYAML("Soup", "soup", "recipes", "published"), sampleBody)

	l, err := New(cfg)
	require.NoError(t, err)

	dirs, err := l.Discover()
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Contains(t, dirs[0], filepath.Join("blog", "complete"))
	assert.Contains(t, dirs[1], filepath.Join("engineering", "infra"))
}

func TestLoadMetadata(t *testing.T) {
	cfg := testConfig(t)
	dir := writeDoc(t, cfg, "blog", "post", `title: "A Post"
slug: post
category: blog
author: Jane
publish_date: "2025-03-01"
last_modified: "2025-03-02"
description: A short description.
excerpt: An excerpt.
reading_time: 3
word_count: 600
tags:
  - go
  - sqlite
series: databases
difficulty: 3
`, sampleBody)

	l, err := New(cfg)
	require.NoError(t, err)

	meta, err := l.LoadMetadata(filepath.Join(dir, cfg.Content.MetadataFile))
	require.NoError(t, err)

	assert.Equal(t, "A Post", meta.Title)
	assert.Equal(t, types.CategoryBlog, meta.Category)
	assert.Equal(t, []string{"go", "sqlite"}, meta.Tags)
	assert.Equal(t, types.StatusPublished, meta.Status, "status defaults when omitted")

	// Keys beyond the typed fields land in Extra.
	assert.Equal(t, "databases", meta.Extra["series"])
	assert.Equal(t, 3, meta.Extra["difficulty"])
	assert.NotContains(t, meta.Extra, "title")
	assert.NotContains(t, meta.Extra, "tags")
}

func TestLoadMetadataErrors(t *testing.T) {
	cfg := testConfig(t)
	l, err := New(cfg)
	require.NoError(t, err)

	badYAML := writeDoc(t, cfg, "blog", "bad-yaml", "title: [unclosed", sampleBody)
	_, err = l.LoadMetadata(filepath.Join(badYAML, cfg.Content.MetadataFile))
	assert.ErrorIs(t, err, ErrParse)

	noTitle := writeDoc(t, cfg, "blog", "no-title", "slug: no-title\ncategory: blog\n", sampleBody)
	_, err = l.LoadMetadata(filepath.Join(noTitle, cfg.Content.MetadataFile))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = l.LoadMetadata(filepath.Join(cfg.Content.Root, "does-not-exist.yaml"))
	assert.ErrorIs(t, err, ErrParse)
}

func TestLoadDocument(t *testing.T) {
	cfg := testConfig(t)
	dir := writeDoc(t, cfg, "blog", "post", metaYAML("A Post", "post", "blog", "published"),
		"# A Post\n\nSome **bold** text with a [link](https://example.com) in it.\n")

	l, err := New(cfg)
	require.NoError(t, err)

	doc, err := l.LoadDocument(dir)
	require.NoError(t, err)

	assert.Equal(t, "A Post", doc.Metadata.Title)
	assert.Contains(t, doc.RawContent, "**bold**")
	assert.Contains(t, doc.ProcessedContent, "Some bold text with a link in it.")
	assert.NotContains(t, doc.ProcessedContent, "**")
	assert.NotContains(t, doc.ProcessedContent, "](")
	assert.Greater(t, doc.FileSizeBytes, int64(0))
	assert.False(t, doc.FileModTime.IsZero())
}

func TestLoadDocumentCategoryMismatch(t *testing.T) {
	cfg := testConfig(t)
	dir := writeDoc(t, cfg, "blog", "post", metaYAML("A Post", "post", "engineering", "published"), sampleBody)

	l, err := New(cfg)
	require.NoError(t, err)

	_, err = l.LoadDocument(dir)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "does not match directory")
}

func TestLoadDocumentTooShort(t *testing.T) {
	cfg := testConfig(t)
	cfg.Content.MinContentLength = 500
	dir := writeDoc(t, cfg, "blog", "post", metaYAML("A Post", "post", "blog", "published"), sampleBody)

	l, err := New(cfg)
	require.NoError(t, err)

	_, err = l.LoadDocument(dir)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "too short")
}

func TestShouldInclude(t *testing.T) {
	cfg := testConfig(t)
	l, err := New(cfg)
	require.NoError(t, err)

	assert.True(t, l.ShouldInclude(&types.Metadata{Status: types.StatusPublished}))
	assert.False(t, l.ShouldInclude(&types.Metadata{Status: types.StatusDraft}))
	assert.False(t, l.ShouldInclude(&types.Metadata{Status: types.StatusArchived}))

	cfg.Content.IncludeDrafts = true
	assert.True(t, l.ShouldInclude(&types.Metadata{Status: types.StatusDraft}))
	assert.False(t, l.ShouldInclude(&types.Metadata{Status: types.StatusArchived}),
		"archived documents are never included")
}

func TestLoadAll(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg, "blog", "good", metaYAML("Good", "good", "blog", "published"), sampleBody)
	writeDoc(t, cfg, "blog", "draft", metaYAML("Draft", "draft", "blog", "draft"), sampleBody)
	writeDoc(t, cfg, "blog", "broken", "title: [unclosed", sampleBody)
	writeDoc(t, cfg, "engineering", "infra", metaYAML("Infra", "infra", "engineering", "published"), sampleBody)

	l, err := New(cfg)
	require.NoError(t, err)

	docs, errs := l.LoadAll()
	require.Len(t, docs, 2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken")

	slugs := []string{docs[0].Metadata.Slug, docs[1].Metadata.Slug}
	assert.ElementsMatch(t, []string{"good", "infra"}, slugs)
}

func TestLoadBySlug(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg, "blog", "post", metaYAML("A Post", "post", "blog", "published"), sampleBody)

	l, err := New(cfg)
	require.NoError(t, err)

	doc, err := l.LoadBySlug(types.CategoryBlog, "post")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "post", doc.Metadata.Slug)

	doc, err = l.LoadBySlug(types.CategoryBlog, "nope")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestStats(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg, "blog", "one", metaYAML("One", "one", "blog", "published"), sampleBody)
	writeDoc(t, cfg, "blog", "two", metaYAML("Two", "two", "blog", "draft"), sampleBody)
	writeDoc(t, cfg, "engineering", "three", metaYAML("Three", "three", "engineering", "published"), sampleBody)
	writeDoc(t, cfg, "blog", "broken", "title: [unclosed", sampleBody)

	l, err := New(cfg)
	require.NoError(t, err)

	stats, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDocuments)
	assert.Equal(t, 2, stats.ByCategory[types.CategoryBlog])
	assert.Equal(t, 1, stats.ByCategory[types.CategoryEngineering])
	assert.Equal(t, 1, stats.ByStatus[types.StatusDraft])
	assert.Equal(t, 2, stats.ByStatus[types.StatusPublished])
	require.Len(t, stats.ErrorDirs, 1)
	assert.Contains(t, stats.ErrorDirs[0], "broken")
}

func TestGoldmarkSkipsCodeBlocks(t *testing.T) {
	conv, err := NewConverter("goldmark")
	require.NoError(t, err)

	out, err := conv.ToText("Before.\n\n```go\nfunc secret() {}\n```\n\nAfter.\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Before.")
	assert.Contains(t, out, "After.")
	assert.NotContains(t, out, "secret")
}

func TestPlainConverter(t *testing.T) {
	conv, err := NewConverter("plain")
	require.NoError(t, err)

	out, err := conv.ToText("## Title\n\nSome *text* with `code` and a [link](https://x.io).\n\n- item one\n- item two\n")
	require.NoError(t, err)
	assert.NotContains(t, out, "##")
	assert.NotContains(t, out, "*")
	assert.NotContains(t, out, "`")
	assert.Contains(t, out, "Some text with code and a link.")
	assert.Contains(t, out, "item one")
	assert.True(t, !strings.Contains(out, "- item"))
}

func TestUnknownConverter(t *testing.T) {
	_, err := NewConverter("pandoc")
	assert.Error(t, err)
}

func TestNormalizeWhitespace(t *testing.T) {
	in := "line one  \t with   spaces\r\n\r\n\r\n\r\nline two\r\n"
	out := normalizeWhitespace(in)
	assert.Equal(t, "line one with spaces\n\nline two", out)
}
