package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorgan/contentindex/pkg/types"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "nomic-embed-text", cfg.Embedding.ModelName)
	assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 200, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, "recursive", cfg.Chunking.Strategy)
	assert.Equal(t, "content_index", cfg.Database.TableName)
	assert.Equal(t, []string{"blog", "engineering"}, cfg.Content.SupportedCategories)
	assert.Equal(t, "goldmark", cfg.Content.MarkdownConverter)
	assert.Equal(t, 4.0, cfg.Search.MaxDistance)
	assert.Equal(t, 0.5, cfg.Search.SimilarityThreshold)

	assert.Empty(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedding:
  provider: local
  batch_size: 8
chunking:
  chunk_size: 500
  strategy: sections
database:
  path: /tmp/custom.db
content:
  supported_categories:
    - blog
search:
  default_limit: 25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 8, cfg.Embedding.BatchSize)
	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
	assert.Equal(t, "sections", cfg.Chunking.Strategy)
	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, []string{"blog"}, cfg.Content.SupportedCategories)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)

	// Unset fields still get defaults.
	assert.Equal(t, 200, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, "content_index", cfg.Database.TableName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: ["), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONTENTINDEX_DB_PATH", "/tmp/env.db")
	t.Setenv("CONTENTINDEX_EMBEDDING_PROVIDER", "local")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama.internal:11434")

	cfg := Default()
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, "http://ollama.internal:11434", cfg.Embedding.BaseURL)
}

func TestAPIKeyFromEnvDoesNotOverrideFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  api_key: file-key\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.Embedding.APIKey)
}

func TestPreserveSectionsSelectsStrategy(t *testing.T) {
	cfg := &Config{}
	cfg.Chunking.PreserveSections = true
	applyDefaults(cfg)
	assert.Equal(t, "sections", cfg.Chunking.Strategy)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "carrier-pigeon"
	cfg.Chunking.ChunkOverlap = cfg.Chunking.ChunkSize
	cfg.Chunking.MinChunkSize = cfg.Chunking.ChunkSize + 1
	cfg.Database.TableName = ""
	cfg.Search.SimilarityThreshold = 1.5

	errs := cfg.Validate()
	require.Len(t, errs, 5)

	fields := make(map[string]bool, len(errs))
	for _, e := range errs {
		fields[e.Field] = true
		assert.Contains(t, e.Error(), e.Field)
	}
	assert.True(t, fields["embedding.provider"])
	assert.True(t, fields["chunking.chunk_overlap"])
	assert.True(t, fields["chunking.min_chunk_size"])
	assert.True(t, fields["database.table_name"])
	assert.True(t, fields["search.similarity_threshold"])
}

func TestCategories(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []types.Category{types.CategoryBlog, types.CategoryEngineering}, cfg.Categories())
}
