package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jmorgan/contentindex/pkg/types"
)

// Config is the explicit configuration value passed into each component's
// constructor. There is no global instance; Load (or Default) produces one
// and callers hand it down.
type Config struct {
	Embedding struct {
		Provider          string  `yaml:"provider"`
		ModelName         string  `yaml:"model_name"`
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		Device            string  `yaml:"device"`
		BatchSize         int     `yaml:"batch_size"`
		MaxSequenceLength int     `yaml:"max_sequence_length"`
	} `yaml:"embedding"`

	Chunking struct {
		ChunkSize        int    `yaml:"chunk_size"`
		ChunkOverlap     int    `yaml:"chunk_overlap"`
		MinChunkSize     int    `yaml:"min_chunk_size"`
		Strategy         string `yaml:"strategy"` // simple, recursive, sections
		PreserveSections bool   `yaml:"preserve_sections"`
	} `yaml:"chunking"`

	Database struct {
		Path      string `yaml:"path"`
		TableName string `yaml:"table_name"`
	} `yaml:"database"`

	Content struct {
		Root                string   `yaml:"root"`
		SupportedCategories []string `yaml:"supported_categories"`
		MarkdownFile        string   `yaml:"markdown_file"`
		MetadataFile        string   `yaml:"metadata_file"`
		MarkdownConverter   string   `yaml:"markdown_converter"` // goldmark, plain
		IncludeDrafts       bool     `yaml:"include_drafts"`
		MinContentLength    int      `yaml:"min_content_length"`
		BaseURL             string   `yaml:"base_url"`
	} `yaml:"content"`

	Processing struct {
		MaxWorkers  int    `yaml:"max_workers"`
		EnableCache bool   `yaml:"enable_cache"`
		CacheDir    string `yaml:"cache_dir"`
	} `yaml:"processing"`

	Search struct {
		// MaxDistance caps the squared-Euclidean distance used to normalize
		// semantic scores: score = max(0, 1 - distance/MaxDistance). The
		// default of 4.0 fits unit-normalized embeddings; re-derive it when
		// swapping models.
		MaxDistance         float64 `yaml:"max_distance"`
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
		DefaultLimit        int     `yaml:"default_limit"`
	} `yaml:"search"`
}

// Load reads a YAML config file, merges environment overrides and applies
// defaults. An empty path falls back to conventional locations, then to
// pure defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		locations := []string{
			"contentindex.yaml",
			"contentindex.yml",
			filepath.Join(os.Getenv("HOME"), ".config/contentindex/config.yaml"),
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	mergeEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns a configuration with defaults and env overrides only.
func Default() *Config {
	cfg := &Config{}
	mergeEnv(cfg)
	applyDefaults(cfg)
	return cfg
}

// Categories returns the supported categories as typed values.
func (c *Config) Categories() []types.Category {
	out := make([]types.Category, 0, len(c.Content.SupportedCategories))
	for _, s := range c.Content.SupportedCategories {
		out = append(out, types.Category(s))
	}
	return out
}

func applyDefaults(c *Config) {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "ollama"
	}
	if c.Embedding.ModelName == "" {
		c.Embedding.ModelName = "nomic-embed-text"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "http://localhost:11434"
	}
	if c.Embedding.Device == "" {
		c.Embedding.Device = "cpu"
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 16
	}
	if c.Embedding.MaxSequenceLength == 0 {
		c.Embedding.MaxSequenceLength = 512
	}

	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = 1000
	}
	if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = 200
	}
	if c.Chunking.MinChunkSize == 0 {
		c.Chunking.MinChunkSize = 100
	}
	if c.Chunking.Strategy == "" {
		if c.Chunking.PreserveSections {
			c.Chunking.Strategy = "sections"
		} else {
			c.Chunking.Strategy = "recursive"
		}
	}

	if c.Database.Path == "" {
		c.Database.Path = "./data/contentindex.db"
	}
	if c.Database.TableName == "" {
		c.Database.TableName = "content_index"
	}

	if c.Content.Root == "" {
		c.Content.Root = "./data/content"
	}
	if len(c.Content.SupportedCategories) == 0 {
		c.Content.SupportedCategories = []string{"blog", "engineering"}
	}
	if c.Content.MarkdownFile == "" {
		c.Content.MarkdownFile = "body.md"
	}
	if c.Content.MetadataFile == "" {
		c.Content.MetadataFile = "metadata.yaml"
	}
	if c.Content.MarkdownConverter == "" {
		c.Content.MarkdownConverter = "goldmark"
	}
	if c.Content.MinContentLength == 0 {
		c.Content.MinContentLength = 100
	}
	if c.Content.BaseURL == "" {
		c.Content.BaseURL = "https://example.com"
	}

	if c.Processing.MaxWorkers == 0 {
		c.Processing.MaxWorkers = 2
	}
	if c.Processing.CacheDir == "" {
		c.Processing.CacheDir = "./data/cache"
	}

	if c.Search.MaxDistance == 0 {
		c.Search.MaxDistance = 4.0
	}
	if c.Search.SimilarityThreshold == 0 {
		c.Search.SimilarityThreshold = 0.5
	}
	if c.Search.DefaultLimit == 0 {
		c.Search.DefaultLimit = 10
	}
}

func mergeEnv(c *Config) {
	if v := os.Getenv("CONTENTINDEX_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CONTENTINDEX_CONTENT_ROOT"); v != "" {
		c.Content.Root = v
	}
	if v := os.Getenv("CONTENTINDEX_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Embedding.APIKey == "" {
		c.Embedding.APIKey = v
	}
}
