package embedder

import (
	"fmt"
	"strings"

	"github.com/jmorgan/contentindex/internal/config"
)

// New builds a Generator from configuration. Provider selection is
// explicit; nothing here inspects the environment.
func New(cfg *config.Config) (*Generator, error) {
	var provider Provider
	switch strings.ToLower(cfg.Embedding.Provider) {
	case ProviderOllama:
		provider = NewOllamaProvider(cfg.Embedding.BaseURL, cfg.Embedding.ModelName)
	case ProviderOpenAI:
		p, err := NewOpenAIProvider(cfg.Embedding.APIKey, cfg.Embedding.ModelName)
		if err != nil {
			return nil, err
		}
		provider = p
	case ProviderLocal:
		provider = NewLocalProvider()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Embedding.Provider)
	}

	var cache *Cache
	if cfg.Processing.EnableCache {
		c, err := NewCache(DefaultCacheSize, cfg.Processing.CacheDir)
		if err != nil {
			_ = provider.Close()
			return nil, err
		}
		cache = c
	}

	gen := NewGenerator(provider, cache, cfg.Embedding.BatchSize, cfg.Embedding.MaxSequenceLength)
	gen.device = cfg.Embedding.Device
	return gen, nil
}
