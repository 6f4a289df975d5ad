package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Common errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrProviderFailed      = errors.New("embedding provider failed")
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrNotAvailable        = errors.New("embedding provider not available")
)

const (
	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	// DefaultCacheSize is the in-memory LRU capacity when caching is on.
	DefaultCacheSize = 10000
)

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Provider  string `json:"provider"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Dimension int    `json:"dimension"`

	// Device is where the model runs, from configuration. Remote
	// providers leave it to the backend; it is informational only.
	Device string `json:"device,omitempty"`
}

// Provider generates embedding vectors for text. Implementations must
// return one vector per input, in input order.
type Provider interface {
	// EmbedBatch embeds every text in one provider call where the API
	// allows it. Inputs are assumed non-empty.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Info reports the model identity and output dimension.
	Info() ModelInfo

	// Close releases any resources held by the provider.
	Close() error
}

// cacheKey binds a cached vector to the model that produced it, so
// switching models never serves stale vectors.
func cacheKey(info ModelInfo, text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s|%s|%d|%s", info.Name, info.Version, info.Dimension, hex.EncodeToString(h[:]))
}

// Truncate shortens text to at most maxChars, pulling the cut back to
// the last sentence terminator found in the final fifth of the window
// so embeddings are not computed on a half sentence. maxChars <= 0
// disables truncation.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	// Never split a multi-byte rune at the cut point.
	end := maxChars
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	cut := text[:end]
	floor := maxChars - maxChars/5
	if p := strings.LastIndex(cut, "."); p+1 > floor {
		cut = cut[:p+1]
	}
	return strings.TrimSpace(cut)
}
