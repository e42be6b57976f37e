package embedder

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/docvault/docvault/internal/config"
)

// Config holds embedder construction options.
type Config struct {
	Provider  string
	Endpoint  string
	Model     string
	Dimension int
	CacheSize int
}

// New creates an embedder with explicit configuration.
func New(cfg Config) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderHash:
		return NewHashProvider(cache), nil
	case ProviderServer:
		dim := cfg.Dimension
		if dim <= 0 {
			dim = HashDimension
		}
		return NewServerProvider(cfg.Endpoint, cfg.Model, dim, cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// NewFromEnv creates an embedder from DOCVAULT_EMBEDDING_* environment
// variables, defaulting to the offline hashing encoder.
func NewFromEnv() (Embedder, error) {
	dim := 0
	if raw := os.Getenv("DOCVAULT_EMBEDDING_DIM"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad DOCVAULT_EMBEDDING_DIM %q", ErrInvalidInput, raw)
		}
		dim = parsed
	}
	return New(Config{
		Provider:  os.Getenv(config.EnvEmbeddingProvider),
		Endpoint:  os.Getenv(config.EnvEmbeddingEndpoint),
		Model:     os.Getenv(config.EnvEmbeddingModel),
		Dimension: dim,
	})
}

var (
	sharedMu sync.Mutex
	shared   Embedder
)

// Shared returns the process-wide embedder, constructing it from the
// environment on first use. Construction is idempotent; later calls return
// the cached instance. Indexing and query paths must use the same instance
// so that both sides normalize identically.
func Shared() (Embedder, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil {
		return shared, nil
	}
	emb, err := NewFromEnv()
	if err != nil {
		return nil, err
	}
	shared = emb
	return shared, nil
}
