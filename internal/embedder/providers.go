package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/cenkalti/backoff/v4"
)

// Provider names
const (
	ProviderHash   = "hash"
	ProviderServer = "server"

	// HashDimension matches the MiniLM-class sentence encoders the vault
	// was designed around.
	HashDimension = 384

	DefaultServerEndpoint = "http://127.0.0.1:11434/v1/embeddings"
	DefaultServerModel    = "nomic-embed-text"

	requestTimeout = 30 * time.Second
	maxRetryTime   = 20 * time.Second
)

// HashProvider is the default offline encoder: a signed feature-hashing
// bag-of-words embedding. It is deterministic, needs no model files, and
// keeps lexically similar texts close in vector space, which is what the
// retrieval tests and air-gapped installs rely on.
type HashProvider struct {
	cache *Cache
}

// NewHashProvider creates the offline hashing encoder.
func NewHashProvider(cache *Cache) *HashProvider {
	return &HashProvider{cache: cache}
}

func (p *HashProvider) GenerateEmbedding(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	hash := ComputeHash(text)
	if p.cache != nil {
		if emb, ok := p.cache.Get(hash); ok {
			return emb, nil
		}
	}

	vector := make([]float32, HashDimension)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()
		idx := int(sum % HashDimension)
		// Sign bit from a disjoint part of the hash keeps colliding tokens
		// from always reinforcing each other.
		if sum&0x80000000 != 0 {
			vector[idx] -= 1
		} else {
			vector[idx] += 1
		}
	}
	NormalizeVector(vector)

	emb := &Embedding{
		Vector:    vector,
		Dimension: HashDimension,
		Provider:  ProviderHash,
		Model:     "feature-hash-v1",
		Hash:      hash,
	}
	if p.cache != nil {
		p.cache.Set(hash, emb)
	}
	return emb, nil
}

func (p *HashProvider) GenerateBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	embeddings := make([]*Embedding, len(texts))
	for i, text := range texts {
		emb, err := p.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (p *HashProvider) Dimension() int   { return HashDimension }
func (p *HashProvider) Provider() string { return ProviderHash }
func (p *HashProvider) Model() string    { return "feature-hash-v1" }
func (p *HashProvider) Close() error     { return nil }

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ServerProvider talks to a local OpenAI-compatible embeddings endpoint
// (llama.cpp server, Ollama, and the like). The vault stays offline: the
// endpoint defaults to loopback and nothing is fetched at runtime beyond
// the embedding calls themselves.
type ServerProvider struct {
	endpoint   string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewServerProvider creates a provider for a local embeddings server.
// dimension must match the model served at the endpoint.
func NewServerProvider(endpoint, model string, dimension int, cache *Cache) (*ServerProvider, error) {
	if endpoint == "" {
		endpoint = DefaultServerEndpoint
	}
	if model == "" {
		model = DefaultServerModel
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidInput)
	}
	return &ServerProvider{
		endpoint:  endpoint,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		cache: cache,
	}, nil
}

func (p *ServerProvider) GenerateEmbedding(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	hash := ComputeHash(text)
	if p.cache != nil {
		if emb, ok := p.cache.Get(hash); ok {
			return emb, nil
		}
	}
	embeddings, err := p.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (p *ServerProvider) GenerateBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}

	var embeddings []*Embedding
	operation := func() error {
		var err error
		embeddings, err = p.callAPI(ctx, texts)
		return err
	}
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxRetryTime),
	), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if p.cache != nil {
		for i, emb := range embeddings {
			emb.Hash = ComputeHash(texts[i])
			p.cache.Set(emb.Hash, emb)
		}
	}
	return embeddings, nil
}

func (p *ServerProvider) callAPI(ctx context.Context, texts []string) ([]*Embedding, error) {
	reqBody := map[string]any{
		"input": texts,
		"model": p.model,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, backoff.Permanent(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(apiResp.Data)))
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    NormalizeVector(data.Embedding),
			Dimension: len(data.Embedding),
			Provider:  ProviderServer,
			Model:     p.model,
		}
	}
	return embeddings, nil
}

func (p *ServerProvider) Dimension() int   { return p.dimension }
func (p *ServerProvider) Provider() string { return ProviderServer }
func (p *ServerProvider) Model() string    { return p.model }

func (p *ServerProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
