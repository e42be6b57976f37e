package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestHashProvider_Deterministic(t *testing.T) {
	p := NewHashProvider(nil)
	ctx := context.Background()

	e1, err := p.GenerateEmbedding(ctx, "the quick brown fox")
	require.NoError(t, err)
	e2, err := p.GenerateEmbedding(ctx, "the quick brown fox")
	require.NoError(t, err)

	assert.Equal(t, e1.Vector, e2.Vector)
	assert.Equal(t, HashDimension, e1.Dimension)
	assert.Len(t, e1.Vector, HashDimension)
}

func TestHashProvider_VectorsAreUnitLength(t *testing.T) {
	p := NewHashProvider(nil)
	e, err := p.GenerateEmbedding(context.Background(), "normalize me please")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vectorNorm(e.Vector), 1e-5)
}

func TestHashProvider_SimilarTextScoresHigher(t *testing.T) {
	p := NewHashProvider(nil)
	ctx := context.Background()

	query, err := p.GenerateEmbedding(ctx, "quick brown fox")
	require.NoError(t, err)
	related, err := p.GenerateEmbedding(ctx, "the quick brown fox jumps over the lazy dog")
	require.NoError(t, err)
	unrelated, err := p.GenerateEmbedding(ctx, "quarterly revenue projections spreadsheet")
	require.NoError(t, err)

	assert.Greater(t, dot(query.Vector, related.Vector), dot(query.Vector, unrelated.Vector))
}

func TestHashProvider_EmptyTextRejected(t *testing.T) {
	p := NewHashProvider(nil)
	_, err := p.GenerateEmbedding(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestHashProvider_BatchPreservesOrder(t *testing.T) {
	p := NewHashProvider(nil)
	ctx := context.Background()

	texts := []string{"alpha", "beta", "gamma"}
	batch, err := p.GenerateBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := p.GenerateEmbedding(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single.Vector, batch[i].Vector, "index %d", i)
	}
}

func TestHashProvider_EmptyBatchRejected(t *testing.T) {
	p := NewHashProvider(nil)
	_, err := p.GenerateBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCache_ReturnsDeepCopy(t *testing.T) {
	cache := NewCache(10)
	p := NewHashProvider(cache)
	ctx := context.Background()

	e1, err := p.GenerateEmbedding(ctx, "cache me")
	require.NoError(t, err)

	// Mutate the returned vector; the cached copy must not change.
	e1.Vector[0] = 42

	e2, err := p.GenerateEmbedding(ctx, "cache me")
	require.NoError(t, err)
	assert.NotEqual(t, float32(42), e2.Vector[0])
}

func TestCache_SetStoresCopy(t *testing.T) {
	cache := NewCache(10)
	emb := &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3, Hash: "h"}
	cache.Set("h", emb)

	// Mutating the value handed to Set must not reach the cached copy.
	emb.Vector[0] = 42

	cached, ok := cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, float32(1), cached.Vector[0])
}

func TestNormalizeVector_ZeroVectorStaysFinite(t *testing.T) {
	v := make([]float32, 8)
	NormalizeVector(v)
	for i, val := range v {
		assert.False(t, math.IsNaN(float64(val)), "index %d is NaN", i)
		assert.False(t, math.IsInf(float64(val), 0), "index %d is Inf", i)
	}
}

func TestNew_UnknownProviderRejected(t *testing.T) {
	_, err := New(Config{Provider: "faiss"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNew_DefaultsToHashProvider(t *testing.T) {
	emb, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, ProviderHash, emb.Provider())
	assert.Equal(t, HashDimension, emb.Dimension())
}
