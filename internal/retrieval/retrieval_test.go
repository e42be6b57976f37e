package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault/docvault/internal/catalog"
	"github.com/docvault/docvault/internal/embedder"
	"github.com/docvault/docvault/internal/vecindex"
	"github.com/docvault/docvault/pkg/types"
)

// fixture is a catalog/index pair populated through the same embedder the
// searcher queries with.
type fixture struct {
	cat *catalog.Catalog
	idx *vecindex.Index
	emb embedder.Embedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderHash})
	require.NoError(t, err)
	idx, err := vecindex.New(emb.Dimension())
	require.NoError(t, err)
	return &fixture{cat: cat, idx: idx, emb: emb}
}

// addDocument inserts one single-page file whose text is one chunk.
func (f *fixture) addDocument(t *testing.T, name, digest, text string) {
	t.Helper()
	ctx := context.Background()
	fileID, err := f.cat.RegisterFile(ctx, types.FileMeta{
		Name: name, Digest: digest, Size: int64(len(text)), StoredPath: "/objects/" + digest,
	})
	require.NoError(t, err)
	chunkID, err := f.cat.InsertChunk(ctx, fileID, 1, text, text)
	require.NoError(t, err)

	e, err := f.emb.GenerateEmbedding(ctx, text)
	require.NoError(t, err)
	require.NoError(t, f.idx.Add([][]float32{e.Vector}, []int64{chunkID}))
}

func TestSearch_RanksMatchingDocumentFirst(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "recipes.txt", "d1", "braise the short ribs in red wine for three hours")
	f.addDocument(t, "finance.txt", "d2", "quarterly revenue grew twelve percent year over year")

	s := NewSearcher(f.cat, f.idx, f.emb)
	results, err := s.Search(context.Background(), "quarterly revenue growth", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "finance.txt", results[0].File)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, 1, results[0].Page)
	assert.Equal(t, "b3:d2", results[0].Hash)
	assert.NotEmpty(t, results[0].Snippet)
}

func TestSearch_EmptyIndexReturnsEmpty(t *testing.T) {
	f := newFixture(t)
	s := NewSearcher(f.cat, f.idx, f.emb)

	results, err := s.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	f := newFixture(t)
	s := NewSearcher(f.cat, f.idx, f.emb)

	_, err := s.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_DriftedIDsSkipped(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "kept.txt", "d1", "the kept document mentions lighthouses")

	// A vector whose chunk row never existed simulates catalog/index drift.
	e, err := f.emb.GenerateEmbedding(context.Background(), "orphaned lighthouse text")
	require.NoError(t, err)
	require.NoError(t, f.idx.Add([][]float32{e.Vector}, []int64{9999}))

	s := NewSearcher(f.cat, f.idx, f.emb)
	results, err := s.Search(context.Background(), "lighthouses", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kept.txt", results[0].File)
}

func TestSearch_TopKDefaulted(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "a.txt", "d1", "alpha")

	s := NewSearcher(f.cat, f.idx, f.emb)
	results, err := s.Search(context.Background(), "alpha", 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestFormatQuoted_DedupesFiles(t *testing.T) {
	results := []types.SearchResult{
		{File: "a.txt", Page: 1, Snippet: "first passage", Score: 0.9},
		{File: "a.txt", Page: 2, Snippet: "second passage same file", Score: 0.8},
		{File: "b.txt", Page: 5, Snippet: "other file", Score: 0.7},
	}
	out := FormatQuoted(results)

	assert.Equal(t, 1, strings.Count(out, "a.txt"))
	assert.Contains(t, out, "> first passage")
	assert.NotContains(t, out, "second passage")
	assert.Contains(t, out, "(b.txt, page 5)")
}

func TestFormatQuoted_Empty(t *testing.T) {
	assert.Equal(t, "No matching passages found.", FormatQuoted(nil))
}

type stubGenerator struct {
	reply string
	err   error
	seen  string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.seen = prompt
	return g.reply, g.err
}

func TestAnswer_UsesGeneratorWhenAvailable(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "policy.txt", "d1", "vacation requests require two weeks notice")

	gen := &stubGenerator{reply: "Two weeks notice is required."}
	a := NewAnswerer(NewSearcher(f.cat, f.idx, f.emb), gen)

	answer, err := a.Answer(context.Background(), "how much notice for vacation", 3)
	require.NoError(t, err)
	assert.True(t, answer.Generated)
	assert.Equal(t, "Two weeks notice is required.", answer.Text)
	require.NotEmpty(t, answer.Sources)
	assert.Contains(t, gen.seen, "policy.txt")
	assert.Contains(t, gen.seen, "how much notice for vacation")
}

func TestAnswer_FallsBackToQuotesWithoutGenerator(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "policy.txt", "d1", "vacation requests require two weeks notice")

	a := NewAnswerer(NewSearcher(f.cat, f.idx, f.emb), nil)
	answer, err := a.Answer(context.Background(), "vacation notice", 3)
	require.NoError(t, err)
	assert.False(t, answer.Generated)
	assert.Contains(t, answer.Text, "> vacation requests require two weeks notice")
}

func TestAnswer_GeneratorFailureDegradesToQuotes(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "policy.txt", "d1", "vacation requests require two weeks notice")

	gen := &stubGenerator{err: errors.New("model not loaded")}
	a := NewAnswerer(NewSearcher(f.cat, f.idx, f.emb), gen)

	answer, err := a.Answer(context.Background(), "vacation notice", 3)
	require.NoError(t, err)
	assert.False(t, answer.Generated)
	assert.Contains(t, answer.Text, "policy.txt")
}

func TestAnswer_NoResults(t *testing.T) {
	f := newFixture(t)
	a := NewAnswerer(NewSearcher(f.cat, f.idx, f.emb), nil)

	answer, err := a.Answer(context.Background(), "anything at all", 3)
	require.NoError(t, err)
	assert.False(t, answer.Generated)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, "No matching passages found.", answer.Text)
}
