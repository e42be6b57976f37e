// Package retrieval implements ranked semantic search over the vault:
// embed the query, scan the vector index, and join the winning chunk ids
// back to their catalog rows for provenance.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docvault/docvault/internal/blobstore"
	"github.com/docvault/docvault/internal/catalog"
	"github.com/docvault/docvault/internal/embedder"
	"github.com/docvault/docvault/internal/vecindex"
	"github.com/docvault/docvault/pkg/types"
)

// ErrEmptyQuery is returned when the query has no content to embed.
var ErrEmptyQuery = errors.New("query cannot be empty")

// DefaultTopK is the result count when the caller passes k <= 0.
const DefaultTopK = 5

// Searcher answers queries against a catalog and vector index pair. Both
// must have been written by the same embedder the Searcher queries with.
type Searcher struct {
	cat *catalog.Catalog
	idx *vecindex.Index
	emb embedder.Embedder
}

// NewSearcher creates a Searcher over the given stores.
func NewSearcher(cat *catalog.Catalog, idx *vecindex.Index, emb embedder.Embedder) *Searcher {
	return &Searcher{cat: cat, idx: idx, emb: emb}
}

// Search returns the topK best-scoring chunks for query, ranked by
// descending cosine similarity. Vector ids with no surviving catalog row
// are dropped silently; the index and catalog may drift apart between
// rebuilds and a narrower result beats a failed query.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	emb, err := s.emb.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.idx.Search(emb.Vector, topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []types.SearchResult{}, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	chunks, err := s.cat.LookupChunks(ctx, ids)
	if err != nil {
		return nil, err
	}

	fileIDs := make([]int64, 0, len(chunks))
	seen := make(map[int64]bool, len(chunks))
	for _, chunk := range chunks {
		if !seen[chunk.FileID] {
			seen[chunk.FileID] = true
			fileIDs = append(fileIDs, chunk.FileID)
		}
	}
	files, err := s.cat.LookupFiles(ctx, fileIDs)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := chunks[hit.ID]
		if !ok {
			continue
		}
		file, ok := files[chunk.FileID]
		if !ok {
			continue
		}
		results = append(results, types.SearchResult{
			Score:   hit.Score,
			File:    file.Name,
			Page:    chunk.Page,
			Snippet: chunk.Snippet,
			Hash:    blobstore.AlgorithmPrefix + ":" + file.Digest,
		})
	}
	return results, nil
}

// FormatQuoted renders results as markdown blockquotes with source
// attribution. Each file appears once, at its best-scoring position.
func FormatQuoted(results []types.SearchResult) string {
	if len(results) == 0 {
		return "No matching passages found."
	}
	var b strings.Builder
	quoted := make(map[string]bool, len(results))
	for _, r := range results {
		if quoted[r.File] {
			continue
		}
		quoted[r.File] = true
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "> %s\n", r.Snippet)
		fmt.Fprintf(&b, "> (%s, page %d)\n", r.File, r.Page)
	}
	return b.String()
}
