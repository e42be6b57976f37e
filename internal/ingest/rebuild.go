package ingest

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/docvault/docvault/internal/extractor"
	"github.com/docvault/docvault/internal/manifest"
	"github.com/docvault/docvault/internal/vecindex"
	"github.com/docvault/docvault/pkg/types"
)

// RebuildStats reports what a rebuild produced.
type RebuildStats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Skipped   int `json:"skipped"`
}

// stagedChunk is one chunk prepared off the write path.
type stagedChunk struct {
	page    int
	text    string
	snippet string
	vector  []float32
}

// stagedDoc is one document fully re-derived from its blob, ready to commit.
type stagedDoc struct {
	meta   types.FileMeta
	pages  int
	chunks []stagedChunk
}

// RebuildFromManifest re-derives the catalog and vector index from the
// manifest and the blob store. Extraction and embedding run concurrently
// per document; commits are serialized so chunk ids stay dense and the
// catalog-before-vectors ordering holds.
//
// Documents whose blobs are missing are skipped and counted, not fatal:
// the manifest may describe content that was pruned from the store.
func (ing *Ingester) RebuildFromManifest(ctx context.Context) (RebuildStats, error) {
	if !ing.lock.TryAcquire() {
		return RebuildStats{}, ErrBusy
	}
	defer ing.lock.Release()

	docs, err := ing.man.ListDocuments()
	if err != nil {
		return RebuildStats{}, err
	}

	staged := make([]*stagedDoc, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, doc := range docs {
		g.Go(func() error {
			sd, err := ing.stageDocument(gctx, doc)
			if err != nil {
				return err
			}
			staged[i] = sd // nil when the blob is gone
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RebuildStats{}, err
	}

	if err := ing.cat.Reset(ctx); err != nil {
		return RebuildStats{}, err
	}
	fresh, err := vecindex.New(ing.emb.Dimension())
	if err != nil {
		return RebuildStats{}, err
	}

	var stats RebuildStats
	for _, sd := range staged {
		if sd == nil {
			stats.Skipped++
			continue
		}
		n, err := ing.commitStaged(ctx, fresh, sd)
		if err != nil {
			return RebuildStats{}, err
		}
		stats.Documents++
		stats.Chunks += n
	}

	if err := fresh.Save(ing.paths.IndexPath); err != nil {
		return RebuildStats{}, err
	}
	ing.idx.ReplaceFrom(fresh)

	if err := ing.tlog.Append(map[string]any{
		"kind":      "rebuild",
		"documents": stats.Documents,
		"chunks":    stats.Chunks,
		"skipped":   stats.Skipped,
	}); err != nil {
		return RebuildStats{}, err
	}
	ing.logger.Printf("rebuilt index: %d documents, %d chunks, %d skipped",
		stats.Documents, stats.Chunks, stats.Skipped)
	return stats, nil
}

// stageDocument extracts, chunks, and embeds one manifest entry without
// touching the catalog or index. A missing blob yields (nil, nil).
func (ing *Ingester) stageDocument(ctx context.Context, doc manifest.DocumentEntry) (*stagedDoc, error) {
	stored, err := ing.store.Resolve(doc.Digest)
	if err != nil {
		ing.logger.Printf("rebuild: skipping %s (%s): %v", doc.OriginalFilename, doc.Digest, err)
		return nil, nil
	}

	source := extractor.OCRIfNeeded(ctx, stored)
	pages, err := extractor.Extract(source)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", doc.OriginalFilename, err)
	}

	sd := &stagedDoc{
		meta: types.FileMeta{
			Name:       doc.OriginalFilename,
			Digest:     doc.Digest,
			Size:       doc.SizeBytes,
			StoredPath: stored,
		},
		pages: len(pages),
	}
	var texts []string
	for _, page := range pages {
		if page.Text == "" {
			continue
		}
		for _, text := range ing.chunk.Split(page.Text) {
			sd.chunks = append(sd.chunks, stagedChunk{
				page:    page.Number,
				text:    text,
				snippet: extractor.FirstSnippet(text, extractor.SnippetMaxChars),
			})
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return sd, nil
	}

	embeddings, err := ing.emb.GenerateBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", doc.OriginalFilename, err)
	}
	for i := range sd.chunks {
		sd.chunks[i].vector = embeddings[i].Vector
	}
	return sd, nil
}

// commitStaged writes one staged document into the catalog and index.
func (ing *Ingester) commitStaged(ctx context.Context, idx *vecindex.Index, sd *stagedDoc) (int, error) {
	fileID, err := ing.cat.RegisterFile(ctx, sd.meta)
	if err != nil {
		return 0, err
	}
	for _, chunk := range sd.chunks {
		id, err := ing.cat.InsertChunk(ctx, fileID, chunk.page, chunk.text, chunk.snippet)
		if err != nil {
			return 0, err
		}
		if err := idx.Add([][]float32{chunk.vector}, []int64{id}); err != nil {
			return 0, err
		}
	}
	return len(sd.chunks), nil
}
