// Package ingest orchestrates the write path of the vault: store the blob,
// extract and chunk its text, embed the chunks, and record everything in the
// catalog, vector index, manifest, and transparency log.
//
// Ordering is deliberate: chunk rows are committed to the catalog before
// their vectors enter the index, so every vector id always resolves to a
// chunk row. The reverse drift (rows without vectors) only narrows recall
// and is tolerated at query time.
package ingest

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/docvault/docvault/internal/blobstore"
	"github.com/docvault/docvault/internal/catalog"
	"github.com/docvault/docvault/internal/chunker"
	"github.com/docvault/docvault/internal/config"
	"github.com/docvault/docvault/internal/embedder"
	"github.com/docvault/docvault/internal/extractor"
	"github.com/docvault/docvault/internal/manifest"
	"github.com/docvault/docvault/internal/vecindex"
	"github.com/docvault/docvault/pkg/types"
)

// Ingester owns the vault's write path and the stores it mutates.
type Ingester struct {
	paths  config.Paths
	store  *blobstore.Store
	cat    *catalog.Catalog
	idx    *vecindex.Index
	emb    embedder.Embedder
	chunk  *chunker.Chunker
	man    *manifest.Manifest
	tlog   *manifest.Tlog
	lock   *IndexLock
	logger *log.Logger
}

// Open wires an Ingester over the vault at paths, creating the layout on
// first use. The embedder determines the index dimensionality.
func Open(paths config.Paths, emb embedder.Embedder) (*Ingester, error) {
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}
	cat, err := catalog.Open(paths.CatalogPath)
	if err != nil {
		return nil, err
	}
	idx, err := vecindex.Open(paths.IndexPath, emb.Dimension())
	if err != nil {
		_ = cat.Close()
		return nil, err
	}
	return &Ingester{
		paths: paths,
		store: blobstore.New(paths.ObjectsDir),
		cat:   cat,
		idx:   idx,
		emb:   emb,
		chunk: chunker.New(),
		man:   manifest.New(paths.ManifestPath),
		tlog:  manifest.NewTlog(paths.TlogPath),
		lock:  &IndexLock{},
		// stdout is reserved for tool output; diagnostics go to stderr.
		logger: log.New(os.Stderr, "[ingest] ", log.LstdFlags),
	}, nil
}

// Close releases the catalog connection.
func (ing *Ingester) Close() error {
	return ing.cat.Close()
}

// Catalog exposes the catalog for read-side collaborators.
func (ing *Ingester) Catalog() *catalog.Catalog {
	return ing.cat
}

// Index exposes the vector index for read-side collaborators.
func (ing *Ingester) Index() *vecindex.Index {
	return ing.idx
}

// Manifest exposes the manifest for listing and export surfaces.
func (ing *Ingester) Manifest() *manifest.Manifest {
	return ing.man
}

// Store exposes the blob store for digest resolution.
func (ing *Ingester) Store() *blobstore.Store {
	return ing.store
}

// IngestFile runs the full pipeline for one document. Content already in
// the vault is detected by digest: the blob copy, extraction, and embedding
// are all skipped and only the filename metadata is refreshed.
func (ing *Ingester) IngestFile(ctx context.Context, path string) (types.IngestResult, error) {
	if !ing.lock.TryAcquire() {
		return types.IngestResult{}, ErrBusy
	}
	defer ing.lock.Release()
	return ing.ingestLocked(ctx, path)
}

func (ing *Ingester) ingestLocked(ctx context.Context, path string) (types.IngestResult, error) {
	meta, err := ing.store.Put(path)
	if err != nil {
		return types.IngestResult{}, err
	}

	if existing, err := ing.cat.GetFileByDigest(ctx, meta.Digest); err == nil {
		return ing.refreshExisting(ctx, meta, existing)
	}

	// OCR is best-effort: a scanned PDF is re-rendered with a text layer
	// when ocrmypdf is installed, otherwise the original is used as-is.
	source := extractor.OCRIfNeeded(ctx, meta.StoredPath)
	pages, err := extractor.Extract(source)
	if err != nil {
		return types.IngestResult{}, fmt.Errorf("extract %s: %w", meta.Name, err)
	}

	fileID, err := ing.cat.RegisterFile(ctx, meta)
	if err != nil {
		return types.IngestResult{}, err
	}

	// On failure the file row goes too; leaving it would send the next
	// ingest of the same bytes down the dedup path with zero chunks.
	chunkIDs, texts, err := ing.insertChunks(ctx, fileID, pages)
	if err != nil {
		_ = ing.cat.DeleteFile(ctx, fileID)
		return types.IngestResult{}, err
	}

	if len(chunkIDs) > 0 {
		if err := ing.embedAndIndex(ctx, chunkIDs, texts); err != nil {
			_ = ing.cat.DeleteFile(ctx, fileID)
			return types.IngestResult{}, err
		}
	}

	entry := manifest.DocumentEntry{
		Digest:           meta.Digest,
		OriginalFilename: meta.Name,
		SizeBytes:        meta.Size,
		AddedAt:          manifest.Now(),
		PagesCount:       len(pages),
	}
	if err := ing.man.UpsertDocument(entry); err != nil {
		return types.IngestResult{}, err
	}
	if err := ing.tlog.Append(map[string]any{
		"kind":     "ingest",
		"digest":   meta.Digest,
		"filename": meta.Name,
		"pages":    len(pages),
		"chunks":   len(chunkIDs),
	}); err != nil {
		return types.IngestResult{}, err
	}

	ing.logger.Printf("ingested %s: %d pages, %d chunks", meta.Name, len(pages), len(chunkIDs))
	return types.IngestResult{
		Digest:    meta.Digest,
		Filename:  meta.Name,
		Pages:     len(pages),
		Chunks:    len(chunkIDs),
		SizeBytes: meta.Size,
	}, nil
}

// refreshExisting handles re-ingestion of known content: metadata is
// refreshed under the stable file id, nothing is re-embedded.
func (ing *Ingester) refreshExisting(ctx context.Context, meta types.FileMeta, existing *catalog.FileRow) (types.IngestResult, error) {
	fileID, err := ing.cat.RegisterFile(ctx, meta)
	if err != nil {
		return types.IngestResult{}, err
	}
	chunks, err := ing.cat.ChunkCount(ctx, fileID)
	if err != nil {
		return types.IngestResult{}, err
	}

	pagesCount := 0
	if doc, err := ing.man.GetDocument(meta.Digest); err == nil {
		pagesCount = doc.PagesCount
	}
	entry := manifest.DocumentEntry{
		Digest:           meta.Digest,
		OriginalFilename: meta.Name,
		SizeBytes:        meta.Size,
		AddedAt:          manifest.Now(),
		PagesCount:       pagesCount,
	}
	if err := ing.man.UpsertDocument(entry); err != nil {
		return types.IngestResult{}, err
	}
	if err := ing.tlog.Append(map[string]any{
		"kind":     "ingest",
		"digest":   meta.Digest,
		"filename": meta.Name,
		"dedup":    true,
	}); err != nil {
		return types.IngestResult{}, err
	}

	ing.logger.Printf("dedup %s: digest already present as %s", meta.Name, existing.Name)
	return types.IngestResult{
		Digest:    meta.Digest,
		Filename:  meta.Name,
		Pages:     pagesCount,
		Chunks:    chunks,
		SizeBytes: meta.Size,
		Dedup:     true,
	}, nil
}

// insertChunks splits every non-empty page and commits the chunk rows,
// returning the assigned ids alongside the texts in matching order.
func (ing *Ingester) insertChunks(ctx context.Context, fileID int64, pages []types.Page) ([]int64, []string, error) {
	var ids []int64
	var texts []string
	for _, page := range pages {
		if page.Text == "" {
			continue
		}
		for _, text := range ing.chunk.Split(page.Text) {
			snippet := extractor.FirstSnippet(text, extractor.SnippetMaxChars)
			id, err := ing.cat.InsertChunk(ctx, fileID, page.Number, text, snippet)
			if err != nil {
				return nil, nil, err
			}
			ids = append(ids, id)
			texts = append(texts, text)
		}
	}
	return ids, texts, nil
}

// embedAndIndex embeds texts and appends the vectors under their chunk ids,
// then persists the index.
func (ing *Ingester) embedAndIndex(ctx context.Context, ids []int64, texts []string) error {
	embeddings, err := ing.emb.GenerateBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(texts), err)
	}
	vectors := make([][]float32, len(embeddings))
	for i, e := range embeddings {
		vectors[i] = e.Vector
	}
	if err := ing.idx.Add(vectors, ids); err != nil {
		return err
	}
	return ing.idx.Save(ing.paths.IndexPath)
}

// Status summarizes the vault for the status surface.
type Status struct {
	DataDir      string `json:"data_dir"`
	Documents    int    `json:"documents"`
	Files        int    `json:"files"`
	Chunks       int    `json:"chunks"`
	Vectors      int    `json:"vectors"`
	Dimension    int    `json:"dimension"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	OCRAvailable bool   `json:"ocr_available"`
}

// Status reports document, row, and vector counts plus the active
// embedding configuration.
func (ing *Ingester) Status(ctx context.Context) (Status, error) {
	stats, err := ing.cat.GetStats(ctx)
	if err != nil {
		return Status{}, err
	}
	docs, err := ing.man.ListDocuments()
	if err != nil {
		return Status{}, err
	}
	return Status{
		DataDir:      ing.paths.DataDir,
		Documents:    len(docs),
		Files:        stats.Files,
		Chunks:       stats.Chunks,
		Vectors:      ing.idx.Len(),
		Dimension:    ing.emb.Dimension(),
		Provider:     ing.emb.Provider(),
		Model:        ing.emb.Model(),
		OCRAvailable: extractor.OCRAvailable(),
	}, nil
}
