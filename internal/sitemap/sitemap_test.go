package sitemap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault/docvault/internal/catalog"
	"github.com/docvault/docvault/internal/manifest"
	"github.com/docvault/docvault/pkg/types"
)

func newStores(t *testing.T) (*manifest.Manifest, *catalog.Catalog) {
	t.Helper()
	dir := t.TempDir()
	cat, err := catalog.Open(filepath.Join(dir, "catalog.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return manifest.New(filepath.Join(dir, "manifest.json")), cat
}

func TestBuild_PreviewFromFirstChunk(t *testing.T) {
	man, cat := newStores(t)
	ctx := context.Background()

	require.NoError(t, man.UpsertDocument(manifest.DocumentEntry{
		Digest: "d1", OriginalFilename: "report.pdf", SizeBytes: 9000,
		AddedAt: manifest.Now(), PagesCount: 4,
	}))
	fileID, err := cat.RegisterFile(ctx, types.FileMeta{
		Name: "report.pdf", Digest: "d1", Size: 9000, StoredPath: "/objects/d1",
	})
	require.NoError(t, err)
	_, err = cat.InsertChunk(ctx, fileID, 1, "executive summary text", "executive summary text")
	require.NoError(t, err)
	_, err = cat.InsertChunk(ctx, fileID, 2, "later chapter", "later chapter")
	require.NoError(t, err)

	entries, err := Build(ctx, man, cat)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.pdf", entries[0].Filename)
	assert.Equal(t, 4, entries[0].Pages)
	assert.Equal(t, "executive summary text", entries[0].Preview)
}

func TestBuild_UnindexedDocumentHasNoPreview(t *testing.T) {
	man, cat := newStores(t)

	require.NoError(t, man.UpsertDocument(manifest.DocumentEntry{
		Digest: "d1", OriginalFilename: "scan.pdf", AddedAt: manifest.Now(),
	}))

	entries, err := Build(context.Background(), man, cat)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Preview)
}

func TestMarkdown(t *testing.T) {
	out := Markdown([]Entry{{
		Filename: "report.pdf", Digest: "d1", Pages: 4,
		SizeBytes: 9000, AddedAt: "2026-01-02T03:04:05.000Z",
		Preview: "executive summary",
	}})

	assert.Contains(t, out, "# Vault contents")
	assert.Contains(t, out, "## report.pdf")
	assert.Contains(t, out, "`d1`")
	assert.Contains(t, out, "> executive summary")
}

func TestMarkdown_Empty(t *testing.T) {
	assert.Contains(t, Markdown(nil), "The vault is empty.")
}
