// Package sitemap renders a human-readable inventory of the vault from the
// manifest, with content previews pulled from the catalog.
package sitemap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docvault/docvault/internal/catalog"
	"github.com/docvault/docvault/internal/manifest"
)

// Entry is one document in the sitemap.
type Entry struct {
	Filename  string `json:"filename"`
	Digest    string `json:"digest"`
	Pages     int    `json:"pages"`
	SizeBytes int64  `json:"size_bytes"`
	AddedAt   string `json:"added_at"`
	Preview   string `json:"preview,omitempty"`
}

// Build lists every manifest document with a preview taken from its first
// chunk. Documents with no indexed text get an empty preview, not an error.
func Build(ctx context.Context, man *manifest.Manifest, cat *catalog.Catalog) ([]Entry, error) {
	docs, err := man.ListDocuments()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		entry := Entry{
			Filename:  doc.OriginalFilename,
			Digest:    doc.Digest,
			Pages:     doc.PagesCount,
			SizeBytes: doc.SizeBytes,
			AddedAt:   doc.AddedAt,
		}
		chunk, err := cat.FirstChunkForDigest(ctx, doc.Digest)
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return nil, err
		}
		if err == nil {
			entry.Preview = chunk.Snippet
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Markdown renders entries as a markdown document, one section per file.
func Markdown(entries []Entry) string {
	var b strings.Builder
	b.WriteString("# Vault contents\n\n")
	if len(entries) == 0 {
		b.WriteString("The vault is empty.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d documents.\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "\n## %s\n\n", e.Filename)
		fmt.Fprintf(&b, "- digest: `%s`\n", e.Digest)
		fmt.Fprintf(&b, "- pages: %d\n", e.Pages)
		fmt.Fprintf(&b, "- size: %d bytes\n", e.SizeBytes)
		fmt.Fprintf(&b, "- added: %s\n", e.AddedAt)
		if e.Preview != "" {
			fmt.Fprintf(&b, "\n> %s\n", e.Preview)
		}
	}
	return b.String()
}
