package types

import "errors"

// Domain errors for type validation
var (
	ErrMissingName   = errors.New("file name is required")
	ErrMissingDigest = errors.New("digest is required")
	ErrInvalidSize   = errors.New("size must be >= 0")
	ErrInvalidPage   = errors.New("page numbers are 1-based")
)

// FileMeta describes a file stored in the content-addressed blob store.
type FileMeta struct {
	Name       string // Original filename, basename only
	Digest     string // Bare BLAKE3 hex digest
	Size       int64  // Size in bytes of the stored blob
	StoredPath string // Absolute path inside the object store
}

// Validate checks that required fields are present.
func (m *FileMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if m.Digest == "" {
		return ErrMissingDigest
	}
	if m.Size < 0 {
		return ErrInvalidSize
	}
	return nil
}

// Page is one page of extracted, whitespace-normalized document text.
// Pages are 1-indexed. A page that failed extraction has empty Text.
type Page struct {
	Number int
	Text   string
}

// Validate checks page numbering.
func (p *Page) Validate() error {
	if p.Number < 1 {
		return ErrInvalidPage
	}
	return nil
}

// IngestResult summarizes one ingested document.
type IngestResult struct {
	Digest    string `json:"digest"`
	Filename  string `json:"filename"`
	Pages     int    `json:"pages"`
	Chunks    int    `json:"chunks"`
	SizeBytes int64  `json:"size_bytes"`
	Dedup     bool   `json:"dedup"` // Content was already present in the blob store
}

// SearchResult is a single ranked retrieval hit. The JSON field names are a
// de facto wire format consumed by the UI and QA collaborators.
type SearchResult struct {
	Score   float64 `json:"score"`
	File    string  `json:"file"`
	Page    int     `json:"page"`
	Snippet string  `json:"snippet"`
	Hash    string  `json:"hash"`
}
