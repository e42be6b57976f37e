// Package manifest maintains the vault's provenance records: a JSON
// document describing every ingested file and an append-only JSON Lines
// event log. Both are independent of the catalog and, together with the
// blob store, sufficient to rebuild it.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned when no document entry exists for a digest.
var ErrNotFound = errors.New("document not found")

// TimeFormat is ISO-8601 UTC with millisecond precision and a literal Z
// suffix; part of the manifest wire format.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// Now returns the current UTC time formatted for the manifest.
func Now() string {
	return time.Now().UTC().Format(TimeFormat)
}

// DocumentEntry describes one ingested file. The JSON keys are a stable
// interface for the UI and export layers.
type DocumentEntry struct {
	Digest           string `json:"digest"`
	OriginalFilename string `json:"original_filename"`
	SizeBytes        int64  `json:"size_bytes"`
	AddedAt          string `json:"added_at"`
	PagesCount       int    `json:"pages_count"`
}

type document struct {
	Documents []DocumentEntry `json:"documents"`
}

// Manifest reads and writes the vault's manifest.json.
type Manifest struct {
	path string
}

// New creates a Manifest backed by the file at path. The file is created
// on first write.
func New(path string) *Manifest {
	return &Manifest{path: path}
}

// UpsertDocument adds an entry, replacing any existing entry with the same
// digest. Re-ingesting identical content therefore updates the record
// instead of duplicating it.
func (m *Manifest) UpsertDocument(entry DocumentEntry) error {
	doc, err := m.read()
	if err != nil {
		return err
	}

	kept := doc.Documents[:0]
	for _, d := range doc.Documents {
		if d.Digest != entry.Digest {
			kept = append(kept, d)
		}
	}
	doc.Documents = append(kept, entry)
	return m.write(doc)
}

// ListDocuments returns all entries in manifest order.
func (m *Manifest) ListDocuments() ([]DocumentEntry, error) {
	doc, err := m.read()
	if err != nil {
		return nil, err
	}
	return doc.Documents, nil
}

// GetDocument returns the entry for a digest.
func (m *Manifest) GetDocument(digest string) (*DocumentEntry, error) {
	doc, err := m.read()
	if err != nil {
		return nil, err
	}
	for _, d := range doc.Documents {
		if d.Digest == digest {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("digest %s: %w", digest, ErrNotFound)
}

// read loads the manifest, treating a missing or unreadable file as empty.
// The manifest is advisory until the first successful write.
func (m *Manifest) read() (document, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return document{}, nil
		}
		return document{}, fmt.Errorf("read manifest: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt manifest is recoverable: the catalog still serves
		// queries and a rebuild re-derives everything from the tlog.
		return document{}, nil
	}
	return doc, nil
}

func (m *Manifest) write(doc document) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".manifest-*")
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
