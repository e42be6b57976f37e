package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/docvault/docvault/pkg/types"
)

// ErrNotFound is returned when a requested row doesn't exist.
var ErrNotFound = errors.New("not found")

// FileRow is a row of the files table.
type FileRow struct {
	ID         int64
	Name       string
	Digest     string
	Size       int64
	StoredPath string
}

// ChunkRow is a row of the chunks table. Chunk ids double as vector-index
// ids: a vector stored under id K always describes exactly this row.
type ChunkRow struct {
	ID      int64
	FileID  int64
	Page    int
	Text    string
	Snippet string
}

// Catalog is the SQLite-backed metadata store.
type Catalog struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at dbPath and ensures the
// schema exists.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	// WAL lets search readers proceed while an ingest writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Single writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Catalog{db: db}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// RegisterFile upserts file metadata keyed on digest and returns the stable
// file id. Re-registering an existing digest updates name/size/path in
// place; the id never changes for the lifetime of the entry.
func (c *Catalog) RegisterFile(ctx context.Context, meta types.FileMeta) (int64, error) {
	if err := meta.Validate(); err != nil {
		return 0, err
	}
	query := `
		INSERT INTO files(name, digest, size, stored_path)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(digest) DO UPDATE SET
			name = excluded.name,
			size = excluded.size,
			stored_path = excluded.stored_path
		RETURNING id
	`
	var id int64
	err := c.db.QueryRowContext(ctx, query,
		meta.Name, meta.Digest, meta.Size, meta.StoredPath).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("register file %s: %w", meta.Name, err)
	}
	return id, nil
}

// InsertChunk inserts one chunk row and returns its id. The id is assigned
// atomically with the insert so the caller can hand it straight to the
// vector index.
func (c *Catalog) InsertChunk(ctx context.Context, fileID int64, page int, text, snippet string) (int64, error) {
	query := `
		INSERT INTO chunks(file_id, page, text, snippet)
		VALUES(?, ?, ?, ?)
		RETURNING id
	`
	var id int64
	err := c.db.QueryRowContext(ctx, query, fileID, page, text, snippet).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert chunk for file %d: %w", fileID, err)
	}
	return id, nil
}

// GetFileByDigest returns the file row for a digest.
func (c *Catalog) GetFileByDigest(ctx context.Context, digest string) (*FileRow, error) {
	query := `SELECT id, name, digest, size, stored_path FROM files WHERE digest = ?`
	var row FileRow
	err := c.db.QueryRowContext(ctx, query, digest).Scan(
		&row.ID, &row.Name, &row.Digest, &row.Size, &row.StoredPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LookupChunks batch-fetches chunk rows by id, keyed by id. Missing ids are
// simply absent from the result; the caller decides how to treat drift.
func (c *Catalog) LookupChunks(ctx context.Context, ids []int64) (map[int64]ChunkRow, error) {
	rows := make(map[int64]ChunkRow, len(ids))
	if len(ids) == 0 {
		return rows, nil
	}

	query := `SELECT id, file_id, page, text, snippet FROM chunks WHERE id IN (` +
		placeholders(len(ids)) + `)`
	result, err := c.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("lookup chunks: %w", err)
	}
	defer func() { _ = result.Close() }()

	for result.Next() {
		var row ChunkRow
		if err := result.Scan(&row.ID, &row.FileID, &row.Page, &row.Text, &row.Snippet); err != nil {
			return nil, err
		}
		rows[row.ID] = row
	}
	return rows, result.Err()
}

// LookupFiles batch-fetches file rows by id, keyed by id.
func (c *Catalog) LookupFiles(ctx context.Context, ids []int64) (map[int64]FileRow, error) {
	rows := make(map[int64]FileRow, len(ids))
	if len(ids) == 0 {
		return rows, nil
	}

	query := `SELECT id, name, digest, size, stored_path FROM files WHERE id IN (` +
		placeholders(len(ids)) + `)`
	result, err := c.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("lookup files: %w", err)
	}
	defer func() { _ = result.Close() }()

	for result.Next() {
		var row FileRow
		if err := result.Scan(&row.ID, &row.Name, &row.Digest, &row.Size, &row.StoredPath); err != nil {
			return nil, err
		}
		rows[row.ID] = row
	}
	return rows, result.Err()
}

// FirstChunkForDigest returns the earliest chunk of the file with the given
// digest, used by the sitemap export.
func (c *Catalog) FirstChunkForDigest(ctx context.Context, digest string) (*ChunkRow, error) {
	query := `
		SELECT c.id, c.file_id, c.page, c.text, c.snippet
		FROM chunks c
		JOIN files f ON f.id = c.file_id
		WHERE f.digest = ?
		ORDER BY c.id ASC
		LIMIT 1
	`
	var row ChunkRow
	err := c.db.QueryRowContext(ctx, query, digest).Scan(
		&row.ID, &row.FileID, &row.Page, &row.Text, &row.Snippet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ChunkCount counts the chunks of one file.
func (c *Catalog) ChunkCount(ctx context.Context, fileID int64) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE file_id = ?`, fileID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks for file %d: %w", fileID, err)
	}
	return n, nil
}

// DeleteFile removes a file row; the foreign key cascade removes its
// chunks with it. Used to roll back a partially committed ingest so a
// failed document never lingers as registered-but-unsearchable.
func (c *Catalog) DeleteFile(ctx context.Context, fileID int64) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	return err
}

// Reset drops all rows from both tables. Used by the index rebuild before
// re-deriving state from the manifest and blob store.
func (c *Catalog) Reset(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("reset chunks: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return fmt.Errorf("reset files: %w", err)
	}
	return nil
}

// Stats reports row counts for the status surface.
type Stats struct {
	Files  int
	Chunks int
}

// GetStats counts files and chunks.
func (c *Catalog) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&stats.Files); err != nil {
		return stats, err
	}
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stats.Chunks); err != nil {
		return stats, err
	}
	return stats, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
