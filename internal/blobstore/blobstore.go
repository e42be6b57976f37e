// Package blobstore implements the content-addressed object store.
//
// Blobs are keyed by the BLAKE3 digest of their bytes and live at
// objects/<hex[0:2]>/<hex>. Identical content always maps to the same path,
// so storing is idempotent and deduplicates by construction.
package blobstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"github.com/docvault/docvault/pkg/types"
)

var (
	// ErrNotFound is returned when a digest resolves to no stored object.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidDigest is returned for malformed digests (too short or not hex).
	ErrInvalidDigest = errors.New("invalid digest")
	// ErrUnsupportedAlgorithm is returned when a prefixed digest names an
	// unknown hash algorithm. Only "b3" (BLAKE3) is supported.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
)

const (
	// AlgorithmPrefix is the accepted digest prefix, as in "b3:<hex>".
	AlgorithmPrefix = "b3"

	// hashBlockSize is the streaming read block for digest computation.
	hashBlockSize = 1 << 20

	// minDigestLen guards against digests too short to be meaningful.
	minDigestLen = 6

	digestHexLen = 64 // 256-bit BLAKE3, hex-encoded
)

// Store is a content-addressed blob store rooted at a single directory.
type Store struct {
	root string // objects directory
}

// New creates a Store rooted at objectsDir. The directory is created lazily
// on first write.
func New(objectsDir string) *Store {
	return &Store{root: objectsDir}
}

// Root returns the objects directory.
func (s *Store) Root() string {
	return s.root
}

// DigestFile computes the BLAKE3 hex digest of a file by streaming it in
// fixed-size blocks. The file is never loaded into memory whole.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := blake3.New(32, nil)
	buf := make([]byte, hashBlockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Put stores the file at path into the object store and returns its
// metadata. If a blob with the same digest already exists the copy is
// skipped; the operation is idempotent.
func (s *Store) Put(path string) (types.FileMeta, error) {
	digest, err := DigestFile(path)
	if err != nil {
		return types.FileMeta{}, err
	}

	dest := s.objectPath(digest)
	if _, err := os.Stat(dest); err != nil {
		if !os.IsNotExist(err) {
			return types.FileMeta{}, fmt.Errorf("stat %s: %w", dest, err)
		}
		if err := s.copyIn(path, dest); err != nil {
			return types.FileMeta{}, err
		}
	}

	info, err := os.Stat(dest)
	if err != nil {
		return types.FileMeta{}, fmt.Errorf("stat stored blob %s: %w", dest, err)
	}

	meta := types.FileMeta{
		Name:       filepath.Base(path),
		Digest:     digest,
		Size:       info.Size(),
		StoredPath: dest,
	}
	if err := meta.Validate(); err != nil {
		return types.FileMeta{}, err
	}
	return meta, nil
}

// copyIn copies src into the store at dest via a temp file and rename, so a
// partial write never leaves a truncated blob at the final path.
func (s *Store) copyIn(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("store %s -> %s: %w", src, dest, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("store %s -> %s: %w", src, dest, err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".blob-*")
	if err != nil {
		return fmt.Errorf("store %s -> %s: %w", src, dest, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("store %s -> %s: %w", src, dest, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store %s -> %s: %w", src, dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store %s -> %s: %w", src, dest, err)
	}
	return nil
}

// Resolve maps a digest to the path of its stored blob. The identifier may
// be a bare hex digest or carry a "b3:" prefix.
func (s *Store) Resolve(identifier string) (string, error) {
	digest, err := ParseDigest(identifier)
	if err != nil {
		return "", err
	}
	path := s.objectPath(digest)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("digest %s: %w", digest, ErrNotFound)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return path, nil
}

// ParseDigest validates an identifier and strips an optional algorithm
// prefix, returning the bare hex digest.
func ParseDigest(identifier string) (string, error) {
	digest := identifier
	if algo, rest, ok := strings.Cut(identifier, ":"); ok {
		if !strings.EqualFold(algo, AlgorithmPrefix) {
			return "", fmt.Errorf("%q: %w", algo, ErrUnsupportedAlgorithm)
		}
		digest = rest
	}
	if len(digest) < minDigestLen {
		return "", fmt.Errorf("%q: %w", digest, ErrInvalidDigest)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", fmt.Errorf("%q: %w", digest, ErrInvalidDigest)
	}
	return strings.ToLower(digest), nil
}

// objectPath is the store location for a digest: <root>/<hex[0:2]>/<hex>.
func (s *Store) objectPath(digest string) string {
	return filepath.Join(s.root, digest[:2], digest)
}
