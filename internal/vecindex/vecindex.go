// Package vecindex is a flat inner-product nearest-neighbor index with an
// explicit id-to-vector mapping.
//
// Ids are caller-chosen int64s. In the vault they are catalog chunk ids,
// so a vector stored under id K always corresponds to exactly the chunk
// row with id K. The whole index serializes to a single file and is small
// enough at vault scale that every mutation is followed by a full rewrite.
package vecindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	// ErrDimensionMismatch is returned when a vector's length doesn't match
	// the index dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrDuplicateID is returned when Add would silently overwrite an
	// existing vector.
	ErrDuplicateID = errors.New("duplicate vector id")
	// ErrCorruptIndex is returned when a persisted index file fails to
	// decode.
	ErrCorruptIndex = errors.New("corrupt index file")
)

// File format constants. Records are little-endian: int64 id followed by
// dim float32 components.
const (
	fileMagic   = "DVIX"
	fileVersion = uint32(1)
)

// Hit is one search result: a vector id and its inner-product score.
type Hit struct {
	ID    int64
	Score float64
}

// Index is an exact inner-product index over normalized vectors.
type Index struct {
	mu      sync.RWMutex
	dim     int
	ids     []int64
	vectors [][]float32
	byID    map[int64]int
}

// New creates an empty index with the given dimensionality.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrDimensionMismatch, dim)
	}
	return &Index{
		dim:  dim,
		byID: make(map[int64]int),
	}, nil
}

// Open loads the index at path, or creates an empty one with the given
// dimensionality when no file exists yet.
func Open(path string, dim int) (*Index, error) {
	idx, err := Load(path)
	if err == nil {
		return idx, nil
	}
	if os.IsNotExist(err) {
		return New(dim)
	}
	return nil, err
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Dimension returns the index dimensionality. Locked because ReplaceFrom
// may rewrite it concurrently.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

// Add appends vectors under the caller-chosen ids. Duplicate ids are
// rejected rather than silently overwritten: the vault assigns fresh
// monotonic catalog ids, so a collision means the stores have diverged.
func (x *Index) Add(vectors [][]float32, ids []int64) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("%w: %d vectors for %d ids", ErrDimensionMismatch, len(vectors), len(ids))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for i, v := range vectors {
		if len(v) != x.dim {
			return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(v), x.dim)
		}
		if _, exists := x.byID[ids[i]]; exists {
			return fmt.Errorf("%w: %d", ErrDuplicateID, ids[i])
		}
	}
	for i, v := range vectors {
		stored := make([]float32, x.dim)
		copy(stored, v)
		x.byID[ids[i]] = len(x.ids)
		x.ids = append(x.ids, ids[i])
		x.vectors = append(x.vectors, stored)
	}
	return nil
}

// Search returns the k best hits for query by inner product, sorted by
// descending score. k is clamped to [1, Len]; an empty index returns an
// empty slice, never an error.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.ids) == 0 {
		return []Hit{}, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}
	if k < 1 {
		k = 1
	}
	if k > len(x.ids) {
		k = len(x.ids)
	}

	hits := make([]Hit, len(x.ids))
	for i, v := range x.vectors {
		hits[i] = Hit{ID: x.ids[i], Score: innerProduct(query, v)}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits[:k], nil
}

func innerProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Save serializes the whole index to path via a temp file and atomic
// rename, so a crashed write never truncates a readable index.
func (x *Index) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dvix-*")
	if err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if err := x.encode(w); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("save index: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("save index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("save index: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

func (x *Index) encode(w io.Writer) error {
	if _, err := w.Write([]byte(fileMagic)); err != nil {
		return err
	}
	header := []any{fileVersion, uint32(x.dim), uint64(len(x.ids))}
	for _, field := range header {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	for i, id := range x.ids {
		if err := binary.Write(w, binary.LittleEndian, id); err != nil {
			return err
		}
		for _, val := range x.vectors[i] {
			if err := binary.Write(w, binary.LittleEndian, math.Float32bits(val)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads a persisted index from path.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != fileMagic {
		return nil, fmt.Errorf("%s: %w", path, ErrCorruptIndex)
	}

	var version, dim uint32
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrCorruptIndex)
	}
	if version != fileVersion {
		return nil, fmt.Errorf("%s: unsupported version %d: %w", path, version, ErrCorruptIndex)
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrCorruptIndex)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrCorruptIndex)
	}

	idx, err := New(int(dim))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrCorruptIndex)
	}
	for i := uint64(0); i < count; i++ {
		var id int64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("%s: %w", path, ErrCorruptIndex)
		}
		vector := make([]float32, dim)
		for j := range vector {
			var bits uint32
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return nil, fmt.Errorf("%s: %w", path, ErrCorruptIndex)
			}
			vector[j] = math.Float32frombits(bits)
		}
		if _, exists := idx.byID[id]; exists {
			return nil, fmt.Errorf("%s: id %d repeated: %w", path, id, ErrCorruptIndex)
		}
		idx.byID[id] = len(idx.ids)
		idx.ids = append(idx.ids, id)
		idx.vectors = append(idx.vectors, vector)
	}
	return idx, nil
}

// ReplaceFrom swaps x's contents for other's. Holders of x observe the new
// contents without re-resolving the pointer; the rebuild path builds into a
// scratch index and installs it here.
func (x *Index) ReplaceFrom(other *Index) {
	other.mu.RLock()
	ids := make([]int64, len(other.ids))
	copy(ids, other.ids)
	vectors := make([][]float32, len(other.vectors))
	copy(vectors, other.vectors)
	byID := make(map[int64]int, len(other.byID))
	for id, pos := range other.byID {
		byID[id] = pos
	}
	dim := other.dim
	other.mu.RUnlock()

	x.mu.Lock()
	defer x.mu.Unlock()
	x.dim = dim
	x.ids = ids
	x.vectors = vectors
	x.byID = byID
}

// IDs returns a copy of all stored ids, used by integrity checks.
func (x *Index) IDs() []int64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]int64, len(x.ids))
	copy(out, x.ids)
	return out
}
