package manifest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Signer identifies the local writer in tlog records. There is no remote
// signing in a single-user vault.
const Signer = "local-dev"

// Record is one tlog line. Consumers must tolerate unknown event shapes
// and extra fields; ID is such an extra field.
type Record struct {
	ID     string         `json:"id"`
	Time   string         `json:"time"`
	Signer string         `json:"signer"`
	Event  map[string]any `json:"event"`
}

// Tlog is the append-only JSON Lines event log. Lines are never rewritten.
type Tlog struct {
	path string
}

// NewTlog creates a Tlog backed by the file at path.
func NewTlog(path string) *Tlog {
	return &Tlog{path: path}
}

// Append writes one event line with a UTC timestamp and a fresh event id.
func (t *Tlog) Append(event map[string]any) error {
	rec := Record{
		ID:     uuid.NewString(),
		Time:   Now(),
		Signer: Signer,
		Event:  event,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("append tlog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("append tlog: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append tlog: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append tlog: %w", err)
	}
	return nil
}

// ReadAll returns every well-formed record in the log. Malformed lines are
// skipped, not fatal: the log outlives schema changes and partial writes.
func (t *Tlog) ReadAll() ([]Record, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tlog: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tlog: %w", err)
	}
	return records, nil
}
