// Package config resolves the on-disk layout of a vault and the environment
// knobs used by the embedding and generation layers.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables understood by docvault.
const (
	EnvDataDir           = "DOCVAULT_DATA"
	EnvEmbeddingProvider = "DOCVAULT_EMBEDDING_PROVIDER"
	EnvEmbeddingEndpoint = "DOCVAULT_EMBEDDING_ENDPOINT"
	EnvEmbeddingModel    = "DOCVAULT_EMBEDDING_MODEL"
	EnvLocalLLMPath      = "DOCVAULT_LOCAL_LLM_PATH"
)

// DefaultDirName is the vault directory created under the user home when
// DOCVAULT_DATA is not set.
const DefaultDirName = ".docvault"

// Paths is the resolved filesystem layout of a vault. The objects layout
// (objects/<hex[0:2]>/<hex>) and the manifest/tlog filenames are a stable
// interface for external tools reading the vault directly.
type Paths struct {
	DataDir      string
	ObjectsDir   string
	IndexDir     string
	ModelsDir    string
	ManifestPath string
	TlogPath     string
	IndexPath    string
	CatalogPath  string
}

// Load reads an optional .env file from the working directory and resolves
// the vault layout. A missing .env is not an error.
func Load() (Paths, error) {
	_ = godotenv.Load()

	dataDir := os.Getenv(EnvDataDir)
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, DefaultDirName)
	}
	return ForDataDir(dataDir), nil
}

// ForDataDir derives the full layout from a data root. Used directly by
// tests that point a vault at a temp directory.
func ForDataDir(dataDir string) Paths {
	indexDir := filepath.Join(dataDir, "index")
	return Paths{
		DataDir:      dataDir,
		ObjectsDir:   filepath.Join(dataDir, "objects"),
		IndexDir:     indexDir,
		ModelsDir:    filepath.Join(dataDir, "models"),
		ManifestPath: filepath.Join(dataDir, "manifest.json"),
		TlogPath:     filepath.Join(dataDir, "tlog.jsonl"),
		IndexPath:    filepath.Join(indexDir, "vectors.dvix"),
		CatalogPath:  filepath.Join(indexDir, "catalog.sqlite"),
	}
}

// EnsureDirs creates the vault directories if missing. Idempotent.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.DataDir, p.ObjectsDir, p.IndexDir, p.ModelsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create vault directory %s: %w", dir, err)
		}
	}
	return nil
}

// LocalLLMPath returns the local generation command (a llama.cpp-style
// runner binary that reads a prompt on stdin and prints the completion)
// and whether it is present and executable. Absence means "use the
// extractive fallback", not an error.
func LocalLLMPath(p Paths) (string, bool) {
	path := os.Getenv(EnvLocalLLMPath)
	if path == "" {
		path = filepath.Join(p.ModelsDir, "llm")
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, false
	}
	return path, info.Mode()&0o111 != 0
}
