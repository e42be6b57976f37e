package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForDataDir_Layout(t *testing.T) {
	p := ForDataDir("/vault")

	assert.Equal(t, "/vault/objects", p.ObjectsDir)
	assert.Equal(t, "/vault/index", p.IndexDir)
	assert.Equal(t, "/vault/manifest.json", p.ManifestPath)
	assert.Equal(t, "/vault/tlog.jsonl", p.TlogPath)
	assert.Equal(t, filepath.Join(p.IndexDir, "vectors.dvix"), p.IndexPath)
	assert.Equal(t, filepath.Join(p.IndexDir, "catalog.sqlite"), p.CatalogPath)
}

func TestEnsureDirs_Idempotent(t *testing.T) {
	p := ForDataDir(filepath.Join(t.TempDir(), "vault"))

	require.NoError(t, p.EnsureDirs())
	require.NoError(t, p.EnsureDirs())
	for _, dir := range []string{p.ObjectsDir, p.IndexDir, p.ModelsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLoad_RespectsDataDirEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)

	p, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dir, p.DataDir)
}

func TestLocalLLMPath(t *testing.T) {
	p := ForDataDir(t.TempDir())
	t.Setenv(EnvLocalLLMPath, "")

	// Default location, absent.
	path, ok := LocalLLMPath(p)
	assert.False(t, ok)
	assert.Equal(t, filepath.Join(p.ModelsDir, "llm"), path)

	// An executable at the default location enables generation.
	require.NoError(t, os.MkdirAll(p.ModelsDir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	_, ok = LocalLLMPath(p)
	assert.True(t, ok)

	// A non-executable file does not.
	require.NoError(t, os.Chmod(path, 0o644))
	_, ok = LocalLLMPath(p)
	assert.False(t, ok)

	// Env override wins.
	override := filepath.Join(t.TempDir(), "runner")
	require.NoError(t, os.WriteFile(override, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv(EnvLocalLLMPath, override)
	path, ok = LocalLLMPath(p)
	assert.True(t, ok)
	assert.Equal(t, override, path)
}
