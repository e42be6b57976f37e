//go:build catalog_cgo
// +build catalog_cgo

package catalog

// Optional cgo build using mattn/go-sqlite3 for installs that already link
// against the system SQLite.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "catalog_cgo" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver to open the catalog with.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
