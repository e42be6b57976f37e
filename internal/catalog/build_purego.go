//go:build !catalog_cgo
// +build !catalog_cgo

package catalog

// Default build: pure Go SQLite via modernc.org/sqlite. No C compiler
// required, cross-compiles everywhere, fast enough at vault scale.
//
// Build command:
//   go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver to open the catalog with.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
