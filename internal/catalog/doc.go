// Package catalog is the relational metadata store joining files to chunks.
//
// It is the source of truth for result assembly at query time: the vector
// index stores only ids, and every id it returns resolves here. The schema
// (files, chunks) is a de facto wire format for external tools that read
// the catalog database directly, so column names are stable.
package catalog
