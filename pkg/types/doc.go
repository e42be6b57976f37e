// Package types provides shared type definitions for the docvault pipeline.
//
// This package defines the records passed between the ingest, catalog,
// vector-index and retrieval layers: file metadata, extracted pages,
// ingest results and ranked search results.
//
// # Core Types
//
// FileMeta describes a blob in the content-addressed store:
//
//	meta := types.FileMeta{
//	    Name:       "report.pdf",
//	    Digest:     "9f2a...",
//	    Size:       48213,
//	    StoredPath: "/data/objects/9f/9f2a...",
//	}
//
// SearchResult is the wire shape consumed by the UI and QA collaborators:
//
//	{score, file, page, snippet, hash}
//
// Scores are inner products over L2-normalized vectors, so they are
// equivalent to cosine similarity and higher is better.
package types
