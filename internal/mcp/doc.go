// Package mcp exposes the vault over the Model Context Protocol on stdio.
//
// The server registers one tool per vault operation: ingest, search, ask,
// status, sitemap, and rebuild. Tool results are JSON or markdown text;
// protocol traffic owns stdout, so all diagnostics go to stderr.
package mcp
