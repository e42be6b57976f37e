package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docvault/docvault/internal/ingest"
	"github.com/docvault/docvault/internal/retrieval"
	"github.com/docvault/docvault/internal/sitemap"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeIngestBusy    = -32001 // Another ingest holds the writer lock
	ErrorCodeEmptyQuery    = -32002 // Query parameter is empty
)

// handleIngest handles the vault_ingest tool invocation
func (s *Server) handleIngest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validateFile(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	result, err := s.ingester.IngestFile(ctx, path)
	if errors.Is(err, ingest.ErrBusy) {
		return nil, newMCPError(ErrorCodeIngestBusy, "another ingest is in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingest failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"digest":     result.Digest,
		"filename":   result.Filename,
		"pages":      result.Pages,
		"chunks":     result.Chunks,
		"size_bytes": result.SizeBytes,
		"dedup":      result.Dedup,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearch handles the vault_search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	limit := getIntDefault(args, "limit", retrieval.DefaultTopK)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	results, err := s.searcher.Search(ctx, query, limit)
	if errors.Is(err, retrieval.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query cannot be empty", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"query":   query,
		"results": results,
	}, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "encode results", nil)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleAsk handles the vault_ask tool invocation
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question, ok := args["question"].(string)
	if !ok || question == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "question parameter is required and cannot be empty", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}
	limit := getIntDefault(args, "limit", retrieval.DefaultTopK)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	answer, err := s.answerer.Answer(ctx, question, limit)
	if errors.Is(err, retrieval.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "question cannot be empty", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "answer failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	payload, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "encode answer", nil)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleStatus handles the vault_status tool invocation
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.ingester.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	payload, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "encode status", nil)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleSitemap handles the vault_sitemap tool invocation
func (s *Server) handleSitemap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	format := getStringDefault(args, "format", "json")
	if format != "json" && format != "markdown" {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid format", map[string]interface{}{
			"param":   "format",
			"value":   format,
			"allowed": []string{"json", "markdown"},
		})
	}

	entries, err := sitemap.Build(ctx, s.ingester.Manifest(), s.ingester.Catalog())
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "sitemap failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if format == "markdown" {
		return mcp.NewToolResultText(sitemap.Markdown(entries)), nil
	}
	payload, err := json.MarshalIndent(map[string]interface{}{"documents": entries}, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "encode sitemap", nil)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleRebuild handles the vault_rebuild tool invocation
func (s *Server) handleRebuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.ingester.RebuildFromManifest(ctx)
	if errors.Is(err, ingest.ErrBusy) {
		return nil, newMCPError(ErrorCodeIngestBusy, "another ingest is in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "rebuild failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"documents": stats.Documents,
		"chunks":    stats.Chunks,
		"skipped":   stats.Skipped,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateFile checks that path names an existing regular file
func validateFile(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if info.IsDir() {
		return ErrPathIsDirectory
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrPathIsDirectory = errors.New("path is a directory")
)
