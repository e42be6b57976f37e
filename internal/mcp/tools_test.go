package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault/docvault/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(config.ForDataDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.ingester.Close() })
	return s
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText unwraps the single text content of a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHandleIngest(t *testing.T) {
	s := newTestServer(t)
	path := writeFixture(t, "note.txt", "the vault stores documents locally")

	result, err := s.handleIngest(context.Background(),
		callRequest("vault_ingest", map[string]interface{}{"path": path}))
	require.NoError(t, err)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, "note.txt", response["filename"])
	assert.NotEmpty(t, response["digest"])
	assert.Equal(t, float64(1), response["chunks"])
	assert.Equal(t, false, response["dedup"])
}

func TestHandleIngest_Validation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleIngest(ctx, callRequest("vault_ingest", map[string]interface{}{}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidParams, err.(*MCPError).Code)

	_, err = s.handleIngest(ctx, callRequest("vault_ingest", map[string]interface{}{
		"path": "relative/path.txt",
	}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidParams, err.(*MCPError).Code)

	_, err = s.handleIngest(ctx, callRequest("vault_ingest", map[string]interface{}{
		"path": "/nonexistent/path/to/nowhere.txt",
	}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidParams, err.(*MCPError).Code)
}

func TestHandleSearch(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleIngest(ctx, callRequest("vault_ingest", map[string]interface{}{
		"path": writeFixture(t, "policy.txt", "vacation requests require two weeks notice"),
	}))
	require.NoError(t, err)

	result, err := s.handleSearch(ctx, callRequest("vault_search", map[string]interface{}{
		"query": "vacation notice",
		"limit": float64(3),
	}))
	require.NoError(t, err)

	var response struct {
		Query   string `json:"query"`
		Results []struct {
			Score   float64 `json:"score"`
			File    string  `json:"file"`
			Page    int     `json:"page"`
			Snippet string  `json:"snippet"`
			Hash    string  `json:"hash"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	require.NotEmpty(t, response.Results)
	assert.Equal(t, "policy.txt", response.Results[0].File)
	assert.Equal(t, 1, response.Results[0].Page)
	assert.Contains(t, response.Results[0].Hash, "b3:")
}

func TestHandleSearch_Validation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleSearch(ctx, callRequest("vault_search", map[string]interface{}{}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeEmptyQuery, err.(*MCPError).Code)

	_, err = s.handleSearch(ctx, callRequest("vault_search", map[string]interface{}{
		"query": "ok",
		"limit": float64(101),
	}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidParams, err.(*MCPError).Code)
}

func TestHandleAsk_ExtractiveAnswer(t *testing.T) {
	t.Setenv(config.EnvLocalLLMPath, "")
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleIngest(ctx, callRequest("vault_ingest", map[string]interface{}{
		"path": writeFixture(t, "policy.txt", "vacation requests require two weeks notice"),
	}))
	require.NoError(t, err)

	result, err := s.handleAsk(ctx, callRequest("vault_ask", map[string]interface{}{
		"question": "how much notice for vacation",
	}))
	require.NoError(t, err)

	var answer struct {
		Text      string `json:"text"`
		Generated bool   `json:"generated"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &answer))
	assert.False(t, answer.Generated)
	assert.Contains(t, answer.Text, "policy.txt")
}

func TestHandleAsk_GeneratedAnswer(t *testing.T) {
	runner := filepath.Join(t.TempDir(), "runner")
	require.NoError(t, os.WriteFile(runner,
		[]byte("#!/bin/sh\ncat >/dev/null\necho 'Give two weeks notice.'\n"), 0o755))
	t.Setenv(config.EnvLocalLLMPath, runner)

	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleIngest(ctx, callRequest("vault_ingest", map[string]interface{}{
		"path": writeFixture(t, "policy.txt", "vacation requests require two weeks notice"),
	}))
	require.NoError(t, err)

	result, err := s.handleAsk(ctx, callRequest("vault_ask", map[string]interface{}{
		"question": "how much notice for vacation",
	}))
	require.NoError(t, err)

	var answer struct {
		Text      string `json:"text"`
		Generated bool   `json:"generated"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &answer))
	assert.True(t, answer.Generated)
	assert.Equal(t, "Give two weeks notice.", answer.Text)
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleStatus(context.Background(),
		callRequest("vault_status", map[string]interface{}{}))
	require.NoError(t, err)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &status))
	assert.Equal(t, float64(0), status["documents"])
	assert.NotEmpty(t, status["provider"])
	assert.NotEmpty(t, status["data_dir"])
}

func TestHandleSitemap(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleIngest(ctx, callRequest("vault_ingest", map[string]interface{}{
		"path": writeFixture(t, "report.txt", "annual report executive summary"),
	}))
	require.NoError(t, err)

	result, err := s.handleSitemap(ctx, callRequest("vault_sitemap", map[string]interface{}{}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "report.txt")

	result, err = s.handleSitemap(ctx, callRequest("vault_sitemap", map[string]interface{}{
		"format": "markdown",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "## report.txt")

	_, err = s.handleSitemap(ctx, callRequest("vault_sitemap", map[string]interface{}{
		"format": "xml",
	}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidParams, err.(*MCPError).Code)
}

func TestHandleRebuild(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleIngest(ctx, callRequest("vault_ingest", map[string]interface{}{
		"path": writeFixture(t, "a.txt", "content to rebuild"),
	}))
	require.NoError(t, err)

	result, err := s.handleRebuild(ctx, callRequest("vault_rebuild", map[string]interface{}{}))
	require.NoError(t, err)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, float64(1), response["documents"])
	assert.Equal(t, float64(0), response["skipped"])
}
