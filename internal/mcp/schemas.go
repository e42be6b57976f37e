package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// vaultIngestTool returns the tool definition for vault_ingest
func vaultIngestTool() mcp.Tool {
	return mcp.Tool{
		Name:        "vault_ingest",
		Description: "Ingest a document into the vault: store, extract, chunk, embed, and index it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the document (PDF or plain text)",
				},
			},
			Required: []string{"path"},
		},
	}
}

// vaultSearchTool returns the tool definition for vault_search
func vaultSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "vault_search",
		Description: "Semantic search over ingested documents, returning ranked passages with file, page, and digest provenance",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// vaultAskTool returns the tool definition for vault_ask
func vaultAskTool() mcp.Tool {
	return mcp.Tool{
		Name:        "vault_ask",
		Description: "Answer a question from vault contents. Quotes retrieved passages verbatim unless a local generation model is configured",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question to answer from the vault",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "How many passages to retrieve as grounding (1-100)",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"question"},
		},
	}
}

// vaultStatusTool returns the tool definition for vault_status
func vaultStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "vault_status",
		Description: "Report vault statistics: document, chunk, and vector counts plus the embedding configuration",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// vaultSitemapTool returns the tool definition for vault_sitemap
func vaultSitemapTool() mcp.Tool {
	return mcp.Tool{
		Name:        "vault_sitemap",
		Description: "List every document in the vault with digest, size, page count, and a content preview",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"format": map[string]interface{}{
					"type":        "string",
					"description": "Output format",
					"enum":        []string{"json", "markdown"},
					"default":     "json",
				},
			},
		},
	}
}

// vaultRebuildTool returns the tool definition for vault_rebuild
func vaultRebuildTool() mcp.Tool {
	return mcp.Tool{
		Name:        "vault_rebuild",
		Description: "Rebuild the catalog and vector index from the manifest and stored blobs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
