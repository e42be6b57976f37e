package mcp

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/docvault/docvault/internal/config"
	"github.com/docvault/docvault/internal/embedder"
	"github.com/docvault/docvault/internal/ingest"
	"github.com/docvault/docvault/internal/retrieval"
)

const (
	// ServerName is the MCP server name
	ServerName = "docvault"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the vault it operates on
type Server struct {
	mcp      *server.MCPServer
	paths    config.Paths
	ingester *ingest.Ingester
	searcher *retrieval.Searcher
	answerer *retrieval.Answerer
	logger   *log.Logger
}

// NewServer opens the vault at paths and builds an MCP server over it
func NewServer(paths config.Paths) (*Server, error) {
	emb, err := embedder.Shared()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	ing, err := ingest.Open(paths, emb)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	searcher := retrieval.NewSearcher(ing.Catalog(), ing.Index(), emb)
	logger := log.New(os.Stderr, "[mcp] ", log.LstdFlags)

	// Answers are extractive unless a local generation command is present.
	var gen retrieval.Generator
	if path, ok := config.LocalLLMPath(paths); ok {
		gen = retrieval.NewExecGenerator(path)
		logger.Printf("generating answers with %s", path)
	} else {
		logger.Printf("no generation command at %s, answers will quote passages", path)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		paths:    paths,
		ingester: ing,
		searcher: searcher,
		answerer: retrieval.NewAnswerer(searcher, gen),
		logger:   logger,
	}
	s.registerTools()
	return s, nil
}

// Serve runs the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.ingester.Close() }()
	s.logger.Printf("serving vault at %s", s.paths.DataDir)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all vault tools
func (s *Server) registerTools() {
	s.mcp.AddTool(vaultIngestTool(), s.handleIngest)
	s.mcp.AddTool(vaultSearchTool(), s.handleSearch)
	s.mcp.AddTool(vaultAskTool(), s.handleAsk)
	s.mcp.AddTool(vaultStatusTool(), s.handleStatus)
	s.mcp.AddTool(vaultSitemapTool(), s.handleSitemap)
	s.mcp.AddTool(vaultRebuildTool(), s.handleRebuild)
}
