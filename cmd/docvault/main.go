// Command docvault is the CLI for the local document vault: ingest
// documents, search and question them, and serve the vault over MCP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docvault/docvault/internal/catalog"
	"github.com/docvault/docvault/internal/config"
	"github.com/docvault/docvault/internal/embedder"
	"github.com/docvault/docvault/internal/ingest"
	"github.com/docvault/docvault/internal/mcp"
	"github.com/docvault/docvault/internal/retrieval"
	"github.com/docvault/docvault/internal/sitemap"
)

var (
	version = "dev"

	asJSON bool
	topK   int
)

var rootCmd = &cobra.Command{
	Use:           "docvault",
	Short:         "Local-first document vault with semantic search",
	Long:          "docvault stores documents in a content-addressed vault, indexes their text for semantic search, and answers questions with quoted, attributed passages.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Add documents to the vault",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ing, err := openVault()
		if err != nil {
			return err
		}
		defer func() { _ = ing.Close() }()

		paths := make([]string, len(args))
		for i, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", arg, err)
			}
			paths[i] = abs
		}

		task, err := ing.Start(cmd.Context(), paths)
		if err != nil {
			return err
		}
		for p := range task.Progress() {
			if p.Err != nil {
				fmt.Fprintf(os.Stderr, "failed: %s: %v\n", p.Path, p.Err)
				continue
			}
			r := p.Result
			verb := "ingested"
			if r.Dedup {
				verb = "already stored"
			}
			fmt.Printf("%s %s (digest %.12s, %d pages, %d chunks)\n",
				verb, r.Filename, r.Digest, r.Pages, r.Chunks)
		}
		_, err = task.Wait()
		return err
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the vault semantically",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ing, err := openVault()
		if err != nil {
			return err
		}
		defer func() { _ = ing.Close() }()

		emb, err := embedder.Shared()
		if err != nil {
			return err
		}
		searcher := retrieval.NewSearcher(ing.Catalog(), ing.Index(), emb)
		results, err := searcher.Search(cmd.Context(), args[0], topK)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(results)
		}
		if len(results) == 0 {
			fmt.Println("no results")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. [%.3f] %s (page %d, %s)\n   %s\n",
				i+1, r.Score, r.File, r.Page, r.Hash, r.Snippet)
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from vault contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := config.Load()
		if err != nil {
			return err
		}
		emb, err := embedder.Shared()
		if err != nil {
			return err
		}
		ing, err := ingest.Open(paths, emb)
		if err != nil {
			return err
		}
		defer func() { _ = ing.Close() }()

		var gen retrieval.Generator
		if bin, ok := config.LocalLLMPath(paths); ok {
			gen = retrieval.NewExecGenerator(bin)
		}
		searcher := retrieval.NewSearcher(ing.Catalog(), ing.Index(), emb)
		answerer := retrieval.NewAnswerer(searcher, gen)

		answer, err := answerer.Answer(cmd.Context(), args[0], topK)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(answer)
		}
		fmt.Println(answer.Text)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ing, err := openVault()
		if err != nil {
			return err
		}
		defer func() { _ = ing.Close() }()

		status, err := ing.Status(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(status)
		}
		fmt.Printf("vault:     %s\n", status.DataDir)
		fmt.Printf("documents: %d\n", status.Documents)
		fmt.Printf("chunks:    %d (%d vectors)\n", status.Chunks, status.Vectors)
		fmt.Printf("embedding: %s/%s, %d dimensions\n", status.Provider, status.Model, status.Dimension)
		fmt.Printf("ocr:       %v\n", status.OCRAvailable)
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the catalog and vector index from the manifest and stored blobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ing, err := openVault()
		if err != nil {
			return err
		}
		defer func() { _ = ing.Close() }()

		stats, err := ing.RebuildFromManifest(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("rebuilt %d documents, %d chunks (%d skipped)\n",
			stats.Documents, stats.Chunks, stats.Skipped)
		return nil
	},
}

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "List every document in the vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ing, err := openVault()
		if err != nil {
			return err
		}
		defer func() { _ = ing.Close() }()

		entries, err := sitemap.Build(cmd.Context(), ing.Manifest(), ing.Catalog())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(entries)
		}
		fmt.Print(sitemap.Markdown(entries))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the vault over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := config.Load()
		if err != nil {
			return err
		}
		server, err := mcp.NewServer(paths)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		errChan := make(chan error, 1)
		go func() {
			errChan <- server.Serve(ctx)
		}()

		select {
		case sig := <-sigChan:
			log.Printf("received %v, shutting down", sig)
			cancel()
			return nil
		case err := <-errChan:
			return err
		}
	},
}

// openVault resolves the vault layout and opens an Ingester over it.
func openVault() (*ingest.Ingester, error) {
	paths, err := config.Load()
	if err != nil {
		return nil, err
	}
	emb, err := embedder.Shared()
	if err != nil {
		return nil, err
	}
	return ingest.Open(paths, emb)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	// stdout carries command output and, under serve, the MCP protocol.
	log.SetOutput(os.Stderr)

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"docvault %s (sqlite driver %s, %s build)\n", version, catalog.DriverName, catalog.BuildMode))

	searchCmd.Flags().IntVarP(&topK, "top", "k", retrieval.DefaultTopK, "number of results")
	searchCmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	askCmd.Flags().IntVarP(&topK, "top", "k", retrieval.DefaultTopK, "passages to retrieve")
	askCmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	statusCmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	sitemapCmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")

	rootCmd.AddCommand(ingestCmd, searchCmd, askCmd, statusCmd, rebuildCmd, sitemapCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "docvault: %v\n", err)
		os.Exit(1)
	}
}
