// Package main provides the ragctl CLI for managing the compliance
// knowledge base.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/complykit/ragserver/internal/cache"
	"github.com/complykit/ragserver/internal/chunker"
	"github.com/complykit/ragserver/internal/config"
	"github.com/complykit/ragserver/internal/embedding"
	"github.com/complykit/ragserver/internal/extract"
	"github.com/complykit/ragserver/internal/generator"
	"github.com/complykit/ragserver/internal/pipeline"
	"github.com/complykit/ragserver/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Compliance knowledge base management tool",
	Long: `CLI tool for managing the compliance knowledge base in Qdrant.

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings and generation (optional;
                 the embedder falls back to Ollama or hashing without it)
  KB_NAMESPACE   Knowledge base namespace (default: knowledge_base)`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Chunk, embed and store documents",
	Long: `Reads each file (markdown or plain text), normalizes and chunks it,
embeds every chunk and stores the batch in Qdrant.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	RunE:  runStats,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored chunks and drop cached answers",
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildPipeline wires the full stack the way the server does, minus the HTTP
// layer. needGenerator is false for commands that never call the chat model.
func buildPipeline(needGenerator bool) (*pipeline.Pipeline, *storage.Store, error) {
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := storage.New(storage.Config{
		Host:          cfg.QdrantHost,
		Port:          cfg.QdrantPort,
		Dimension:     cfg.Dimension,
		SearchTimeout: cfg.SearchTimeout,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	if err := store.EnsureCollection(context.Background()); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	var providers []embedding.Provider
	if remote, err := embedding.NewRemoteProvider(cfg.EmbeddingTimeout); err == nil {
		providers = append(providers, remote)
	}
	if cfg.OllamaEnabled {
		providers = append(providers, embedding.NewLocalProvider(cfg.OllamaURL, cfg.OllamaModel, cfg.LocalTimeout))
	}
	providers = append(providers, embedding.NewHashProvider(cfg.Dimension))
	embedder := embedding.NewEmbedder(cfg.Dimension, logger, providers...)

	var gen pipeline.Generator
	if needGenerator {
		g, err := generator.New(cfg.ChatModel, cfg.GenerationTimeout, logger)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to create generator: %w", err)
		}
		gen = g
	}

	textChunker, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("invalid chunking parameters: %w", err)
	}

	responseCache := cache.New[*pipeline.AnswerResult]()
	return pipeline.New(textChunker, embedder, store, gen, responseCache, cfg.Namespace, logger), store, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	rag, store, err := buildPipeline(false)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	start := time.Now()
	total := 0

	for _, path := range args {
		text, err := extract.FromFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		result, err := rag.Ingest(ctx, text)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}

		fmt.Printf("%s: %d chunks\n", path, result.ChunksStored)
		total += result.ChunksStored
	}

	fmt.Println()
	fmt.Printf("Stored %d chunks from %d files in %s\n",
		total, len(args), time.Since(start).Round(time.Millisecond))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	rag, store, err := buildPipeline(true)
	if err != nil {
		return err
	}
	defer store.Close()

	result := rag.Answer(context.Background(), args[0], 0)

	fmt.Println(result.Response)
	if len(result.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, src := range result.Sources {
			fmt.Printf("  %d. (%.3f) %s\n", i+1, src.Similarity, snippet(src.Content, 100))
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	rag, store, err := buildPipeline(false)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := rag.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to retrieve statistics: %w", err)
	}

	fmt.Printf("Chunks: %d\n", stats.TotalChunks)
	fmt.Printf("Status: %s\n", stats.Status)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	rag, store, err := buildPipeline(false)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := rag.Reset(context.Background()); err != nil {
		return fmt.Errorf("failed to reset knowledge base: %w", err)
	}

	fmt.Println("Knowledge base reset.")
	return nil
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
