// Package main provides the HTTP server entry point for the compliance
// knowledge backend.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/complykit/ragserver/internal/api"
	"github.com/complykit/ragserver/internal/cache"
	"github.com/complykit/ragserver/internal/chunker"
	"github.com/complykit/ragserver/internal/config"
	"github.com/complykit/ragserver/internal/embedding"
	"github.com/complykit/ragserver/internal/generator"
	"github.com/complykit/ragserver/internal/pipeline"
	"github.com/complykit/ragserver/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := storage.New(storage.Config{
		Host:          cfg.QdrantHost,
		Port:          cfg.QdrantPort,
		Dimension:     cfg.Dimension,
		SearchTimeout: cfg.SearchTimeout,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("failed to connect to Qdrant", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		logger.Error("failed to ensure collection", "error", err)
		os.Exit(1)
	}

	embedder := buildEmbedder(cfg, logger)

	gen, err := generator.New(cfg.ChatModel, cfg.GenerationTimeout, logger)
	if err != nil {
		logger.Error("failed to create generator", "error", err)
		os.Exit(1)
	}

	textChunker, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		logger.Error("invalid chunking parameters", "error", err)
		os.Exit(1)
	}

	responseCache := cache.New[*pipeline.AnswerResult]()
	rag := pipeline.New(textChunker, embedder, store, gen, responseCache, cfg.Namespace, logger)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           api.NewServer(rag, store, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr, "namespace", cfg.Namespace)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// buildEmbedder assembles the provider chain: remote first when an API key
// is configured, then the local Ollama provider when enabled, and the hash
// fallback always last so Embed cannot fail outright.
func buildEmbedder(cfg *config.Config, logger *slog.Logger) *embedding.Embedder {
	var providers []embedding.Provider

	remote, err := embedding.NewRemoteProvider(cfg.EmbeddingTimeout)
	if err != nil {
		logger.Warn("remote embedding provider unavailable", "error", err)
	} else {
		providers = append(providers, remote)
	}

	if cfg.OllamaEnabled {
		providers = append(providers, embedding.NewLocalProvider(cfg.OllamaURL, cfg.OllamaModel, cfg.LocalTimeout))
	}

	providers = append(providers, embedding.NewHashProvider(cfg.Dimension))
	return embedding.NewEmbedder(cfg.Dimension, logger, providers...)
}
