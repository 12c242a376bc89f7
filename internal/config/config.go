// Package config loads service configuration from environment variables
// with typed defaults and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the RAG backend.
type Config struct {
	// Server settings
	Port string

	// Qdrant settings
	QdrantHost string
	QdrantPort int

	// Embedding settings
	Dimension        int
	EmbeddingTimeout time.Duration
	OllamaURL        string
	OllamaModel      string
	OllamaEnabled    bool
	LocalTimeout     time.Duration

	// Generation settings
	ChatModel         string
	GenerationTimeout time.Duration

	// Retrieval settings
	Namespace     string
	SearchTimeout time.Duration
	TopK          int

	// Chunking settings
	ChunkSize    int
	ChunkOverlap int
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		QdrantHost:        getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:        getEnvInt("QDRANT_PORT", 6334),
		Dimension:         getEnvInt("EMBEDDING_DIMENSION", 768),
		EmbeddingTimeout:  getEnvDuration("EMBEDDING_TIMEOUT", 10*time.Second),
		OllamaURL:         getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		OllamaEnabled:     getEnvBool("OLLAMA_ENABLED", true),
		LocalTimeout:      getEnvDuration("OLLAMA_TIMEOUT", 15*time.Second),
		ChatModel:         getEnv("CHAT_MODEL", "gpt-4o-mini"),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 90*time.Second),
		Namespace:         getEnv("KB_NAMESPACE", "knowledge_base"),
		SearchTimeout:     getEnvDuration("SEARCH_TIMEOUT", 5*time.Second),
		TopK:              getEnvInt("TOP_K", 3),
		ChunkSize:         getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 100),
	}

	return cfg, cfg.Validate()
}

// Validate checks parameter ranges. Chunking parameters fail fast here
// rather than at first ingest.
func (c *Config) Validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.Dimension)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in (0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
