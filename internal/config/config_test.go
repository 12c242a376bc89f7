package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.QdrantHost)
	assert.Equal(t, 6334, cfg.QdrantPort)
	assert.Equal(t, 768, cfg.Dimension)
	assert.Equal(t, "knowledge_base", cfg.Namespace)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QDRANT_HOST", "qdrant.internal")
	t.Setenv("EMBEDDING_DIMENSION", "1536")
	t.Setenv("SEARCH_TIMEOUT", "2s")
	t.Setenv("OLLAMA_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "qdrant.internal", cfg.QdrantHost)
	assert.Equal(t, 1536, cfg.Dimension)
	assert.Equal(t, 2*time.Second, cfg.SearchTimeout)
	assert.False(t, cfg.OllamaEnabled)
}

func TestValidate_RejectsBadChunkParams(t *testing.T) {
	t.Setenv("CHUNK_OVERLAP", "800")

	_, err := Load()
	assert.Error(t, err, "overlap equal to size must fail fast")
}

func TestValidate_RejectsBadDimension(t *testing.T) {
	t.Setenv("EMBEDDING_DIMENSION", "-1")

	_, err := Load()
	assert.Error(t, err)
}
