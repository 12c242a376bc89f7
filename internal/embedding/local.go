package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultOllamaURL is the standard local Ollama endpoint.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultLocalModel is a small embedding model that fits in modest RAM.
	DefaultLocalModel = "nomic-embed-text"

	// DefaultLocalTimeout bounds a single local embedding call.
	DefaultLocalTimeout = 15 * time.Second
)

// LocalProvider generates embeddings through a locally hosted Ollama server.
// It sits between the remote API and the hash fallback in the chain: better
// quality than hashing, no network egress.
type LocalProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewLocalProvider creates a LocalProvider for the given Ollama base URL and
// model. Zero values fall back to defaults.
func NewLocalProvider(baseURL, model string, timeout time.Duration) *LocalProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultLocalModel
	}
	if timeout <= 0 {
		timeout = DefaultLocalTimeout
	}
	return &LocalProvider{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (p *LocalProvider) Name() string { return "ollama" }

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed generates an embedding via the Ollama embeddings API.
func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var decoded ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}

	return toFloat32(decoded.Embedding), nil
}
