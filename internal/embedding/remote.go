package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// RemoteModel is the OpenAI model used for generating embeddings.
	RemoteModel = "text-embedding-3-small"

	// DefaultRemoteTimeout bounds a single remote embedding call including
	// rate-limit retries.
	DefaultRemoteTimeout = 10 * time.Second
)

// RemoteProvider generates embeddings through the OpenAI API. Rate limit
// errors are retried with exponential backoff; any other failure is
// permanent and falls through to the next provider in the chain.
type RemoteProvider struct {
	client  *openai.Client
	timeout time.Duration
}

// NewRemoteProvider creates a RemoteProvider. It requires OPENAI_API_KEY in
// the environment and returns an error if it is not set.
func NewRemoteProvider(timeout time.Duration) (*RemoteProvider, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}

	// openai-go reads OPENAI_API_KEY from the environment
	client := openai.NewClient()

	return &RemoteProvider{client: &client, timeout: timeout}, nil
}

// Name implements Provider.
func (p *RemoteProvider) Name() string { return "openai" }

// Embed generates an embedding for a single text with retry on rate limits.
func (p *RemoteProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var vector []float32
	operation := func() error {
		resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: []string{text},
			},
			Model: RemoteModel,
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // Will retry with backoff
			}
			return backoff.Permanent(err) // Don't retry
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(errors.New("empty embedding response"))
		}
		vector = toFloat32(resp.Data[0].Embedding)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = p.timeout

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	return vector, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// The OpenAI API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
