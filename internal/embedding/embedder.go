package embedding

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultDimension is the vector dimension shared by the embedder and the
// store for the lifetime of a deployment.
const DefaultDimension = 768

// Embedder walks an ordered provider chain and normalizes every result to a
// fixed dimension. Providers are attempted strictly in order, never in
// parallel; the first success wins.
type Embedder struct {
	providers []Provider
	dimension int
	logger    *slog.Logger
}

// NewEmbedder creates an Embedder over the given providers. Providers are
// tried in argument order, so the cheapest-to-fail should come first and the
// hash fallback last.
func NewEmbedder(dimension int, logger *slog.Logger, providers ...Provider) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		providers: providers,
		dimension: dimension,
		logger:    logger,
	}
}

// Dimension returns the fixed output dimension D.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed converts text to a vector of exactly Dimension() elements. Vectors
// of a different native size are zero-padded or truncated. Hash-fallback
// embeddings are logged at Warn so they stay distinguishable from genuine
// model embeddings in telemetry.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error

	for _, provider := range e.providers {
		vec, err := provider.Embed(ctx, text)
		if err != nil {
			e.logger.Warn("embedding provider failed, falling back",
				"provider", provider.Name(), "error", err)
			lastErr = err
			continue
		}

		if _, isHash := provider.(*HashProvider); isHash {
			e.logger.Warn("using deterministic hash fallback embedding",
				"text_length", len(text))
		}

		return fit(vec, e.dimension), nil
	}

	return nil, fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

// EmbedBatch embeds each text independently so one item can fall through to
// a lower tier while another succeeds remotely.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// fit pads vec with zeros or truncates it so its length equals dimension.
func fit(vec []float32, dimension int) []float32 {
	switch {
	case len(vec) == dimension:
		return vec
	case len(vec) > dimension:
		return vec[:dimension]
	default:
		padded := make([]float32, dimension)
		copy(padded, vec)
		return padded
	}
}
