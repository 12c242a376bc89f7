package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashProvider derives a reproducible pseudo-embedding from token hashes.
// It guarantees availability when every model-backed provider is down, at
// the cost of semantic quality: similarity degrades to token overlap.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a HashProvider emitting vectors of the given
// dimension.
func NewHashProvider(dimension int) *HashProvider {
	return &HashProvider{dimension: dimension}
}

// Name implements Provider.
func (p *HashProvider) Name() string { return "hash" }

// Embed lowercases and whitespace-splits the text, maps each token through
// FNV-1a to an index with a deterministic sign bit, accumulates ±1 per
// occurrence, and L2-normalizes the result. A text with no tokens yields
// the zero vector. The output is identical across calls for the same input.
func (p *HashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dimension)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		idx := int(sum % uint64(p.dimension))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) * scale)
		}
	}

	return vec, nil
}
