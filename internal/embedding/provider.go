// Package embedding converts text into fixed-dimension vectors through an
// ordered chain of providers: remote API, optional local model, and a
// deterministic hashing fallback that cannot fail on well-formed text.
package embedding

import (
	"context"
	"errors"
)

// ErrAllProvidersFailed indicates every configured provider failed for a
// text. It is unreachable when the hash fallback is in the chain.
var ErrAllProvidersFailed = errors.New("all embedding providers failed")

// Provider produces an embedding vector for a single text. Implementations
// may return vectors of any length; the Embedder pads or truncates them to
// the configured dimension before use.
type Provider interface {
	// Embed generates a vector for text. Provider failures (timeouts, auth,
	// quota) are returned as errors so the chain can fall through.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name identifies the provider in logs.
	Name() string
}
