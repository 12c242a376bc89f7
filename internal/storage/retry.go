package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// searchAttempts is the total number of tries for read operations.
	searchAttempts = 3

	// searchRetryDelay is the fixed delay between attempts.
	searchRetryDelay = 1 * time.Second
)

// withRetry runs op up to attempts times with a fixed inter-attempt delay,
// stopping early on context cancellation. It returns the number of attempts
// made and the last error, so callers can log exhaustion with the count.
func withRetry(ctx context.Context, attempts uint64, delay time.Duration, op func() error) (int, error) {
	made := 0
	counted := func() error {
		made++
		return op()
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), attempts-1), ctx)

	err := backoff.Retry(counted, policy)
	return made, err
}
