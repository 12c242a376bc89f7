package storage

import "errors"

var (
	ErrStoreUnreachable     = errors.New("vector store unreachable")
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable after retries")
)
