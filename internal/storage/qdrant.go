// Package storage persists embedding records in Qdrant and answers
// nearest-neighbor queries by cosine similarity. It exclusively owns the
// persisted records: callers insert, search, count and bulk-delete through
// it, never mutate rows directly.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// DefaultSearchTimeout bounds a single search attempt, not the whole retry
// loop.
const DefaultSearchTimeout = 5 * time.Second

// Store wraps the Qdrant client with connection management, namespace
// filtering and a fixed-delay retry policy for reads.
type Store struct {
	client        *qdrant.Client
	dimension     int
	searchTimeout time.Duration
	logger        *slog.Logger
}

// Config holds Store construction parameters.
type Config struct {
	Host          string
	Port          int
	Dimension     int
	SearchTimeout time.Duration
	Logger        *slog.Logger
}

// New creates a Store and verifies Qdrant is reachable, retrying the health
// check with exponential backoff before giving up.
func New(cfg Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = DefaultSearchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	store := &Store{
		client:        client,
		dimension:     cfg.Dimension,
		searchTimeout: cfg.SearchTimeout,
		logger:        cfg.Logger,
	}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection ensures the embeddings collection exists with cosine
// distance vectors of the configured dimension and a keyword index on the
// namespace field. Idempotent - safe to call multiple times.
func (s *Store) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	// Without this index, namespace filtering degrades badly at scale.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: CollectionName,
		FieldName:      "namespace",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("create namespace index: %w", err)
	}

	return nil
}

// InsertBatch stores one document's chunks in a single upsert so a partial
// failure cannot leave the namespace half-populated. Inserts are not
// retried; the ingestion caller decides whether to re-run.
func (s *Store) InsertBatch(ctx context.Context, namespace string, contents []string, vectors [][]float32) error {
	if len(contents) != len(vectors) {
		return fmt.Errorf("contents/vectors length mismatch: %d vs %d", len(contents), len(vectors))
	}
	if len(contents) == 0 {
		return nil
	}

	for i, vec := range vectors {
		if len(vec) != s.dimension {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(vec), s.dimension)
		}
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	points := make([]*qdrant.PointStruct, len(contents))
	for i, content := range contents {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.New().String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"namespace":  namespace,
				"content":    content,
				"created_at": createdAt,
			}),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: CollectionName,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}

	s.logger.Info("stored embedding batch", "namespace", namespace, "count", len(points))
	return nil
}

// Search returns up to k chunks from the namespace ordered by descending
// cosine similarity. An empty or nonexistent namespace yields an empty
// result, not an error. Each attempt gets its own timeout; after three
// failed attempts the error wraps ErrRetrievalUnavailable.
func (s *Store) Search(ctx context.Context, namespace string, vector []float32, k int) ([]ScoredChunk, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	var results []*qdrant.ScoredPoint
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.searchTimeout)
		defer cancel()

		points, err := s.client.Query(attemptCtx, &qdrant.QueryPoints{
			CollectionName: CollectionName,
			Query:          qdrant.NewQuery(vector...),
			Filter:         namespaceFilter(namespace),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		results = points
		return nil
	}

	attempts, err := withRetry(ctx, searchAttempts, searchRetryDelay, operation)
	if err != nil {
		s.logger.Error("search exhausted retries",
			"namespace", namespace, "attempts", attempts, "error", err)
		return nil, fmt.Errorf("%w: %d attempts: %v", ErrRetrievalUnavailable, attempts, err)
	}

	chunks := make([]ScoredChunk, 0, len(results))
	for _, point := range results {
		chunks = append(chunks, ScoredChunk{
			Content:    point.Payload["content"].GetStringValue(),
			Similarity: float64(point.Score),
		})
	}
	return chunks, nil
}

// Count returns the exact number of records in the namespace. It shares the
// search retry policy because the pipeline's existence probe depends on it.
func (s *Store) Count(ctx context.Context, namespace string) (uint64, error) {
	var count uint64
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.searchTimeout)
		defer cancel()

		n, err := s.client.Count(attemptCtx, &qdrant.CountPoints{
			CollectionName: CollectionName,
			Filter:         namespaceFilter(namespace),
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			return err
		}
		count = n
		return nil
	}

	attempts, err := withRetry(ctx, searchAttempts, searchRetryDelay, operation)
	if err != nil {
		s.logger.Error("count exhausted retries",
			"namespace", namespace, "attempts", attempts, "error", err)
		return 0, fmt.Errorf("%w: %d attempts: %v", ErrRetrievalUnavailable, attempts, err)
	}
	return count, nil
}

// DeleteNamespace removes every record in the namespace.
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points:         qdrant.NewPointsSelectorFilter(namespaceFilter(namespace)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("delete namespace %s: %w", namespace, err)
	}

	s.logger.Info("deleted namespace", "namespace", namespace)
	return nil
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func namespaceFilter(namespace string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("namespace", namespace),
		},
	}
}
