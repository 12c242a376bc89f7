//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a local Qdrant at localhost:6334 (docker run -p 6334:6334 qdrant/qdrant).
func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(Config{Host: "localhost", Port: 6334, Dimension: 4})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureCollection(context.Background()))
	return store
}

func TestStore_RoundTrip_Integration(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ns := "storage_test_roundtrip"

	require.NoError(t, store.DeleteNamespace(ctx, ns))

	// Empty namespace: no error, no results.
	results, err := store.Search(ctx, ns, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	contents := []string{"consent is required", "data principals have rights", "penalties apply"}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0.9, 0.1, 0, 0},
	}
	require.NoError(t, store.InsertBatch(ctx, ns, contents, vectors))

	count, err := store.Count(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	// k > N returns exactly N, ordered by non-increasing similarity.
	results, err = store.Search(ctx, ns, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}

	// An identical stored vector ranks first with similarity ~1.0.
	assert.Equal(t, "consent is required", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)

	require.NoError(t, store.DeleteNamespace(ctx, ns))
	count, err = store.Count(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestStore_InsertBatch_DimensionMismatch_Integration(t *testing.T) {
	store := newTestStore(t)

	err := store.InsertBatch(context.Background(), "storage_test_dim",
		[]string{"bad"}, [][]float32{{1, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestStore_Search_DimensionMismatch_Integration(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Search(context.Background(), "storage_test_dim", []float32{1}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
