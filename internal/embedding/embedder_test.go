package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns a canned vector or error and records call counts.
type fakeProvider struct {
	name   string
	vector []float32
	err    error
	calls  int
}

func (f *fakeProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeProvider) Name() string { return f.name }

func TestEmbed_FirstProviderWins(t *testing.T) {
	primary := &fakeProvider{name: "primary", vector: []float32{1, 2, 3, 4}}
	secondary := &fakeProvider{name: "secondary", vector: []float32{9, 9, 9, 9}}

	e := NewEmbedder(4, nil, primary, secondary)
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 2, 3, 4}, vec)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls, "secondary must not be attempted on success")
}

func TestEmbed_FallsThroughOnFailure(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("quota exceeded")}
	secondary := &fakeProvider{name: "secondary", vector: []float32{5, 6, 7, 8}}

	e := NewEmbedder(4, nil, primary, secondary)
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{5, 6, 7, 8}, vec)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestEmbed_HashFallbackAfterAllModelFailures(t *testing.T) {
	remote := &fakeProvider{name: "openai", err: errors.New("timeout")}
	local := &fakeProvider{name: "ollama", err: errors.New("connection refused")}

	e := NewEmbedder(64, nil, remote, local, NewHashProvider(64))
	vec, err := e.Embed(context.Background(), "what does dpdp protect")
	require.NoError(t, err)

	require.Len(t, vec, 64)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5, "hash embedding must be unit norm")
}

func TestEmbed_AllProvidersFailed(t *testing.T) {
	remote := &fakeProvider{name: "openai", err: errors.New("down")}

	e := NewEmbedder(8, nil, remote)
	_, err := e.Embed(context.Background(), "hello")

	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestEmbed_PadsShortVectors(t *testing.T) {
	short := &fakeProvider{name: "short", vector: []float32{1, 2}}

	e := NewEmbedder(5, nil, short)
	vec, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 2, 0, 0, 0}, vec)
}

func TestEmbed_TruncatesLongVectors(t *testing.T) {
	long := &fakeProvider{name: "long", vector: []float32{1, 2, 3, 4, 5, 6}}

	e := NewEmbedder(3, nil, long)
	vec, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 2, 3}, vec)
}

func TestEmbedBatch_PerItemFallback(t *testing.T) {
	// Remote fails only on the second call: item 0 succeeds remotely,
	// item 1 falls through to the hash provider.
	flaky := &flakyProvider{failOn: 2, vector: []float32{1, 0, 0, 0}}

	e := NewEmbedder(4, nil, flaky, NewHashProvider(4))
	vectors, err := e.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0, 0, 0}, vectors[0])
	assert.NotEqual(t, vectors[0], vectors[1])
	assert.Len(t, vectors[1], 4)
}

type flakyProvider struct {
	calls  int
	failOn int
	vector []float32
}

func (f *flakyProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, errors.New("transient failure")
	}
	return f.vector, nil
}

func (f *flakyProvider) Name() string { return "flaky" }

func TestHashProvider_Deterministic(t *testing.T) {
	p := NewHashProvider(128)

	a, err := p.Embed(context.Background(), "Consent is required under the DPDP Act")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "Consent is required under the DPDP Act")
	require.NoError(t, err)

	assert.Equal(t, a, b, "hash embedding must be deterministic")
}

func TestHashProvider_CaseAndSplitNormalization(t *testing.T) {
	p := NewHashProvider(128)

	a, err := p.Embed(context.Background(), "Personal Data")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "personal   data")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestHashProvider_EmptyTextIsZeroVector(t *testing.T) {
	p := NewHashProvider(16)

	vec, err := p.Embed(context.Background(), "   ")
	require.NoError(t, err)

	require.Len(t, vec, 16)
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("element %d is %f, expected zero vector", i, v)
		}
	}
}

func TestHashProvider_UnitNorm(t *testing.T) {
	p := NewHashProvider(256)

	vec, err := p.Embed(context.Background(), "data principals have the right to erasure")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}
