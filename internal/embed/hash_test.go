package embed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/skillbase/internal/store"
)

func norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var d float64
	for i := range a {
		d += float64(a[i]) * float64(b[i])
	}
	return d
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(DefaultDims)
	a, err := e.Embed("rotate kubernetes secrets with sealed-secrets")
	require.NoError(t, err)
	b, err := e.Embed("rotate kubernetes secrets with sealed-secrets")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashEmbedderNormalized(t *testing.T) {
	e := NewHashEmbedder(128)
	vec, err := e.Embed("profile cpu usage with pprof flame graphs")
	require.NoError(t, err)
	require.Len(t, vec, 128)
	assert.InDelta(t, 1.0, norm(vec), 1e-6)
}

func TestHashEmbedderEmptyTextZeroVector(t *testing.T) {
	e := NewHashEmbedder(64)
	for _, text := range []string{"", "   ", "a", "the of and"} {
		vec, err := e.Embed(text)
		require.NoError(t, err)
		assert.Zero(t, norm(vec), "text %q should embed to zero", text)
	}
}

func TestHashEmbedderLexicalOverlap(t *testing.T) {
	e := NewHashEmbedder(DefaultDims)
	base, err := e.Embed("deploy docker containers to kubernetes cluster")
	require.NoError(t, err)
	similar, err := e.Embed("deploy docker images to kubernetes nodes")
	require.NoError(t, err)
	unrelated, err := e.Embed("tune postgres vacuum thresholds")
	require.NoError(t, err)

	assert.Greater(t, dot(base, similar), dot(base, unrelated),
		"overlapping texts should score higher than disjoint texts")
}

func TestNewBackendSelection(t *testing.T) {
	e, err := New(BackendHash, 256)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 256, e.Dims())
	assert.Equal(t, BackendHash, e.Type())

	e, err = New(BackendNone, 0)
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = New(BackendHash, 8)
	assert.Error(t, err, "dims below minimum")
	_, err = New(BackendHash, 10000)
	assert.Error(t, err, "dims above maximum")
	_, err = New("word2vec", 256)
	assert.Error(t, err, "unknown backend")
}

func TestCachedEmbedder(t *testing.T) {
	inner := NewHashEmbedder(64)
	c, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)

	v1, err := c.Embed("first text here")
	require.NoError(t, err)
	v2, err := c.Embed("first text here")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, c.Len())

	_, err = c.Embed("second text here")
	require.NoError(t, err)
	_, err = c.Embed("third text here")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len(), "capacity bound holds")

	assert.Equal(t, 64, c.Dims())
	assert.Equal(t, BackendHash, c.Type())
}

func TestEmbedderMatchesTokenizer(t *testing.T) {
	// Tokens that the tokenizer drops must not influence the vector.
	e := NewHashEmbedder(128)
	require.Empty(t, store.Tokenize("of the"))

	a, err := e.Embed("rotate secrets")
	require.NoError(t, err)
	b, err := e.Embed("rotate of the secrets")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
