package webgpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backendOrSkip(t *testing.T) *Backend {
	t.Helper()
	b, err := Default()
	if err != nil {
		t.Skipf("webgpu not available: %v", err)
	}
	return b
}

func TestUnavailableIsReported(t *testing.T) {
	if _, err := Default(); err != nil {
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.False(t, Available())
	}
}

func TestEmbeddingGather(t *testing.T) {
	b := backendOrSkip(t)
	// dim 2, 3 embeddings.
	dict := []float32{1, 2, 3, 4, 5, 6}
	out, err := b.EmbeddingGather(dict, 2, 3, []float32{2, 0, 7, float32(math.NaN())})
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 6, 1, 2, 0, 0, 0, 0}, out)
}

func TestEmbeddingScatterAddCollisions(t *testing.T) {
	b := backendOrSkip(t)
	grad := make([]float32, 6)
	err := b.EmbeddingScatterAdd(grad, 2, 3, []float32{1, 1, 5}, []float32{1, 2, 3, 4, 9, 9})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 4, 6, 0, 0}, grad)
}

func TestCrossEntropyLabels(t *testing.T) {
	b := backendOrSkip(t)
	pred := []float32{0.2, 0.5, 0.3, 0.1, 0.1, 0.8}
	params := CrossEntropyParams{Height: 3, LabelHeight: 1, Samples: 2, Classes: 3, RowStride: 1}
	loss, err := b.CrossEntropyForward(pred, []float32{1, 2}, params)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.5), loss[0], 1e-5)
	assert.InDelta(t, -math.Log(0.8), loss[1], 1e-5)

	dpred, dtruth, err := b.CrossEntropyBackward(pred, []float32{1, 2}, []float32{1, 1}, params)
	require.NoError(t, err)
	assert.InDelta(t, -2, dpred[1], 1e-5)
	assert.Equal(t, []float32{0, 0}, dtruth)
}
