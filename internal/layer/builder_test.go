package layer_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/born-dist/internal/layer"
	"github.com/born-ml/born-dist/internal/tensor"
)

const bigramModel = `
layers:
  - name: embed
    type: embedding
    datatype: float32
    num_embeddings: 8
    embedding_dim: 8
    padding_idx: 0
    seed: 3
  - name: probs
    type: softmax
  - name: loss
    type: cross_entropy
    device: CPU
    use_labels: false
`

func TestBuildFromYAML(t *testing.T) {
	descs, err := layer.DecodeDescriptions(strings.NewReader(bigramModel))
	require.NoError(t, err)
	require.Len(t, descs, 3)

	m := singleRank(t, sgd[float32](t, 0.5))
	layers, err := layer.BuildAll(descs, m)
	require.NoError(t, err)

	emb, ok := layers[0].(*layer.Embedding[float32])
	require.True(t, ok)
	assert.Equal(t, 8, emb.NumEmbeddings())
	assert.Equal(t, 0, emb.PaddingIdx())
	assert.IsType(t, &layer.Softmax[float32]{}, layers[1])
	ce, ok := layers[2].(*layer.CrossEntropy[float32])
	require.True(t, ok)
	assert.False(t, ce.UseLabels())
	assert.Equal(t, tensor.CPU, ce.Device())

	var buf bytes.Buffer
	got := make([]layer.Description, len(layers))
	for i, l := range layers {
		got[i] = l.Description()
	}
	require.NoError(t, layer.EncodeDescriptions(&buf, got))
	again, err := layer.DecodeDescriptions(&buf)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, "embedding", again[0].Type)
	require.NotNil(t, again[0].PaddingIdx)
	assert.Equal(t, 0, *again[0].PaddingIdx)
}

func TestBuildErrors(t *testing.T) {
	m := singleRank[float32](t)
	for _, tc := range []struct {
		name string
		desc layer.Description
	}{
		{"negative num_embeddings", layer.Description{Name: "e", Type: "embedding", NumEmbeddings: -1, EmbeddingDim: 2}},
		{"zero num_embeddings", layer.Description{Name: "e", Type: "embedding", EmbeddingDim: 2}},
		{"zero embedding_dim", layer.Description{Name: "e", Type: "embedding", NumEmbeddings: 2}},
		{"datatype mismatch", layer.Description{Name: "l", Type: "cross_entropy", DataType: "float64"}},
		{"unknown datatype", layer.Description{Name: "l", Type: "cross_entropy", DataType: "float16"}},
		{"unknown layout", layer.Description{Name: "l", Type: "softmax", Layout: "pipeline"}},
		{"unknown device", layer.Description{Name: "l", Type: "softmax", Device: "tpu"}},
		{"unknown type", layer.Description{Name: "l", Type: "conv"}},
		{"model-parallel embedding", layer.Description{Name: "e", Type: "embedding", Layout: "model_parallel", NumEmbeddings: 2, EmbeddingDim: 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := layer.Build(tc.desc, m)
			assert.ErrorIs(t, err, layer.ErrSetup)
		})
	}

	_, err := layer.Build(layer.Description{Name: "e", Type: "embedding", NumEmbeddings: -1, EmbeddingDim: 2}, m)
	assert.ErrorContains(t, err, "must be positive")

	_, err = layer.DecodeDescriptions(strings.NewReader("layers:\n  - name: x\n    kind: embedding\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestLinkedTrainingReducesLoss(t *testing.T) {
	const vocab = 4
	m := singleRank(t, sgd[float64](t, 1))
	emb, err := layer.NewEmbedding(m, "embed", tensor.DataParallel, tensor.CPU,
		layer.EmbeddingConfig{NumEmbeddings: vocab, EmbeddingDim: vocab, PaddingIdx: -1, Seed: 11})
	require.NoError(t, err)
	sm, err := layer.NewSoftmax(m, "probs", tensor.DataParallel, tensor.CPU)
	require.NoError(t, err)
	ce, err := layer.NewCrossEntropy(m, "loss", tensor.DataParallel, tensor.CPU, false)
	require.NoError(t, err)

	require.NoError(t, layer.Link[float64](emb, sm, 0))
	require.NoError(t, layer.Link[float64](sm, ce, 0))
	assert.ErrorIs(t, layer.Link[float64](emb, ce, 1), layer.ErrSetup, "one child per layer")
	assert.ErrorIs(t, layer.Link[float64](sm, ce, 2), layer.ErrSetup)

	emb.SetInputDims(0, tensor.Shape{1})
	ce.SetInputDims(1, tensor.Shape{1, vocab})
	for _, l := range []layer.Layer[float64]{emb, sm, ce} {
		require.NoError(t, l.SetupDims())
	}
	assert.Equal(t, tensor.Shape{1, vocab}, ce.InputDims(0))
	for _, l := range []layer.Layer[float64]{emb, sm, ce} {
		require.NoError(t, l.SetupData(vocab))
	}

	// Learn the successor of every token.
	inputs := [][]float64{{0}, {1}, {2}, {3}}
	targets := make([][]float64, vocab)
	for i := range targets {
		targets[i] = make([]float64, vocab)
		targets[i][(i+1)%vocab] = 1
	}
	fill(emb.PrevActivations(0), inputs)
	fill(ce.PrevActivations(1), targets)
	fill(ce.PrevErrorSignals(), [][]float64{{1}, {1}, {1}, {1}})

	ctx := context.Background()
	total := func() float64 {
		var sum float64
		for _, l := range []layer.Layer[float64]{emb, sm, ce} {
			require.NoError(t, l.FPCompute(ctx))
		}
		for _, c := range localColumns(ce.Activations()) {
			sum += c[0]
		}
		return sum
	}

	first := total()
	for step := 0; step < 50; step++ {
		total()
		require.NoError(t, ce.BPCompute(ctx))
		require.NoError(t, sm.BPCompute(ctx))
		require.NoError(t, emb.BPCompute(ctx))
		require.NoError(t, m.Step(ctx))
		m.ClearGradients()
	}
	assert.Less(t, total(), first/4)
}
