package layer_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/layer"
	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/tensor"
)

func TestSoftmaxForward(t *testing.T) {
	m := singleRank[float64](t)
	sm, err := layer.NewSoftmax(m, "softmax", tensor.DataParallel, tensor.CPU)
	require.NoError(t, err)
	sm.SetInputDims(0, tensor.Shape{3})
	require.NoError(t, sm.SetupDims())
	require.NoError(t, sm.SetupData(2))
	fill(sm.PrevActivations(0), [][]float64{{1, 2, 3}, {1000, 1000, 1000}})
	require.NoError(t, sm.FPCompute(context.Background()))

	y := localColumns(sm.Activations())
	z := math.Exp(1) + math.Exp(2) + math.Exp(3)
	assert.InDeltaSlice(t, []float64{math.Exp(1) / z, math.Exp(2) / z, math.Exp(3) / z}, y[0], 1e-12)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, y[1], 1e-12, "large inputs do not overflow")
}

func TestSoftmaxGradientMatchesFiniteDifference(t *testing.T) {
	m := singleRank[float64](t)
	sm, err := layer.NewSoftmax(m, "softmax", tensor.DataParallel, tensor.CPU)
	require.NoError(t, err)
	sm.SetInputDims(0, tensor.Shape{4})
	require.NoError(t, sm.SetupDims())
	require.NoError(t, sm.SetupData(1))

	ctx := context.Background()
	w := []float64{0.5, -1, 2, 0.25}
	objective := func(x []float64) float64 {
		fill(sm.PrevActivations(0), [][]float64{x})
		require.NoError(t, sm.FPCompute(ctx))
		return floats.Dot(w, sm.Activations().Local().Column(0))
	}
	x := []float64{0.3, -0.2, 1.1, 0.4}
	want := fd.Gradient(nil, objective, x, &fd.Settings{Formula: fd.Central})

	objective(x)
	fill(sm.PrevErrorSignals(), [][]float64{w})
	require.NoError(t, sm.BPCompute(ctx))
	got := sm.ErrorSignals(0).Local().Column(0)
	assert.True(t, floats.EqualApprox(want, got, 1e-6), "got %v, want %v", got, want)
}

func TestSoftmaxModelParallelMatchesSingleRank(t *testing.T) {
	in := [][]float64{{0.1, 0.9, -0.3, 2}, {1, 1, 1, 1}, {-5, 0, 5, 0.5}}
	dout := [][]float64{{1, 0, 0, 0}, {0.5, -0.5, 1, 2}, {0, 0, 3, 1}}

	run := func(ranks int) (y, dx [][]float64) {
		var mu sync.Mutex
		err := dist.Run(context.Background(), ranks, func(ctx context.Context, comm *dist.Comm) error {
			sm, err := layer.NewSoftmax(model.New[float64](comm), "softmax", tensor.ModelParallel, tensor.CPU)
			if err != nil {
				return err
			}
			sm.SetInputDims(0, tensor.Shape{4})
			if err := sm.SetupDims(); err != nil {
				return err
			}
			if err := sm.SetupData(len(in)); err != nil {
				return err
			}
			fill(sm.PrevActivations(0), in)
			fill(sm.PrevErrorSignals(), dout)
			if err := sm.FPCompute(ctx); err != nil {
				return err
			}
			if err := sm.BPCompute(ctx); err != nil {
				return err
			}
			ys, err := columns(ctx, sm.Activations())
			if err != nil {
				return err
			}
			dxs, err := columns(ctx, sm.ErrorSignals(0))
			if err != nil {
				return err
			}
			if comm.IsRoot() {
				mu.Lock()
				y, dx = ys, dxs
				mu.Unlock()
			}
			return nil
		})
		require.NoError(t, err)
		return y, dx
	}

	y1, dx1 := run(1)
	y4, dx4 := run(4)
	for j := range in {
		assert.InDeltaSlice(t, y1[j], y4[j], 1e-12)
		assert.InDeltaSlice(t, dx1[j], dx4[j], 1e-12)
		assert.InDelta(t, 1, floats.Sum(y4[j]), 1e-12)
	}
}
