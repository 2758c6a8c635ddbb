package weights_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/optim"
	"github.com/born-ml/born-dist/internal/tensor"
	"github.com/born-ml/born-dist/internal/weights"
)

func singleComm(t *testing.T) *dist.Comm {
	t.Helper()
	grid, err := dist.NewGrid(1)
	require.NoError(t, err)
	return dist.NewWorld(grid).Comm(0)
}

func TestSetupKeepsValues(t *testing.T) {
	w := weights.New[float32](singleComm(t))
	w.SetName("w")
	w.SetDims(tensor.Shape{3}, tensor.Shape{4})
	w.SetInitializer(weights.ConstantInitializer[float32]{Value: 1})
	require.NoError(t, w.Setup())

	w.ValuesSharded().Local().Set(2, 3, 42)
	require.NoError(t, w.Setup())
	assert.Equal(t, float32(42), w.ValuesSharded().Local().At(2, 3))

	w.SetDims(tensor.Shape{3}, tensor.Shape{5})
	require.NoError(t, w.Setup())
	assert.Equal(t, 5, w.ValuesSharded().Width())
	assert.Equal(t, float32(1), w.ValuesSharded().Local().At(2, 3))
}

func TestSetupErrors(t *testing.T) {
	w := weights.New[float64](singleComm(t))
	w.SetDims(tensor.Shape{3}, tensor.Shape{4})
	assert.Error(t, w.Setup(), "missing name")

	w.SetName("w")
	w.SetDims(tensor.Shape{}, tensor.Shape{4})
	assert.Error(t, w.Setup(), "empty dims")
}

func TestNormalInitializerMatchesAcrossLayouts(t *testing.T) {
	init := weights.NewNormal[float64](0, 1, 7)

	single := weights.New[float64](singleComm(t))
	single.SetName("w")
	single.SetDims(tensor.Shape{5}, tensor.Shape{6})
	single.SetInitializer(init)
	require.NoError(t, single.Setup())
	want := single.ValuesSharded().Local()

	err := dist.Run(context.Background(), 4, func(ctx context.Context, comm *dist.Comm) error {
		w := weights.New[float64](comm)
		w.SetName("w")
		w.SetDims(tensor.Shape{5}, tensor.Shape{6})
		w.SetMatrixDistribution(dist.DistData{ColDist: dist.MC, RowDist: dist.MR})
		w.SetInitializer(init)
		if err := w.Setup(); err != nil {
			return err
		}
		full, err := dist.GatherGlobal(ctx, w.ValuesSharded())
		if err != nil {
			return err
		}
		assert.Equal(t, want.Contiguous(), full.Contiguous())
		return nil
	})
	require.NoError(t, err)
}

func TestStepSumsReplicaGradients(t *testing.T) {
	err := dist.Run(context.Background(), 4, func(ctx context.Context, comm *dist.Comm) error {
		w := weights.New[float32](comm)
		w.SetName("w")
		w.SetDims(tensor.Shape{2}, tensor.Shape{2})
		w.SetInitializer(weights.ConstantInitializer[float32]{Value: 1})
		w.SetOptimizer(optim.NewSGD[float32](optim.SGDConfig{LR: 0.5}))
		if err := w.Setup(); err != nil {
			return err
		}
		// Each of the 4 replicas contributes 0.25 to entry (0, 1).
		w.Optimizer().GradientBuffer().Local().Set(0, 1, 0.25)
		if err := w.Step(ctx); err != nil {
			return err
		}
		local := w.ValuesSharded().Local()
		assert.InDelta(t, 0.5, local.At(0, 1), 1e-6)
		assert.InDelta(t, 1.0, local.At(1, 1), 1e-6)
		assert.Equal(t, float32(0), w.Optimizer().GradientBuffer().Local().At(0, 1))
		return nil
	})
	require.NoError(t, err)
}
