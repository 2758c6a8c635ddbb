package optim_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/optim"
	"github.com/born-ml/born-dist/internal/tensor"
	"github.com/born-ml/born-dist/internal/weights"
)

func newScalar(t *testing.T, value float64, opt weights.Optimizer[float64]) *weights.Weights[float64] {
	t.Helper()
	grid, err := dist.NewGrid(1)
	require.NoError(t, err)
	w := weights.New[float64](dist.NewWorld(grid).Comm(0))
	w.SetName("x")
	w.SetDims(tensor.Shape{1}, tensor.Shape{1})
	w.SetInitializer(weights.ConstantInitializer[float64]{Value: value})
	w.SetOptimizer(opt)
	require.NoError(t, w.Setup())
	return w
}

func step(t *testing.T, w *weights.Weights[float64], grad float64) float64 {
	t.Helper()
	w.Optimizer().GradientBuffer().Local().Set(0, 0, grad)
	require.NoError(t, w.Step(context.Background()))
	return w.ValuesSharded().Local().At(0, 0)
}

// TestSGD_SimpleUpdate tests SGD without momentum.
func TestSGD_SimpleUpdate(t *testing.T) {
	w := newScalar(t, 2, optim.NewSGD[float64](optim.SGDConfig{LR: 0.1}))

	// x_new = 2.0 - 0.1 * 1.0
	assert.InDelta(t, 1.9, step(t, w, 1), 1e-12)
}

// TestSGD_WithMomentum tests SGD with momentum.
func TestSGD_WithMomentum(t *testing.T) {
	w := newScalar(t, 2, optim.NewSGD[float64](optim.SGDConfig{LR: 0.1, Momentum: 0.9}))

	// v1 = 1, x1 = 1.9; v2 = 0.9 + 1 = 1.9, x2 = 1.9 - 0.19
	assert.InDelta(t, 1.9, step(t, w, 1), 1e-12)
	assert.InDelta(t, 1.71, step(t, w, 1), 1e-12)
}

// TestSGD_DefaultLR tests the default learning rate.
func TestSGD_DefaultLR(t *testing.T) {
	assert.Equal(t, 0.01, optim.NewSGD[float32](optim.SGDConfig{}).LearningRate())
}

// TestAdam_FirstStep tests that the first bias-corrected step moves by lr.
func TestAdam_FirstStep(t *testing.T) {
	w := newScalar(t, 1, optim.NewAdam[float64](optim.AdamConfig{LR: 0.1}))

	// m_hat = g, v_hat = g², update = lr * g / (|g| + eps)
	want := 1 - 0.1*3/(3+1e-8)
	assert.InDelta(t, want, step(t, w, 3), 1e-12)
}

// TestAdam_Converges minimizes (x-3)².
func TestAdam_Converges(t *testing.T) {
	w := newScalar(t, 0, optim.NewAdam[float64](optim.AdamConfig{LR: 0.1}))
	x := 0.0
	for range 2000 {
		x = step(t, w, 2*(x-3))
	}
	assert.Less(t, math.Abs(x-3), 0.1)
}

func TestFactory(t *testing.T) {
	f, err := optim.NewFactory[float32](optim.Config{Kind: "Adam", LR: 0.5})
	require.NoError(t, err)
	a, b := f(), f()
	assert.NotSame(t, a, b)
	assert.Equal(t, 0.5, a.LearningRate())
	assert.IsType(t, &optim.Adam[float32]{}, a)

	f, err = optim.NewFactory[float32](optim.Config{})
	require.NoError(t, err)
	assert.IsType(t, &optim.SGD[float32]{}, f())

	_, err = optim.NewFactory[float32](optim.Config{Kind: "lion"})
	assert.Error(t, err)
}

func TestStepBeforeSetup(t *testing.T) {
	err := optim.NewSGD[float64](optim.SGDConfig{}).Step(context.Background())
	assert.Error(t, err)
}
