package layers_test

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/born-dist/layers"
	"github.com/born-ml/born-dist/optim"
	"github.com/born-ml/born-dist/tensor"
)

func TestFacadeLabelLoss(t *testing.T) {
	var (
		mu     sync.Mutex
		losses []float64
	)
	err := layers.Run(context.Background(), 2, func(ctx context.Context, comm *layers.Comm) error {
		factory, err := optim.NewFactory[float64](optim.Config{LR: 0.1})
		if err != nil {
			return err
		}
		m := layers.NewModel(comm, layers.WithOptimizer(factory))
		descs, err := layers.DecodeDescriptions(strings.NewReader(`
layers:
  - name: loss
    type: cross_entropy
    datatype: float64
    use_labels: true
`))
		if err != nil {
			return err
		}
		l, err := layers.Build(descs[0], m)
		if err != nil {
			return err
		}
		ce := l.(*layers.CrossEntropy[float64])
		ce.SetInputDims(0, tensor.Shape{3})
		ce.SetInputDims(1, tensor.Shape{1})
		if err := ce.SetupDims(); err != nil {
			return err
		}
		if err := ce.SetupData(2); err != nil {
			return err
		}
		pred := [][]float64{{0.2, 0.5, 0.3}, {0.1, 0.1, 0.8}}
		labels := []float64{1, 2}
		p, y := ce.PrevActivations(0), ce.PrevActivations(1)
		for j := 0; j < p.LocalWidth(); j++ {
			copy(p.Local().Column(j), pred[p.GlobalCol(j)])
			y.Local().Set(0, j, labels[y.GlobalCol(j)])
		}
		if err := ce.FPCompute(ctx); err != nil {
			return err
		}
		out := ce.Activations()
		mu.Lock()
		defer mu.Unlock()
		for j := 0; j < out.LocalWidth(); j++ {
			losses = append(losses, out.Local().At(0, j))
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, losses, 2)
	assert.ElementsMatch(t, []float64{-math.Log(0.5), -math.Log(0.8)}, losses)
}
