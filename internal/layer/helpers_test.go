package layer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/optim"
	"github.com/born-ml/born-dist/internal/tensor"
)

func singleRank[T tensor.Float](t *testing.T, opts ...model.Option[T]) *model.Model[T] {
	t.Helper()
	grid, err := dist.NewGrid(1)
	require.NoError(t, err)
	return model.New(dist.NewWorld(grid).Comm(0), opts...)
}

func sgd[T tensor.Float](t *testing.T, lr float64) model.Option[T] {
	t.Helper()
	f, err := optim.NewFactory[T](optim.Config{Kind: "sgd", LR: lr})
	require.NoError(t, err)
	return model.WithOptimizer(f)
}

// fill sets the local entries of m from cols, indexed [global col][global row].
func fill[T tensor.Float](m *dist.DistMatrix[T], cols [][]T) {
	for j := 0; j < m.LocalWidth(); j++ {
		for i := 0; i < m.LocalHeight(); i++ {
			m.Local().Set(i, j, cols[m.GlobalCol(j)][m.GlobalRow(i)])
		}
	}
}

// columns gathers m and returns it indexed [global col][global row].
func columns[T tensor.Float](ctx context.Context, m *dist.DistMatrix[T]) ([][]T, error) {
	full, err := dist.GatherGlobal(ctx, m)
	if err != nil {
		return nil, err
	}
	cols := make([][]T, full.Width())
	for j := range cols {
		cols[j] = append([]T(nil), full.Column(j)...)
	}
	return cols, nil
}

func localColumns[T tensor.Float](m *dist.DistMatrix[T]) [][]T {
	cols := make([][]T, m.LocalWidth())
	for j := range cols {
		cols[j] = append([]T(nil), m.Local().Column(j)...)
	}
	return cols
}
