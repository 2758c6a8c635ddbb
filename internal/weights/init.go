package weights

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/tensor"
)

// Initializer fills freshly allocated values.
type Initializer[T tensor.Float] interface {
	Fill(m *dist.DistMatrix[T])
}

// NormalInitializer draws from N(Mean, Stddev²). Every rank walks the global
// matrix in column-major order with the same seed and keeps the entries it
// owns, so replicas agree and sharded values match a single-rank run.
type NormalInitializer[T tensor.Float] struct {
	Mean   float64
	Stddev float64
	Seed   uint64
}

// NewNormal returns a normal initializer.
func NewNormal[T tensor.Float](mean, stddev float64, seed uint64) *NormalInitializer[T] {
	return &NormalInitializer[T]{Mean: mean, Stddev: stddev, Seed: seed}
}

// Fill implements Initializer.
func (n *NormalInitializer[T]) Fill(m *dist.DistMatrix[T]) {
	d := distuv.Normal{Mu: n.Mean, Sigma: n.Stddev, Src: rand.NewSource(n.Seed)}
	local := m.Local()
	for j := 0; j < m.Width(); j++ {
		lj, ownCol := m.LocalCol(j)
		for i := 0; i < m.Height(); i++ {
			v := d.Rand()
			if !ownCol {
				continue
			}
			if li, ok := m.LocalRow(i); ok {
				local.Set(li, lj, T(v))
			}
		}
	}
}

// ConstantInitializer sets every entry to Value.
type ConstantInitializer[T tensor.Float] struct {
	Value T
}

// Fill implements Initializer.
func (c ConstantInitializer[T]) Fill(m *dist.DistMatrix[T]) {
	local := m.Local()
	for j := 0; j < local.Width(); j++ {
		col := local.Column(j)
		for i := range col {
			col[i] = c.Value
		}
	}
}
