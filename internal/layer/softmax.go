package layer

import (
	"context"
	"math"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/parallel"
	"github.com/born-ml/born-dist/internal/tensor"
)

// SoftmaxType is the type name of softmax layers.
const SoftmaxType = "softmax"

// Softmax normalizes each sample to a probability distribution,
// y_i = exp(x_i - max x) / Σ_j exp(x_j - max x). Under the model-parallel
// layout the max and the sum are reduced over the ranks sharing a sample.
// Kernels run on the host for every device.
type Softmax[T tensor.Float] struct {
	Base[T]
	parallel parallel.Config

	// colReduce holds one value per local sample.
	colReduce []T
}

// NewSoftmax creates a softmax layer.
func NewSoftmax[T tensor.Float](m *model.Model[T], name string, layout tensor.Layout, device tensor.Device) (*Softmax[T], error) {
	l := &Softmax[T]{
		Base:     newBase(m, name, SoftmaxType, layout, device, 1),
		parallel: parallel.DefaultConfig(),
	}
	if name == "" {
		return nil, l.setupErrorf("name is empty")
	}
	return l, nil
}

// SetParallel overrides the CPU worker configuration.
func (l *Softmax[T]) SetParallel(cfg parallel.Config) { l.parallel = cfg }

// SetupDims copies the input dimensions to the output.
func (l *Softmax[T]) SetupDims() error {
	return l.setupDims(func(in []tensor.Shape) (tensor.Shape, error) {
		return in[0].Clone(), nil
	})
}

// SetupData allocates the matrices.
func (l *Softmax[T]) SetupData(maxMiniBatch int) error {
	if err := l.allocate(maxMiniBatch); err != nil {
		return err
	}
	l.colReduce = make([]T, l.activations.LocalWidth())
	l.markAllocated()
	return nil
}

// columnReduce combines one value per local sample over the ranks that hold
// the other features of those samples.
func (l *Softmax[T]) columnReduce(ctx context.Context, m *dist.DistMatrix[T], op dist.ReduceOp) error {
	return dist.AllReduce(ctx, m.ColGroup(), l.colReduce[:m.LocalWidth()], op)
}

// FPCompute applies the softmax to every sample.
func (l *Softmax[T]) FPCompute(ctx context.Context) error {
	if err := l.ready("fp_compute"); err != nil {
		return err
	}
	x, y := l.PrevActivations(0), l.activations
	xl, yl := x.Local(), y.Local()
	red := l.colReduce[:xl.Width()]

	// A sample with no local rows contributes the identity of each reduction.
	negInf := T(math.Inf(-1))
	parallel.For(xl.Width(), func(j int) {
		m := negInf
		for _, v := range xl.Column(j) {
			m = max(m, v)
		}
		red[j] = m
	}, l.parallel)
	if err := l.columnReduce(ctx, x, dist.Max); err != nil {
		return err
	}
	parallel.For(xl.Width(), func(j int) {
		var sum T
		src, dst := xl.Column(j), yl.Column(j)
		for i, v := range src {
			e := tensor.Exp(v - red[j])
			dst[i] = e
			sum += e
		}
		red[j] = sum
	}, l.parallel)
	if err := l.columnReduce(ctx, y, dist.Sum); err != nil {
		return err
	}
	parallel.For(yl.Width(), func(j int) {
		dst := yl.Column(j)
		for i := range dst {
			dst[i] /= red[j]
		}
	}, l.parallel)
	return nil
}

// BPCompute computes dx = y ⊙ (dy - Σ y·dy).
func (l *Softmax[T]) BPCompute(ctx context.Context) error {
	if err := l.ready("bp_compute"); err != nil {
		return err
	}
	y, dy := l.activations, l.PrevErrorSignals()
	yl, dyl, dxl := y.Local(), dy.Local(), l.errorSignals[0].Local()
	red := l.colReduce[:yl.Width()]

	parallel.For(yl.Width(), func(j int) {
		var dot T
		g := dyl.Column(j)
		for i, v := range yl.Column(j) {
			dot += v * g[i]
		}
		red[j] = dot
	}, l.parallel)
	if err := l.columnReduce(ctx, y, dist.Sum); err != nil {
		return err
	}
	parallel.For(yl.Width(), func(j int) {
		g, dx := dyl.Column(j), dxl.Column(j)
		for i, v := range yl.Column(j) {
			dx[i] = v * (g[i] - red[j])
		}
	}, l.parallel)
	return nil
}

// Description returns the layer's build description.
func (l *Softmax[T]) Description() Description { return l.describe() }

// Clone returns a layer with the same configuration and no links.
func (l *Softmax[T]) Clone() *Softmax[T] {
	return &Softmax[T]{Base: l.cloneBase(), parallel: l.parallel}
}
