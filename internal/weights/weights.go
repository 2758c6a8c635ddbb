// Package weights implements distributed learnable parameters.
//
// A Weights value owns a DistMatrix of values whose shape is given by a
// height and width tensor shape, an initializer run on first setup, and an
// optimizer that owns the matching gradient buffer.
//
// Example:
//
//	w := weights.New[float32](comm)
//	w.SetName("embedding_weights")
//	w.SetDims(tensor.Shape{dim}, tensor.Shape{vocab})
//	w.SetMatrixDistribution(dist.DistData{ColDist: dist.STAR, RowDist: dist.STAR})
//	w.SetInitializer(weights.NewNormal[float32](0, 1, seed))
//	w.SetOptimizer(optimizer)
//	if err := w.Setup(); err != nil { ... }
package weights

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/tensor"
)

// Optimizer updates one Weights from its gradient buffer.
type Optimizer[T tensor.Float] interface {
	// Setup allocates the gradient buffer and any state for w.
	Setup(w *Weights[T]) error

	// GradientBuffer returns the gradient, distributed like the values.
	GradientBuffer() *dist.DistMatrix[T]

	// Step reduces the gradient over redundant ranks, applies the update
	// and clears the gradient.
	Step(ctx context.Context) error

	// ClearGradient zeroes the gradient buffer.
	ClearGradient()

	// LearningRate returns the current learning rate.
	LearningRate() float64
}

// Handle is the kind-independent view of a Weights.
type Handle interface {
	Name() string
	DataType() tensor.DataType
	HeightDims() tensor.Shape
	WidthDims() tensor.Shape
	Step(ctx context.Context) error
}

// Weights is a named distributed parameter matrix.
type Weights[T tensor.Float] struct {
	comm       *dist.Comm
	name       string
	heightDims tensor.Shape
	widthDims  tensor.Shape
	dist       dist.DistData
	init       Initializer[T]
	opt        Optimizer[T]
	values     *dist.DistMatrix[T]
}

// New creates unconfigured weights on comm. The default distribution is
// fully replicated.
func New[T tensor.Float](comm *dist.Comm) *Weights[T] {
	return &Weights[T]{
		comm: comm,
		dist: dist.DistData{ColDist: dist.STAR, RowDist: dist.STAR},
	}
}

// Name returns the weights name.
func (w *Weights[T]) Name() string { return w.name }

// SetName sets the weights name. Names must match across ranks.
func (w *Weights[T]) SetName(name string) { w.name = name }

// Comm returns the owning communicator.
func (w *Weights[T]) Comm() *dist.Comm { return w.comm }

// DataType returns the numeric kind of the values.
func (w *Weights[T]) DataType() tensor.DataType { return tensor.DataTypeOf[T]() }

// HeightDims returns the tensor shape flattened into matrix rows.
func (w *Weights[T]) HeightDims() tensor.Shape { return w.heightDims }

// WidthDims returns the tensor shape flattened into matrix columns.
func (w *Weights[T]) WidthDims() tensor.Shape { return w.widthDims }

// SetDims sets the row and column tensor shapes.
func (w *Weights[T]) SetDims(heightDims, widthDims tensor.Shape) {
	w.heightDims = heightDims.Clone()
	w.widthDims = widthDims.Clone()
}

// MatrixDistribution returns the distribution of the values.
func (w *Weights[T]) MatrixDistribution() dist.DistData { return w.dist }

// SetMatrixDistribution sets the distribution used by the next Setup.
func (w *Weights[T]) SetMatrixDistribution(d dist.DistData) { w.dist = d }

// SetInitializer sets the initializer run on first setup.
func (w *Weights[T]) SetInitializer(init Initializer[T]) { w.init = init }

// SetOptimizer attaches an optimizer, which may be nil for frozen weights.
func (w *Weights[T]) SetOptimizer(opt Optimizer[T]) { w.opt = opt }

// Optimizer returns the attached optimizer or nil.
func (w *Weights[T]) Optimizer() Optimizer[T] { return w.opt }

// ValuesSharded returns the local shard of the values.
func (w *Weights[T]) ValuesSharded() *dist.DistMatrix[T] { return w.values }

// Setup allocates the values and sets up the optimizer. Values are
// initialized only when first allocated or when the shape or distribution
// changed, so repeated setups keep trained values.
func (w *Weights[T]) Setup() error {
	if w.name == "" {
		return errors.New("weights: name not set")
	}
	if err := w.heightDims.Validate(); err != nil {
		return errors.Wrapf(err, "weights %q: height dims", w.name)
	}
	if err := w.widthDims.Validate(); err != nil {
		return errors.Wrapf(err, "weights %q: width dims", w.name)
	}

	height, width := w.heightDims.NumElements(), w.widthDims.NumElements()
	fresh := w.values == nil || w.values.Dist() != w.dist ||
		w.values.Height() != height || w.values.Width() != width
	if fresh {
		w.values = dist.NewDistMatrix[T](w.comm, w.dist)
		w.values.Resize(height, width)
		if w.init != nil {
			w.init.Fill(w.values)
		} else {
			w.values.Zero()
		}
	}

	if w.opt != nil {
		if err := w.opt.Setup(w); err != nil {
			return errors.Wrapf(err, "weights %q: optimizer setup", w.name)
		}
	}
	return nil
}

// Step runs the optimizer; frozen weights are left unchanged.
func (w *Weights[T]) Step(ctx context.Context) error {
	if w.opt == nil {
		return nil
	}
	return w.opt.Step(ctx)
}

// String describes the weights.
func (w *Weights[T]) String() string {
	return fmt.Sprintf("%s %s x %s [%s]", w.name, w.heightDims, w.widthDims, w.dist)
}
