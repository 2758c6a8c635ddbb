package layer

import (
	"context"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/distconv"
	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/parallel"
	"github.com/born-ml/born-dist/internal/tensor"
)

// CrossEntropyType is the type name of cross-entropy layers.
const CrossEntropyType = "cross_entropy"

// CrossEntropy computes, per sample, loss = -Σ ŷ_i log(y_i) between
// predictions y (first input) and ground truth ŷ (second input).
//
// In distribution mode both inputs have the same dimensions. In label mode
// predictions are [C, S...] and the ground truth is [1, S...], holding one
// class index per spatial position; only the labelled class contributes and
// labels outside [0, C) contribute nothing. Predictions are clamped below at
// the machine epsilon of T before taking the logarithm. The output is [1].
type CrossEntropy[T tensor.Float] struct {
	Base[T]
	useLabels bool

	ops      scalarOps[T]
	parallel parallel.Config
	strategy crossEntropyStrategy

	// workspace holds one value per sample, replicated over the ranks that
	// share the class dimension of the predictions.
	workspace *dist.DistMatrix[T]
	// labels holds every label of the local samples in label mode.
	labels *dist.DistMatrix[T]
}

type crossEntropyStrategy interface {
	fp(ctx context.Context) error
	bp(ctx context.Context) error
}

// NewCrossEntropy creates a cross-entropy layer.
func NewCrossEntropy[T tensor.Float](m *model.Model[T], name string, layout tensor.Layout, device tensor.Device, useLabels bool) (*CrossEntropy[T], error) {
	l := &CrossEntropy[T]{
		Base:      newBase(m, name, CrossEntropyType, layout, device, 2),
		useLabels: useLabels,
		ops:       opsFor[T](),
		parallel:  parallel.DefaultConfig(),
	}
	if name == "" {
		return nil, l.setupErrorf("name is empty")
	}
	return l, nil
}

// UseLabels reports whether the layer runs in label mode.
func (l *CrossEntropy[T]) UseLabels() bool { return l.useLabels }

// SetParallel overrides the CPU worker configuration.
func (l *CrossEntropy[T]) SetParallel(cfg parallel.Config) { l.parallel = cfg }

// UsesDistconv reports whether SetupData selected the distconv backend.
func (l *CrossEntropy[T]) UsesDistconv() bool {
	_, ok := l.strategy.(*crossEntropyDistconv[T])
	return ok
}

// SetupDims checks the input pair and sets the output to [1].
func (l *CrossEntropy[T]) SetupDims() error {
	return l.setupDims(func(in []tensor.Shape) (tensor.Shape, error) {
		pred, truth := in[0], in[1]
		if !l.useLabels {
			if !pred.Equal(truth) {
				return nil, l.setupErrorf("input dimensions %s and %s differ", pred, truth)
			}
			return tensor.Shape{1}, nil
		}
		if truth[0] != 1 || !tensor.Shape(pred[1:]).Equal(truth[1:]) {
			return nil, l.setupErrorf("label dimensions %s do not match predictions %s (want [1, S...] for [C, S...])", truth, pred)
		}
		return tensor.Shape{1}, nil
	})
}

// SetupData allocates the workspaces and selects the compute strategy.
func (l *CrossEntropy[T]) SetupData(maxMiniBatch int) error {
	if err := l.allocate(maxMiniBatch); err != nil {
		return err
	}

	wsDist := dist.DistData{ColDist: dist.STAR, RowDist: DataDist(l.layout).RowDist}
	if l.workspace == nil {
		l.workspace = dist.NewDistMatrix[T](l.Comm(), wsDist)
	}
	l.workspace.Resize(1, maxMiniBatch)
	if l.useLabels {
		if l.labels == nil {
			l.labels = dist.NewDistMatrix[T](l.Comm(), wsDist)
		}
		l.labels.Resize(l.inputDims[1].NumElements(), maxMiniBatch)
	}

	strategy, err := l.selectStrategy()
	if err != nil {
		return err
	}
	l.strategy = strategy
	l.markAllocated()
	return nil
}

func (l *CrossEntropy[T]) selectStrategy() (crossEntropyStrategy, error) {
	if l.device == tensor.GPU && l.layout == tensor.DataParallel && distconv.Enabled() {
		l.logger.Debug("using distconv backend")
		return newCrossEntropyDistconv(l), nil
	}
	kernel, err := l.selectKernel()
	if err != nil {
		return nil, err
	}
	return &crossEntropyLocal[T]{l: l, kernel: kernel}, nil
}

// FPCompute evaluates the loss of every sample.
func (l *CrossEntropy[T]) FPCompute(ctx context.Context) error {
	if err := l.ready("fp_compute"); err != nil {
		return err
	}
	return l.strategy.fp(ctx)
}

// BPCompute computes the gradients with respect to both inputs.
func (l *CrossEntropy[T]) BPCompute(ctx context.Context) error {
	if err := l.ready("bp_compute"); err != nil {
		return err
	}
	return l.strategy.bp(ctx)
}

// Description returns the layer's build description.
func (l *CrossEntropy[T]) Description() Description {
	d := l.describe()
	d.UseLabels = l.useLabels
	return d
}

// Clone returns a layer with the same configuration and workspace contents
// and no links.
func (l *CrossEntropy[T]) Clone() *CrossEntropy[T] {
	c := &CrossEntropy[T]{
		Base:      l.cloneBase(),
		useLabels: l.useLabels,
		ops:       l.ops,
		parallel:  l.parallel,
	}
	if l.workspace != nil {
		c.workspace = l.workspace.Clone()
	}
	return c
}

// block describes the local prediction rows for the kernels.
func (l *CrossEntropy[T]) block(pred *dist.DistMatrix[T]) crossEntropyBlock {
	b := crossEntropyBlock{
		height:    pred.LocalHeight(),
		rowShift:  pred.ColShift(),
		rowStride: pred.ColStride(),
	}
	if l.useLabels {
		b.labelHeight = l.inputDims[1].NumElements()
		b.classes = l.inputDims[0][0]
	}
	return b
}

// crossEntropyLocal runs on the layer's own matrix distribution.
type crossEntropyLocal[T tensor.Float] struct {
	l      *CrossEntropy[T]
	kernel crossEntropyKernel[T]
}

func (s *crossEntropyLocal[T]) truth(ctx context.Context) (*dist.Matrix[T], error) {
	l := s.l
	if !l.useLabels {
		return l.PrevActivations(1).Local(), nil
	}
	if err := dist.Copy(ctx, l.labels, l.PrevActivations(1)); err != nil {
		return nil, err
	}
	return l.labels.Local(), nil
}

func (s *crossEntropyLocal[T]) fp(ctx context.Context) error {
	l := s.l
	pred := l.PrevActivations(0)
	truth, err := s.truth(ctx)
	if err != nil {
		return err
	}
	l.workspace.Resize(1, pred.Width())
	if err := s.kernel.forward(pred.Local(), truth, l.workspace.Local(), l.block(pred)); err != nil {
		return err
	}
	if err := dist.AllReduceRedundant(ctx, l.workspace, dist.Sum); err != nil {
		return err
	}
	return dist.Copy(ctx, l.activations, l.workspace)
}

func (s *crossEntropyLocal[T]) bp(ctx context.Context) error {
	l := s.l
	pred := l.PrevActivations(0)
	truth, err := s.truth(ctx)
	if err != nil {
		return err
	}
	if err := dist.Copy(ctx, l.workspace, l.PrevErrorSignals()); err != nil {
		return err
	}
	return s.kernel.backward(pred.Local(), truth, l.workspace.Local(),
		l.errorSignals[0].Local(), l.errorSignals[1].Local(), l.block(pred))
}

// crossEntropyDistconv runs on sample-partitioned distconv tensors.
type crossEntropyDistconv[T tensor.Float] struct {
	l      *CrossEntropy[T]
	kernel *distconv.CrossEntropy[T]

	pred, truth, out    *distconv.Tensor[T]
	dout, dpred, dtruth *distconv.Tensor[T]
}

func newCrossEntropyDistconv[T tensor.Float](l *CrossEntropy[T]) *crossEntropyDistconv[T] {
	return &crossEntropyDistconv[T]{
		l:      l,
		kernel: distconv.NewCrossEntropy[T](l.useLabels),
		pred:   &distconv.Tensor[T]{},
		truth:  &distconv.Tensor[T]{},
		out:    &distconv.Tensor[T]{},
		dout:   &distconv.Tensor[T]{},
		dpred:  &distconv.Tensor[T]{},
		dtruth: &distconv.Tensor[T]{},
	}
}

func (s *crossEntropyDistconv[T]) load(ctx context.Context) error {
	if err := distconv.FromMatrix(ctx, s.pred, s.l.PrevActivations(0)); err != nil {
		return err
	}
	return distconv.FromMatrix(ctx, s.truth, s.l.PrevActivations(1))
}

func (s *crossEntropyDistconv[T]) fp(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	comm := s.l.Comm()
	s.out.Resize(1, s.l.PrevActivations(0).Width(), comm.Size(), comm.Rank())
	if err := s.kernel.Forward(s.pred, s.truth, s.out); err != nil {
		return err
	}
	return distconv.ToMatrix(ctx, s.l.activations, s.out)
}

func (s *crossEntropyDistconv[T]) bp(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	if err := distconv.FromMatrix(ctx, s.dout, s.l.PrevErrorSignals()); err != nil {
		return err
	}
	comm := s.l.Comm()
	width := s.l.PrevActivations(0).Width()
	s.dpred.Resize(s.pred.Height, width, comm.Size(), comm.Rank())
	s.dtruth.Resize(s.truth.Height, width, comm.Size(), comm.Rank())
	if err := s.kernel.Backward(s.pred, s.truth, s.dout, s.dpred, s.dtruth); err != nil {
		return err
	}
	if err := distconv.ToMatrix(ctx, s.l.errorSignals[0], s.dpred); err != nil {
		return err
	}
	return distconv.ToMatrix(ctx, s.l.errorSignals[1], s.dtruth)
}
