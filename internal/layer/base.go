// Package layer implements distributed neural-network layers.
//
// A layer moves through three states. Construction fixes its configuration;
// SetupDims derives output dimensions from the inputs; SetupData allocates
// the distributed matrices for a maximum mini-batch size. Only then may
// FPCompute and BPCompute run, as many times as needed.
//
// Every rank constructs and drives the same layers in the same order.
// Matrices are distributed by the layer's layout: data-parallel layers keep
// whole samples on one rank (STAR × VC), model-parallel layers spread
// features over grid rows and samples over grid columns (MC × MR).
//
// Example:
//
//	emb, err := layer.NewEmbedding(m, "embed", tensor.DataParallel, tensor.CPU,
//	    layer.EmbeddingConfig{NumEmbeddings: vocab, EmbeddingDim: 64, PaddingIdx: -1})
//	emb.SetInputDims(0, tensor.Shape{seqLen})
//	if err := emb.SetupDims(); err != nil { ... }
//	if err := emb.SetupData(batch); err != nil { ... }
//	// fill emb.PrevActivations(0), then
//	if err := emb.FPCompute(ctx); err != nil { ... }
package layer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/tensor"
	"github.com/born-ml/born-dist/internal/weights"
)

// State is the setup stage of a layer.
type State int

// Layer states.
const (
	Constructed State = iota
	DimensionsSet
	DataAllocated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case DimensionsSet:
		return "dimensions_set"
	case DataAllocated:
		return "data_allocated"
	default:
		return "unknown"
	}
}

// Layer is the contract shared by all layers of kind T.
type Layer[T tensor.Float] interface {
	Name() string
	Type() string
	State() State
	SetupDims() error
	SetupData(maxMiniBatch int) error
	FPCompute(ctx context.Context) error
	BPCompute(ctx context.Context) error
	Description() Description

	base() *Base[T]
}

// DataDist returns the matrix distribution used for activations and error
// signals under layout.
func DataDist(layout tensor.Layout) dist.DistData {
	if layout == tensor.ModelParallel {
		return dist.DistData{ColDist: dist.MC, RowDist: dist.MR}
	}
	return dist.DistData{ColDist: dist.STAR, RowDist: dist.VC}
}

// Base holds the state common to every layer: configuration, links to
// neighbouring layers and the activation and error-signal matrices.
type Base[T tensor.Float] struct {
	name   string
	typ    string
	layout tensor.Layout
	device tensor.Device
	model  *model.Model[T]
	logger *slog.Logger
	state  State

	parents    []*Base[T]
	child      *Base[T]
	childIndex int

	inputDims    []tensor.Shape
	outputDims   tensor.Shape
	maxMiniBatch int

	inputs       []*dist.DistMatrix[T] // owned by the layer for unlinked inputs
	activations  *dist.DistMatrix[T]
	errorSignals []*dist.DistMatrix[T]
	gradOutput   *dist.DistMatrix[T] // owned when no child is linked

	weights []*weights.Weights[T]
}

func newBase[T tensor.Float](m *model.Model[T], name, typ string, layout tensor.Layout, device tensor.Device, numParents int) Base[T] {
	return Base[T]{
		name:         name,
		typ:          typ,
		layout:       layout,
		device:       device,
		model:        m,
		logger:       m.Logger().With("layer", name, "type", typ),
		parents:      make([]*Base[T], numParents),
		inputDims:    make([]tensor.Shape, numParents),
		inputs:       make([]*dist.DistMatrix[T], numParents),
		errorSignals: make([]*dist.DistMatrix[T], numParents),
	}
}

func (b *Base[T]) base() *Base[T] { return b }

// cloneBase copies the configuration of b without links, matrices or weights.
func (b *Base[T]) cloneBase() Base[T] {
	c := newBase(b.model, b.name, b.typ, b.layout, b.device, len(b.parents))
	for i, d := range b.inputDims {
		if b.parents[i] == nil {
			c.inputDims[i] = d.Clone()
		}
	}
	return c
}

// Name returns the layer name.
func (b *Base[T]) Name() string { return b.name }

// Type returns the layer type, e.g. "embedding".
func (b *Base[T]) Type() string { return b.typ }

// Layout returns the parallel layout.
func (b *Base[T]) Layout() tensor.Layout { return b.layout }

// Device returns the compute device.
func (b *Base[T]) Device() tensor.Device { return b.device }

// State returns the setup state.
func (b *Base[T]) State() State { return b.state }

// Model returns the owning model.
func (b *Base[T]) Model() *model.Model[T] { return b.model }

// Comm returns the rank's communicator.
func (b *Base[T]) Comm() *dist.Comm { return b.model.Comm() }

// Logger returns the layer's logger.
func (b *Base[T]) Logger() *slog.Logger { return b.logger }

// DataType returns the numeric kind of the layer.
func (b *Base[T]) DataType() tensor.DataType { return tensor.DataTypeOf[T]() }

// NumParents returns the number of inputs the layer expects.
func (b *Base[T]) NumParents() int { return len(b.parents) }

// InputDims returns the dimensions of input i.
func (b *Base[T]) InputDims(i int) tensor.Shape { return b.inputDims[i] }

// SetInputDims sets the dimensions of an unlinked input.
func (b *Base[T]) SetInputDims(i int, dims tensor.Shape) {
	b.inputDims[i] = dims.Clone()
}

// OutputDims returns the output dimensions.
func (b *Base[T]) OutputDims() tensor.Shape { return b.outputDims }

// MaxMiniBatch returns the mini-batch capacity set by SetupData.
func (b *Base[T]) MaxMiniBatch() int { return b.maxMiniBatch }

// PrevActivations returns input i: the parent's activations when linked,
// otherwise a matrix the caller fills.
func (b *Base[T]) PrevActivations(i int) *dist.DistMatrix[T] {
	if p := b.parents[i]; p != nil {
		return p.activations
	}
	return b.inputs[i]
}

// Activations returns the output matrix.
func (b *Base[T]) Activations() *dist.DistMatrix[T] { return b.activations }

// PrevErrorSignals returns the gradient with respect to the output: the
// child's error signals when linked, otherwise a matrix the caller fills.
func (b *Base[T]) PrevErrorSignals() *dist.DistMatrix[T] {
	if b.child != nil {
		return b.child.errorSignals[b.childIndex]
	}
	return b.gradOutput
}

// ErrorSignals returns the gradient with respect to input i.
func (b *Base[T]) ErrorSignals(i int) *dist.DistMatrix[T] { return b.errorSignals[i] }

// Weights returns the weights the layer uses.
func (b *Base[T]) Weights() []*weights.Weights[T] { return b.weights }

// SetWeights replaces the layer's weights. Must be called before SetupData.
func (b *Base[T]) SetWeights(ws ...*weights.Weights[T]) {
	b.weights = append([]*weights.Weights[T](nil), ws...)
}

// Link feeds the output of parent into input index of child and routes the
// child's error signals back to the parent.
func Link[T tensor.Float](parent, child Layer[T], index int) error {
	p, c := parent.base(), child.base()
	if index < 0 || index >= len(c.parents) {
		return c.setupErrorf("input index %d out of range (expects %d parents)", index, len(c.parents))
	}
	if c.parents[index] != nil {
		return c.setupErrorf("input %d already linked to %q", index, c.parents[index].name)
	}
	if p.child != nil {
		return p.setupErrorf("output already linked to %q", p.child.name)
	}
	c.parents[index] = p
	c.inputs[index] = nil
	p.child, p.childIndex = c, index
	p.gradOutput = nil
	return nil
}

// setupDims resolves the input dimensions and derives the output
// dimensions with compute.
func (b *Base[T]) setupDims(compute func(inputs []tensor.Shape) (tensor.Shape, error)) error {
	for i, p := range b.parents {
		if p == nil {
			continue
		}
		if p.state == Constructed {
			return b.setupErrorf("parent %q has no dimensions yet", p.name)
		}
		b.inputDims[i] = p.outputDims.Clone()
	}
	for i, d := range b.inputDims {
		if len(d) == 0 {
			return b.setupErrorf("input %d dimensions are undefined", i)
		}
		if err := d.Validate(); err != nil {
			return b.setupErrorf("input %d: %v", i, err)
		}
	}
	out, err := compute(b.inputDims)
	if err != nil {
		return err
	}
	b.outputDims = out
	b.state = DimensionsSet
	b.logger.Debug("dimensions set", "inputs", fmt.Sprint(b.inputDims), "output", out.String())
	return nil
}

// allocate creates or resizes the activation and error-signal matrices.
func (b *Base[T]) allocate(maxMiniBatch int) error {
	if b.state == Constructed {
		return b.setupErrorf("setup_data called before setup_dims")
	}
	if maxMiniBatch <= 0 {
		return b.setupErrorf("mini-batch size must be positive, got %d", maxMiniBatch)
	}
	b.maxMiniBatch = maxMiniBatch
	d := DataDist(b.layout)
	comm := b.Comm()
	ensure := func(m **dist.DistMatrix[T], height int) {
		if *m == nil || (*m).Dist() != d {
			*m = dist.NewDistMatrix[T](comm, d)
		}
		(*m).Resize(height, maxMiniBatch)
	}
	for i := range b.parents {
		if b.parents[i] == nil {
			ensure(&b.inputs[i], b.inputDims[i].NumElements())
		}
		ensure(&b.errorSignals[i], b.inputDims[i].NumElements())
	}
	ensure(&b.activations, b.outputDims.NumElements())
	if b.child == nil {
		ensure(&b.gradOutput, b.outputDims.NumElements())
	}
	return nil
}

func (b *Base[T]) markAllocated() {
	b.state = DataAllocated
	b.logger.Debug("data allocated", "mini_batch", b.maxMiniBatch, "activations", b.activations.String())
}

// ready fails unless the layer's data is allocated.
func (b *Base[T]) ready(op string) error {
	if b.state != DataAllocated {
		return b.setupErrorf("%s called in state %s", op, b.state)
	}
	return nil
}

// String describes the layer.
func (b *Base[T]) String() string {
	return fmt.Sprintf("%s layer %q (%s, %s, %s)", b.typ, b.name, b.DataType(), b.layout, b.device)
}
