// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package layers

import (
	"io"

	"github.com/born-ml/born-dist/internal/layer"
	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/tensor"
)

// Layer is the contract shared by all layers of kind T.
type Layer[T tensor.Float] = layer.Layer[T]

// State is the setup stage of a layer.
type State = layer.State

// Layer states.
const (
	Constructed   = layer.Constructed
	DimensionsSet = layer.DimensionsSet
	DataAllocated = layer.DataAllocated
)

// SetupError reports a configuration problem of a layer.
type SetupError = layer.SetupError

// ErrSetup matches every *SetupError.
var ErrSetup = layer.ErrSetup

// Link feeds the output of parent into input index of child.
func Link[T tensor.Float](parent, child Layer[T], index int) error {
	return layer.Link(parent, child, index)
}

// Embedding maps integer indices to learned vectors.
type Embedding[T tensor.Float] = layer.Embedding[T]

// EmbeddingConfig configures an embedding layer.
type EmbeddingConfig = layer.EmbeddingConfig

// NewEmbedding creates an embedding layer.
//
// Example:
//
//	emb, err := layers.NewEmbedding(m, "embed", tensor.DataParallel, tensor.CPU,
//	    layers.EmbeddingConfig{NumEmbeddings: 5, EmbeddingDim: 3, PaddingIdx: 2})
func NewEmbedding[T tensor.Float](m *Model[T], name string, layout tensor.Layout, device tensor.Device, cfg EmbeddingConfig) (*Embedding[T], error) {
	return layer.NewEmbedding(m, name, layout, device, cfg)
}

// CrossEntropy computes the per-sample cross-entropy loss.
type CrossEntropy[T tensor.Float] = layer.CrossEntropy[T]

// NewCrossEntropy creates a cross-entropy layer. With useLabels the second
// input holds class indices instead of distributions.
func NewCrossEntropy[T tensor.Float](m *Model[T], name string, layout tensor.Layout, device tensor.Device, useLabels bool) (*CrossEntropy[T], error) {
	return layer.NewCrossEntropy(m, name, layout, device, useLabels)
}

// Softmax normalizes each sample to a probability distribution.
type Softmax[T tensor.Float] = layer.Softmax[T]

// NewSoftmax creates a softmax layer.
func NewSoftmax[T tensor.Float](m *Model[T], name string, layout tensor.Layout, device tensor.Device) (*Softmax[T], error) {
	return layer.NewSoftmax(m, name, layout, device)
}

// Description is the serializable configuration of a layer.
type Description = layer.Description

// Build constructs the layer described by d.
func Build[T tensor.Float](d Description, m *Model[T]) (Layer[T], error) {
	return layer.Build(d, m)
}

// BuildAll constructs every described layer in order.
func BuildAll[T tensor.Float](descs []Description, m *Model[T]) ([]Layer[T], error) {
	return layer.BuildAll(descs, m)
}

// DecodeDescriptions reads a YAML model description.
func DecodeDescriptions(r io.Reader) ([]Description, error) { return layer.DecodeDescriptions(r) }

// EncodeDescriptions writes descriptions as YAML.
func EncodeDescriptions(w io.Writer, descs []Description) error {
	return layer.EncodeDescriptions(w, descs)
}

// Model is one rank's view of a model: communicator, optimizer factory and
// weights registry.
type Model[T tensor.Float] = model.Model[T]

// ModelOption configures a Model.
type ModelOption[T tensor.Float] = model.Option[T]

// NewModel creates a model on comm.
func NewModel[T tensor.Float](comm *Comm, opts ...ModelOption[T]) *Model[T] {
	return model.New(comm, opts...)
}
