// Package model holds the per-rank state layers share: the communicator,
// the optimizer factory and the registry of weights.
package model

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/optim"
	"github.com/born-ml/born-dist/internal/tensor"
	"github.com/born-ml/born-dist/internal/weights"
)

// Model is one rank's view of a model.
type Model[T tensor.Float] struct {
	comm    *dist.Comm
	factory optim.Factory[T]
	logger  *slog.Logger
	weights []*weights.Weights[T]
	byName  map[string]*weights.Weights[T]
}

// Option configures a Model.
type Option[T tensor.Float] func(*Model[T])

// WithOptimizer sets the factory used by CreateOptimizer.
func WithOptimizer[T tensor.Float](f optim.Factory[T]) Option[T] {
	return func(m *Model[T]) { m.factory = f }
}

// WithLogger sets the logger; the default discards output.
func WithLogger[T tensor.Float](l *slog.Logger) Option[T] {
	return func(m *Model[T]) { m.logger = l }
}

// New creates a model on comm.
func New[T tensor.Float](comm *dist.Comm, opts ...Option[T]) *Model[T] {
	m := &Model[T]{
		comm:   comm,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		byName: make(map[string]*weights.Weights[T]),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("rank", comm.Rank())
	return m
}

// Comm returns the communicator.
func (m *Model[T]) Comm() *dist.Comm { return m.comm }

// Logger returns the rank-scoped logger.
func (m *Model[T]) Logger() *slog.Logger { return m.logger }

// DataType returns the numeric kind of the model.
func (m *Model[T]) DataType() tensor.DataType { return tensor.DataTypeOf[T]() }

// CreateOptimizer returns a fresh optimizer, or nil when the model has no
// optimizer factory (frozen weights).
func (m *Model[T]) CreateOptimizer() weights.Optimizer[T] {
	if m.factory == nil {
		return nil
	}
	return m.factory()
}

// AddWeights registers w. Names must be unique.
func (m *Model[T]) AddWeights(w *weights.Weights[T]) error {
	if _, ok := m.byName[w.Name()]; ok {
		return errors.Errorf("weights %q already registered", w.Name())
	}
	m.byName[w.Name()] = w
	m.weights = append(m.weights, w)
	m.logger.Debug("weights registered", "weights", w.Name())
	return nil
}

// Weights returns the registered weights in registration order.
func (m *Model[T]) Weights() []*weights.Weights[T] { return m.weights }

// Lookup returns the weights named name.
func (m *Model[T]) Lookup(name string) (*weights.Weights[T], bool) {
	w, ok := m.byName[name]
	return w, ok
}

// Step applies every weights' optimizer. All ranks must call Step together.
func (m *Model[T]) Step(ctx context.Context) error {
	for _, w := range m.weights {
		if err := w.Step(ctx); err != nil {
			return errors.Wrapf(err, "step %q", w.Name())
		}
	}
	return nil
}

// ClearGradients zeroes every gradient buffer.
func (m *Model[T]) ClearGradients() {
	for _, w := range m.weights {
		if opt := w.Optimizer(); opt != nil {
			opt.ClearGradient()
		}
	}
}
