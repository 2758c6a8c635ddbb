// Package optim implements optimizers for distributed weights.
//
// This package provides:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//   - Factory: builds a fresh optimizer per weights from a Config
//
// Each optimizer owns the gradient buffer of one weights, distributed like
// its values. Layers accumulate into the buffer during backprop; Step sums
// the contributions of ranks holding the same entries, updates the local
// shard and clears the buffer.
//
// Example usage:
//
//	factory, err := optim.NewFactory[float32](optim.Config{Kind: "adam", LR: 0.001})
//	w.SetOptimizer(factory())
//	...
//	if err := w.Step(ctx); err != nil { ... }
package optim

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/tensor"
	"github.com/born-ml/born-dist/internal/weights"
)

// Config selects and parameterizes an optimizer.
type Config struct {
	Kind     string     `yaml:"kind"`     // "sgd" (default) or "adam"
	LR       float64    `yaml:"lr"`       // Learning rate
	Momentum float64    `yaml:"momentum"` // SGD momentum
	Betas    [2]float64 `yaml:"betas"`    // Adam moment decay rates
	Eps      float64    `yaml:"eps"`      // Adam stability term
}

// Factory creates a fresh optimizer for one weights.
type Factory[T tensor.Float] func() weights.Optimizer[T]

// NewFactory returns a factory for the optimizer named by cfg.Kind.
func NewFactory[T tensor.Float](cfg Config) (Factory[T], error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "sgd":
		sc := SGDConfig{LR: cfg.LR, Momentum: cfg.Momentum}
		return func() weights.Optimizer[T] { return NewSGD[T](sc) }, nil
	case "adam":
		ac := AdamConfig{LR: cfg.LR, Betas: cfg.Betas, Eps: cfg.Eps}
		return func() weights.Optimizer[T] { return NewAdam[T](ac) }, nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", cfg.Kind)
	}
}

// gradient is the state shared by all optimizers.
type gradient[T tensor.Float] struct {
	w    *weights.Weights[T]
	grad *dist.DistMatrix[T]
}

func (g *gradient[T]) setup(w *weights.Weights[T]) (bool, error) {
	values := w.ValuesSharded()
	if values == nil {
		return false, errors.Errorf("weights %q have no values", w.Name())
	}
	if g.w == w && g.grad != nil && g.grad.Dist() == values.Dist() &&
		g.grad.Height() == values.Height() && g.grad.Width() == values.Width() {
		return false, nil
	}
	g.w = w
	g.grad = values.Construct()
	g.grad.Resize(values.Height(), values.Width())
	g.grad.Zero()
	return true, nil
}

// GradientBuffer returns the gradient, distributed like the values.
func (g *gradient[T]) GradientBuffer() *dist.DistMatrix[T] { return g.grad }

// ClearGradient zeroes the gradient buffer.
func (g *gradient[T]) ClearGradient() {
	if g.grad != nil {
		g.grad.Zero()
	}
}

// reduce sums the gradient over ranks that hold the same entries.
func (g *gradient[T]) reduce(ctx context.Context) error {
	if g.grad == nil {
		return errors.New("optimizer used before setup")
	}
	return errors.Wrapf(dist.AllReduceRedundant(ctx, g.grad, dist.Sum), "weights %q: gradient all-reduce", g.w.Name())
}
