package optim

import (
	"context"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/tensor"
	"github.com/born-ml/born-dist/internal/weights"
)

// SGD implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD[T tensor.Float] struct {
	gradient[T]
	lr       float64
	momentum float64
	velocity *dist.Matrix[T]
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD[T tensor.Float](config SGDConfig) *SGD[T] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[T]{lr: config.LR, momentum: config.Momentum}
}

// Setup allocates the gradient buffer for w.
func (s *SGD[T]) Setup(w *weights.Weights[T]) error {
	fresh, err := s.setup(w)
	if err != nil {
		return err
	}
	if fresh {
		s.velocity = nil
	}
	return nil
}

// Step performs a single optimization step.
func (s *SGD[T]) Step(ctx context.Context) error {
	if err := s.reduce(ctx); err != nil {
		return err
	}
	values := s.w.ValuesSharded().Local()
	grad := s.grad.Local()
	lr := T(s.lr)

	if s.momentum != 0 && s.velocity == nil {
		s.velocity = dist.NewMatrix[T](values.Height(), values.Width())
	}
	for j := 0; j < values.Width(); j++ {
		p, g := values.Column(j), grad.Column(j)
		if s.momentum == 0 {
			for i := range p {
				p[i] -= lr * g[i]
			}
			continue
		}
		v, m := s.velocity.Column(j), T(s.momentum)
		for i := range p {
			v[i] = m*v[i] + g[i]
			p[i] -= lr * v[i]
		}
	}
	s.ClearGradient()
	return nil
}

// LearningRate returns the current learning rate.
func (s *SGD[T]) LearningRate() float64 { return s.lr }

// SetLR updates the learning rate.
//
// Useful for learning rate scheduling during training.
func (s *SGD[T]) SetLR(lr float64) { s.lr = lr }
