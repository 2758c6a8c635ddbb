package optim

import (
	"context"
	"math"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/tensor"
	"github.com/born-ml/born-dist/internal/weights"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Moments are kept per local entry, so every replica of a replicated weights
// applies the same update.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam[T tensor.Float] struct {
	gradient[T]
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int
	m, v  *dist.Matrix[T]
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer with default hyperparameters where
// config leaves them zero.
func NewAdam[T tensor.Float](config AdamConfig) *Adam[T] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam[T]{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
	}
}

// Setup allocates the gradient buffer and moments for w.
func (a *Adam[T]) Setup(w *weights.Weights[T]) error {
	fresh, err := a.setup(w)
	if err != nil {
		return err
	}
	if fresh {
		local := w.ValuesSharded().Local()
		a.m = dist.NewMatrix[T](local.Height(), local.Width())
		a.v = dist.NewMatrix[T](local.Height(), local.Width())
		a.t = 0
	}
	return nil
}

// Step performs a single optimization step using Adam algorithm.
func (a *Adam[T]) Step(ctx context.Context) error {
	if err := a.reduce(ctx); err != nil {
		return err
	}
	a.t++
	bc1 := T(1 - math.Pow(a.beta1, float64(a.t)))
	bc2 := T(1 - math.Pow(a.beta2, float64(a.t)))
	b1, b2 := T(a.beta1), T(a.beta2)
	lr, eps := T(a.lr), T(a.eps)

	values := a.w.ValuesSharded().Local()
	grad := a.grad.Local()
	for j := 0; j < values.Width(); j++ {
		p, g := values.Column(j), grad.Column(j)
		m, v := a.m.Column(j), a.v.Column(j)
		for i := range p {
			m[i] = b1*m[i] + (1-b1)*g[i]
			v[i] = b2*v[i] + (1-b2)*g[i]*g[i]
			mHat := m[i] / bc1
			vHat := v[i] / bc2
			p[i] -= lr * mHat / (T(math.Sqrt(float64(vHat))) + eps)
		}
	}
	a.ClearGradient()
	return nil
}

// LearningRate returns the current learning rate.
func (a *Adam[T]) LearningRate() float64 { return a.lr }
