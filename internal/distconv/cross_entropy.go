package distconv

import (
	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/tensor"
)

// CrossEntropy is the fused cross-entropy kernel. Predictions have C·S rows
// per sample. In label mode the ground truth holds one class index per
// spatial position (S rows), otherwise a distribution of the same height.
type CrossEntropy[T tensor.Float] struct {
	useLabels bool
	eps       T
}

// NewCrossEntropy creates the kernel.
func NewCrossEntropy[T tensor.Float](useLabels bool) *CrossEntropy[T] {
	return &CrossEntropy[T]{useLabels: useLabels, eps: tensor.Epsilon[T]()}
}

func (k *CrossEntropy[T]) check(pred, truth *Tensor[T]) error {
	if pred.Samples != truth.Samples || pred.Offset != truth.Offset {
		return errors.Errorf("distconv: prediction and ground truth blocks differ")
	}
	if !k.useLabels && pred.Height != truth.Height {
		return errors.Errorf("distconv: prediction height %d, ground truth height %d", pred.Height, truth.Height)
	}
	if k.useLabels && (truth.Height == 0 || pred.Height%truth.Height != 0) {
		return errors.Errorf("distconv: prediction height %d is not a multiple of label height %d", pred.Height, truth.Height)
	}
	return nil
}

// Forward writes the loss of each sample into out (height 1).
func (k *CrossEntropy[T]) Forward(pred, truth, out *Tensor[T]) error {
	if err := k.check(pred, truth); err != nil {
		return err
	}
	for n := 0; n < pred.Samples; n++ {
		y, yhat := pred.Sample(n), truth.Sample(n)
		var loss T
		if k.useLabels {
			s := truth.Height
			for row, v := range y {
				if c, ok := tensor.Index(yhat[row%s], pred.Height/s); ok && c == row/s {
					loss += -tensor.Log(max(v, k.eps))
				}
			}
		} else {
			for row, v := range y {
				loss += T(-yhat[row] * tensor.Log(max(v, k.eps)))
			}
		}
		out.Sample(n)[0] = loss
	}
	return nil
}

// Backward computes the gradients with respect to the predictions and, in
// distribution mode, the ground truth. dtruth is zeroed in label mode.
func (k *CrossEntropy[T]) Backward(pred, truth, dout, dpred, dtruth *Tensor[T]) error {
	if err := k.check(pred, truth); err != nil {
		return err
	}
	for n := 0; n < pred.Samples; n++ {
		y, yhat := pred.Sample(n), truth.Sample(n)
		g := dout.Sample(n)[0]
		dy, dyhat := dpred.Sample(n), dtruth.Sample(n)
		if k.useLabels {
			s := truth.Height
			for row, v := range y {
				dy[row] = 0
				if c, ok := tensor.Index(yhat[row%s], pred.Height/s); ok && c == row/s {
					dy[row] = T(-1/max(v, k.eps)) * g
				}
			}
			clear(dyhat)
			continue
		}
		for row, v := range y {
			safe := max(v, k.eps)
			dy[row] = T(-yhat[row]/safe) * g
			dyhat[row] = -tensor.Log(safe) * g
		}
	}
	return nil
}
