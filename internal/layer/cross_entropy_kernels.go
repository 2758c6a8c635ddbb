package layer

import (
	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/backend/webgpu"
	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/parallel"
	"github.com/born-ml/born-dist/internal/tensor"
)

// crossEntropyBlock locates the local prediction rows in the global
// [C, S...] layout. labelHeight is zero in distribution mode.
type crossEntropyBlock struct {
	height      int
	labelHeight int
	classes     int
	rowShift    int
	rowStride   int
}

func (b crossEntropyBlock) params(samples int) webgpu.CrossEntropyParams {
	return webgpu.CrossEntropyParams{
		Height:      b.height,
		LabelHeight: b.labelHeight,
		Samples:     samples,
		Classes:     b.classes,
		RowShift:    b.rowShift,
		RowStride:   b.rowStride,
	}
}

// labelled reports whether local row i of a sample with labels is the
// labelled class.
func labelled[T tensor.Float](b crossEntropyBlock, labels []T, i int) bool {
	g := b.rowShift + i*b.rowStride
	c, ok := tensor.Index(labels[g%b.labelHeight], b.classes)
	return ok && c == g/b.labelHeight
}

// crossEntropyKernel evaluates the local partial loss of every local sample
// and its gradients. truth holds labels (labelHeight rows) in label mode.
type crossEntropyKernel[T tensor.Float] interface {
	forward(pred, truth, out *dist.Matrix[T], b crossEntropyBlock) error
	backward(pred, truth, dout, dpred, dtruth *dist.Matrix[T], b crossEntropyBlock) error
}

func (l *CrossEntropy[T]) selectKernel() (crossEntropyKernel[T], error) {
	if l.device == tensor.CPU {
		return &cpuCrossEntropy[T]{ops: l.ops, parallel: l.parallel}, nil
	}
	b, err := webgpu.Default()
	if err != nil {
		return nil, l.setupErrorf("gpu device: %v", err)
	}
	k, ok := any(&gpuCrossEntropy{backend: b}).(crossEntropyKernel[T])
	if !ok {
		return nil, l.setupErrorf("gpu kernels support float32 only, layer is %s", l.DataType())
	}
	return k, nil
}

type cpuCrossEntropy[T tensor.Float] struct {
	ops      scalarOps[T]
	parallel parallel.Config
}

func (k *cpuCrossEntropy[T]) forward(pred, truth, out *dist.Matrix[T], b crossEntropyBlock) error {
	eps := k.ops.eps
	parallel.For(pred.Width(), func(j int) {
		y, yhat := pred.Column(j), truth.Column(j)
		var loss T
		if b.labelHeight > 0 {
			for i, v := range y {
				if labelled(b, yhat, i) {
					loss += -tensor.Log(max(v, eps))
				}
			}
		} else {
			for i, v := range y {
				loss += T(-yhat[i] * tensor.Log(max(v, eps)))
			}
		}
		out.Set(0, j, loss)
	}, k.parallel)
	return nil
}

func (k *cpuCrossEntropy[T]) backward(pred, truth, dout, dpred, dtruth *dist.Matrix[T], b crossEntropyBlock) error {
	eps := k.ops.eps
	parallel.For(pred.Width(), func(j int) {
		y, yhat := pred.Column(j), truth.Column(j)
		g := dout.At(0, j)
		dy, dyhat := dpred.Column(j), dtruth.Column(j)
		if b.labelHeight > 0 {
			for i, v := range y {
				dy[i] = 0
				if labelled(b, yhat, i) {
					dy[i] = T(-1/max(v, eps)) * g
				}
			}
			clear(dyhat)
			return
		}
		for i, v := range y {
			safe := max(v, eps)
			dy[i] = T(-yhat[i]/safe) * g
			dyhat[i] = -tensor.Log(safe) * g
		}
	}, k.parallel)
	return nil
}

// gpuCrossEntropy runs on WebGPU and exists only for float32.
type gpuCrossEntropy struct {
	backend *webgpu.Backend
}

func (k *gpuCrossEntropy) forward(pred, truth, out *dist.Matrix[float32], b crossEntropyBlock) error {
	loss, err := k.backend.CrossEntropyForward(pred.Contiguous(), truth.Contiguous(), b.params(pred.Width()))
	if err != nil {
		return errors.Wrap(err, "cross entropy forward")
	}
	return out.SetFromContiguous(loss)
}

func (k *gpuCrossEntropy) backward(pred, truth, dout, dpred, dtruth *dist.Matrix[float32], b crossEntropyBlock) error {
	dy, dyhat, err := k.backend.CrossEntropyBackward(pred.Contiguous(), truth.Contiguous(), dout.Contiguous(), b.params(pred.Width()))
	if err != nil {
		return errors.Wrap(err, "cross entropy backward")
	}
	if err := dpred.SetFromContiguous(dy); err != nil {
		return err
	}
	if b.labelHeight > 0 {
		dtruth.Zero()
		return nil
	}
	return dtruth.SetFromContiguous(dyhat)
}
