package layer

import (
	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/backend/webgpu"
	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/parallel"
	"github.com/born-ml/born-dist/internal/tensor"
)

// embeddingKernel computes on local matrices. The dictionary and its
// gradient are dim × numEmb; input holds one index per row, output and
// gradOutput hold dim rows per index.
type embeddingKernel[T tensor.Float] interface {
	gather(dict, input, output *dist.Matrix[T], dim, numEmb int) error
	scatterAdd(grad, input, gradOutput *dist.Matrix[T], dim, numEmb int) error
}

func (l *Embedding[T]) selectKernel() (embeddingKernel[T], error) {
	if l.device == tensor.CPU {
		return &cpuEmbedding[T]{ops: l.ops, parallel: l.parallel}, nil
	}
	b, err := webgpu.Default()
	if err != nil {
		return nil, l.setupErrorf("gpu device: %v", err)
	}
	k, ok := any(&gpuEmbedding{backend: b}).(embeddingKernel[T])
	if !ok {
		return nil, l.setupErrorf("gpu kernels support float32 only, layer is %s", l.DataType())
	}
	return k, nil
}

type cpuEmbedding[T tensor.Float] struct {
	ops      scalarOps[T]
	parallel parallel.Config
}

func (k *cpuEmbedding[T]) gather(dict, input, output *dist.Matrix[T], dim, numEmb int) error {
	parallel.For(input.Width(), func(j int) {
		out := output.Column(j)
		for i, x := range input.Column(j) {
			dst := out[i*dim : (i+1)*dim]
			if idx, ok := tensor.Index(x, numEmb); ok {
				copy(dst, dict.Column(idx))
			} else {
				clear(dst)
			}
		}
	}, k.parallel)
	return nil
}

func (k *cpuEmbedding[T]) scatterAdd(grad, input, gradOutput *dist.Matrix[T], dim, numEmb int) error {
	parallel.For(input.Width(), func(j int) {
		src := gradOutput.Column(j)
		for i, x := range input.Column(j) {
			idx, ok := tensor.Index(x, numEmb)
			if !ok {
				continue
			}
			g := grad.Column(idx)
			for d := range g {
				k.ops.atomicAdd(&g[d], src[i*dim+d])
			}
		}
	}, k.parallel)
	return nil
}

// gpuEmbedding runs on WebGPU and exists only for float32.
type gpuEmbedding struct {
	backend *webgpu.Backend
}

func (k *gpuEmbedding) gather(dict, input, output *dist.Matrix[float32], dim, numEmb int) error {
	out, err := k.backend.EmbeddingGather(dict.Contiguous(), dim, numEmb, input.Contiguous())
	if err != nil {
		return errors.Wrap(err, "embedding gather")
	}
	return output.SetFromContiguous(out)
}

func (k *gpuEmbedding) scatterAdd(grad, input, gradOutput *dist.Matrix[float32], dim, numEmb int) error {
	g := grad.Contiguous()
	if err := k.backend.EmbeddingScatterAdd(g, dim, numEmb, input.Contiguous(), gradOutput.Contiguous()); err != nil {
		return errors.Wrap(err, "embedding scatter-add")
	}
	return grad.SetFromContiguous(g)
}
