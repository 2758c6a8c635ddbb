//go:build windows

package webgpu

import (
	"fmt"

	"github.com/go-webgpu/webgpu/wgpu"
)

const (
	storageIn  = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	storageOut = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
)

func bytes4(n int) uint64 { return uint64(max(n, 1) * 4) }

// EmbeddingGather looks up one dictionary column per index. dict is
// dim × numEmb column-major; the result holds dim values per index.
func (b *Backend) EmbeddingGather(dict []float32, dim, numEmb int, indices []float32) ([]float32, error) {
	if len(dict) != dim*numEmb {
		return nil, fmt.Errorf("webgpu: dictionary has %d values, want %d", len(dict), dim*numEmb)
	}
	n := len(indices) * dim
	if n == 0 {
		return []float32{}, nil
	}
	b.launchMu.Lock()
	defer b.launchMu.Unlock()

	p := b.pipeline("embedding_gather", embeddingGatherShader)
	dictBuf := b.upload(dict, storageIn)
	defer dictBuf.Release()
	idxBuf := b.upload(indices, storageIn)
	defer idxBuf.Release()
	out := b.pool.Acquire(bytes4(n), storageOut)
	defer b.pool.Release(out, bytes4(n), storageOut)
	params := b.uniform(u32(len(indices)), u32(dim), u32(numEmb))
	defer params.Release()

	b.dispatch(p, n,
		[]*wgpu.Buffer{dictBuf, idxBuf, out, params},
		[]uint64{bytes4(len(dict)), bytes4(len(indices)), bytes4(n), 16})
	return b.read(out, n)
}

// EmbeddingScatterAdd adds gradOut (dim values per index) into the columns
// of grad selected by indices. grad is updated in place.
func (b *Backend) EmbeddingScatterAdd(grad []float32, dim, numEmb int, indices, gradOut []float32) error {
	if len(grad) != dim*numEmb || len(gradOut) != len(indices)*dim {
		return fmt.Errorf("webgpu: scatter-add size mismatch")
	}
	n := len(gradOut)
	if n == 0 {
		return nil
	}
	b.launchMu.Lock()
	defer b.launchMu.Unlock()

	p := b.pipeline("embedding_scatter_add", embeddingScatterAddShader)
	gradBuf := b.upload(grad, storageOut)
	defer gradBuf.Release()
	idxBuf := b.upload(indices, storageIn)
	defer idxBuf.Release()
	outBuf := b.upload(gradOut, storageIn)
	defer outBuf.Release()
	params := b.uniform(u32(len(indices)), u32(dim), u32(numEmb))
	defer params.Release()

	b.dispatch(p, n,
		[]*wgpu.Buffer{gradBuf, idxBuf, outBuf, params},
		[]uint64{bytes4(len(grad)), bytes4(len(indices)), bytes4(n), 16})
	res, err := b.read(gradBuf, len(grad))
	if err != nil {
		return err
	}
	copy(grad, res)
	return nil
}

func (b *Backend) crossEntropyUniform(p CrossEntropyParams) *wgpu.Buffer {
	return b.uniform(u32(p.Height), u32(p.LabelHeight), u32(p.Samples), u32(p.Classes), u32(p.RowShift), u32(max(p.RowStride, 1)))
}

// CrossEntropyForward returns one partial loss per sample.
func (b *Backend) CrossEntropyForward(pred, truth []float32, p CrossEntropyParams) ([]float32, error) {
	if p.Samples == 0 {
		return []float32{}, nil
	}
	b.launchMu.Lock()
	defer b.launchMu.Unlock()

	pipe := b.pipeline("cross_entropy_forward", crossEntropyForwardShader)
	predBuf := b.upload(pred, storageIn)
	defer predBuf.Release()
	truthBuf := b.upload(truth, storageIn)
	defer truthBuf.Release()
	out := b.pool.Acquire(bytes4(p.Samples), storageOut)
	defer b.pool.Release(out, bytes4(p.Samples), storageOut)
	params := b.crossEntropyUniform(p)
	defer params.Release()

	b.dispatch(pipe, p.Samples,
		[]*wgpu.Buffer{predBuf, truthBuf, out, params},
		[]uint64{bytes4(len(pred)), bytes4(len(truth)), bytes4(p.Samples), 32})
	return b.read(out, p.Samples)
}

// CrossEntropyBackward returns the gradients with respect to pred and
// truth. dtruth is all zeros in label mode.
func (b *Backend) CrossEntropyBackward(pred, truth, dloss []float32, p CrossEntropyParams) (dpred, dtruth []float32, err error) {
	n := p.Height * p.Samples
	if n == 0 {
		return []float32{}, make([]float32, len(truth)), nil
	}
	b.launchMu.Lock()
	defer b.launchMu.Unlock()

	pipe := b.pipeline("cross_entropy_backward", crossEntropyBackwardShader)
	predBuf := b.upload(pred, storageIn)
	defer predBuf.Release()
	truthBuf := b.upload(truth, storageIn)
	defer truthBuf.Release()
	dlossBuf := b.upload(dloss, storageIn)
	defer dlossBuf.Release()
	dpredBuf := b.pool.Acquire(bytes4(n), storageOut)
	defer b.pool.Release(dpredBuf, bytes4(n), storageOut)
	dtruthBuf := b.upload(make([]float32, len(truth)), storageOut)
	defer dtruthBuf.Release()
	params := b.crossEntropyUniform(p)
	defer params.Release()

	b.dispatch(pipe, n,
		[]*wgpu.Buffer{predBuf, truthBuf, dlossBuf, dpredBuf, dtruthBuf, params},
		[]uint64{bytes4(len(pred)), bytes4(len(truth)), bytes4(p.Samples), bytes4(n), bytes4(len(truth)), 32})
	if dpred, err = b.read(dpredBuf, n); err != nil {
		return nil, nil, err
	}
	if dtruth, err = b.read(dtruthBuf, len(truth)); err != nil {
		return nil, nil, err
	}
	return dpred, dtruth, nil
}
