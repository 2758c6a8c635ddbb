//go:build !windows

package webgpu

// Backend is unavailable on this platform.
type Backend struct{}

// New always fails on this platform.
func New() (*Backend, error) { return nil, ErrUnavailable }

// Release is a no-op.
func (b *Backend) Release() {}

// EmbeddingGather is unavailable on this platform.
func (b *Backend) EmbeddingGather(_ []float32, _, _ int, _ []float32) ([]float32, error) {
	return nil, ErrUnavailable
}

// EmbeddingScatterAdd is unavailable on this platform.
func (b *Backend) EmbeddingScatterAdd(_ []float32, _, _ int, _, _ []float32) error {
	return ErrUnavailable
}

// CrossEntropyForward is unavailable on this platform.
func (b *Backend) CrossEntropyForward(_, _ []float32, _ CrossEntropyParams) ([]float32, error) {
	return nil, ErrUnavailable
}

// CrossEntropyBackward is unavailable on this platform.
func (b *Backend) CrossEntropyBackward(_, _, _ []float32, _ CrossEntropyParams) (dpred, dtruth []float32, err error) {
	return nil, nil, ErrUnavailable
}
