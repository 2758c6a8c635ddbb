package distconv

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/tensor"
)

// Tensor is one rank's block of a sample-partitioned tensor. Sample
// Offset+n occupies Data[n*Height : (n+1)*Height].
type Tensor[T tensor.Float] struct {
	Height  int
	Offset  int
	Samples int
	Data    []T
}

// BlockRange returns the first sample and sample count of rank's block when
// n samples are split over p ranks. The first n%p ranks get one extra.
func BlockRange(n, p, rank int) (start, count int) {
	base, extra := n/p, n%p
	count = base
	if rank < extra {
		count++
	}
	start = rank*base + min(rank, extra)
	return start, count
}

// NewTensor allocates the block of rank for a height × n tensor.
func NewTensor[T tensor.Float](height, n, p, rank int) *Tensor[T] {
	t := &Tensor[T]{}
	t.Resize(height, n, p, rank)
	return t
}

// Resize reshapes the block, reusing storage when possible.
func (t *Tensor[T]) Resize(height, n, p, rank int) {
	t.Height = height
	t.Offset, t.Samples = BlockRange(n, p, rank)
	need := height * t.Samples
	if cap(t.Data) < need {
		t.Data = make([]T, need)
	}
	t.Data = t.Data[:need]
}

// Sample returns the entries of local sample n.
func (t *Tensor[T]) Sample(n int) []T {
	return t.Data[n*t.Height : (n+1)*t.Height]
}

// Zero clears the block.
func (t *Tensor[T]) Zero() { clear(t.Data) }

// FromMatrix fills t with this rank's sample block of m, which may use any
// distribution. Every rank of the world must call it.
func FromMatrix[T tensor.Float](ctx context.Context, t *Tensor[T], m *dist.DistMatrix[T]) error {
	comm := m.Comm()
	full, err := dist.GatherGlobal(ctx, m)
	if err != nil {
		return err
	}
	t.Resize(m.Height(), m.Width(), comm.Size(), comm.Rank())
	for n := 0; n < t.Samples; n++ {
		copy(t.Sample(n), full.Column(t.Offset+n))
	}
	return nil
}

// ToMatrix assembles the blocks of every rank and stores the entries this
// rank owns into m. m must already have the tensor's global shape.
func ToMatrix[T tensor.Float](ctx context.Context, m *dist.DistMatrix[T], t *Tensor[T]) error {
	comm := m.Comm()
	if t.Height != m.Height() {
		return errors.Errorf("distconv: tensor height %d does not match matrix height %d", t.Height, m.Height())
	}
	blocks, err := dist.AllGather(ctx, comm.WorldGroup(), t.Data)
	if err != nil {
		return err
	}
	global := make([]T, 0, m.Height()*m.Width())
	for _, b := range blocks {
		global = append(global, b...)
	}
	if len(global) != m.Height()*m.Width() {
		return errors.Errorf("distconv: blocks hold %d entries, matrix needs %d", len(global), m.Height()*m.Width())
	}
	local := m.Local()
	for j := 0; j < local.Width(); j++ {
		gj := m.GlobalCol(j)
		for i := 0; i < local.Height(); i++ {
			local.Set(i, j, global[gj*t.Height+m.GlobalRow(i)])
		}
	}
	return nil
}
