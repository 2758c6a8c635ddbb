package dist

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/tensor"
)

// Copy redistributes src into dst. dst is resized to src's shape unless it is
// a view, in which case the shapes must already match. Every rank of the
// world must call Copy with matching arguments.
func Copy[T tensor.Float](ctx context.Context, dst, src *DistMatrix[T]) error {
	if dst.view {
		if dst.height != src.height || dst.width != src.width {
			return errors.Errorf("copy into view: shape %dx%d does not match %dx%d",
				dst.height, dst.width, src.height, src.width)
		}
	} else {
		dst.Resize(src.height, src.width)
	}

	rowsLocal := src.dist.ColDist == STAR ||
		(src.dist.ColDist == dst.dist.ColDist && src.colShift == dst.colShift)
	colsLocal := src.dist.RowDist == STAR ||
		(src.dist.RowDist == dst.dist.RowDist && src.rowShift == dst.rowShift)

	if rowsLocal && colsLocal {
		copyLocal(dst, src)
		return nil
	}

	full, err := GatherGlobal(ctx, src)
	if err != nil {
		return err
	}
	fillFromGlobal(dst, full)
	return nil
}

// copyLocal fills dst from src entries held on this rank. Each dimension of
// src is either replicated or distributed exactly like dst.
func copyLocal[T tensor.Float](dst, src *DistMatrix[T]) {
	if src.dist == dst.dist && src.colShift == dst.colShift && src.rowShift == dst.rowShift {
		// Same layout, same local shape.
		_ = dst.local.CopyFrom(src.local)
		return
	}
	srcRow := func(i int) int {
		if src.dist.ColDist == STAR {
			return dst.GlobalRow(i)
		}
		return i
	}
	srcCol := func(j int) int {
		if src.dist.RowDist == STAR {
			return dst.GlobalCol(j)
		}
		return j
	}
	dl, sl := dst.local, src.local
	for j := 0; j < dl.Width(); j++ {
		sj := srcCol(j)
		col := dl.Column(j)
		for i := range col {
			col[i] = sl.At(srcRow(i), sj)
		}
	}
}

func fillFromGlobal[T tensor.Float](dst *DistMatrix[T], full *Matrix[T]) {
	dl := dst.local
	for j := 0; j < dl.Width(); j++ {
		gj := dst.GlobalCol(j)
		col := dl.Column(j)
		for i := range col {
			col[i] = full.At(dst.GlobalRow(i), gj)
		}
	}
}

type piece[T tensor.Float] struct {
	colShift, colStride int
	rowShift, rowStride int
	height, width       int
	data                []T
}

// GatherGlobal assembles the full matrix on every rank.
func GatherGlobal[T tensor.Float](ctx context.Context, m *DistMatrix[T]) (*Matrix[T], error) {
	full := NewMatrix[T](m.height, m.width)
	if m.dist.ColDist == STAR && m.dist.RowDist == STAR {
		if err := full.CopyFrom(m.local); err != nil {
			return nil, err
		}
		return full, nil
	}
	mine := piece[T]{
		colShift: m.colShift, colStride: m.colStride,
		rowShift: m.rowShift, rowStride: m.rowStride,
		height: m.LocalHeight(), width: m.LocalWidth(),
		data: m.local.Contiguous(),
	}
	pieces, err := exchange(ctx, m.comm.WorldGroup(), mine)
	if err != nil {
		return nil, err
	}
	for _, p := range pieces {
		for j := 0; j < p.width; j++ {
			gj := p.rowShift + j*p.rowStride
			for i := 0; i < p.height; i++ {
				full.Set(p.colShift+i*p.colStride, gj, p.data[i+j*p.height])
			}
		}
	}
	return full, nil
}

// AllReduceRedundant reduces the local entries over the ranks that hold
// them, leaving every copy identical.
func AllReduceRedundant[T tensor.Float](ctx context.Context, m *DistMatrix[T], op ReduceOp) error {
	g := m.RedundantGroup()
	if g.Size() == 1 {
		return nil
	}
	buf := m.local.Contiguous()
	if err := AllReduce(ctx, g, buf, op); err != nil {
		return err
	}
	return m.local.SetFromContiguous(buf)
}
