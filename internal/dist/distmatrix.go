package dist

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/tensor"
)

// DistMatrix is a height × width matrix whose entries are spread
// element-cyclically over the grid. Global row i lives on the ranks whose
// column shift equals i mod colStride; global column j likewise for rows.
type DistMatrix[T tensor.Float] struct {
	comm   *Comm
	dist   DistData
	height int
	width  int

	colShift, colStride int
	rowShift, rowStride int

	local *Matrix[T]
	view  bool
}

// NewDistMatrix creates an empty matrix with the given distribution.
func NewDistMatrix[T tensor.Float](comm *Comm, d DistData) *DistMatrix[T] {
	m := &DistMatrix[T]{comm: comm, dist: d, local: NewMatrix[T](0, 0)}
	m.colShift, m.colStride = comm.Grid().shift(d.ColDist, comm.Rank())
	m.rowShift, m.rowStride = comm.Grid().shift(d.RowDist, comm.Rank())
	return m
}

// Construct creates an empty matrix with the same communicator and
// distribution as m.
func (m *DistMatrix[T]) Construct() *DistMatrix[T] {
	return NewDistMatrix[T](m.comm, m.dist)
}

// Clone returns a matrix with the same distribution, shape and local
// entries as m, backed by its own storage.
func (m *DistMatrix[T]) Clone() *DistMatrix[T] {
	c := *m
	c.local = NewMatrix[T](m.local.Height(), m.local.Width())
	c.view = false
	for j := 0; j < m.local.Width(); j++ {
		copy(c.local.Column(j), m.local.Column(j))
	}
	return &c
}

// Comm returns the owning rank's communicator.
func (m *DistMatrix[T]) Comm() *Comm { return m.comm }

// Dist returns the distribution.
func (m *DistMatrix[T]) Dist() DistData { return m.dist }

// Height returns the global number of rows.
func (m *DistMatrix[T]) Height() int { return m.height }

// Width returns the global number of columns.
func (m *DistMatrix[T]) Width() int { return m.width }

// Local returns the locally owned entries.
func (m *DistMatrix[T]) Local() *Matrix[T] { return m.local }

// LocalHeight returns the number of locally owned rows.
func (m *DistMatrix[T]) LocalHeight() int { return m.local.Height() }

// LocalWidth returns the number of locally owned columns.
func (m *DistMatrix[T]) LocalWidth() int { return m.local.Width() }

// ColShift returns the first global row owned locally.
func (m *DistMatrix[T]) ColShift() int { return m.colShift }

// ColStride returns the distance between locally owned global rows.
func (m *DistMatrix[T]) ColStride() int { return m.colStride }

// RowShift returns the first global column owned locally.
func (m *DistMatrix[T]) RowShift() int { return m.rowShift }

// RowStride returns the distance between locally owned global columns.
func (m *DistMatrix[T]) RowStride() int { return m.rowStride }

// IsView reports whether m shares storage with another matrix.
func (m *DistMatrix[T]) IsView() bool { return m.view }

// Resize sets the global shape and reallocates local storage when needed.
// Views cannot be resized.
func (m *DistMatrix[T]) Resize(height, width int) {
	if m.view {
		panic("dist: cannot resize a view")
	}
	m.height, m.width = height, width
	m.local.Resize(
		LocalLength(height, m.colShift, m.colStride),
		LocalLength(width, m.rowShift, m.rowStride),
	)
}

// GlobalRow maps a local row index to its global index.
func (m *DistMatrix[T]) GlobalRow(i int) int { return m.colShift + i*m.colStride }

// GlobalCol maps a local column index to its global index.
func (m *DistMatrix[T]) GlobalCol(j int) int { return m.rowShift + j*m.rowStride }

// LocalRow returns the local index of global row i and whether it is owned.
func (m *DistMatrix[T]) LocalRow(i int) (int, bool) {
	if i < m.colShift || (i-m.colShift)%m.colStride != 0 {
		return 0, false
	}
	return (i - m.colShift) / m.colStride, true
}

// LocalCol returns the local index of global column j and whether it is owned.
func (m *DistMatrix[T]) LocalCol(j int) (int, bool) {
	if j < m.rowShift || (j-m.rowShift)%m.rowStride != 0 {
		return 0, false
	}
	return (j - m.rowShift) / m.rowStride, true
}

// ViewColumns returns a matrix sharing global columns [j0, j0+n) of m.
func (m *DistMatrix[T]) ViewColumns(j0, n int) (*DistMatrix[T], error) {
	if j0 < 0 || n < 0 || j0+n > m.width {
		return nil, errors.Errorf("column view [%d,%d) out of range for width %d", j0, j0+n, m.width)
	}
	first := LocalLength(j0, m.rowShift, m.rowStride)
	last := LocalLength(j0+n, m.rowShift, m.rowStride)
	v := *m
	v.width = n
	v.rowShift = ((m.rowShift-j0)%m.rowStride + m.rowStride) % m.rowStride
	v.local = m.local.ColumnView(first, last-first)
	v.view = true
	return &v, nil
}

// Zero clears the locally owned entries.
func (m *DistMatrix[T]) Zero() { m.local.Zero() }

// ColGroup returns the ranks sharing this rank's columns, ordered by their
// column shift.
func (m *DistMatrix[T]) ColGroup() *Group { return m.comm.DistGroup(m.dist.ColDist) }

// RowGroup returns the ranks sharing this rank's rows, ordered by their row
// shift.
func (m *DistMatrix[T]) RowGroup() *Group { return m.comm.DistGroup(m.dist.RowDist) }

// RedundantGroup returns the ranks holding the same local entries.
func (m *DistMatrix[T]) RedundantGroup() *Group { return m.comm.RedundantGroup(m.dist) }

// String describes the matrix shape and distribution.
func (m *DistMatrix[T]) String() string {
	return fmt.Sprintf("[%s] %dx%d (local %dx%d)", m.dist, m.height, m.width, m.LocalHeight(), m.LocalWidth())
}
