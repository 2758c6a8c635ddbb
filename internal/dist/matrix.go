package dist

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/tensor"
)

// Matrix is a dense column-major matrix with a leading dimension. Views made
// with ColumnView share the underlying storage.
type Matrix[T tensor.Float] struct {
	height int
	width  int
	ldim   int
	data   []T
}

// NewMatrix allocates a zeroed height × width matrix.
func NewMatrix[T tensor.Float](height, width int) *Matrix[T] {
	m := &Matrix[T]{}
	m.Resize(height, width)
	return m
}

// Height returns the number of rows.
func (m *Matrix[T]) Height() int { return m.height }

// Width returns the number of columns.
func (m *Matrix[T]) Width() int { return m.width }

// LDim returns the leading dimension.
func (m *Matrix[T]) LDim() int { return m.ldim }

// Data returns the raw storage, column j starting at j*LDim().
func (m *Matrix[T]) Data() []T { return m.data }

// Resize changes the shape. Existing storage is reused when large enough;
// contents are unspecified afterwards.
func (m *Matrix[T]) Resize(height, width int) {
	if height < 0 || width < 0 {
		panic(fmt.Sprintf("invalid matrix shape %dx%d", height, width))
	}
	ldim := max(height, 1)
	need := ldim * width
	if cap(m.data) < need {
		m.data = make([]T, need)
	}
	m.data = m.data[:need]
	m.height, m.width, m.ldim = height, width, ldim
}

// At returns the entry at (i, j).
func (m *Matrix[T]) At(i, j int) T { return m.data[i+j*m.ldim] }

// Set stores v at (i, j).
func (m *Matrix[T]) Set(i, j int, v T) { m.data[i+j*m.ldim] = v }

// Update adds v to the entry at (i, j).
func (m *Matrix[T]) Update(i, j int, v T) { m.data[i+j*m.ldim] += v }

// Column returns column j as a slice of length Height().
func (m *Matrix[T]) Column(j int) []T {
	off := j * m.ldim
	return m.data[off : off+m.height]
}

// Zero sets every entry to zero.
func (m *Matrix[T]) Zero() {
	for j := 0; j < m.width; j++ {
		clear(m.Column(j))
	}
}

// ColumnView returns a matrix sharing columns [j0, j0+n).
func (m *Matrix[T]) ColumnView(j0, n int) *Matrix[T] {
	if j0 < 0 || n < 0 || j0+n > m.width {
		panic(fmt.Sprintf("column view [%d,%d) out of range for width %d", j0, j0+n, m.width))
	}
	v := &Matrix[T]{height: m.height, width: n, ldim: m.ldim}
	if n > 0 {
		v.data = m.data[j0*m.ldim : (j0+n)*m.ldim]
	}
	return v
}

// Contiguous returns the entries packed column by column without padding.
func (m *Matrix[T]) Contiguous() []T {
	out := make([]T, 0, m.height*m.width)
	for j := 0; j < m.width; j++ {
		out = append(out, m.Column(j)...)
	}
	return out
}

// SetFromContiguous fills the matrix from packed column-major values.
func (m *Matrix[T]) SetFromContiguous(vals []T) error {
	if len(vals) != m.height*m.width {
		return errors.Errorf("got %d values for a %dx%d matrix", len(vals), m.height, m.width)
	}
	for j := 0; j < m.width; j++ {
		copy(m.Column(j), vals[j*m.height:(j+1)*m.height])
	}
	return nil
}

// CopyFrom copies src, which must have the same shape.
func (m *Matrix[T]) CopyFrom(src *Matrix[T]) error {
	if src.height != m.height || src.width != m.width {
		return errors.Errorf("shape mismatch: %dx%d vs %dx%d", m.height, m.width, src.height, src.width)
	}
	for j := 0; j < m.width; j++ {
		copy(m.Column(j), src.Column(j))
	}
	return nil
}
