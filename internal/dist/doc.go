// Package dist implements distributed matrices over a 2-D process grid.
//
// A DistMatrix stores a global height × width matrix element-cyclically: the
// rows are dealt out over the ranks of the column distribution and the
// columns over the ranks of the row distribution. Every rank holds its local
// part in a column-major Matrix.
//
// Distributions (the naming follows the Elemental conventions):
//
//	MC    over the grid rows     (stride = grid height)
//	MR    over the grid columns  (stride = grid width)
//	VC    over all ranks, column-major rank order
//	VR    over all ranks, row-major rank order
//	STAR  replicated, every rank holds the full dimension
//
// So a STAR × VC matrix holds complete columns (samples) dealt out over all
// ranks, which is the data-parallel activation layout, and STAR × STAR is a
// fully replicated matrix.
//
// Ranks run as goroutines in one process (see Launch). They share no tensor
// state; every cross-rank data movement is an explicit collective on a Group.
package dist
