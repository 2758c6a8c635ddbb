package dist

import "fmt"

// Dist is the distribution of one matrix dimension over the grid.
type Dist int

// Supported distributions.
const (
	STAR Dist = iota
	MC
	MR
	VC
	VR
)

// String returns the Elemental name of the distribution.
func (d Dist) String() string {
	switch d {
	case STAR:
		return "STAR"
	case MC:
		return "MC"
	case MR:
		return "MR"
	case VC:
		return "VC"
	case VR:
		return "VR"
	default:
		return "Unknown"
	}
}

// DistData describes how a matrix is laid out: ColDist distributes the
// entries of each column (the rows) and RowDist distributes the columns.
type DistData struct {
	ColDist Dist
	RowDist Dist
}

// String formats the pair as "STAR,VC".
func (d DistData) String() string {
	return fmt.Sprintf("%s,%s", d.ColDist, d.RowDist)
}

// shift returns the position of rank among the owners of d and stride the
// number of owners.
func (g *Grid) shift(d Dist, rank int) (shift, stride int) {
	switch d {
	case MC:
		return g.Row(rank), g.height
	case MR:
		return g.Col(rank), g.width
	case VC:
		return rank, g.Size()
	case VR:
		return g.Row(rank)*g.width + g.Col(rank), g.Size()
	default:
		return 0, 1
	}
}

// LocalLength returns how many of the indices [0, n) are congruent to shift
// modulo stride.
func LocalLength(n, shift, stride int) int {
	if n <= shift {
		return 0
	}
	return (n-shift-1)/stride + 1
}
