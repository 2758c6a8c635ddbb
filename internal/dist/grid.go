package dist

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Grid arranges ranks in a height × width process grid, column-major:
// rank r sits at row r % height, column r / height.
type Grid struct {
	height int
	width  int
}

// NewGrid creates the most square grid for size ranks: the height is the
// largest divisor of size not exceeding its square root.
func NewGrid(size int) (*Grid, error) {
	if size <= 0 {
		return nil, errors.Errorf("grid size must be positive, got %d", size)
	}
	height := int(math.Sqrt(float64(size)))
	for size%height != 0 {
		height--
	}
	return &Grid{height: height, width: size / height}, nil
}

// NewGridWithHeight creates a grid with an explicit height.
func NewGridWithHeight(size, height int) (*Grid, error) {
	if size <= 0 || height <= 0 || size%height != 0 {
		return nil, errors.Errorf("grid height %d does not divide size %d", height, size)
	}
	return &Grid{height: height, width: size / height}, nil
}

// Size returns the number of ranks.
func (g *Grid) Size() int { return g.height * g.width }

// Height returns the number of grid rows.
func (g *Grid) Height() int { return g.height }

// Width returns the number of grid columns.
func (g *Grid) Width() int { return g.width }

// Row returns the grid row of rank.
func (g *Grid) Row(rank int) int { return rank % g.height }

// Col returns the grid column of rank.
func (g *Grid) Col(rank int) int { return rank / g.height }

// String formats the grid as "2x3".
func (g *Grid) String() string {
	return fmt.Sprintf("%dx%d", g.height, g.width)
}
