// Package procgrid models the square process grid that a DistMatrix is
// partitioned across. The real pipeline runs one OS process per grid cell
// under MPI; this module runs every cell in the same address space and
// uses goroutines to stand in for the collective boundaries (no MPI
// binding exists in this module's dependency set; see DESIGN.md).
package procgrid

import "github.com/grailbio/base/errors"

// Grid is a dim x dim logical arrangement of ranks, dim == sqrt(p).
type Grid struct {
	dim int
}

// New returns a Grid of dim x dim ranks. dim must be >= 1.
func New(dim int) (*Grid, error) {
	if dim < 1 {
		return nil, errors.E("procgrid: grid dimension must be >= 1", dim)
	}
	return &Grid{dim: dim}, nil
}

// Dim returns sqrt(p), the number of rows (and columns) of the grid.
func (g *Grid) Dim() int { return g.dim }

// Size returns p, the total rank count.
func (g *Grid) Size() int { return g.dim * g.dim }

// Rank identifies a single cell of the grid.
type Rank struct {
	Row, Col int
}

// RankOf returns the linear rank index of (row, col).
func (g *Grid) RankOf(row, col int) int { return row*g.dim + col }

// Ranks returns every rank in row-major order, used to drive a
// traverse.Each-style fan-out over the grid.
func (g *Grid) Ranks() []Rank {
	ranks := make([]Rank, 0, g.dim*g.dim)
	for r := 0; r < g.dim; r++ {
		for c := 0; c < g.dim; c++ {
			ranks = append(ranks, Rank{Row: r, Col: c})
		}
	}
	return ranks
}

// Split divides [0, n) into dim contiguous blocks of near-equal size, the
// same even-split scheme ELBA's main.cpp used for row/col offsets
// (avg_rows_in_grid, row_offset).
func Split(n int64, dim int) []int64 {
	bounds := make([]int64, dim+1)
	base := n / int64(dim)
	rem := n % int64(dim)
	var acc int64
	for i := 0; i < dim; i++ {
		sz := base
		if int64(i) < rem {
			sz++
		}
		bounds[i] = acc
		acc += sz
	}
	bounds[dim] = n
	return bounds
}
