package spgemm

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/elba/internal/matrix"
)

// Multiply computes C = A*B over sr using a 2-D double-buffered broadcast
// schedule (SUMMA): at each of dim steps, the processes in a grid row
// conceptually broadcast their A-block and the processes in a grid column
// broadcast their B-block, and every rank accumulates its local partial
// product with sr.Add. Cells equal to sr.ID() may be emitted; the caller
// prunes them.
//
// Both matrices must share a grid and A's column count must equal B's row
// count; the shared dimension is split identically by procgrid.Split, so
// step s's A-block and B-block always line up on the same k-range.
func Multiply[A, B, C any](a *matrix.DistMatrix[A], b *matrix.DistMatrix[B], sr Semiring[A, B, C]) (*matrix.DistMatrix[C], error) {
	grid := a.Grid()
	if grid != b.Grid() {
		return nil, errors.E("spgemm: A and B must share a process grid")
	}
	dim := grid.Dim()
	aRows, aCols := a.Dims()
	bRows, bCols := b.Dims()
	if aCols != bRows {
		return nil, errors.E("spgemm: inner dimension mismatch", aCols, bRows)
	}

	aRowBounds, bColBounds := a.RowBounds(), b.ColBounds()

	perCell := make([][]matrix.Triple[C], dim*dim)
	err := traverse.Each(dim*dim, func(i int) error {
		pr, pc := i/dim, i%dim
		acc := map[[2]int64]C{}
		for s := 0; s < dim; s++ {
			aBlock := a.BlockTriples(pr, s) // broadcast across row pr
			bBlock := b.BlockTriples(s, pc) // broadcast across column pc

			bByRow := map[int64][]matrix.Triple[B]{}
			for _, t := range bBlock {
				bByRow[t.Row] = append(bByRow[t.Row], t)
			}
			for _, at := range aBlock {
				for _, bt := range bByRow[at.Col] {
					cv := sr.Multiply(at.Val, bt.Val)
					key := [2]int64{at.Row, bt.Col}
					if existing, ok := acc[key]; ok {
						acc[key] = sr.Add(existing, cv)
					} else {
						acc[key] = cv
					}
				}
			}
		}
		triples := make([]matrix.Triple[C], 0, len(acc))
		for k, v := range acc {
			triples = append(triples, matrix.Triple[C]{
				Row: k[0] + aRowBounds[pr],
				Col: k[1] + bColBounds[pc],
				Val: v,
			})
		}
		perCell[i] = triples
		return nil
	})
	if err != nil {
		return nil, errors.E(err, "spgemm: multiply")
	}

	var all []matrix.Triple[C]
	for _, triples := range perCell {
		all = append(all, triples...)
	}
	return matrix.FromTriples(grid, aRows, bCols, all, sr.Add)
}
