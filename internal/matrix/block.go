package matrix

import "sort"

// Triple is a single (row, col, value) non-zero in global coordinates.
type Triple[V any] struct {
	Row, Col int64
	Val      V
}

// block is the compressed-sparse-column storage owned by a single grid
// cell. rowOffset/colOffset translate its local (0-based) row/col indices
// into the DistMatrix's global coordinate space.
type block[V any] struct {
	rowOffset, colOffset int64
	nRows, nCols         int64
	colPtr               []int64 // len nCols+1
	rowIdx               []int64 // len nnz, ascending within each column
	vals                 []V
}

func emptyBlock[V any](nRows, nCols, rowOffset, colOffset int64) *block[V] {
	return &block[V]{
		rowOffset: rowOffset,
		colOffset: colOffset,
		nRows:     nRows,
		nCols:     nCols,
		colPtr:    make([]int64, nCols+1),
	}
}

// buildBlockLocal compresses a set of local-coordinate triples into CSC
// storage, combining duplicate (row, col) pairs with add. A nil add treats
// duplicates as impossible (structural ops such as transpose never produce
// them) and simply keeps whichever value sorts last.
func buildBlockLocal[V any](nRows, nCols int64, triples []Triple[V], add func(V, V) V) *block[V] {
	sort.Slice(triples, func(i, j int) bool {
		if triples[i].Col != triples[j].Col {
			return triples[i].Col < triples[j].Col
		}
		return triples[i].Row < triples[j].Row
	})

	b := &block[V]{nRows: nRows, nCols: nCols, colPtr: make([]int64, nCols+1)}
	b.rowIdx = make([]int64, 0, len(triples))
	b.vals = make([]V, 0, len(triples))

	i := 0
	for c := int64(0); c < nCols; c++ {
		for i < len(triples) && triples[i].Col == c {
			row := triples[i].Row
			val := triples[i].Val
			i++
			for i < len(triples) && triples[i].Col == c && triples[i].Row == row {
				if add != nil {
					val = add(val, triples[i].Val)
				} else {
					val = triples[i].Val
				}
				i++
			}
			b.rowIdx = append(b.rowIdx, row)
			b.vals = append(b.vals, val)
		}
		b.colPtr[c+1] = int64(len(b.rowIdx))
	}
	return b
}

func (b *block[V]) nnz() int64 { return int64(len(b.vals)) }

// forEach visits every stored non-zero in column-major order, yielding
// global (row, col) coordinates.
func (b *block[V]) forEach(f func(row, col int64, v V)) {
	for c := int64(0); c < b.nCols; c++ {
		for k := b.colPtr[c]; k < b.colPtr[c+1]; k++ {
			f(b.rowIdx[k]+b.rowOffset, c+b.colOffset, b.vals[k])
		}
	}
}

// forEachLocal is like forEach but yields block-local coordinates.
func (b *block[V]) forEachLocal(f func(row, col int64, v V)) {
	for c := int64(0); c < b.nCols; c++ {
		for k := b.colPtr[c]; k < b.colPtr[c+1]; k++ {
			f(b.rowIdx[k], c, b.vals[k])
		}
	}
}

func (b *block[V]) apply(f func(V) V) {
	for i := range b.vals {
		b.vals[i] = f(b.vals[i])
	}
}

// prune rebuilds the block keeping only values v where pred(v) == keepOnTrue.
func (b *block[V]) prune(pred func(V) bool, keepOnTrue bool) *block[V] {
	nb := emptyBlock[V](b.nRows, b.nCols, b.rowOffset, b.colOffset)
	nb.rowIdx = make([]int64, 0, len(b.vals))
	nb.vals = make([]V, 0, len(b.vals))
	for c := int64(0); c < b.nCols; c++ {
		for k := b.colPtr[c]; k < b.colPtr[c+1]; k++ {
			if pred(b.vals[k]) == keepOnTrue {
				nb.rowIdx = append(nb.rowIdx, b.rowIdx[k])
				nb.vals = append(nb.vals, b.vals[k])
			}
		}
		nb.colPtr[c+1] = int64(len(nb.rowIdx))
	}
	return nb
}

// transposeLocal returns the structural transpose of b, re-homed at the
// caller-supplied global offsets (the grid cell a transposed block lands
// in is (pc, pr) rather than (pr, pc), so the offsets generally differ
// from b's own).
func (b *block[V]) transposeLocal(rowOffset, colOffset int64) *block[V] {
	triples := make([]Triple[V], 0, b.nnz())
	b.forEachLocal(func(r, c int64, v V) {
		triples = append(triples, Triple[V]{Row: c, Col: r, Val: v})
	})
	nb := buildBlockLocal[V](b.nCols, b.nRows, triples, nil)
	nb.rowOffset = rowOffset
	nb.colOffset = colOffset
	return nb
}
