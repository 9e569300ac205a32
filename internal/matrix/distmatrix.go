// Package matrix implements the distributed 2-D block-cyclic sparse matrix
// substrate the rest of the core is built on: construction from triples,
// transpose, element-wise apply, axis reduce/dimApply, prune, element-wise
// combination of two matrices, and Matrix-Market output. Every operation
// that touches more than one grid cell is phrased as a traverse.Each
// fan-out, mirroring bulk-synchronous collective boundaries (this repo
// builds the process grid on traverse.Each instead of a third-party
// MPI binding — see DESIGN.md).
package matrix

import (
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/elba/internal/procgrid"
)

// Axis selects rows or columns for Reduce/DimApply.
type Axis int

const (
	Row Axis = iota
	Col
)

// DistMatrix is a sparse matrix of value type V, partitioned across a
// procgrid.Grid. Each grid cell owns one CSC block of rows x columns;
// mutation of one rank's block never touches another's.
type DistMatrix[V any] struct {
	grid                 *procgrid.Grid
	rows, cols           int64
	rowBounds, colBounds []int64
	blocks               [][]*block[V]
}

// New returns an empty rows x cols matrix partitioned across grid.
func New[V any](grid *procgrid.Grid, rows, cols int64) *DistMatrix[V] {
	dim := grid.Dim()
	rb := procgrid.Split(rows, dim)
	cb := procgrid.Split(cols, dim)
	blocks := make([][]*block[V], dim)
	for r := 0; r < dim; r++ {
		blocks[r] = make([]*block[V], dim)
		for c := 0; c < dim; c++ {
			blocks[r][c] = emptyBlock[V](rb[r+1]-rb[r], cb[c+1]-cb[c], rb[r], cb[c])
		}
	}
	return &DistMatrix[V]{grid: grid, rows: rows, cols: cols, rowBounds: rb, colBounds: cb, blocks: blocks}
}

// Dims returns the global row and column counts.
func (m *DistMatrix[V]) Dims() (int64, int64) { return m.rows, m.cols }

// Grid returns the process grid this matrix is partitioned across.
func (m *DistMatrix[V]) Grid() *procgrid.Grid { return m.grid }

// RowBounds returns the dim+1 global row boundaries of the grid partition.
func (m *DistMatrix[V]) RowBounds() []int64 { return m.rowBounds }

// ColBounds returns the dim+1 global column boundaries of the grid partition.
func (m *DistMatrix[V]) ColBounds() []int64 { return m.colBounds }

// BlockTriples returns the non-zeros owned by grid cell (pr, pc), in that
// cell's local (0-based) coordinate space. This is the one place the
// substrate exposes per-rank storage directly, for the SpGEMM engine's
// SUMMA broadcast schedule.
func (m *DistMatrix[V]) BlockTriples(pr, pc int) []Triple[V] {
	b := m.blocks[pr][pc]
	out := make([]Triple[V], 0, b.nnz())
	b.forEachLocal(func(r, c int64, v V) {
		out = append(out, Triple[V]{Row: r, Col: c, Val: v})
	})
	return out
}

func rankFor(bounds []int64, idx int64) int {
	// bounds[r] <= idx < bounds[r+1]
	return sort.Search(len(bounds)-1, func(r int) bool { return bounds[r+1] > idx })
}

// FromTriples builds a matrix from global (row, col, value) triples,
// combining duplicates at the same coordinate with add. Construction of
// each grid cell's block runs as an independent traverse.Each task, the
// same fork-join shape local SpGEMM uses.
func FromTriples[V any](grid *procgrid.Grid, rows, cols int64, triples []Triple[V], add func(V, V) V) (*DistMatrix[V], error) {
	m := New[V](grid, rows, cols)
	dim := grid.Dim()

	buckets := make([][][]Triple[V], dim)
	for r := range buckets {
		buckets[r] = make([][]Triple[V], dim)
	}
	for _, t := range triples {
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			return nil, errors.E("matrix: triple out of bounds", t.Row, t.Col)
		}
		pr := rankFor(m.rowBounds, t.Row)
		pc := rankFor(m.colBounds, t.Col)
		buckets[pr][pc] = append(buckets[pr][pc], t)
	}

	err := traverse.Each(dim*dim, func(i int) error {
		pr, pc := i/dim, i%dim
		local := make([]Triple[V], len(buckets[pr][pc]))
		for k, t := range buckets[pr][pc] {
			local[k] = Triple[V]{Row: t.Row - m.rowBounds[pr], Col: t.Col - m.colBounds[pc], Val: t.Val}
		}
		m.blocks[pr][pc] = buildBlockLocal(m.rowBounds[pr+1]-m.rowBounds[pr], m.colBounds[pc+1]-m.colBounds[pc], local, add)
		m.blocks[pr][pc].rowOffset = m.rowBounds[pr]
		m.blocks[pr][pc].colOffset = m.colBounds[pc]
		return nil
	})
	if err != nil {
		return nil, errors.E(err, "matrix: building from triples")
	}
	return m, nil
}

// NNZ returns the total number of stored non-zeros across every grid cell.
func (m *DistMatrix[V]) NNZ() int64 {
	var n int64
	m.eachBlock(func(b *block[V]) { n += b.nnz() })
	return n
}

func (m *DistMatrix[V]) eachBlock(f func(*block[V])) {
	dim := m.grid.Dim()
	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			f(m.blocks[r][c])
		}
	}
}

// ForEach visits every stored non-zero in an unspecified order; callers
// must only fold with commutative, associative operations.
func (m *DistMatrix[V]) ForEach(f func(row, col int64, v V)) {
	m.eachBlock(func(b *block[V]) { b.forEach(f) })
}

// Transpose returns the mathematical transpose of m. Payload values are
// copied as-is; callers that need payload-level transposition (e.g. the
// overlap record's dir/dirT swap) follow with Apply.
func (m *DistMatrix[V]) Transpose() (*DistMatrix[V], error) {
	dim := m.grid.Dim()
	nm := &DistMatrix[V]{
		grid:      m.grid,
		rows:      m.cols,
		cols:      m.rows,
		rowBounds: m.colBounds,
		colBounds: m.rowBounds,
		blocks:    make([][]*block[V], dim),
	}
	for r := range nm.blocks {
		nm.blocks[r] = make([]*block[V], dim)
	}
	err := traverse.Each(dim*dim, func(i int) error {
		pr, pc := i/dim, i%dim
		nm.blocks[pc][pr] = m.blocks[pr][pc].transposeLocal(m.colBounds[pc], m.rowBounds[pr])
		return nil
	})
	if err != nil {
		return nil, errors.E(err, "matrix: transpose")
	}
	return nm, nil
}

// Apply maps f over every stored non-zero in place.
func (m *DistMatrix[V]) Apply(f func(V) V) error {
	dim := m.grid.Dim()
	return traverse.Each(dim*dim, func(i int) error {
		m.blocks[i/dim][i%dim].apply(f)
		return nil
	})
}

// Prune removes every non-zero v where pred(v) == keepOnTrue is false,
// i.e. it keeps values for which pred(v) == keepOnTrue.
func (m *DistMatrix[V]) Prune(pred func(V) bool, keepOnTrue bool) error {
	dim := m.grid.Dim()
	nb := make([][]*block[V], dim)
	for r := range nb {
		nb[r] = make([]*block[V], dim)
	}
	err := traverse.Each(dim*dim, func(i int) error {
		pr, pc := i/dim, i%dim
		nb[pr][pc] = m.blocks[pr][pc].prune(pred, keepOnTrue)
		return nil
	})
	if err != nil {
		return errors.E(err, "matrix: prune")
	}
	m.blocks = nb
	return nil
}

// Reduce folds every row (Row axis) or column (Col axis) under monoid,
// starting from id, and returns a dense vector indexed by global row or
// column number -- the DistMatrix equivalent of an MPI allreduce down one
// axis.
func (m *DistMatrix[V]) Reduce(axis Axis, monoid func(V, V) V, id V) []V {
	var n int64
	if axis == Row {
		n = m.rows
	} else {
		n = m.cols
	}
	acc := make([]V, n)
	seen := make([]bool, n)
	m.ForEach(func(r, c int64, v V) {
		idx := r
		if axis == Col {
			idx = c
		}
		if !seen[idx] {
			acc[idx] = v
			seen[idx] = true
		} else {
			acc[idx] = monoid(acc[idx], v)
		}
	})
	for i := range acc {
		if !seen[i] {
			acc[i] = id
		}
	}
	return acc
}

// DimApply combines every element with the corresponding entry of vec
// (indexed by row for axis==Row, by column for axis==Col) under binOp, in
// place.
func (m *DistMatrix[V]) DimApply(axis Axis, vec []V, binOp func(V, V) V) error {
	dim := m.grid.Dim()
	return traverse.Each(dim*dim, func(i int) error {
		b := m.blocks[i/dim][i%dim]
		for c := int64(0); c < b.nCols; c++ {
			for k := b.colPtr[c]; k < b.colPtr[c+1]; k++ {
				var idx int64
				if axis == Row {
					idx = b.rowIdx[k] + b.rowOffset
				} else {
					idx = c + b.colOffset
				}
				b.vals[k] = binOp(b.vals[k], vec[idx])
			}
		}
		return nil
	})
}

// AddInPlace sets m := m + other under value add, unioning sparsity
// patterns.
func (m *DistMatrix[V]) AddInPlace(other *DistMatrix[V], add func(V, V) V) error {
	if m.rows != other.rows || m.cols != other.cols {
		return errors.E("matrix: dimension mismatch in AddInPlace")
	}
	dim := m.grid.Dim()
	nb := make([][]*block[V], dim)
	for r := range nb {
		nb[r] = make([]*block[V], dim)
	}
	err := traverse.Each(dim*dim, func(i int) error {
		pr, pc := i/dim, i%dim
		a := m.blocks[pr][pc]
		b := other.blocks[pr][pc]
		merged := map[[2]int64]V{}
		a.forEachLocal(func(r, c int64, v V) { merged[[2]int64{r, c}] = v })
		b.forEachLocal(func(r, c int64, v V) {
			key := [2]int64{r, c}
			if existing, ok := merged[key]; ok {
				merged[key] = add(existing, v)
			} else {
				merged[key] = v
			}
		})
		triples := make([]Triple[V], 0, len(merged))
		for k, v := range merged {
			triples = append(triples, Triple[V]{Row: k[0], Col: k[1], Val: v})
		}
		nb[pr][pc] = buildBlockLocal(a.nRows, a.nCols, triples, nil)
		nb[pr][pc].rowOffset = a.rowOffset
		nb[pr][pc].colOffset = a.colOffset
		return nil
	})
	if err != nil {
		return errors.E(err, "matrix: AddInPlace")
	}
	m.blocks = nb
	return nil
}

// Equal reports whether a and b have identical sparsity patterns and
// eq(a, b) holds for every pair of stored values at the same coordinate.
func Equal[V any](a, b *DistMatrix[V], eq func(V, V) bool) bool {
	if a.rows != b.rows || a.cols != b.cols || a.NNZ() != b.NNZ() {
		return false
	}
	bv := map[[2]int64]V{}
	b.ForEach(func(r, c int64, v V) { bv[[2]int64{r, c}] = v })
	ok := true
	a.ForEach(func(r, c int64, v V) {
		other, present := bv[[2]int64{r, c}]
		if !present || !eq(v, other) {
			ok = false
		}
	})
	return ok
}

// EwiseApply combines two matrices cell-wise. At positions where both a
// and b have a stored non-zero, the result holds binOp(a, b). If
// logicalNot is set, the result instead holds binOp(a, bId) at positions
// where a has a non-zero and b does not. Like ApplyWithDefault and Convert
// it needs type parameters beyond a's value type, so unlike
// Transpose/Apply it cannot be a DistMatrix method (Go methods may not
// introduce new type parameters beyond the receiver's).
func EwiseApply[A, B, R any](a *DistMatrix[A], b *DistMatrix[B], binOp func(A, B) R, logicalNot bool, bId B) (*DistMatrix[R], error) {
	if a.rows != b.rows || a.cols != b.cols {
		return nil, errors.E("matrix: dimension mismatch in EwiseApply")
	}
	dim := a.grid.Dim()
	nb := make([][]*block[R], dim)
	for r := range nb {
		nb[r] = make([]*block[R], dim)
	}
	err := traverse.Each(dim*dim, func(i int) error {
		pr, pc := i/dim, i%dim
		ab, bb := a.blocks[pr][pc], b.blocks[pr][pc]
		bIndex := map[[2]int64]B{}
		bb.forEachLocal(func(r, c int64, v B) { bIndex[[2]int64{r, c}] = v })
		var triples []Triple[R]
		ab.forEachLocal(func(r, c int64, v A) {
			if bv, ok := bIndex[[2]int64{r, c}]; ok {
				if !logicalNot {
					triples = append(triples, Triple[R]{Row: r, Col: c, Val: binOp(v, bv)})
				}
			} else if logicalNot {
				triples = append(triples, Triple[R]{Row: r, Col: c, Val: binOp(v, bId)})
			}
		})
		rb := buildBlockLocal(ab.nRows, ab.nCols, triples, nil)
		rb.rowOffset, rb.colOffset = ab.rowOffset, ab.colOffset
		nb[pr][pc] = rb
		return nil
	})
	if err != nil {
		return nil, errors.E(err, "matrix: EwiseApply")
	}
	return &DistMatrix[R]{grid: a.grid, rows: a.rows, cols: a.cols, rowBounds: a.rowBounds, colBounds: a.colBounds, blocks: nb}, nil
}

// ApplyWithDefault visits every stored non-zero of a and combines it with
// b's value at the same coordinate, substituting bId when b has no
// non-zero there. It is the union-shaped sibling of EwiseApply: the TR
// driver's final "remove marked edges" step needs binOp applied at every
// position of R regardless of whether T also has a non-zero there, which
// is exactly EwiseApply's intersection branch and its logicalNot branch
// combined into one pass.
func ApplyWithDefault[A, B, R any](a *DistMatrix[A], b *DistMatrix[B], binOp func(A, B) R, bId B) (*DistMatrix[R], error) {
	if a.rows != b.rows || a.cols != b.cols {
		return nil, errors.E("matrix: dimension mismatch in ApplyWithDefault")
	}
	dim := a.grid.Dim()
	nb := make([][]*block[R], dim)
	for r := range nb {
		nb[r] = make([]*block[R], dim)
	}
	err := traverse.Each(dim*dim, func(i int) error {
		pr, pc := i/dim, i%dim
		ab, bb := a.blocks[pr][pc], b.blocks[pr][pc]
		bIndex := map[[2]int64]B{}
		bb.forEachLocal(func(r, c int64, v B) { bIndex[[2]int64{r, c}] = v })
		triples := make([]Triple[R], 0, ab.nnz())
		ab.forEachLocal(func(r, c int64, v A) {
			bv := bId
			if x, ok := bIndex[[2]int64{r, c}]; ok {
				bv = x
			}
			triples = append(triples, Triple[R]{Row: r, Col: c, Val: binOp(v, bv)})
		})
		rb := buildBlockLocal(ab.nRows, ab.nCols, triples, nil)
		rb.rowOffset, rb.colOffset = ab.rowOffset, ab.colOffset
		nb[pr][pc] = rb
		return nil
	})
	if err != nil {
		return nil, errors.E(err, "matrix: ApplyWithDefault")
	}
	return &DistMatrix[R]{grid: a.grid, rows: a.rows, cols: a.cols, rowBounds: a.rowBounds, colBounds: a.colBounds, blocks: nb}, nil
}

// Convert applies f to every stored value, producing a matrix over a new
// value type R with identical sparsity -- used for the R->OverlapPath
// retyping view the transitive-reduction driver needs.
func Convert[A, R any](a *DistMatrix[A], f func(A) R) *DistMatrix[R] {
	dim := a.grid.Dim()
	nb := make([][]*block[R], dim)
	for r := range nb {
		nb[r] = make([]*block[R], dim)
	}
	traverse.Each(dim*dim, func(i int) error { //nolint:errcheck // f cannot fail
		pr, pc := i/dim, i%dim
		ab := a.blocks[pr][pc]
		triples := make([]Triple[R], 0, ab.nnz())
		ab.forEachLocal(func(r, c int64, v A) {
			triples = append(triples, Triple[R]{Row: r, Col: c, Val: f(v)})
		})
		rb := buildBlockLocal(ab.nRows, ab.nCols, triples, nil)
		rb.rowOffset, rb.colOffset = ab.rowOffset, ab.colOffset
		nb[pr][pc] = rb
		return nil
	})
	return &DistMatrix[R]{grid: a.grid, rows: a.rows, cols: a.cols, rowBounds: a.rowBounds, colBounds: a.colBounds, blocks: nb}
}

// Clone returns a deep copy of m.
func (m *DistMatrix[V]) Clone() *DistMatrix[V] {
	return Convert[V, V](m, func(v V) V { return v })
}
