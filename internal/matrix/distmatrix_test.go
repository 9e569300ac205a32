package matrix

import (
	"testing"

	"github.com/grailbio/elba/internal/procgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid2(t *testing.T) *procgrid.Grid {
	t.Helper()
	g, err := procgrid.New(2)
	require.NoError(t, err)
	return g
}

func TestFromTriplesAndNNZ(t *testing.T) {
	g := grid2(t)
	m, err := FromTriples(g, 4, 4, []Triple[int]{
		{Row: 0, Col: 1, Val: 2},
		{Row: 3, Col: 2, Val: 5},
		{Row: 0, Col: 1, Val: 3}, // duplicate, combined via add
	}, func(a, b int) int { return a + b })
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.NNZ())

	got := map[[2]int64]int{}
	m.ForEach(func(r, c int64, v int) { got[[2]int64{r, c}] = v })
	assert.Equal(t, 5, got[[2]int64{0, 1}])
	assert.Equal(t, 5, got[[2]int64{3, 2}])
}

func TestTransposeRoundTrip(t *testing.T) {
	g := grid2(t)
	m, err := FromTriples(g, 4, 5, []Triple[int]{
		{Row: 0, Col: 4, Val: 1},
		{Row: 3, Col: 0, Val: 2},
		{Row: 1, Col: 2, Val: 3},
	}, nil)
	require.NoError(t, err)

	mt, err := m.Transpose()
	require.NoError(t, err)
	r, c := mt.Dims()
	assert.EqualValues(t, 5, r)
	assert.EqualValues(t, 4, c)

	mtt, err := mt.Transpose()
	require.NoError(t, err)
	assert.True(t, Equal(m, mtt, func(a, b int) bool { return a == b }))
}

func TestApply(t *testing.T) {
	g := grid2(t)
	m, err := FromTriples(g, 3, 3, []Triple[int]{{0, 0, 1}, {1, 1, 2}, {2, 2, 3}}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Apply(func(v int) int { return v * 10 }))
	got := map[int64]int{}
	m.ForEach(func(r, c int64, v int) { got[r] = v })
	assert.Equal(t, 10, got[0])
	assert.Equal(t, 20, got[1])
	assert.Equal(t, 30, got[2])
}

func TestPrune(t *testing.T) {
	g := grid2(t)
	m, err := FromTriples(g, 4, 4, []Triple[int]{{0, 0, 1}, {1, 1, -1}, {2, 2, 2}, {3, 3, -2}}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Prune(func(v int) bool { return v > 0 }, true))
	assert.EqualValues(t, 2, m.NNZ())
	m.ForEach(func(r, c int64, v int) { assert.Greater(t, v, 0) })
}

func TestReduceAndDimApply(t *testing.T) {
	g := grid2(t)
	m, err := FromTriples(g, 3, 3, []Triple[int]{{0, 0, 1}, {0, 1, 2}, {1, 1, 3}}, nil)
	require.NoError(t, err)

	rowSums := m.Reduce(Row, func(a, b int) int { return a + b }, 0)
	assert.Equal(t, []int{3, 3, 0}, rowSums)

	require.NoError(t, m.DimApply(Row, rowSums, func(v, s int) int { return v - s }))
	got := map[[2]int64]int{}
	m.ForEach(func(r, c int64, v int) { got[[2]int64{r, c}] = v })
	assert.Equal(t, -2, got[[2]int64{0, 0}])
	assert.Equal(t, -1, got[[2]int64{0, 1}])
	assert.Equal(t, 0, got[[2]int64{1, 1}])
}

func TestEwiseApplyIntersectionAndComplement(t *testing.T) {
	g := grid2(t)
	a, err := FromTriples(g, 3, 3, []Triple[int]{{0, 0, 1}, {1, 1, 2}, {2, 2, 3}}, nil)
	require.NoError(t, err)
	b, err := FromTriples(g, 3, 3, []Triple[int]{{0, 0, 10}, {2, 2, 30}}, nil)
	require.NoError(t, err)

	inter, err := EwiseApply(a, b, func(x, y int) int { return x + y }, false, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, inter.NNZ())

	comp, err := EwiseApply(a, b, func(x, y int) int { return x + y }, true, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, comp.NNZ())
	comp.ForEach(func(r, c int64, v int) { assert.Equal(t, int64(1), r); assert.Equal(t, 102, v) })
}

func TestApplyWithDefault(t *testing.T) {
	g := grid2(t)
	a, err := FromTriples(g, 3, 3, []Triple[int]{{0, 0, 1}, {1, 1, 2}, {2, 2, 3}}, nil)
	require.NoError(t, err)
	b, err := FromTriples(g, 3, 3, []Triple[bool]{{0, 0, true}}, nil)
	require.NoError(t, err)

	out, err := ApplyWithDefault(a, b, func(v int, marked bool) int {
		if marked {
			return -1
		}
		return v
	}, false)
	require.NoError(t, err)
	assert.EqualValues(t, 3, out.NNZ())
	got := map[int64]int{}
	out.ForEach(func(r, c int64, v int) { got[r] = v })
	assert.Equal(t, -1, got[0])
	assert.Equal(t, 2, got[1])
	assert.Equal(t, 3, got[2])
}

func TestAddInPlace(t *testing.T) {
	g := grid2(t)
	a, err := FromTriples(g, 3, 3, []Triple[int]{{0, 0, 1}, {1, 1, 2}}, nil)
	require.NoError(t, err)
	b, err := FromTriples(g, 3, 3, []Triple[int]{{1, 1, 5}, {2, 2, 9}}, nil)
	require.NoError(t, err)

	require.NoError(t, a.AddInPlace(b, func(x, y int) int { return x + y }))
	assert.EqualValues(t, 3, a.NNZ())
	got := map[int64]int{}
	a.ForEach(func(r, c int64, v int) { got[r] = v })
	assert.Equal(t, 1, got[0])
	assert.Equal(t, 7, got[1])
	assert.Equal(t, 9, got[2])
}
