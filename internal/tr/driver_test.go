package tr

import (
	"testing"

	"github.com/grailbio/elba/internal/kmeroverlap"
	"github.com/grailbio/elba/internal/matrix"
	"github.com/grailbio/elba/internal/procgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// arrows/reverseDir mirror overlapgraph's unexported direction codec, just
// enough to build test fixtures whose edges chain the way the scenarios in
// spec.md section 8 require.
func arrows(dir int8) (t, h int) { return int(dir) / 2, int(dir) % 2 }

func reverseDir(dir int8) int8 {
	t, h := arrows(dir)
	return int8(2*h + t)
}

// edge builds a CommonKmers record for a forward overlap in direction dir
// with suffix length sfx, deriving a self-consistent DirT/SfxT so that
// kmeroverlap.Transpose applied twice returns the original record.
func edge(dir int8, sfx int64) kmeroverlap.CommonKmers {
	return kmeroverlap.CommonKmers{Dir: dir, Sfx: sfx, DirT: reverseDir(dir), SfxT: sfx}
}

func buildR(t *testing.T, n int64, triples []matrix.Triple[kmeroverlap.CommonKmers]) *matrix.DistMatrix[kmeroverlap.CommonKmers] {
	t.Helper()
	g, err := procgrid.New(2)
	require.NoError(t, err)
	m, err := matrix.FromTriples(g, n, n, triples, nil)
	require.NoError(t, err)
	return m
}

type edgeKey struct{ row, col int64 }

func edgeSet(m *matrix.DistMatrix[kmeroverlap.CommonKmers]) map[edgeKey]kmeroverlap.CommonKmers {
	out := map[edgeKey]kmeroverlap.CommonKmers{}
	m.ForEach(func(r, c int64, v kmeroverlap.CommonKmers) { out[edgeKey{r, c}] = v })
	return out
}

// S1: three reads in a linear chain, R0-R1=40, R1-R2=40, R0-R2=80. The
// direct edge is exactly as long as the two-hop path, so with FUZZ=0 it is
// removed; the chain edges survive. Four edges remain (two per kept pair).
func TestS1LinearChainRemovesRedundantDirectEdge(t *testing.T) {
	r := buildR(t, 3, []matrix.Triple[kmeroverlap.CommonKmers]{
		{Row: 0, Col: 1, Val: edge(1, 40)},
		{Row: 1, Col: 2, Val: edge(2, 40)},
		{Row: 0, Col: 2, Val: edge(0, 80)},
	})
	out, err := Reduce(r, 0)
	require.NoError(t, err)

	edges := edgeSet(out)
	assert.Len(t, edges, 4)
	assert.Contains(t, edges, edgeKey{0, 1})
	assert.Contains(t, edges, edgeKey{1, 0})
	assert.Contains(t, edges, edgeKey{1, 2})
	assert.Contains(t, edges, edgeKey{2, 1})
	assert.NotContains(t, edges, edgeKey{0, 2})
	assert.NotContains(t, edges, edgeKey{2, 0})
}

// S2: same topology, direct suffix 75. FUZZ=10 makes 75+10 >= 80 so the
// edge is removed; FUZZ=0 makes 75 >= 80 false so it survives.
func TestS2TriangleWithSlackBothSidesOfCutoff(t *testing.T) {
	build := func() *matrix.DistMatrix[kmeroverlap.CommonKmers] {
		return buildR(t, 3, []matrix.Triple[kmeroverlap.CommonKmers]{
			{Row: 0, Col: 1, Val: edge(1, 40)},
			{Row: 1, Col: 2, Val: edge(2, 40)},
			{Row: 0, Col: 2, Val: edge(0, 75)},
		})
	}

	withFuzz, err := Reduce(build(), 10)
	require.NoError(t, err)
	assert.NotContains(t, edgeSet(withFuzz), edgeKey{0, 2})

	withoutFuzz, err := Reduce(build(), 0)
	require.NoError(t, err)
	assert.Contains(t, edgeSet(withoutFuzz), edgeKey{0, 2})
	assert.Len(t, edgeSet(withoutFuzz), 6)
}

// S3: two disconnected overlapping pairs. TR is a no-op; four edges total.
func TestS3DisconnectedPairsIsIdentity(t *testing.T) {
	r := buildR(t, 4, []matrix.Triple[kmeroverlap.CommonKmers]{
		{Row: 0, Col: 1, Val: edge(1, 40)},
		{Row: 2, Col: 3, Val: edge(1, 40)},
	})
	out, err := Reduce(r, 0)
	require.NoError(t, err)
	assert.Len(t, edgeSet(out), 4)
}

// S4: a four-read chain R0-R1-R2-R3 (suffix 30 each) plus a direct R0-R3
// edge of suffix 90, exactly matching the three-hop path. Removing it
// requires composing three hops, i.e. a second iteration of the fixed-point
// loop (the first marks nothing); the chain edges survive.
func TestS4FourReadChainRequiresMultipleIterations(t *testing.T) {
	r := buildR(t, 4, []matrix.Triple[kmeroverlap.CommonKmers]{
		{Row: 0, Col: 1, Val: edge(1, 30)},
		{Row: 1, Col: 2, Val: edge(2, 30)},
		{Row: 2, Col: 3, Val: edge(1, 30)},
		{Row: 0, Col: 3, Val: edge(1, 90)},
	})
	out, err := Reduce(r, 0)
	require.NoError(t, err)

	edges := edgeSet(out)
	assert.Len(t, edges, 6)
	assert.NotContains(t, edges, edgeKey{0, 3})
	assert.NotContains(t, edges, edgeKey{3, 0})
	for _, k := range []edgeKey{{0, 1}, {1, 0}, {1, 2}, {2, 1}, {2, 3}, {3, 2}} {
		assert.Contains(t, edges, k)
	}
}

// S5: running TR again on an already-reduced graph is idempotent.
func TestS5IdempotentOnAlreadyReducedGraph(t *testing.T) {
	r := buildR(t, 3, []matrix.Triple[kmeroverlap.CommonKmers]{
		{Row: 0, Col: 1, Val: edge(1, 40)},
		{Row: 1, Col: 2, Val: edge(2, 40)},
		{Row: 0, Col: 2, Val: edge(0, 80)},
	})
	reduced, err := Reduce(r, 0)
	require.NoError(t, err)

	again, err := Reduce(reduced, 0)
	require.NoError(t, err)

	before, after := edgeSet(reduced), edgeSet(again)
	require.Equal(t, len(before), len(after))
	for k, v := range before {
		assert.Equal(t, v.Dir, after[k].Dir)
		assert.Equal(t, v.Sfx, after[k].Sfx)
	}
}

func TestReduceOnSingleReadIsNoop(t *testing.T) {
	g, err := procgrid.New(2)
	require.NoError(t, err)
	r := matrix.New[kmeroverlap.CommonKmers](g, 1, 1)
	out, err := Reduce(r, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, out.NNZ())
}

func TestReduceOnNoSharedKmersIsNoop(t *testing.T) {
	g, err := procgrid.New(2)
	require.NoError(t, err)
	r := matrix.New[kmeroverlap.CommonKmers](g, 2, 2)
	out, err := Reduce(r, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, out.NNZ())
}
