package align

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXDropExtendsFullOverlapExactly(t *testing.T) {
	h := "ACGTACGTACGT"
	v := "ACGTACGTACGT"
	a := XDrop{XDrop: 5, SeedLength: 4}
	res, err := a.RunBatch(context.Background(), []Seed{{SeqH: h, SeqV: v, PosH: 4, PosV: 4}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.EqualValues(t, 0, res[0].BeginH)
	assert.EqualValues(t, len(h), res[0].EndH)
	assert.EqualValues(t, 0, res[0].BeginV)
	assert.EqualValues(t, len(v), res[0].EndV)
}

func TestXDropStopsAtMismatchRun(t *testing.T) {
	h := "ACGTACGTTTTT"
	v := "ACGTACGTAAAA"
	a := XDrop{XDrop: 1, SeedLength: 4}
	res, err := a.RunBatch(context.Background(), []Seed{{SeqH: h, SeqV: v, PosH: 0, PosV: 0}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Less(t, res[0].EndH, int32(len(h)))
}

func TestFullExtendsMatchingRegion(t *testing.T) {
	a := Full{SeedLength: 3}
	res, err := a.RunBatch(context.Background(), []Seed{{SeqH: "AAACCC", SeqV: "AAACCC", PosH: 0, PosV: 0}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.EqualValues(t, 6, res[0].EndH)
}

func TestNoneReportsSeedSpanVerbatim(t *testing.T) {
	n := None{SeedLength: 16}
	res, err := n.RunBatch(context.Background(), []Seed{{PosH: 5, PosV: 9}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.EqualValues(t, 5, res[0].BeginH)
	assert.EqualValues(t, 21, res[0].EndH)
	assert.EqualValues(t, 9, res[0].BeginV)
	assert.EqualValues(t, 25, res[0].EndV)
}

func TestRunBatchedSplitsAcrossBatchSize(t *testing.T) {
	seeds := make([]Seed, BatchSize+10)
	for i := range seeds {
		seeds[i] = Seed{PosH: int32(i), PosV: int32(i)}
	}
	n := None{SeedLength: 1}
	res, err := runBatched(context.Background(), seeds, n.RunBatch)
	require.NoError(t, err)
	assert.Len(t, res, len(seeds))
}

func TestRunBatchEmptyInput(t *testing.T) {
	a := XDrop{XDrop: 5, SeedLength: 4}
	res, err := a.RunBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res)
}
