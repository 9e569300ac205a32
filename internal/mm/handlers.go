// Package mm provides the Matrix Market payload formatter and writers for
// the two matrices the pipeline writes to disk: the pre-reduction overlap
// matrix and the transitively-reduced string graph. Both hold the same
// alignment-enriched CommonKmers cell type.
package mm

import (
	"context"
	"fmt"

	"github.com/grailbio/elba/internal/kmeroverlap"
	"github.com/grailbio/elba/internal/matrix"
)

// CommonKmers formats one overlap-graph edge as "score beginH endH beginV
// endV sfx sfxT dir dirT rc", the fields alignment enriches each cell
// with.
func CommonKmers(c kmeroverlap.CommonKmers) string {
	rc := 0
	if c.RC {
		rc = 1
	}
	return fmt.Sprintf("%d %d %d %d %d %d %d %d %d %d",
		c.Score, c.BeginH, c.EndH, c.BeginV, c.EndV, c.Sfx, c.SfxT, c.Dir, c.DirT, rc)
}

// WriteOverlapGraph writes the pre-transitive-reduction symmetric overlap
// matrix to path in Matrix Market format.
func WriteOverlapGraph(ctx context.Context, path string, r *matrix.DistMatrix[kmeroverlap.CommonKmers]) error {
	return matrix.ParallelWriteMM(ctx, path, r, "real", CommonKmers)
}

// WriteStringGraph writes the transitively-reduced string graph to path in
// Matrix Market format; the value shape is identical to the pre-reduction
// overlap graph, only its sparsity pattern has changed.
func WriteStringGraph(ctx context.Context, path string, r *matrix.DistMatrix[kmeroverlap.CommonKmers]) error {
	return matrix.ParallelWriteMM(ctx, path, r, "real", CommonKmers)
}
