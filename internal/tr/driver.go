// Package tr implements the fixed-point transitive-reduction driver:
// given a symmetric overlap matrix enriched with alignment-derived
// suffix lengths, it repeatedly computes
// two-hop paths and marks edges dominated by them, until the removed-edge
// mask stops changing for MaxIter consecutive iterations.
package tr

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/elba/internal/kmeroverlap"
	"github.com/grailbio/elba/internal/matrix"
	"github.com/grailbio/elba/internal/overlapgraph"
	"github.com/grailbio/elba/internal/spgemm"
)

// MaxIter is the number of consecutive idle iterations (no change in the
// removed-edge count) the driver waits for before declaring convergence.
const MaxIter = 15

// Reduce runs transitive reduction to a fixed point and returns the
// reduced string graph. r must already carry alignment-derived Sfx/SfxT
// and Dir/DirT fields; fuzz is the FUZZ slack added to F's suffix lengths.
func Reduce(r *matrix.DistMatrix[kmeroverlap.CommonKmers], fuzz int64) (*matrix.DistMatrix[kmeroverlap.CommonKmers], error) {
	r, err := symmetrize(r)
	if err != nil {
		return nil, errors.E(err, "tr: symmetrizing overlap matrix")
	}

	p := matrix.Convert(r, overlapgraph.ReadOverlapToOverlapPath)

	rows, cols := r.Dims()
	t := matrix.New[bool](r.Grid(), rows, cols)

	f := r.Clone()
	if err := f.Apply(kmeroverlap.PlusFuzz(fuzz)); err != nil {
		return nil, errors.E(err, "tr: building F")
	}

	sr := overlapgraph.Semiring()
	prevNNZ := t.NNZ()
	idle := 0
	for idle < MaxIter {
		n, err := spgemm.Multiply(p, r, sr)
		if err != nil {
			return nil, errors.E(err, "tr: N := P*R")
		}
		if err := n.Prune(func(v overlapgraph.OverlapPath) bool { return !v.IsIdentity() }, true); err != nil {
			return nil, errors.E(err, "tr: pruning N")
		}
		p = n

		i, err := matrix.EwiseApply(f, n, selectTransitive, false, overlapgraph.Identity())
		if err != nil {
			return nil, errors.E(err, "tr: selecting transitive edges")
		}
		if i, err = symmetrizeMask(i); err != nil {
			return nil, errors.E(err, "tr: symmetrizing transitive mask")
		}
		if err := t.AddInPlace(i, orBool); err != nil {
			return nil, errors.E(err, "tr: T := T OR I")
		}

		nnz := t.NNZ()
		if nnz == prevNNZ {
			idle++
		} else {
			idle = 0
		}
		prevNNZ = nnz
		log.Debug.Printf("tr: iteration done, T.nnz=%d idle=%d", nnz, idle)
	}

	out, err := matrix.ApplyWithDefault(r, t, removeIfMarked, false)
	if err != nil {
		return nil, errors.E(err, "tr: applying removal mask")
	}
	if err := out.Prune(func(v kmeroverlap.CommonKmers) bool { return v.Dir != kmeroverlap.InvalidDir }, true); err != nil {
		return nil, errors.E(err, "tr: pruning removed edges")
	}
	return out, nil
}

// symmetrize computes r := r + transpose(r), reflecting each payload's
// coordinates and swapping its directional fields, and keeps whichever
// side of a mirrored pair still carries a valid direction.
func symmetrize(r *matrix.DistMatrix[kmeroverlap.CommonKmers]) (*matrix.DistMatrix[kmeroverlap.CommonKmers], error) {
	out := r.Clone()
	rt, err := out.Transpose()
	if err != nil {
		return nil, err
	}
	if err := rt.Apply(kmeroverlap.Transpose); err != nil {
		return nil, err
	}
	if err := out.AddInPlace(rt, kmeroverlap.MergeKeepValid); err != nil {
		return nil, err
	}
	return out, nil
}

// symmetrizeMask mirrors a boolean transitive-edge mask: a mark at (i,j)
// implies a mark at (j,i).
func symmetrizeMask(i *matrix.DistMatrix[bool]) (*matrix.DistMatrix[bool], error) {
	it, err := i.Transpose()
	if err != nil {
		return nil, err
	}
	if err := i.AddInPlace(it, orBool); err != nil {
		return nil, err
	}
	return i, nil
}

func orBool(a, b bool) bool { return a || b }

// selectTransitive marks an edge for potential removal when its direct
// suffix length is at least as long as the two-hop path suffix length in
// the same direction -- the two-hop path dominates or ties.
func selectTransitive(r kmeroverlap.CommonKmers, n overlapgraph.OverlapPath) bool {
	return r.Dir != kmeroverlap.InvalidDir && r.Sfx >= n.Sfx[r.Dir]
}

// removeIfMarked applies the transitive-reduction mask: a marked position
// has its direction invalidated, which Reduce's final Prune then strips.
func removeIfMarked(x kmeroverlap.CommonKmers, marked bool) kmeroverlap.CommonKmers {
	if marked {
		x.Dir = kmeroverlap.InvalidDir
	}
	return x
}
