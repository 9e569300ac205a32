// Package overlapgraph implements the min-plus semiring used by the
// transitive-reduction driver's P = P*R power iteration.
package overlapgraph

import (
	"math"

	"github.com/grailbio/elba/internal/kmeroverlap"
	"github.com/grailbio/elba/internal/spgemm"
)

// Infinity stands in for the suffix lengths of a direction with no known
// path; it must exceed any realistic sum of real suffix lengths without
// overflowing on addition.
const Infinity int64 = math.MaxInt32

// OverlapPath is the value type of the power matrix P: a bundle of four
// directional suffix lengths, one per (tail, head) orientation pair.
type OverlapPath struct {
	Sfx [4]int64
}

// Identity is the min-plus additive identity: no known path in any
// direction.
func Identity() OverlapPath {
	return OverlapPath{Sfx: [4]int64{Infinity, Infinity, Infinity, Infinity}}
}

// IsIdentity reports whether p carries no finite path in any direction.
func (p OverlapPath) IsIdentity() bool {
	for _, s := range p.Sfx {
		if s != Infinity {
			return false
		}
	}
	return true
}

// arrows decodes a packed direction dir = 2*t + h into its tail indicator
// t and head indicator h, each in {0, 1}.
func arrows(dir int8) (t, h int) {
	return int(dir) / 2, int(dir) % 2
}

// ReadOverlapToOverlapPath re-types a single CommonKmers edge record into
// an OverlapPath, placing its sfx into the direction its dir field names
// and leaving the other three directions at +Infinity. An invalid record
// (Dir == InvalidDir) becomes the identity.
func ReadOverlapToOverlapPath(r kmeroverlap.CommonKmers) OverlapPath {
	p := Identity()
	if r.Dir == kmeroverlap.InvalidDir {
		return p
	}
	p.Sfx[r.Dir] = r.Sfx
	return p
}

// Add is the min-plus semiring's additive operator: component-wise
// minimum, so the shortest known two-hop path in each direction wins.
func Add(x, y OverlapPath) OverlapPath {
	var out OverlapPath
	for i := range out.Sfx {
		out.Sfx[i] = min64(x.Sfx[i], y.Sfx[i])
	}
	return out
}

// Multiply composes a power-matrix edge p with an overlap edge r into a
// two-hop path edge: for every finite direction of p exposing (t1, h1),
// and r's single direction
// exposing (t2, h2), the hop chains when t2 == h1, contributing
// p.Sfx[dir1]+r.Sfx into the result's direction 2*t1+h2. Non-chaining or
// invalid inputs contribute nothing and the result defaults to Identity.
func Multiply(p OverlapPath, r kmeroverlap.CommonKmers) OverlapPath {
	result := Identity()
	if r.Dir == kmeroverlap.InvalidDir {
		return result
	}
	t2, h2 := arrows(r.Dir)
	for dir1 := 0; dir1 < 4; dir1++ {
		if p.Sfx[dir1] == Infinity {
			continue
		}
		t1, h1 := arrows(int8(dir1))
		if t2 != h1 {
			continue
		}
		idx := 2*t1 + h2
		cand := p.Sfx[dir1] + r.Sfx
		if cand < result.Sfx[idx] {
			result.Sfx[idx] = cand
		}
	}
	return result
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Semiring returns the min-plus (P, R) -> P semiring used by the TR
// driver's N := P*R step.
func Semiring() spgemm.Semiring[OverlapPath, kmeroverlap.CommonKmers, OverlapPath] {
	return spgemm.Semiring[OverlapPath, kmeroverlap.CommonKmers, OverlapPath]{
		ID:       Identity,
		Add:      Add,
		Multiply: Multiply,
	}
}
