// Package kmeroverlap implements the k-mer intersection semiring used to
// compute B = A*At, where A is the reads x k-mers incidence matrix.
package kmeroverlap

import "sort"

// PosInRead is a non-negative position of a k-mer occurrence within its
// source read; it is the value type of matrix A.
type PosInRead int32

// SeedPair is one retained pair of seed positions: posH in the row-read,
// posV in the column-read.
type SeedPair struct {
	PosH, PosV PosInRead
}

// InvalidDir marks a direction/orientation field as no longer meaningful,
// the sentinel TR uses to flag an edge for removal.
const InvalidDir int8 = -1

// CommonKmers is the value type of B (and, pre-transitive-reduction, of R):
// a bounded buffer of shared k-mer seed positions. After alignment each cell
// is replaced by a new record carrying the derived alignment and overlap
// fields; that record holds no seed pairs.
type CommonKmers struct {
	Pairs []SeedPair

	Score                  int32
	BeginH, EndH, LenH     int32
	BeginV, EndV, LenV     int32
	Sfx, SfxT              int64
	Dir, DirT              int8
	RC, Transpose          bool
}

// Id is the additive identity of the k-mer intersection semiring: no
// shared seed positions.
func Id() CommonKmers { return CommonKmers{} }

// IsId reports whether c carries no seed evidence at all, the condition
// SpGEMM's caller prunes on.
func (c CommonKmers) IsId() bool { return len(c.Pairs) == 0 }

// IsInvalid reports whether c has been marked for removal by transitive
// reduction.
func (c CommonKmers) IsInvalid() bool { return c.Dir == InvalidDir }

// Multiply produces the single-pair CommonKmers for one shared k-mer
// occurrence at row-read position posH and column-read position posV.
func Multiply(posH, posV PosInRead) CommonKmers {
	return CommonKmers{Pairs: []SeedPair{{PosH: posH, PosV: posV}}}
}

// NewAdd returns the semiring's add operation, bound to a maximum retained
// seed count maxSeeds (default 2). It merges two
// CommonKmers buffers, keeping at most maxSeeds pairs chosen to maximize
// the geometric separation between retained seed positions -- the two most
// distant shared k-mer hits make the best independent seeds for
// extension. Ties are broken by ascending lexicographic (posH, posV),
// fixing the cross-rank non-determinism the Open Questions section flags.
func NewAdd(maxSeeds int) func(CommonKmers, CommonKmers) CommonKmers {
	return func(x, y CommonKmers) CommonKmers {
		merged := make([]SeedPair, 0, len(x.Pairs)+len(y.Pairs))
		merged = append(merged, x.Pairs...)
		merged = append(merged, y.Pairs...)
		return CommonKmers{Pairs: selectSeeds(merged, maxSeeds)}
	}
}

// selectSeeds dedupes and keeps at most maxSeeds pairs from candidates,
// preferring the pair of pairs with the largest total positional
// separation and falling back to every remaining pair in ascending
// lexicographic order when there are maxSeeds or fewer.
func selectSeeds(candidates []SeedPair, maxSeeds int) []SeedPair {
	uniq := dedupeSeeds(candidates)
	sort.Slice(uniq, func(i, j int) bool {
		if uniq[i].PosH != uniq[j].PosH {
			return uniq[i].PosH < uniq[j].PosH
		}
		return uniq[i].PosV < uniq[j].PosV
	})
	if len(uniq) <= maxSeeds {
		return uniq
	}
	if maxSeeds <= 0 {
		return nil
	}
	if maxSeeds == 1 {
		return uniq[:1]
	}

	// Retain the two most distant pairs (by L1 separation |dH|+|dV| in
	// (posH, posV) space), then round out the rest in lexicographic order.
	bestI, bestJ := 0, 1
	bestSep := int64(-1)
	for i := 0; i < len(uniq); i++ {
		for j := i + 1; j < len(uniq); j++ {
			sep := separation(uniq[i], uniq[j])
			if sep > bestSep {
				bestSep = sep
				bestI, bestJ = i, j
			}
		}
	}
	out := []SeedPair{uniq[bestI], uniq[bestJ]}
	for _, p := range uniq {
		if len(out) >= maxSeeds {
			break
		}
		if p == uniq[bestI] || p == uniq[bestJ] {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PosH != out[j].PosH {
			return out[i].PosH < out[j].PosH
		}
		return out[i].PosV < out[j].PosV
	})
	return out
}

func dedupeSeeds(in []SeedPair) []SeedPair {
	seen := make(map[SeedPair]bool, len(in))
	out := make([]SeedPair, 0, len(in))
	for _, p := range in {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func separation(a, b SeedPair) int64 {
	dh := int64(a.PosH) - int64(b.PosH)
	dv := int64(a.PosV) - int64(b.PosV)
	if dh < 0 {
		dh = -dh
	}
	if dv < 0 {
		dv = -dv
	}
	return dh + dv
}

// Transpose reflects a CommonKmers record's coordinates and direction
// fields against the recorded read lengths, used to derive R's mirror
// edge (j, i) from (i, j) during symmetrization.
func Transpose(x CommonKmers) CommonKmers {
	xt := x
	xt.BeginH = x.LenV - x.EndV
	xt.EndH = x.LenV - x.BeginV
	xt.BeginV = x.LenH - x.EndH
	xt.EndV = x.LenH - x.BeginH
	xt.LenH, xt.LenV = x.LenV, x.LenH
	xt.Sfx, xt.SfxT = x.SfxT, x.Sfx
	xt.Dir, xt.DirT = x.DirT, x.Dir
	xt.Transpose = !x.Transpose
	return xt
}

// MergeKeepValid implements the R += Rt "operator+" used by symmetrize: it
// keeps whichever side still has a valid (non-removed) direction, so
// symmetrize is idempotent.
func MergeKeepValid(x, y CommonKmers) CommonKmers {
	if x.Dir == InvalidDir {
		return y
	}
	return x
}

// PlusFuzz adds a constant slack to both suffix lengths, used to build F
// from R before transitive selection.
func PlusFuzz(fuzz int64) func(CommonKmers) CommonKmers {
	return func(x CommonKmers) CommonKmers {
		x.Sfx += fuzz
		x.SfxT += fuzz
		return x
	}
}
