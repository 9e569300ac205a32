// Package align defines the seed-extension aligner capability the
// pipeline enriches overlap candidates with between SpGEMM and transitive
// reduction, plus three interchangeable variants.
package align

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
)

// Seed is one candidate overlap to extend: two read sequences and a seed
// position pair inside them.
type Seed struct {
	SeqH, SeqV string
	PosH, PosV int32
}

// Result is the alignment-derived evidence attached back to a CommonKmers
// cell: an alignment score and the aligned span on each sequence.
type Result struct {
	Score        int32
	BeginH, EndH int32
	BeginV, EndV int32
}

// Aligner is the capability the pipeline consumes between overlap
// discovery and transitive reduction; concrete variants are selected once
// at startup and never share state.
type Aligner interface {
	RunBatch(ctx context.Context, batch []Seed) ([]Result, error)
}

// BatchSize bounds how many alignments are dispatched to a single worker
// at once, mirroring the original GPU aligner's 100K-alignment load
// balancing chunk.
const BatchSize = 100000

// runBatched splits batch into BatchSize-sized chunks and runs extend over
// each concurrently via a fork-join pool, one task per chunk -- the
// in-process analogue of one OMP thread per GPU device.
func runBatched(ctx context.Context, batch []Seed, extend func(context.Context, []Seed) ([]Result, error)) ([]Result, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	nChunks := (len(batch) + BatchSize - 1) / BatchSize
	results := make([][]Result, nChunks)
	err := traverse.Each(nChunks, func(i int) error {
		lo := i * BatchSize
		hi := lo + BatchSize
		if hi > len(batch) {
			hi = len(batch)
		}
		r, err := extend(ctx, batch[lo:hi])
		if err != nil {
			return err
		}
		results[i] = r
		return nil
	})
	if err != nil {
		return nil, errors.E(err, "align: running batch")
	}
	out := make([]Result, 0, len(batch))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// XDrop extends each seed along its diagonal without gaps, X-drop
// terminated: in each direction the score stops accumulating and the
// alignment is reported once it falls XDrop below the best score seen so
// far. No gaps are opened.
type XDrop struct {
	XDrop      int32
	SeedLength int32
}

// RunBatch implements Aligner.
func (x XDrop) RunBatch(ctx context.Context, batch []Seed) ([]Result, error) {
	return runBatched(ctx, batch, func(_ context.Context, chunk []Seed) ([]Result, error) {
		out := make([]Result, len(chunk))
		for i, s := range chunk {
			out[i] = extendXDrop(s, x.XDrop, x.SeedLength)
		}
		return out, nil
	})
}

// extendXDrop extends a seed outward in both directions, greedily
// matching bases and stopping a direction once its running score has
// fallen xdrop below the best score seen in that direction.
func extendXDrop(s Seed, xdrop, seedLength int32) Result {
	matchScore, mismatchScore := int32(1), int32(-1)

	extend := func(forward bool) (int32, int32, int32) {
		var score, best, bestOffset int32
		h, v := int(s.PosH)+int(seedLength), int(s.PosV)+int(seedLength)
		if !forward {
			h, v = int(s.PosH)-1, int(s.PosV)-1
		}
		offset := int32(0)
		for {
			var hi, vi int
			if forward {
				hi, vi = h+int(offset), v+int(offset)
			} else {
				hi, vi = h-int(offset), v-int(offset)
			}
			if hi < 0 || vi < 0 || hi >= len(s.SeqH) || vi >= len(s.SeqV) {
				break
			}
			if s.SeqH[hi] == s.SeqV[vi] {
				score += matchScore
			} else {
				score += mismatchScore
			}
			if score > best {
				best = score
				bestOffset = offset + 1
			} else if best-score > xdrop {
				break
			}
			offset++
		}
		return best, bestOffset, offset
	}

	fwdScore, fwdLen, _ := extend(true)
	revScore, revLen, _ := extend(false)

	return Result{
		Score:  seedLength + fwdScore + revScore,
		BeginH: s.PosH - revLen,
		EndH:   s.PosH + seedLength + fwdLen,
		BeginV: s.PosV - revLen,
		EndV:   s.PosV + seedLength + fwdLen,
	}
}

// Full extends every seed along its diagonal in both directions for as
// long as the bases match exactly, up to the end of either sequence. It
// opens no gaps and stops at the first mismatch.
type Full struct {
	SeedLength int32
}

// RunBatch implements Aligner.
func (f Full) RunBatch(ctx context.Context, batch []Seed) ([]Result, error) {
	return runBatched(ctx, batch, func(_ context.Context, chunk []Seed) ([]Result, error) {
		out := make([]Result, len(chunk))
		for i, s := range chunk {
			out[i] = extendFull(s, f.SeedLength)
		}
		return out, nil
	})
}

func extendFull(s Seed, seedLength int32) Result {
	matchRun := func(forward bool) int32 {
		var n int32
		h, v := int(s.PosH)+int(seedLength), int(s.PosV)+int(seedLength)
		if !forward {
			h, v = int(s.PosH)-1, int(s.PosV)-1
		}
		for {
			var hi, vi int
			if forward {
				hi, vi = h+int(n), v+int(n)
			} else {
				hi, vi = h-int(n), v-int(n)
			}
			if hi < 0 || vi < 0 || hi >= len(s.SeqH) || vi >= len(s.SeqV) || s.SeqH[hi] != s.SeqV[vi] {
				break
			}
			n++
		}
		return n
	}
	fwdLen := matchRun(true)
	revLen := matchRun(false)
	return Result{
		Score:  seedLength + fwdLen + revLen,
		BeginH: s.PosH - revLen,
		EndH:   s.PosH + seedLength + fwdLen,
		BeginV: s.PosV - revLen,
		EndV:   s.PosV + seedLength + fwdLen,
	}
}

// None performs no alignment: it reports the seed itself as the entire
// aligned region, for pipelines that skip enrichment entirely.
type None struct {
	SeedLength int32
}

// RunBatch implements Aligner.
func (n None) RunBatch(_ context.Context, batch []Seed) ([]Result, error) {
	out := make([]Result, len(batch))
	for i, s := range batch {
		out[i] = Result{
			Score:  n.SeedLength,
			BeginH: s.PosH,
			EndH:   s.PosH + n.SeedLength,
			BeginV: s.PosV,
			EndV:   s.PosV + n.SeedLength,
		}
	}
	return out, nil
}
