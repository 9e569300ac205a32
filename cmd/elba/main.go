// Command elba builds a string graph from a FASTA file of long reads: it
// seeds candidate overlaps from shared k-mers, aligns each candidate, and
// transitively reduces the resulting overlap graph.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/elba/internal/align"
	"github.com/grailbio/elba/internal/config"
	"github.com/grailbio/elba/internal/fasta"
	"github.com/grailbio/elba/internal/kmer"
	"github.com/grailbio/elba/internal/kmeroverlap"
	"github.com/grailbio/elba/internal/matrix"
	"github.com/grailbio/elba/internal/mm"
	"github.com/grailbio/elba/internal/overlapgraph"
	"github.com/grailbio/elba/internal/procgrid"
	"github.com/grailbio/elba/internal/spgemm"
	"github.com/grailbio/elba/internal/tr"
)

func main() {
	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Error.Printf("elba: %v", err)
		os.Exit(-1)
	}

	t0 := time.Now()
	if err := run(ctx, cfg); err != nil {
		log.Fatalf("elba: %v", err)
	}
	log.Printf("elba: finished in %v", time.Since(t0))
}

// run wires the pipeline: load reads, build the k-mer incidence matrix,
// discover candidate overlaps via B = A*At under the k-mer intersection
// semiring, align every candidate, transitively reduce, and write outputs.
func run(ctx context.Context, cfg config.Config) error {
	reads, err := fasta.Load(ctx, cfg.InputPath)
	if err != nil {
		return errors.E(err, "loading reads")
	}
	if len(reads) != cfg.SeqCount {
		log.Error.Printf("elba: expected %d sequences, found %d", cfg.SeqCount, len(reads))
	}
	if err := writeIndexMap(ctx, cfg.IndexMapPath, reads); err != nil {
		return errors.E(err, "writing index map")
	}

	gridDim := gridDimFor(len(reads))
	grid, err := procgrid.New(gridDim)
	if err != nil {
		return errors.E(err, "building process grid")
	}

	a, numKmers, err := buildKmerMatrix(grid, reads, cfg.KmerLength, cfg.KmerStride)
	if err != nil {
		return errors.E(err, "building k-mer matrix")
	}
	log.Debug.Printf("elba: A is %d reads x %d distinct k-mers", len(reads), numKmers)

	at, err := a.Transpose()
	if err != nil {
		return errors.E(err, "transposing k-mer matrix")
	}

	sr := spgemm.Semiring[kmeroverlap.PosInRead, kmeroverlap.PosInRead, kmeroverlap.CommonKmers]{
		ID:       kmeroverlap.Id,
		Add:      kmeroverlap.NewAdd(cfg.SeedCount),
		Multiply: kmeroverlap.Multiply,
	}
	b, err := spgemm.Multiply(a, at, sr)
	if err != nil {
		return errors.E(err, "computing overlap candidates")
	}
	if err := b.Prune(func(v kmeroverlap.CommonKmers) bool { return !v.IsId() }, true); err != nil {
		return errors.E(err, "pruning empty overlap candidates")
	}
	log.Debug.Printf("elba: %d candidate overlaps", b.NNZ())

	aligner := buildAligner(cfg)
	b, err = enrich(ctx, b, reads, aligner)
	if err != nil {
		return errors.E(err, "aligning overlap candidates")
	}

	if cfg.OverlapOutputPath != "" {
		if err := mm.WriteOverlapGraph(ctx, cfg.OverlapOutputPath, b); err != nil {
			return errors.E(err, "writing overlap graph")
		}
	}

	reduced, err := tr.Reduce(b, cfg.Fuzz)
	if err != nil {
		return errors.E(err, "running transitive reduction")
	}
	log.Debug.Printf("elba: string graph has %d edges", reduced.NNZ())

	if cfg.StringGraphOutputPath != "" {
		if err := mm.WriteStringGraph(ctx, cfg.StringGraphOutputPath, reduced); err != nil {
			return errors.E(err, "writing string graph")
		}
	}
	return nil
}

// gridDimFor picks sqrt(p) so that the simulated process grid has roughly
// one cell per read, capped to keep the in-process fan-out reasonable.
func gridDimFor(numReads int) int {
	dim := 1
	for dim*dim < numReads && dim < 8 {
		dim++
	}
	return dim
}

// readOccurrence is one (read index, canonical k-mer, position) hit, the
// raw material for a column of A before k-mers have been assigned indices.
type readOccurrence struct {
	ri    int
	canon kmer.Kmer
	pos   kmeroverlap.PosInRead
}

// buildKmerMatrix assigns each distinct canonical k-mer a column index in
// order of first appearance and returns the reads x k-mers incidence
// matrix A, whose value at (read, kmer) is the position within the read.
//
// K-mer enumeration for a read runs on the grid rank that owns it
// (fasta.OwnerRank), the same read-to-rank assignment a distributed FASTA
// loader would use to decide which process reads which record; A's actual
// storage partition is then the block-cyclic row/column split FromTriples
// applies independently of that ownership.
func buildKmerMatrix(grid *procgrid.Grid, reads []fasta.Read, k, stride int) (*matrix.DistMatrix[kmeroverlap.PosInRead], int64, error) {
	if stride < 1 {
		stride = 1
	}

	dim := grid.Dim()
	owned := make([][]int, dim*dim)
	for ri, r := range reads {
		rank := fasta.OwnerRank(grid, r.ID)
		i := grid.RankOf(rank.Row, rank.Col)
		owned[i] = append(owned[i], ri)
	}

	perRank := make([][]readOccurrence, dim*dim)
	err := traverse.Each(dim*dim, func(i int) error {
		var occs []readOccurrence
		for _, ri := range owned[i] {
			for _, occ := range kmer.Occurrences(reads[ri].Seq, k) {
				if int(occ.Pos)%stride != 0 {
					continue
				}
				canon, _ := occ.Canonical()
				occs = append(occs, readOccurrence{ri: ri, canon: canon, pos: kmeroverlap.PosInRead(occ.Pos)})
			}
		}
		perRank[i] = occs
		return nil
	})
	if err != nil {
		return nil, 0, errors.E(err, "building k-mer matrix")
	}

	var all []readOccurrence
	for _, occs := range perRank {
		all = append(all, occs...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ri < all[j].ri })

	colOf := map[kmer.Kmer]int64{}
	triples := make([]matrix.Triple[kmeroverlap.PosInRead], 0, len(all))
	for _, occ := range all {
		col, ok := colOf[occ.canon]
		if !ok {
			col = int64(len(colOf))
			colOf[occ.canon] = col
		}
		triples = append(triples, matrix.Triple[kmeroverlap.PosInRead]{
			Row: int64(occ.ri), Col: col, Val: occ.pos,
		})
	}

	a, err := matrix.FromTriples(grid, int64(len(reads)), int64(len(colOf)), triples, firstPos)
	if err != nil {
		return nil, 0, err
	}
	return a, int64(len(colOf)), nil
}

func firstPos(a, b kmeroverlap.PosInRead) kmeroverlap.PosInRead { return a }

func buildAligner(cfg config.Config) align.Aligner {
	switch cfg.Align {
	case config.AlignNone:
		return align.None{SeedLength: int32(cfg.KmerLength)}
	case config.AlignXDrop:
		return align.XDrop{XDrop: int32(cfg.XDrop), SeedLength: int32(cfg.KmerLength)}
	default:
		return align.Full{SeedLength: int32(cfg.KmerLength)}
	}
}

// enrich runs the aligner over every candidate overlap's best seed pair
// and rebuilds the overlap matrix with the resulting alignment-derived
// suffix lengths and direction flags, between overlap discovery and
// transitive reduction.
func enrich(ctx context.Context, b *matrix.DistMatrix[kmeroverlap.CommonKmers], reads []fasta.Read, aligner align.Aligner) (*matrix.DistMatrix[kmeroverlap.CommonKmers], error) {
	var (
		rows, cols []int64
		seeds      []align.Seed
	)
	b.ForEach(func(r, c int64, v kmeroverlap.CommonKmers) {
		if len(v.Pairs) == 0 {
			return
		}
		seed := v.Pairs[0]
		rows = append(rows, r)
		cols = append(cols, c)
		seeds = append(seeds, align.Seed{
			SeqH: reads[r].Seq, SeqV: reads[c].Seq,
			PosH: int32(seed.PosH), PosV: int32(seed.PosV),
		})
	})
	if len(rows) == 0 {
		return b, nil
	}
	results, err := aligner.RunBatch(ctx, seeds)
	if err != nil {
		return nil, err
	}

	out := make([]matrix.Triple[kmeroverlap.CommonKmers], len(rows))
	for i := range rows {
		res := results[i]
		c := kmeroverlap.CommonKmers{
			Score:  res.Score,
			BeginH: res.BeginH, EndH: res.EndH,
			BeginV: res.BeginV, EndV: res.EndV,
			LenH: int32(len(reads[rows[i]].Seq)),
			LenV: int32(len(reads[cols[i]].Seq)),
		}
		deriveSuffixAndDirection(&c)
		out[i] = matrix.Triple[kmeroverlap.CommonKmers]{Row: rows[i], Col: cols[i], Val: c}
	}
	rowCount, colCount := b.Dims()
	return matrix.FromTriples(b.Grid(), rowCount, colCount, out, nil)
}

// deriveSuffixAndDirection computes the overlap's directional suffix
// lengths from its alignment span: each read's unaligned overhang is
// whichever end -- before BeginX or after EndX -- has more bases, and the
// opposite end is the one that continues the alignment.
func deriveSuffixAndDirection(c *kmeroverlap.CommonKmers) {
	hTailFree := (c.LenH - c.EndH) >= c.BeginH
	vTailFree := (c.LenV - c.EndV) >= c.BeginV

	if hTailFree {
		c.Sfx = int64(c.LenH - c.EndH)
	} else {
		c.Sfx = int64(c.BeginH)
	}
	if vTailFree {
		c.SfxT = int64(c.LenV - c.EndV)
	} else {
		c.SfxT = int64(c.BeginV)
	}

	tBit, hBit := 0, 0
	if hTailFree {
		tBit = 1
	}
	if vTailFree {
		hBit = 1
	}
	c.Dir = int8(2*tBit + hBit)

	tBitT, hBitT := 0, 0
	if vTailFree {
		tBitT = 1
	}
	if hTailFree {
		hBitT = 1
	}
	c.DirT = int8(2*tBitT + hBitT)
}

func writeIndexMap(ctx context.Context, path string, reads []fasta.Read) error {
	if path == "" {
		return nil
	}
	f, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	w := f.Writer(ctx)
	for i, r := range reads {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", i, r.ID); err != nil {
			return err
		}
	}
	return f.Close(ctx)
}
