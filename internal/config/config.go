// Package config gathers every CLI-derived setting into one immutable
// record at startup. No stage re-reads flag.CommandLine after Parse
// returns.
package config

import (
	"flag"
	"fmt"

	"github.com/grailbio/base/errors"
)

// AlignMode selects which align.Aligner variant the pipeline constructs.
type AlignMode int

const (
	// AlignNone skips alignment enrichment entirely.
	AlignNone AlignMode = iota
	// AlignFull extends every candidate's seed by exact matches only.
	AlignFull
	// AlignXDrop runs an ungapped X-drop-terminated seed extension.
	AlignXDrop
)

// Config is the immutable, fully-resolved set of parameters every pipeline
// stage reads from, assembled once in Parse.
type Config struct {
	InputPath    string // -i
	IndexMapPath string // --idxmap
	SeqCount     int    // -c
	KmerLength   int    // -k
	KmerStride   int    // -s
	SeedCount    int    // --sc
	MatchScore   int    // --ma
	MismatchScore int   // --mi
	GapOpen      int    // -g
	GapExt       int    // -e
	Fuzz         int64  // --fuzz
	Alphabet     string // --alph

	Align      AlignMode
	XDrop      int // --xa
	OverlapOutputPath string // overlap graph Matrix Market path
	StringGraphOutputPath string // string graph Matrix Market path
}

// Parse builds a Config from args (typically os.Args[1:]), returning a
// configuration error if a required flag is missing or the alphabet is
// unrecognized. The caller reports these and exits with a non-zero status
// rather than panicking.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("elba", flag.ContinueOnError)

	var (
		input     = fs.String("i", "", "Input FASTA file containing long reads.")
		idxMap    = fs.String("idxmap", "", "Path to write the read-index-to-name map.")
		seqCount  = fs.Int("c", 0, "Number of sequences in the input file.")
		kmerLen   = fs.Int("k", 17, "Length of k-mer used as overlap seeds.")
		kmerStride = fs.Int("s", 1, "Stride between sampled k-mer start positions.")
		seedCount = fs.Int("sc", 2, "Max seed-position pairs retained per overlap candidate.")
		match     = fs.Int("ma", 1, "Match score.")
		mismatch  = fs.Int("mi", -1, "Mismatch score.")
		gapOpen   = fs.Int("g", 0, "Gap open penalty.")
		gapExt    = fs.Int("e", -1, "Gap extension penalty.")
		fuzz      = fs.Int64("fuzz", 10, "Suffix-length slack tolerated when comparing direct vs two-hop overlaps during transitive reduction.")
		alph      = fs.String("alph", "dna", "Sequence alphabet (only \"dna\" is supported).")
		noAlign   = fs.Bool("na", false, "Skip alignment enrichment entirely.")
		fullAlign = fs.Bool("fa", false, "Extend seeds by exact matches only (no gaps or mismatches).")
		xdropAlign = fs.Int("xa", -1, "Run ungapped X-drop seed extension with the given drop threshold.")
		overlapOut = fs.String("overlap-output", "", "Path to write the pre-reduction overlap graph (Matrix Market).")
		stringOut  = fs.String("string-graph-output", "", "Path to write the transitively-reduced string graph (Matrix Market).")
	)
	if err := fs.Parse(args); err != nil {
		return Config{}, errors.E(err, "config: parsing flags")
	}

	if *input == "" {
		return Config{}, errors.E("config: input file not specified (-i)")
	}
	if *idxMap == "" {
		return Config{}, errors.E("config: index map file not specified (--idxmap)")
	}
	if *seqCount <= 0 {
		return Config{}, errors.E("config: sequence count not specified or non-positive (-c)")
	}
	if *kmerLen <= 0 {
		return Config{}, errors.E("config: kmer length must be positive (-k)")
	}
	if *alph != "dna" {
		return Config{}, errors.E(fmt.Sprintf("config: unsupported alphabet %q (--alph)", *alph))
	}

	align := AlignXDrop
	switch {
	case *noAlign:
		align = AlignNone
	case *fullAlign:
		align = AlignFull
	case *xdropAlign < 0:
		align = AlignFull
	}

	return Config{
		InputPath:             *input,
		IndexMapPath:          *idxMap,
		SeqCount:              *seqCount,
		KmerLength:            *kmerLen,
		KmerStride:            *kmerStride,
		SeedCount:             *seedCount,
		MatchScore:            *match,
		MismatchScore:         *mismatch,
		GapOpen:               *gapOpen,
		GapExt:                *gapExt,
		Fuzz:                  *fuzz,
		Alphabet:              *alph,
		Align:                 align,
		XDrop:                 *xdropAlign,
		OverlapOutputPath:     *overlapOut,
		StringGraphOutputPath: *stringOut,
	}, nil
}
