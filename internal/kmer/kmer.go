// Package kmer packs fixed-length substrings of a read into a 2-bit
// encoding and enumerates every occurrence (forward and reverse
// complement), the seed alphabet matrix A's rows are built from. Adapted
// from the fusion package's kmerizer.
package kmer

import (
	"github.com/grailbio/base/simd"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/elba/biosimd"
)

const invalidBase = uint8(255)

var (
	asciiToBase           [256]uint8
	asciiToComplementBase [256]uint8
)

func init() {
	for i := range asciiToBase {
		asciiToBase[i] = invalidBase
		asciiToComplementBase[i] = invalidBase
	}
	asciiToBase['A'], asciiToBase['a'] = 0, 0
	asciiToBase['C'], asciiToBase['c'] = 1, 1
	asciiToBase['G'], asciiToBase['g'] = 2, 2
	asciiToBase['T'], asciiToBase['t'] = 3, 3

	asciiToComplementBase['A'], asciiToComplementBase['a'] = 3, 3
	asciiToComplementBase['C'], asciiToComplementBase['c'] = 2, 2
	asciiToComplementBase['G'], asciiToComplementBase['g'] = 1, 1
	asciiToComplementBase['T'], asciiToComplementBase['t'] = 0, 0
}

// Kmer is a compact 2-bit-per-base encoding of a sequence of ACGT, up to
// 32 bases.
type Kmer uint64

// invalid is a sentinel Kmer returned for a window containing an
// ambiguous base.
const invalid = Kmer(0xffffffffffffffff)

// Occurrence is one k-mer window: its position in the read and its
// forward and reverse-complement encodings, from which Canonical derives
// the seed key used in matrix A.
type Occurrence struct {
	Pos     int32
	Forward Kmer
	RevComp Kmer
	RC      bool
}

// Canonical returns the strand-independent seed key for this occurrence:
// the smaller of the forward and reverse-complement encodings, plus
// whether the reverse complement was chosen.
func (o Occurrence) Canonical() (Kmer, bool) {
	if o.Forward <= o.RevComp {
		return o.Forward, false
	}
	return o.RevComp, true
}

func asciiToKmer(seq string) Kmer {
	var k Kmer
	for _, ch := range []byte(seq) {
		b := asciiToBase[ch]
		if b == invalidBase {
			return invalid
		}
		k = (k << 2) | Kmer(b)
	}
	return k
}

func nextAmbiguousPosition(seq string, si int) int {
	for i := si; i < len(seq); i++ {
		if asciiToBase[seq[i]] == invalidBase {
			return i
		}
	}
	return len(seq)
}

// Scanner enumerates every k-mer window of a read in position order,
// sliding one base at a time and maintaining both the forward and
// reverse-complement encodings incrementally.
type Scanner struct {
	k       int
	mask    Kmer
	tmpSeq  []byte
	seq     string
	si      int
	cur     Occurrence
	started bool
}

// NewScanner returns a Scanner for k-mers of length k (k must be in
// [1, 32]).
func NewScanner(k int) *Scanner {
	return &Scanner{
		k:    k,
		mask: ^(Kmer(0xffffffffffffffff) << Kmer(k*2)),
	}
}

// Reset prepares the scanner to enumerate seq's k-mers from position 0.
func (s *Scanner) Reset(seq string) {
	s.seq = seq
	s.si = 0
	s.started = false
}

// Scan advances to the next valid k-mer window, returning false once the
// read is exhausted. Windows containing an ambiguous (non-ACGT) base are
// skipped.
func (s *Scanner) Scan() bool {
	if s.started && s.si+s.k <= len(s.seq) {
		nextCh := s.seq[s.si+s.k-1]
		if b := asciiToBase[nextCh]; b != invalidBase {
			s.cur.Pos = int32(s.si)
			s.cur.Forward = ((s.cur.Forward << 2) | Kmer(b)) & s.mask
			shift := Kmer(s.k-1) * 2
			s.cur.RevComp = (s.cur.RevComp >> 2) | (Kmer(asciiToComplementBase[nextCh]) << shift)
			s.si++
			return true
		}
	}

	for s.si+s.k <= len(s.seq) {
		window := s.seq[s.si : s.si+s.k]
		forward := asciiToKmer(window)
		if forward == invalid {
			s.si = nextAmbiguousPosition(s.seq, s.si) + 1
			continue
		}
		simd.ResizeUnsafe(&s.tmpSeq, s.k)
		biosimd.ReverseComp8NoValidate(s.tmpSeq, gunsafe.StringToBytes(window))
		revComp := asciiToKmer(gunsafe.BytesToString(s.tmpSeq))
		s.cur = Occurrence{Pos: int32(s.si), Forward: forward, RevComp: revComp}
		s.si++
		s.started = true
		return true
	}
	return false
}

// Get returns the current window, valid after a successful Scan.
func (s *Scanner) Get() Occurrence { return s.cur }

// Occurrences returns every k-mer occurrence in seq, forward and
// reverse-complement encoded, in position order.
func Occurrences(seq string, k int) []Occurrence {
	s := NewScanner(k)
	s.Reset(seq)
	var out []Occurrence
	for s.Scan() {
		out = append(out, s.Get())
	}
	return out
}
