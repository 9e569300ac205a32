// Package spgemm implements the generic sparse matrix multiplication
// engine that both domain semirings (kmeroverlap, overlapgraph) plug into.
// It is parameterized entirely by a Semiring capability bundle: the
// engine never assumes multiply is commutative, only that add is.
package spgemm

// Semiring bundles the four operations SpGEMM needs to multiply a matrix
// of A values by a matrix of B values into a matrix of C values: an
// additive identity, a commutative-associative accumulator (Add, doubling
// as the cross-process merge/reduction operator), and Multiply, which may
// be any function of a pair of cell values.
type Semiring[A, B, C any] struct {
	ID       func() C
	Add      func(C, C) C
	Multiply func(A, B) C
}
