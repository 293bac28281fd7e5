package qthought

import (
	"fmt"
	"math"
	"math/cmplx"
)

/*
Operation is a unitary acting on a fixed number of bits. Apply receives the
dense amplitude block of the targeted subspace (length 1<<Arity, first target
bit most significant) and rewrites it in place. Implementations must be pure:
the same block always maps to the same result, so that protocol runs and
inference derivations stay deterministic.
*/
type Operation interface {
	Arity() int
	Apply(block []complex128)
	Adjoint() Operation
	String() string
}

// matrixOp is a general dense-matrix unitary.
type matrixOp struct {
	name  string
	arity int
	m     [][]complex128
}

// NewMatrixOp wraps an explicit matrix as an Operation. The matrix must be
// square with a power-of-two dimension; unitarity is the caller's contract.
func NewMatrixOp(name string, m [][]complex128) (Operation, error) {
	dim := len(m)
	if dim == 0 || dim&(dim-1) != 0 {
		return nil, &DimensionError{Op: name, Reason: fmt.Sprintf("matrix dimension %d is not a power of two", dim)}
	}
	for _, row := range m {
		if len(row) != dim {
			return nil, &DimensionError{Op: name, Reason: "matrix is not square"}
		}
	}
	arity := 0
	for 1<<arity < dim {
		arity++
	}
	return &matrixOp{name: name, arity: arity, m: m}, nil
}

func (op *matrixOp) Arity() int { return op.arity }

func (op *matrixOp) Apply(block []complex128) {
	dim := len(op.m)
	out := make([]complex128, dim)
	for i := 0; i < dim; i++ {
		var sum complex128
		for j := 0; j < dim; j++ {
			sum += op.m[i][j] * block[j]
		}
		out[i] = sum
	}
	copy(block, out)
}

func (op *matrixOp) Adjoint() Operation {
	dim := len(op.m)
	adj := make([][]complex128, dim)
	for i := range adj {
		adj[i] = make([]complex128, dim)
		for j := 0; j < dim; j++ {
			adj[i][j] = cmplx.Conj(op.m[j][i])
		}
	}
	return &matrixOp{name: op.name + "†", arity: op.arity, m: adj}
}

func (op *matrixOp) String() string { return op.name }

// Hadamard maps |0> to (|0>+|1>)/√2 and |1> to (|0>-|1>)/√2.
func Hadamard() Operation {
	s := complex(1/math.Sqrt2, 0)
	op, _ := NewMatrixOp("H", [][]complex128{
		{s, s},
		{s, -s},
	})
	return op
}

// PauliX is the single-bit flip.
func PauliX() Operation {
	op, _ := NewMatrixOp("X", [][]complex128{
		{0, 1},
		{1, 0},
	})
	return op
}

// Prepare builds the single-bit unitary whose first column is (a, b), i.e.
// the gate taking |0> to a|0> + b|1>. |a|^2 + |b|^2 must be 1.
func Prepare(a, b complex128) (Operation, error) {
	if math.Abs(cmplx.Abs(a)*cmplx.Abs(a)+cmplx.Abs(b)*cmplx.Abs(b)-1) > 1e-9 {
		return nil, &DimensionError{Op: "Prepare", Reason: "column is not normalized"}
	}
	return NewMatrixOp(fmt.Sprintf("Prep(%.3g,%.3g)", real(a), real(b)),
		[][]complex128{
			{a, -cmplx.Conj(b)},
			{b, cmplx.Conj(a)},
		})
}

/*
addOp adds the value of a source block into a destination block modulo the
destination width: (s, d) -> (s, d+s). It is a pure basis permutation, which
is how an observation copies classical content into an agent's memory while
leaving superposition intact. The adjoint subtracts.
*/
type addOp struct {
	srcWidth int
	dstWidth int
	subtract bool
}

// Add builds the observation permutation for a source of srcWidth bits
// written into a destination of dstWidth bits. Target order is (source,
// destination), source bits most significant.
func Add(srcWidth, dstWidth int) Operation {
	return &addOp{srcWidth: srcWidth, dstWidth: dstWidth}
}

func (op *addOp) Arity() int { return op.srcWidth + op.dstWidth }

func (op *addOp) Apply(block []complex128) {
	dstMask := 1<<op.dstWidth - 1
	out := make([]complex128, len(block))
	for idx, amp := range block {
		if amp == 0 {
			continue
		}
		s := idx >> op.dstWidth
		d := idx & dstMask
		if op.subtract {
			d = (d - s) & dstMask
		} else {
			d = (d + s) & dstMask
		}
		out[s<<op.dstWidth|d] = amp
	}
	copy(block, out)
}

func (op *addOp) Adjoint() Operation {
	return &addOp{srcWidth: op.srcWidth, dstWidth: op.dstWidth, subtract: !op.subtract}
}

func (op *addOp) String() string {
	if op.subtract {
		return fmt.Sprintf("Sub(%d,%d)", op.srcWidth, op.dstWidth)
	}
	return fmt.Sprintf("Add(%d,%d)", op.srcWidth, op.dstWidth)
}
