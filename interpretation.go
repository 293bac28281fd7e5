package qthought

import "fmt"

/*
Interpretation supplies the physical semantics the core stays agnostic
about: how an observation is realized as a unitary, which register kinds it
understands, and the numeric tolerance for amplitude comparisons. It is an
explicit capability value passed into Allocate, never ambient state, so one
process can compare runs under different interpretations.

Implementations must be pure and deterministic: the same system state and
arguments always produce the same state transition.
*/
type Interpretation interface {
	Name() string
	Kinds() []Kind
	Tolerance() float64

	// Observe entangles the classical content of source into memory
	// (reverse applies the adjoint, uncomputing a prior observation).
	Observe(sys *System, memory, source string, reverse bool) error
}

// collapse is the textbook interpretation: observation is a reversible
// copy (modular addition) of the source into the observer's memory, and
// measurement collapses per the Born rule as implemented by System.Measure.
type collapse struct{}

// Collapse returns the collapse interpretation.
func Collapse() Interpretation { return collapse{} }

func (collapse) Name() string { return "collapse" }

func (collapse) Kinds() []Kind {
	return []Kind{KindQubit, KindQureg, KindAgentMemory, KindAgent}
}

func (collapse) Tolerance() float64 { return 1e-9 }

func (collapse) Observe(sys *System, memory, source string, reverse bool) error {
	mem, ok := sys.Register(memory)
	if !ok {
		return &DimensionError{Op: "Observe", Reason: fmt.Sprintf("unknown memory register %q", memory)}
	}
	src, ok := sys.Register(source)
	if !ok {
		return &DimensionError{Op: "Observe", Reason: fmt.Sprintf("unknown source register %q", source)}
	}
	if mem.Width < src.Width {
		return &DimensionError{
			Op:     "Observe",
			Reason: fmt.Sprintf("observed system %q is wider than memory %q can hold", source, memory),
		}
	}

	op := Add(src.Width, mem.Width)
	if reverse {
		op = op.Adjoint()
	}
	positions := append(src.positions(), mem.positions()...)
	return sys.applyAtBits(op, positions, 0)
}
