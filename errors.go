package qthought

import (
	"fmt"
	"sort"
	"strings"
)

// ConflictError reports a register name declared under two incompatible
// requirement specs. Declaration-time problem, always fatal.
type ConflictError struct {
	Name string
	Have Spec
	Want Spec
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("requirements conflict: %q declared as %s and %s",
		e.Name, e.Have, e.Want)
}

// MalformedError reports requirements (or tables) that the loaded
// interpretation cannot make sense of.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed: " + e.Reason
}

// DimensionError reports an operation applied to registers it does not fit:
// unknown names, arity mismatches, overlapping target and control sets.
type DimensionError struct {
	Op     string
	Reason string
}

func (e *DimensionError) Error() string {
	if e.Op == "" {
		return "dimension mismatch: " + e.Reason
	}
	return fmt.Sprintf("dimension mismatch in %s: %s", e.Op, e.Reason)
}

// UnsatisfiedRequirementsError reports a protocol run against a system that
// is missing registers the protocol declared.
type UnsatisfiedRequirementsError struct {
	Missing []string
}

func (e *UnsatisfiedRequirementsError) Error() string {
	return "unsatisfied requirements, missing: " + strings.Join(e.Missing, ", ")
}

// NotCollapsedError reports a classical readout of a register whose reduced
// state is still in superposition. The caller must measure first.
type NotCollapsedError struct {
	Register string
	Support  []int
}

func (e *NotCollapsedError) Error() string {
	return fmt.Sprintf("register %q is not collapsed (support %v), measure it first",
		e.Register, e.Support)
}

// ContradictionError reports keys whose merged prediction set came out empty
// during a consistency merge even though the left table predicted something.
// The merged table is carried along: in some experiments the contradiction is
// the interesting result, not a bug.
type ContradictionError struct {
	Keys  []int
	Table *InferenceTable
}

func (e *ContradictionError) Error() string {
	keys := append([]int(nil), e.Keys...)
	sort.Ints(keys)
	return fmt.Sprintf("consistency merge yields empty prediction for keys %v", keys)
}
