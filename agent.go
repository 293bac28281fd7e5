package qthought

import (
	"fmt"

	"github.com/theapemachine/errnie"
)

/*
Agent is one modeled observer: a memory register holding what it has seen, a
prediction register holding what it infers, and an inference register of
(1<<memoryWidth)*predictionWidth bits carrying one prediction slot per
possible memory value. The slots are loaded classically from the agent's
inference table and then drive a controlled write into the prediction
register, so the inference itself stays unitary and reversible.
*/
type Agent struct {
	Name string

	memory     *Register
	prediction *Register
	inference  *Register

	table        *InferenceTable
	noPrediction int
	flat         []int
	prepared     bool
}

// Memory returns the name of the agent's memory register.
func (a *Agent) Memory() string { return a.memory.Name }

// Prediction returns the name of the agent's prediction register.
func (a *Agent) Prediction() string { return a.prediction.Name }

// Table returns the currently loaded inference table, if any.
func (a *Agent) Table() *InferenceTable { return a.table }

func (a *Agent) clone() *Agent {
	clone := *a
	clone.flat = append([]int(nil), a.flat...)
	return &clone
}

// flatten projects the table down to one prediction per memory value. Empty,
// ambiguous and unreachable entries all map to the no-prediction sentinel.
func (a *Agent) flatten() []int {
	flat := make([]int, 1<<a.memory.Width)
	for i := range flat {
		flat[i] = a.noPrediction
		if a.table == nil || a.table.Unreachable[i] {
			continue
		}
		if vals := a.table.Entries[i]; len(vals) == 1 {
			flat[i] = vals[0]
		}
	}
	return flat
}

/*
SetInferenceTable loads the agent's inference table and no-prediction
sentinel. Must be called before PrepInference, which in turn must run before
the agent's make-inference step executes.
*/
func (sys *System) SetInferenceTable(name string, tbl *InferenceTable, noPrediction int) error {
	agent, ok := sys.agents[name]
	if !ok {
		return &DimensionError{Op: "SetInferenceTable", Reason: fmt.Sprintf("unknown agent %q", name)}
	}
	limit := 1 << agent.prediction.Width
	if noPrediction >= limit {
		return &MalformedError{Reason: fmt.Sprintf("sentinel %d does not fit prediction register of width %d", noPrediction, agent.prediction.Width)}
	}
	for key, vals := range tbl.Entries {
		if key >= 1<<agent.memory.Width {
			return &MalformedError{Reason: fmt.Sprintf("table key %d does not fit memory register of width %d", key, agent.memory.Width)}
		}
		// Empty and ambiguous entries flatten to the sentinel, so only a
		// definite prediction has to fit the register.
		if len(vals) != 1 {
			continue
		}
		if vals[0] >= limit {
			return &MalformedError{Reason: fmt.Sprintf("prediction %d does not fit prediction register of width %d", vals[0], agent.prediction.Width)}
		}
	}
	agent.table = tbl
	agent.noPrediction = noPrediction
	agent.flat = agent.flatten()
	return nil
}

/*
PrepInference loads the flattened table into the inference register by bit
flips. The register must still be in its all-zero allocation state; prep is
a one-time initialization per run, before the protocol executes.
*/
func (sys *System) PrepInference(name string) error {
	agent, ok := sys.agents[name]
	if !ok {
		return &DimensionError{Op: "PrepInference", Reason: fmt.Sprintf("unknown agent %q", name)}
	}
	if agent.table == nil && !sys.silent {
		errnie.Info("prep_inference on agent %s without an inference table", name)
	}
	if agent.flat == nil {
		agent.flat = agent.flatten()
	}

	x := PauliX()
	m := agent.prediction.Width
	for slot, value := range agent.flat {
		base := agent.inference.shift + slot*m
		for bit := 0; bit < m; bit++ {
			if value>>bit&1 == 1 {
				if err := sys.applyAtBits(x, []int{base + bit}, 0); err != nil {
					return err
				}
			}
		}
	}
	agent.prepared = true
	return nil
}

/*
MakeInference writes the prediction belonging to the agent's current memory
value into the prediction register: for each memory value i, the i-th
inference slot is added into the prediction register controlled on the
memory being in state i. Reverse applies the adjoint, uncomputing a prior
inference when a branch is replayed backward.
*/
func (sys *System) MakeInference(name string, reverse bool) error {
	agent, ok := sys.agents[name]
	if !ok {
		return &DimensionError{Op: "MakeInference", Reason: fmt.Sprintf("unknown agent %q", name)}
	}
	if !agent.prepared && !sys.silent {
		errnie.Info("make_inference on agent %s without prep_inference", name)
	}

	x := PauliX()
	n := agent.memory.Width
	m := agent.prediction.Width
	memMask := agent.memory.mask()

	write := Operation(Add(m, m))
	if reverse {
		write = write.Adjoint()
	}

	for i := 0; i < 1<<n; i++ {
		// Conjugate the memory so state |i> becomes all-ones, making the
		// all-ones control semantics select exactly this value.
		if err := sys.flipMemoryZeros(x, agent.memory, i); err != nil {
			return err
		}

		base := agent.inference.shift + i*m
		positions := make([]int, 0, 2*m)
		for bit := m - 1; bit >= 0; bit-- {
			positions = append(positions, base+bit)
		}
		positions = append(positions, agent.prediction.positions()...)
		if err := sys.applyAtBits(write, positions, memMask); err != nil {
			return err
		}

		if err := sys.flipMemoryZeros(x, agent.memory, i); err != nil {
			return err
		}
	}
	return nil
}

// flipMemoryZeros applies X on every memory bit that is 0 in value. It is
// its own inverse.
func (sys *System) flipMemoryZeros(x Operation, memory *Register, value int) error {
	for bit := 0; bit < memory.Width; bit++ {
		if value>>bit&1 == 0 {
			if err := sys.applyAtBits(x, []int{memory.shift + bit}, 0); err != nil {
				return err
			}
		}
	}
	return nil
}
