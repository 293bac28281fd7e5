package qthought

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"time"

	"github.com/theapemachine/errnie"
)

// CustomAction is the escape hatch for experiment-specific protocol steps,
// resolved by name through the system's action registry.
type CustomAction func(*System) error

/*
System owns the complex amplitude vector over all declared registers. It is
the exclusive mutable resource of one protocol run: every change goes through
a unitary application, a projective measurement or a branch projection, and
the squared-amplitude mass stays 1 within tolerance after each of them.
*/
type System struct {
	interp  Interpretation
	regs    []*Register
	byName  map[string]*Register
	agents  map[string]*Agent
	vector  []complex128
	nBits   int
	tol     float64
	rng     *rand.Rand
	metrics *Metrics
	actions map[string]CustomAction
	silent  bool

	// outcomes records measured values for end-of-run reporting.
	outcomes map[string]int
}

/*
Allocate builds a zero-initialized System sized to the total bit width of the
requirements, in declaration order. Kinds the interpretation does not
understand surface as MalformedError before anything is allocated.
*/
func Allocate(reqs Requirements, interp Interpretation, cfg *Config) (*System, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := reqs.Validate(interp); err != nil {
		return nil, err
	}

	sys := &System{
		interp:  interp,
		byName:  make(map[string]*Register),
		agents:  make(map[string]*Agent),
		tol:     cfg.Tolerance,
		metrics: newMetrics(),
		actions: make(map[string]CustomAction),
		silent:  cfg.Silent,

		outcomes: make(map[string]int),
	}
	if sys.tol == 0 {
		sys.tol = interp.Tolerance()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sys.rng = rand.New(rand.NewSource(seed))

	for _, g := range reqs.groups {
		for _, name := range g.names {
			switch g.spec.Kind {
			case KindQubit, KindQureg:
				sys.addRegister(name, g.spec.Kind, g.spec.Width)
			case KindAgentMemory:
				sys.addRegister(name+"_memory", KindAgentMemory, g.spec.Width)
			case KindAgent:
				n, m := g.spec.Width, g.spec.Prediction
				agent := &Agent{
					Name:       name,
					memory:     sys.addRegister(name+"_memory", KindAgentMemory, n),
					prediction: sys.addRegister(name+"_prediction", kindAgentPrediction, m),
					inference:  sys.addRegister(name+"_inference", kindAgentInference, (1<<n)*m),
				}
				sys.agents[name] = agent
			}
		}
	}

	// Assign shifts so the first-declared register holds the most
	// significant bits, then start in the all-zero basis state.
	remaining := sys.nBits
	for _, reg := range sys.regs {
		remaining -= reg.Width
		reg.shift = remaining
	}
	sys.vector = make([]complex128, 1<<sys.nBits)
	sys.vector[0] = 1

	if !cfg.Silent {
		errnie.Info(
			"allocated %d qubit system (%d registers) under %s interpretation",
			sys.nBits, len(sys.regs), interp.Name(),
		)
	}
	return sys, nil
}

func (sys *System) addRegister(name string, kind Kind, width int) *Register {
	reg := &Register{Name: name, Kind: kind, Width: width}
	sys.regs = append(sys.regs, reg)
	sys.byName[name] = reg
	sys.nBits += width
	return reg
}

// Register returns the descriptor for a named register.
func (sys *System) Register(name string) (*Register, bool) {
	reg, ok := sys.byName[name]
	return reg, ok
}

// Registers returns the descriptors in declaration (print) order.
func (sys *System) Registers() []*Register {
	return append([]*Register(nil), sys.regs...)
}

// Agent returns the named observer.
func (sys *System) Agent(name string) (*Agent, bool) {
	a, ok := sys.agents[name]
	return a, ok
}

// RegisterAction installs a named custom action for ActionCustom steps.
func (sys *System) RegisterAction(name string, fn CustomAction) {
	sys.actions[name] = fn
}

// Metrics returns a snapshot of the run counters.
func (sys *System) Metrics() MetricsSnapshot {
	return sys.metrics.snapshot()
}

// Wavefunction returns a copy of the amplitude vector in basis order.
func (sys *System) Wavefunction() []complex128 {
	return append([]complex128(nil), sys.vector...)
}

// Norm returns the square root of the total squared-amplitude mass.
func (sys *System) Norm() float64 {
	var mass float64
	for _, amp := range sys.vector {
		mass += real(amp)*real(amp) + imag(amp)*imag(amp)
	}
	return math.Sqrt(mass)
}

func (sys *System) satisfies(name string, spec Spec) bool {
	switch spec.Kind {
	case KindQubit, KindQureg:
		reg, ok := sys.byName[name]
		return ok && reg.Kind == spec.Kind && reg.Width == spec.Width
	case KindAgentMemory:
		reg, ok := sys.byName[name+"_memory"]
		return ok && reg.Width == spec.Width
	case KindAgent:
		agent, ok := sys.agents[name]
		return ok && agent.memory.Width == spec.Width && agent.prediction.Width == spec.Prediction
	}
	return false
}

/*
ApplyUnitary applies op to the concatenated bits of the target registers
(first target most significant), optionally controlled on other registers.
Controlled semantics: identity whenever any control bit is 0, op whenever all
control bits are 1. Unknown names and arity mismatches are DimensionErrors.
*/
func (sys *System) ApplyUnitary(op Operation, targets []string, controls ...string) error {
	var positions []int
	width := 0
	for _, name := range targets {
		reg, ok := sys.byName[name]
		if !ok {
			return &DimensionError{Op: op.String(), Reason: fmt.Sprintf("unknown register %q", name)}
		}
		positions = append(positions, reg.positions()...)
		width += reg.Width
	}
	if width != op.Arity() {
		return &DimensionError{
			Op:     op.String(),
			Reason: fmt.Sprintf("operation expects %d bits, targets span %d", op.Arity(), width),
		}
	}

	controlMask := 0
	for _, name := range controls {
		reg, ok := sys.byName[name]
		if !ok {
			return &DimensionError{Op: op.String(), Reason: fmt.Sprintf("unknown control register %q", name)}
		}
		controlMask |= reg.mask()
	}
	return sys.applyAtBits(op, positions, controlMask)
}

// applyAtBits is the bit-level core behind ApplyUnitary. Agent circuits use
// it directly to address sub-slices of the inference register.
func (sys *System) applyAtBits(op Operation, positions []int, controlMask int) error {
	k := len(positions)
	targetMask := 0
	for _, p := range positions {
		targetMask |= 1 << p
	}
	if targetMask&controlMask != 0 {
		return &DimensionError{Op: op.String(), Reason: "control bits overlap target bits"}
	}

	// spread[sub] scatters a dense sub-index onto the target bit positions,
	// first position most significant.
	dim := 1 << k
	spread := make([]int, dim)
	for sub := 0; sub < dim; sub++ {
		s := 0
		for j, p := range positions {
			s |= ((sub >> (k - 1 - j)) & 1) << p
		}
		spread[sub] = s
	}

	block := make([]complex128, dim)
	for base := range sys.vector {
		if base&targetMask != 0 {
			continue
		}
		if base&controlMask != controlMask {
			continue
		}
		for sub := 0; sub < dim; sub++ {
			block[sub] = sys.vector[base|spread[sub]]
		}
		op.Apply(block)
		for sub := 0; sub < dim; sub++ {
			sys.vector[base|spread[sub]] = block[sub]
		}
	}

	sys.metrics.recordUnitary()
	return nil
}

/*
Measure samples an outcome for the register with probability equal to the
squared-amplitude mass of its subspace, zeroes all amplitude outside the
sampled subspace and renormalizes. This is the collapse postulate; the
residual state is again unit norm.
*/
func (sys *System) Measure(name string) (int, error) {
	reg, ok := sys.byName[name]
	if !ok {
		return 0, &DimensionError{Op: "Measure", Reason: fmt.Sprintf("unknown register %q", name)}
	}

	nVals := 1 << reg.Width
	probs := make([]float64, nVals)
	total := 0.0
	for basis, amp := range sys.vector {
		p := real(amp)*real(amp) + imag(amp)*imag(amp)
		probs[reg.valueOf(basis)] += p
		total += p
	}

	// Cumulative probability walk over the normalized masses.
	r := sys.rng.Float64() * total
	outcome := nVals - 1
	cumulative := 0.0
	for v, p := range probs {
		cumulative += p
		if r <= cumulative {
			outcome = v
			break
		}
	}

	norm := complex(math.Sqrt(probs[outcome]), 0)
	for basis := range sys.vector {
		if reg.valueOf(basis) != outcome {
			sys.vector[basis] = 0
		} else {
			sys.vector[basis] /= norm
		}
	}

	sys.outcomes[name] = outcome
	sys.metrics.recordMeasurement()
	return outcome, nil
}

// Outcomes returns the values measured so far, keyed by register name. This
// is the terminal readout record used for end-of-run reporting.
func (sys *System) Outcomes() map[string]int {
	out := make(map[string]int, len(sys.outcomes))
	for name, v := range sys.outcomes {
		out[name] = v
	}
	return out
}

/*
Project forces the register into the given classical value and renormalizes,
returning the branch as a fresh System. Unlike Measure this is not a
stochastic event: it is the inference engine's way of exploring one branch.
A branch with numerically zero mass is reported as unreachable, not as an
error; the returned system then still holds the unnormalized remainder.
*/
func (sys *System) Project(name string, value int) (*System, bool, error) {
	reg, ok := sys.byName[name]
	if !ok {
		return nil, false, &DimensionError{Op: "Project", Reason: fmt.Sprintf("unknown register %q", name)}
	}
	if value < 0 || value >= 1<<reg.Width {
		return nil, false, &DimensionError{
			Op:     "Project",
			Reason: fmt.Sprintf("value %d does not fit register %q of width %d", value, name, reg.Width),
		}
	}

	branch := sys.Clone()
	mass := 0.0
	for basis, amp := range branch.vector {
		if reg.valueOf(basis) != value {
			branch.vector[basis] = 0
			continue
		}
		mass += real(amp)*real(amp) + imag(amp)*imag(amp)
	}

	if math.Sqrt(mass) < branch.tol {
		branch.metrics.recordUnreachable()
		return branch, false, nil
	}

	norm := complex(math.Sqrt(mass), 0)
	for basis := range branch.vector {
		branch.vector[basis] /= norm
	}
	branch.metrics.recordBranch()
	return branch, true, nil
}

// Support lists every classical value of the register carrying
// non-negligible amplitude, ascending.
func (sys *System) Support(name string) ([]int, error) {
	reg, ok := sys.byName[name]
	if !ok {
		return nil, &DimensionError{Op: "Support", Reason: fmt.Sprintf("unknown register %q", name)}
	}
	seen := make([]bool, 1<<reg.Width)
	for basis, amp := range sys.vector {
		if cmplx.Abs(amp) > sys.tol {
			seen[reg.valueOf(basis)] = true
		}
	}
	var support []int
	for v, ok := range seen {
		if ok {
			support = append(support, v)
		}
	}
	return support, nil
}

/*
Readout returns the definite classical value of a register. Calling it on a
register still in superposition is a sequencing bug on the caller's side and
surfaces as NotCollapsedError; measure first.
*/
func (sys *System) Readout(name string) (int, error) {
	support, err := sys.Support(name)
	if err != nil {
		return 0, err
	}
	if len(support) != 1 {
		return 0, &NotCollapsedError{Register: name, Support: support}
	}
	return support[0], nil
}

/*
Clone returns an independent copy of the system: private amplitude vector,
private agent records, private RNG stream. Register descriptors are fixed
after allocation and shared. Branch exploration runs on clones so the
caller's state never sees side effects.
*/
func (sys *System) Clone() *System {
	clone := &System{
		interp:  sys.interp,
		regs:    sys.regs,
		byName:  sys.byName,
		agents:  make(map[string]*Agent, len(sys.agents)),
		vector:  append([]complex128(nil), sys.vector...),
		nBits:   sys.nBits,
		tol:     sys.tol,
		rng:     rand.New(rand.NewSource(sys.rng.Int63())),
		metrics: sys.metrics,
		actions: sys.actions,
		silent:  sys.silent,

		outcomes: make(map[string]int, len(sys.outcomes)),
	}
	for name, v := range sys.outcomes {
		clone.outcomes[name] = v
	}
	for name, agent := range sys.agents {
		clone.agents[name] = agent.clone()
	}
	return clone
}
