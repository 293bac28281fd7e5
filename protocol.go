package qthought

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// ActionKind tags the built-in step actions. Steps carry these variants
// instead of closures so a protocol stays an inspectable value; Custom is
// the escape hatch through the system's action registry.
type ActionKind int

const (
	ActionUnitary ActionKind = iota
	ActionObserve
	ActionPrep
	ActionInference
	ActionMeasure
	ActionDump
	ActionCustom
)

// Action is one tagged state transformation. Use the constructors below.
type Action struct {
	Kind     ActionKind
	Op       Operation
	Targets  []string
	Controls []string
	Memory   string
	Source   string
	Agent    string
	Register string
	Reverse  bool
	Name     string
}

// Unitary applies op to the target registers, optionally controlled.
func Unitary(op Operation, targets []string, controls ...string) Action {
	return Action{Kind: ActionUnitary, Op: op, Targets: targets, Controls: controls}
}

// Observe copies the source register's classical content into a memory
// register through the interpretation's observation unitary.
func Observe(memory, source string) Action {
	return Action{Kind: ActionObserve, Memory: memory, Source: source}
}

// ObserveReverse uncomputes a prior observation.
func ObserveReverse(memory, source string) Action {
	return Action{Kind: ActionObserve, Memory: memory, Source: source, Reverse: true}
}

// Prep loads the agent's inference table into its inference register.
func Prep(agent string) Action {
	return Action{Kind: ActionPrep, Agent: agent}
}

// Infer runs the agent's table-driven write into its prediction register.
func Infer(agent string) Action {
	return Action{Kind: ActionInference, Agent: agent}
}

// InferReverse uncomputes a prior inference.
func InferReverse(agent string) Action {
	return Action{Kind: ActionInference, Agent: agent, Reverse: true}
}

// MeasureAction collapses the register to a sampled outcome.
func MeasureAction(register string) Action {
	return Action{Kind: ActionMeasure, Register: register}
}

// DumpState logs the current basis-state decomposition.
func DumpState() Action {
	return Action{Kind: ActionDump}
}

// Custom resolves a registered action by name at run time.
func Custom(name string) Action {
	return Action{Kind: ActionCustom, Name: name}
}

// registers lists every register name the action touches, for the domain
// check.
func (a Action) registers() []string {
	switch a.Kind {
	case ActionUnitary:
		return append(append([]string(nil), a.Targets...), a.Controls...)
	case ActionObserve:
		return []string{a.Memory, a.Source}
	case ActionMeasure:
		return []string{a.Register}
	default:
		return nil
	}
}

/*
Step is one timed, domain-scoped operation of a protocol. It is an immutable
value: the domain declares the requirements the step touches, time is the
ordering key, and the action is the state transformation. Times need not be
contiguous or unique; ties keep declaration order.
*/
type Step struct {
	Domain      Requirements
	Description string
	Time        int
	Action      Action
}

func NewStep(domain Requirements, description string, time int, action Action) Step {
	return Step{Domain: domain, Description: description, Time: time, Action: action}
}

func (s Step) String() string {
	return fmt.Sprintf("%s (t:%d)", s.Description, s.Time)
}

/*
Protocol is an ordered sequence of steps plus the merged requirements of all
of them. Protocols compose algebraically: Append and Concat return new
values whose step list is the (time, declaration order) merge of both
operands and whose requirements are the ledger merge, propagating
ConflictError. Running is strictly sequential; later steps depend on the
collapse effects of earlier ones, so nothing is skipped or reordered.
*/
type Protocol struct {
	steps    []Step
	requires Requirements
}

// NewProtocol assembles a protocol from steps.
func NewProtocol(steps ...Step) (*Protocol, error) {
	p := &Protocol{}
	return p.Append(steps...)
}

// Append returns a new protocol extended by the given steps.
func (p *Protocol) Append(steps ...Step) (*Protocol, error) {
	out := &Protocol{
		steps:    append([]Step(nil), p.steps...),
		requires: p.requires.clone(),
	}
	for _, step := range steps {
		merged, err := Merge(out.requires, step.Domain)
		if err != nil {
			return nil, err
		}
		out.requires = merged
		out.steps = append(out.steps, step)
	}
	out.sort()
	return out, nil
}

// Concat merges two protocols into a new one.
func Concat(a, b *Protocol) (*Protocol, error) {
	return a.Append(b.steps...)
}

func (p *Protocol) sort() {
	sort.SliceStable(p.steps, func(i, j int) bool {
		return p.steps[i].Time < p.steps[j].Time
	})
}

// Len returns the number of steps.
func (p *Protocol) Len() int { return len(p.steps) }

// Steps returns the steps in execution order.
func (p *Protocol) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Requirements returns the aggregate ledger of all steps.
func (p *Protocol) Requirements() Requirements {
	return p.requires.clone()
}

// Times returns the distinct step times in execution order.
func (p *Protocol) Times() []int {
	var times []int
	for _, step := range p.steps {
		if len(times) == 0 || times[len(times)-1] != step.Time {
			times = append(times, step.Time)
		}
	}
	return times
}

/*
Run executes every step in order against the system. The system must
satisfy the protocol's requirements; a shortfall is an
UnsatisfiedRequirementsError before any step runs. With silent false each
step is narrated along with the resulting state.
*/
func (p *Protocol) Run(sys *System, silent bool) error {
	if missing := p.requires.missingFrom(sys); len(missing) > 0 {
		return &UnsatisfiedRequirementsError{Missing: missing}
	}
	for i, step := range p.steps {
		if err := sys.execute(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Description, err)
		}
		sys.metrics.recordStep()
		if !silent {
			log.Printf("step %d: %s (t:%d)", i, step.Description, step.Time)
			log.Printf("state: %s", sys.Dump())
		}
	}
	return nil
}

// execute dispatches one step's action, after checking that it only touches
// registers inside the step's declared domain.
func (sys *System) execute(step Step) error {
	if err := step.checkDomain(); err != nil {
		return err
	}
	a := step.Action
	switch a.Kind {
	case ActionUnitary:
		return sys.ApplyUnitary(a.Op, a.Targets, a.Controls...)
	case ActionObserve:
		return sys.interp.Observe(sys, a.Memory, a.Source, a.Reverse)
	case ActionPrep:
		return sys.PrepInference(a.Agent)
	case ActionInference:
		return sys.MakeInference(a.Agent, a.Reverse)
	case ActionMeasure:
		_, err := sys.Measure(a.Register)
		return err
	case ActionDump:
		log.Println(sys.Dump())
		return nil
	case ActionCustom:
		fn, ok := sys.actions[a.Name]
		if !ok {
			return &MalformedError{Reason: fmt.Sprintf("custom action %q is not registered", a.Name)}
		}
		return fn(sys)
	}
	return &MalformedError{Reason: fmt.Sprintf("unknown action kind %d", a.Kind)}
}

func (s Step) checkDomain() error {
	if a := s.Action; a.Kind == ActionPrep || a.Kind == ActionInference {
		if _, ok := s.Domain.Get(a.Agent); !ok {
			return &MalformedError{Reason: fmt.Sprintf("step %q uses agent %q outside its domain", s.Description, a.Agent)}
		}
		return nil
	}
	for _, name := range s.Action.registers() {
		if !s.Domain.covers(name) {
			return &MalformedError{Reason: fmt.Sprintf("step %q references register %q outside its domain", s.Description, name)}
		}
	}
	return nil
}

// covers reports whether a register name is within the ledger, including
// the derived registers of a declared agent.
func (r Requirements) covers(name string) bool {
	if _, ok := r.Get(name); ok {
		return true
	}
	for _, suffix := range []string{"_memory", "_prediction", "_inference"} {
		if base, found := strings.CutSuffix(name, suffix); found {
			if spec, ok := r.Get(base); ok {
				if spec.Kind == KindAgent || (spec.Kind == KindAgentMemory && suffix == "_memory") {
					return true
				}
			}
		}
	}
	return false
}

func (p *Protocol) String() string {
	var b strings.Builder
	for i, step := range p.steps {
		fmt.Fprintf(&b, "Step %d: %s\n", i, step)
	}
	b.WriteString("\n")
	b.WriteString(p.requires.String())
	return b.String()
}
