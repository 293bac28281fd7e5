package qthought

import (
	"fmt"
	"strings"
)

// Kind classifies a declared subsystem.
type Kind string

const (
	KindQubit       Kind = "Qubit"
	KindQureg       Kind = "Qureg"
	KindAgentMemory Kind = "AgentMemory"
	KindAgent       Kind = "Agent"
)

// Spec is the shape of one requirement: its kind and bit widths. Prediction
// is only meaningful for KindAgent.
type Spec struct {
	Kind       Kind
	Width      int
	Prediction int
}

func (s Spec) String() string {
	switch s.Kind {
	case KindQubit:
		return string(KindQubit)
	case KindAgent:
		return fmt.Sprintf("Agent(%d,%d)", s.Width, s.Prediction)
	default:
		return fmt.Sprintf("%s(%d)", s.Kind, s.Width)
	}
}

type reqGroup struct {
	spec  Spec
	names []string
}

/*
Requirements is the ledger of named subsystems a protocol needs before a
System can be allocated. Names are unique across kinds; the declaration
order (insertion order of specs, then names) fixes the print and storage
order of the allocated registers.
*/
type Requirements struct {
	groups []reqGroup
}

// Qubits declares single-bit registers.
func Qubits(names ...string) Requirements {
	r := Requirements{}
	r.mustAdd(Spec{Kind: KindQubit, Width: 1}, names...)
	return r
}

// Qureg declares width-bit registers.
func Qureg(width int, names ...string) Requirements {
	r := Requirements{}
	r.mustAdd(Spec{Kind: KindQureg, Width: width}, names...)
	return r
}

// AgentMemories declares bare observer-memory registers, without the
// prediction and inference machinery of a full Agent.
func AgentMemories(width int, names ...string) Requirements {
	r := Requirements{}
	r.mustAdd(Spec{Kind: KindAgentMemory, Width: width}, names...)
	return r
}

// Agents declares full observers with a memory register, a prediction
// register and an inference system.
func Agents(memory, prediction int, names ...string) Requirements {
	r := Requirements{}
	r.mustAdd(Spec{Kind: KindAgent, Width: memory, Prediction: prediction}, names...)
	return r
}

func (r *Requirements) mustAdd(spec Spec, names ...string) {
	// Fresh ledgers with distinct names cannot conflict.
	if err := r.Add(spec, names...); err != nil {
		panic(err)
	}
}

// Add declares names under spec. A name already declared under an
// incompatible spec is a ConflictError. A bare AgentMemory declaration is
// absorbed by a full Agent declaration of the same name and memory width,
// matching how protocol fragments that only touch an observer's memory
// compose with fragments that use the whole observer.
func (r *Requirements) Add(spec Spec, names ...string) error {
	for _, name := range names {
		if err := r.addOne(spec, name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Requirements) addOne(spec Spec, name string) error {
	for gi := range r.groups {
		g := &r.groups[gi]
		idx := -1
		for i, n := range g.names {
			if n == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		switch {
		case g.spec == spec:
			return nil
		case g.spec.Kind == KindAgent && spec.Kind == KindAgentMemory && g.spec.Width == spec.Width:
			// Full agent already covers the memory requirement.
			return nil
		case g.spec.Kind == KindAgentMemory && spec.Kind == KindAgent && g.spec.Width == spec.Width:
			// Upgrade the bare memory to the full agent.
			g.names = append(g.names[:idx], g.names[idx+1:]...)
			return r.appendTo(spec, name)
		default:
			return &ConflictError{Name: name, Have: g.spec, Want: spec}
		}
	}
	return r.appendTo(spec, name)
}

func (r *Requirements) appendTo(spec Spec, name string) error {
	for gi := range r.groups {
		if r.groups[gi].spec == spec {
			r.groups[gi].names = append(r.groups[gi].names, name)
			return nil
		}
	}
	r.groups = append(r.groups, reqGroup{spec: spec, names: []string{name}})
	return nil
}

// Merge unions two ledgers into a new one. The union is associative and
// commutative up to declaration order; conflicting declarations of the same
// name propagate as ConflictError.
func Merge(a, b Requirements) (Requirements, error) {
	out := a.clone()
	for _, g := range b.groups {
		for _, name := range g.names {
			if err := out.addOne(g.spec, name); err != nil {
				return Requirements{}, err
			}
		}
	}
	return out, nil
}

func (r Requirements) clone() Requirements {
	out := Requirements{groups: make([]reqGroup, len(r.groups))}
	for i, g := range r.groups {
		out.groups[i] = reqGroup{spec: g.spec, names: append([]string(nil), g.names...)}
	}
	return out
}

// Get returns the spec a name was declared under.
func (r Requirements) Get(name string) (Spec, bool) {
	for _, g := range r.groups {
		for _, n := range g.names {
			if n == name {
				return g.spec, true
			}
		}
	}
	return Spec{}, false
}

// Names returns all declared names in declaration order.
func (r Requirements) Names() []string {
	var names []string
	for _, g := range r.groups {
		names = append(names, g.names...)
	}
	return names
}

// Empty reports whether nothing has been declared.
func (r Requirements) Empty() bool { return len(r.groups) == 0 }

// Equal compares two ledgers as name->spec mappings, ignoring declaration
// order. This is the equality under which Merge is commutative.
func (r Requirements) Equal(other Requirements) bool {
	mine := r.Names()
	theirs := other.Names()
	if len(mine) != len(theirs) {
		return false
	}
	for _, name := range mine {
		a, _ := r.Get(name)
		b, ok := other.Get(name)
		if !ok || a != b {
			return false
		}
	}
	return true
}

// Validate checks the ledger against the kinds the interpretation
// understands and the structural constraints on widths.
func (r Requirements) Validate(interp Interpretation) error {
	known := make(map[Kind]bool)
	for _, k := range interp.Kinds() {
		known[k] = true
	}
	for _, g := range r.groups {
		if !known[g.spec.Kind] {
			return &MalformedError{Reason: fmt.Sprintf("kind %q is unknown to interpretation %s", g.spec.Kind, interp.Name())}
		}
		if g.spec.Width < 1 {
			return &MalformedError{Reason: fmt.Sprintf("%s has width %d", g.spec, g.spec.Width)}
		}
		if g.spec.Kind == KindAgent {
			if g.spec.Prediction < 1 {
				return &MalformedError{Reason: fmt.Sprintf("%s has prediction width %d", g.spec, g.spec.Prediction)}
			}
			if g.spec.Width < g.spec.Prediction {
				return &MalformedError{Reason: fmt.Sprintf("%s cannot predict more than it can observe", g.spec)}
			}
		}
	}
	return nil
}

// missingFrom lists declared names the system cannot satisfy.
func (r Requirements) missingFrom(sys *System) []string {
	var missing []string
	for _, g := range r.groups {
		for _, name := range g.names {
			if !sys.satisfies(name, g.spec) {
				missing = append(missing, fmt.Sprintf("%s %s", g.spec, name))
			}
		}
	}
	return missing
}

func (r Requirements) String() string {
	var b strings.Builder
	b.WriteString("Requirements:\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")
	for _, g := range r.groups {
		fmt.Fprintf(&b, "%-18s %v\n", g.spec, g.names)
	}
	return b.String()
}
