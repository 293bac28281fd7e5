package qthought

import (
	"fmt"
	"math"
	"sync"
)

/*
InferenceEngine derives inference tables by branch-projecting fresh copies
of a protocol's state through partial runs. Derivation never touches caller
state: every candidate source value gets its own allocation, so repeated
calls with the same protocol and interpretation return identical tables.
*/
type InferenceEngine struct {
	interp  Interpretation
	cfg     Config
	metrics *Metrics
}

func NewInferenceEngine(interp Interpretation, cfg *Config) *InferenceEngine {
	if cfg == nil {
		cfg = NewConfig()
	}
	engineCfg := *cfg
	// Branch replays are internal bookkeeping, never narrated.
	engineCfg.Silent = true
	return &InferenceEngine{
		interp:  interp,
		cfg:     engineCfg,
		metrics: newMetrics(),
	}
}

// Metrics returns a snapshot of the engine's branch counters.
func (e *InferenceEngine) Metrics() MetricsSnapshot {
	return e.metrics.snapshot()
}

/*
replay executes the steps whose time lies in [tStart, tEnd] on every system
in branches. A measure step is not sampled: the branch splits into one
projected copy per reachable outcome, so a replay visits every measurement
history instead of rolling dice. That keeps derived tables a pure function
of the protocol.
*/
func (e *InferenceEngine) replay(p *Protocol, branches []*System, tStart, tEnd int) ([]*System, error) {
	for i, step := range p.steps {
		if step.Time < tStart || step.Time > tEnd {
			continue
		}

		if step.Action.Kind == ActionMeasure {
			var split []*System
			for _, sys := range branches {
				reg, ok := sys.Register(step.Action.Register)
				if !ok {
					return nil, &DimensionError{
						Op:     "Measure",
						Reason: fmt.Sprintf("unknown register %q", step.Action.Register),
					}
				}
				for v := 0; v < 1<<reg.Width; v++ {
					branch, reachable, err := sys.Project(step.Action.Register, v)
					if err != nil {
						return nil, fmt.Errorf("step %d (%s): %w", i, step.Description, err)
					}
					if reachable {
						split = append(split, branch)
					}
				}
				sys.metrics.recordStep()
			}
			branches = split
			continue
		}

		for _, sys := range branches {
			if err := sys.execute(step); err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", i, step.Description, err)
			}
			sys.metrics.recordStep()
		}
	}
	return branches, nil
}

/*
Forward answers: given that source holds value v at tSource, what values can
target be found to hold at tTarget (tSource <= tTarget)? For every v the
engine replays a fresh copy of the protocol up to and including tSource,
projects source onto v, and, when the branch carries any amplitude, replays
the remaining steps through tTarget and records the union of target's
support over every measurement history. Branches of zero amplitude are
flagged contextually impossible, not listed.
*/
func (e *InferenceEngine) Forward(p *Protocol, source string, tSource int, target string, tTarget int) (*InferenceTable, error) {
	if tTarget < tSource {
		return nil, &MalformedError{
			Reason: fmt.Sprintf("forward inference needs tSource <= tTarget, got t%d > t%d", tSource, tTarget),
		}
	}

	probe, err := Allocate(p.Requirements(), e.interp, &e.cfg)
	if err != nil {
		return nil, err
	}
	reg, ok := probe.Register(source)
	if !ok {
		return nil, &DimensionError{Op: "Forward", Reason: fmt.Sprintf("unknown register %q", source)}
	}
	if _, ok := probe.Register(target); !ok {
		return nil, &DimensionError{Op: "Forward", Reason: fmt.Sprintf("unknown register %q", target)}
	}

	nVals := 1 << reg.Width
	supports := make([][]int, nVals)
	unreachable := make([]bool, nVals)
	var mu sync.Mutex

	runValue := func(value int) error {
		sys, err := Allocate(p.Requirements(), e.interp, &e.cfg)
		if err != nil {
			return err
		}
		pre, err := e.replay(p, []*System{sys}, math.MinInt, tSource)
		if err != nil {
			return err
		}

		var kept []*System
		for _, b := range pre {
			branch, reachable, err := b.Project(source, value)
			if err != nil {
				return err
			}
			if reachable {
				kept = append(kept, branch)
			}
		}
		if len(kept) == 0 {
			e.metrics.recordUnreachable()
			mu.Lock()
			unreachable[value] = true
			mu.Unlock()
			return nil
		}

		post, err := e.replay(p, kept, tSource+1, tTarget)
		if err != nil {
			return err
		}
		union := make(map[int]bool)
		for _, b := range post {
			support, err := b.Support(target)
			if err != nil {
				return err
			}
			for _, v := range support {
				union[v] = true
			}
		}

		seen := make([]int, 0, len(union))
		for v := range union {
			seen = append(seen, v)
		}

		e.metrics.recordBranch()
		mu.Lock()
		supports[value] = normalize(seen)
		mu.Unlock()
		return nil
	}

	if e.cfg.Workers > 1 && nVals > 1 {
		pool := newBranchPool(e.cfg.Workers, runValue)
		for v := 0; v < nVals; v++ {
			if !pool.submit(v) {
				break
			}
		}
		if err := pool.wait(); err != nil {
			return nil, err
		}
	} else {
		for v := 0; v < nVals; v++ {
			if err := runValue(v); err != nil {
				return nil, err
			}
		}
	}

	tbl := NewInferenceTable(
		RegisterAt{Register: source, Time: tSource},
		RegisterAt{Register: target, Time: tTarget},
		nil,
	)
	for v := 0; v < nVals; v++ {
		if unreachable[v] {
			tbl.Unreachable[v] = true
			continue
		}
		tbl.Entries[v] = supports[v]
	}
	return tbl, nil
}

/*
Backward answers: given a result for source at tSource, what would a
measurement of target at the earlier tTarget have shown? The branch
projection still starts from the earlier time: the engine derives the
forward table from target to source and inverts it by classical logic.
*/
func (e *InferenceEngine) Backward(p *Protocol, source string, tSource int, target string, tTarget int) (*InferenceTable, error) {
	if tSource < tTarget {
		return nil, &MalformedError{
			Reason: fmt.Sprintf("backward inference needs tTarget <= tSource, got t%d > t%d", tTarget, tSource),
		}
	}

	forward, err := e.Forward(p, target, tTarget, source, tSource)
	if err != nil {
		return nil, err
	}

	inverted := make(map[int][]int)
	for key, vals := range forward.Entries {
		for _, v := range vals {
			inverted[v] = append(inverted[v], key)
		}
	}
	return NewInferenceTable(
		RegisterAt{Register: source, Time: tSource},
		RegisterAt{Register: target, Time: tTarget},
		inverted,
	), nil
}

// ForwardInference derives a forward table with default configuration.
func ForwardInference(p *Protocol, interp Interpretation, source string, tSource int, target string, tTarget int) (*InferenceTable, error) {
	return NewInferenceEngine(interp, nil).Forward(p, source, tSource, target, tTarget)
}

// BackwardInference derives a backward table with default configuration.
func BackwardInference(p *Protocol, interp Interpretation, source string, tSource int, target string, tTarget int) (*InferenceTable, error) {
	return NewInferenceEngine(interp, nil).Backward(p, source, tSource, target, tTarget)
}
