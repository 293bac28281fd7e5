package qthought

import "math"

/*
FrauchigerRenner assembles the extended Wigner's friend protocol. A qubit r
is prepared in sqrt(1/3)|0> + sqrt(2/3)|1>, Alice observes it and
conditionally entangles a second qubit s, Bob observes s, and after the two
inner observations are undone Ursula observes r in the rotated basis. The
run ends with a measurement of Ursula's prediction and a final measurement
of s.

Inference tables for the three agents are not part of the protocol; load
them with SetInferenceTable and PrepInference before running.
*/
func FrauchigerRenner() (*Protocol, error) {
	initR, err := Prepare(complex(math.Sqrt(1.0/3.0), 0), complex(math.Sqrt(2.0/3.0), 0))
	if err != nil {
		return nil, err
	}
	h := Hadamard()

	aliceR, err := Merge(Agents(1, 1, "Alice"), Qubits("r"))
	if err != nil {
		return nil, err
	}
	aliceS, err := Merge(Agents(1, 1, "Alice"), Qubits("s"))
	if err != nil {
		return nil, err
	}
	bobS, err := Merge(Agents(1, 1, "Bob"), Qubits("s"))
	if err != nil {
		return nil, err
	}
	ursulaR, err := Merge(Agents(1, 1, "Ursula"), Qubits("r"))
	if err != nil {
		return nil, err
	}

	return NewProtocol(
		NewStep(Qubits("r"), "prepare r as sqrt(1/3)|0> + sqrt(2/3)|1>", 1, Unitary(initR, []string{"r"})),
		NewStep(aliceR, "Alice observes r", 2, Observe("Alice_memory", "r")),
		NewStep(Agents(1, 1, "Alice"), "Alice predicts", 3, Infer("Alice")),
		NewStep(aliceS, "rotate s when Alice saw 1", 4, Unitary(h, []string{"s"}, "Alice_memory")),
		NewStep(bobS, "Bob observes s", 5, Observe("Bob_memory", "s")),
		NewStep(Agents(1, 1, "Bob"), "Bob predicts", 6, Infer("Bob")),
		NewStep(Agents(1, 1, "Alice"), "undo Alice's prediction", 7, InferReverse("Alice")),
		NewStep(aliceR, "undo Alice's observation", 7, ObserveReverse("Alice_memory", "r")),
		NewStep(Qubits("r"), "rotate r", 8, Unitary(h, []string{"r"})),
		NewStep(ursulaR, "Ursula observes r", 9, Observe("Ursula_memory", "r")),
		NewStep(Agents(1, 1, "Ursula"), "Ursula predicts", 10, Infer("Ursula")),
		NewStep(Agents(1, 1, "Ursula"), "read off Ursula's prediction", 11, MeasureAction("Ursula_prediction")),
		NewStep(Agents(1, 1, "Bob"), "undo Bob's prediction", 12, InferReverse("Bob")),
		NewStep(bobS, "undo Bob's observation", 12, ObserveReverse("Bob_memory", "s")),
		NewStep(Qubits("s"), "rotate s", 13, Unitary(h, []string{"s"})),
		NewStep(Qubits("s"), "measure s", 14, MeasureAction("s")),
	)
}

/*
FrauchigerRennerWin reports whether a completed run landed in the joint
outcome where Ursula remembers seeing 1 and the final measurement of s gave
1. Quantum mechanics predicts this happens with probability 1/12, even when
the chained agent reasoning concludes it never should.
*/
func FrauchigerRennerWin(sys *System) (bool, error) {
	u, err := sys.Measure("Ursula_memory")
	if err != nil {
		return false, err
	}
	s, err := sys.Readout("s")
	if err != nil {
		return false, err
	}
	return u == 1 && s == 1, nil
}
