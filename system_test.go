package qthought

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// silentConfig returns a quiet, reproducible config for tests.
func silentConfig(seed int64) *Config {
	cfg := NewConfig()
	cfg.Silent = true
	cfg.Seed = seed
	return cfg
}

func TestAllocate(t *testing.T) {
	Convey("Given qubit and agent requirements", t, func() {
		reqs, err := Merge(Qubits("a", "b"), Agents(1, 1, "Carol"))
		So(err, ShouldBeNil)

		Convey("When a system is allocated", func() {
			sys, err := Allocate(reqs, Collapse(), silentConfig(1))
			So(err, ShouldBeNil)

			Convey("Then it starts in the all-zero state with unit norm", func() {
				So(sys.Norm(), ShouldAlmostEqual, 1.0, 1e-12)
				So(real(sys.Wavefunction()[0]), ShouldAlmostEqual, 1.0, 1e-12)
			})

			Convey("Then the agent expands into its three registers", func() {
				names := make([]string, 0)
				for _, reg := range sys.Registers() {
					names = append(names, reg.Name)
				}
				So(names, ShouldResemble, []string{
					"a", "b", "Carol_memory", "Carol_prediction", "Carol_inference",
				})

				inf, ok := sys.Register("Carol_inference")
				So(ok, ShouldBeTrue)
				So(inf.Width, ShouldEqual, 2)
				So(len(sys.Wavefunction()), ShouldEqual, 1<<6)
			})

			Convey("Then the first-declared register holds the most significant bits", func() {
				So(sys.ApplyUnitary(PauliX(), []string{"a"}), ShouldBeNil)
				wf := sys.Wavefunction()
				So(real(wf[1<<5]), ShouldAlmostEqual, 1.0, 1e-12)
			})
		})

		Convey("When the interpretation does not understand a kind", func() {
			bogus := Requirements{}
			So(bogus.Add(Spec{Kind: "Tarot", Width: 1}, "deck"), ShouldBeNil)
			_, err := Allocate(bogus, Collapse(), silentConfig(1))

			var malformed *MalformedError
			So(errors.As(err, &malformed), ShouldBeTrue)
		})
	})
}

func TestApplyUnitary(t *testing.T) {
	Convey("Given a two-qubit system", t, func() {
		reqs, err := Merge(Qubits("a", "b"), Requirements{})
		So(err, ShouldBeNil)
		sys, err := Allocate(reqs, Collapse(), silentConfig(1))
		So(err, ShouldBeNil)

		Convey("Hadamard splits the amplitude evenly", func() {
			So(sys.ApplyUnitary(Hadamard(), []string{"a"}), ShouldBeNil)
			wf := sys.Wavefunction()
			So(real(wf[0]), ShouldAlmostEqual, 1/math.Sqrt2, 1e-12)
			So(real(wf[2]), ShouldAlmostEqual, 1/math.Sqrt2, 1e-12)
			So(sys.Norm(), ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("A controlled gate is the identity while the control is 0", func() {
			So(sys.ApplyUnitary(PauliX(), []string{"b"}, "a"), ShouldBeNil)
			support, err := sys.Support("b")
			So(err, ShouldBeNil)
			So(support, ShouldResemble, []int{0})

			Convey("And fires once the control is 1", func() {
				So(sys.ApplyUnitary(PauliX(), []string{"a"}), ShouldBeNil)
				So(sys.ApplyUnitary(PauliX(), []string{"b"}, "a"), ShouldBeNil)
				value, err := sys.Readout("b")
				So(err, ShouldBeNil)
				So(value, ShouldEqual, 1)
			})
		})

		Convey("The norm survives any gate sequence", func() {
			So(sys.ApplyUnitary(Hadamard(), []string{"a"}), ShouldBeNil)
			So(sys.ApplyUnitary(PauliX(), []string{"b"}, "a"), ShouldBeNil)
			So(sys.ApplyUnitary(Hadamard(), []string{"b"}), ShouldBeNil)
			So(sys.Norm(), ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("Unknown registers and width mismatches are dimension errors", func() {
			var dim *DimensionError

			So(errors.As(sys.ApplyUnitary(PauliX(), []string{"nope"}), &dim), ShouldBeTrue)
			So(errors.As(sys.ApplyUnitary(PauliX(), []string{"a", "b"}), &dim), ShouldBeTrue)
			So(errors.As(sys.ApplyUnitary(PauliX(), []string{"a"}, "a"), &dim), ShouldBeTrue)
		})
	})
}

func TestMeasure(t *testing.T) {
	Convey("Given a qubit in equal superposition", t, func() {
		sys, err := Allocate(Qubits("a"), Collapse(), silentConfig(7))
		So(err, ShouldBeNil)
		So(sys.ApplyUnitary(Hadamard(), []string{"a"}), ShouldBeNil)

		Convey("Measuring collapses to one outcome with unit norm", func() {
			outcome, err := sys.Measure("a")
			So(err, ShouldBeNil)
			So(outcome, ShouldBeIn, 0, 1)
			So(sys.Norm(), ShouldAlmostEqual, 1.0, 1e-12)

			Convey("And the readout afterwards agrees", func() {
				value, err := sys.Readout("a")
				So(err, ShouldBeNil)
				So(value, ShouldEqual, outcome)
				So(sys.Outcomes()["a"], ShouldEqual, outcome)
			})
		})
	})

	Convey("Measurement outcomes follow the squared amplitudes", t, func() {
		ones := 0
		trials := 400
		for i := 0; i < trials; i++ {
			sys, err := Allocate(Qubits("a"), Collapse(), silentConfig(int64(i+1)))
			So(err, ShouldBeNil)
			So(sys.ApplyUnitary(Hadamard(), []string{"a"}), ShouldBeNil)
			outcome, err := sys.Measure("a")
			So(err, ShouldBeNil)
			ones += outcome
		}
		So(float64(ones)/float64(trials), ShouldAlmostEqual, 0.5, 0.15)
	})
}

func TestProject(t *testing.T) {
	Convey("Given a qubit in superposition", t, func() {
		sys, err := Allocate(Qubits("a"), Collapse(), silentConfig(1))
		So(err, ShouldBeNil)
		So(sys.ApplyUnitary(Hadamard(), []string{"a"}), ShouldBeNil)

		Convey("Projection yields a normalized branch and spares the original", func() {
			branch, reachable, err := sys.Project("a", 0)
			So(err, ShouldBeNil)
			So(reachable, ShouldBeTrue)
			So(branch.Norm(), ShouldAlmostEqual, 1.0, 1e-12)

			value, err := branch.Readout("a")
			So(err, ShouldBeNil)
			So(value, ShouldEqual, 0)

			support, err := sys.Support("a")
			So(err, ShouldBeNil)
			So(support, ShouldResemble, []int{0, 1})
		})

		Convey("A value out of range is a dimension error", func() {
			_, _, err := sys.Project("a", 2)
			var dim *DimensionError
			So(errors.As(err, &dim), ShouldBeTrue)
		})
	})

	Convey("Given a classically determined qubit", t, func() {
		sys, err := Allocate(Qubits("a"), Collapse(), silentConfig(1))
		So(err, ShouldBeNil)
		So(sys.ApplyUnitary(PauliX(), []string{"a"}), ShouldBeNil)

		Convey("The complementary branch is unreachable, not an error", func() {
			_, reachable, err := sys.Project("a", 0)
			So(err, ShouldBeNil)
			So(reachable, ShouldBeFalse)
			So(sys.Metrics().UnreachableBranches, ShouldEqual, 1)
		})
	})
}

func TestReadout(t *testing.T) {
	Convey("Reading out a superposed register is a sequencing bug", t, func() {
		sys, err := Allocate(Qubits("a"), Collapse(), silentConfig(1))
		So(err, ShouldBeNil)
		So(sys.ApplyUnitary(Hadamard(), []string{"a"}), ShouldBeNil)

		_, err = sys.Readout("a")
		var notCollapsed *NotCollapsedError
		So(errors.As(err, &notCollapsed), ShouldBeTrue)
		So(notCollapsed.Register, ShouldEqual, "a")
		So(notCollapsed.Support, ShouldResemble, []int{0, 1})
	})
}

func TestClone(t *testing.T) {
	Convey("A clone evolves independently of its origin", t, func() {
		sys, err := Allocate(Qubits("a"), Collapse(), silentConfig(1))
		So(err, ShouldBeNil)

		clone := sys.Clone()
		So(clone.ApplyUnitary(PauliX(), []string{"a"}), ShouldBeNil)

		original, err := sys.Readout("a")
		So(err, ShouldBeNil)
		So(original, ShouldEqual, 0)

		cloned, err := clone.Readout("a")
		So(err, ShouldBeNil)
		So(cloned, ShouldEqual, 1)
	})
}

func TestDump(t *testing.T) {
	Convey("The dump renders Dirac terms for every live basis state", t, func() {
		reqs, err := Merge(Qubits("a"), Qubits("b"))
		So(err, ShouldBeNil)
		sys, err := Allocate(reqs, Collapse(), silentConfig(1))
		So(err, ShouldBeNil)
		So(sys.ApplyUnitary(Hadamard(), []string{"a"}), ShouldBeNil)

		dump := sys.Dump()
		So(dump, ShouldContainSubstring, "0.71")
		So(dump, ShouldContainSubstring, "+")
		So(sys.String(), ShouldContainSubstring, "Print order:")
	})
}
