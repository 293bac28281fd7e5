package qthought

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// frTables derives the three agents' inference tables by chained reasoning:
// Alice predicts the final s measurement directly, Bob reasons through
// Alice, Ursula reasons through Bob.
func frTables(p *Protocol) (tblA, tblB, tblU *InferenceTable, err error) {
	engine := NewInferenceEngine(Collapse(), nil)

	tblA, err = engine.Forward(p, "Alice_memory", 2, "s", 13)
	if err != nil {
		return nil, nil, nil, err
	}
	tblBA, err := engine.Backward(p, "Bob_memory", 5, "Alice_memory", 2)
	if err != nil {
		return nil, nil, nil, err
	}
	tblB, err = Consistency(tblBA, tblA)
	if err != nil {
		return nil, nil, nil, err
	}
	tblUB, err := engine.Backward(p, "Ursula_memory", 9, "Bob_memory", 5)
	if err != nil {
		return nil, nil, nil, err
	}
	tblU, err = Consistency(tblUB, tblB)
	if err != nil {
		return nil, nil, nil, err
	}
	return tblA, tblB, tblU, nil
}

func TestFrauchigerRennerAssembly(t *testing.T) {
	Convey("Given the assembled experiment", t, func() {
		p, err := FrauchigerRenner()
		So(err, ShouldBeNil)

		Convey("It spans fourteen time slots over sixteen steps", func() {
			So(p.Len(), ShouldEqual, 16)
			So(p.Times(), ShouldResemble, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14})
		})

		Convey("It declares both qubits and all three observers", func() {
			for _, name := range []string{"r", "s", "Alice", "Bob", "Ursula"} {
				_, ok := p.Requirements().Get(name)
				So(ok, ShouldBeTrue)
			}
		})

		Convey("A run on a matching system keeps unit norm", func() {
			sys, err := Allocate(p.Requirements(), Collapse(), silentConfig(21))
			So(err, ShouldBeNil)
			So(p.Run(sys, true), ShouldBeNil)
			So(sys.Norm(), ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}

func TestFrauchigerRennerReasoning(t *testing.T) {
	Convey("Given the chained agent reasoning", t, func() {
		p, err := FrauchigerRenner()
		So(err, ShouldBeNil)

		tblA, tblB, tblU, err := frTables(p)
		So(err, ShouldBeNil)

		Convey("Alice seeing 1 is certain the final measurement gives 0", func() {
			So(tblA.Get(0), ShouldResemble, []int{0, 1})
			So(tblA.Get(1), ShouldResemble, []int{0})
		})

		Convey("Bob seeing 1 inherits Alice's certainty", func() {
			So(tblB.Get(0), ShouldResemble, []int{0, 1})
			So(tblB.Get(1), ShouldResemble, []int{0})
		})

		Convey("Ursula seeing 1 concludes the final measurement never gives 1", func() {
			So(tblU.Get(0), ShouldResemble, []int{0, 1})
			So(tblU.Get(1), ShouldResemble, []int{0})
		})
	})
}

func TestFrauchigerRennerStatistics(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical sampling")
	}

	Convey("Running the experiment many times", t, func() {
		p, err := FrauchigerRenner()
		So(err, ShouldBeNil)
		tblA, tblB, tblU, err := frTables(p)
		So(err, ShouldBeNil)

		trials := 5000
		wins := 0
		for i := 0; i < trials; i++ {
			sys, err := Allocate(p.Requirements(), Collapse(), silentConfig(int64(i+1)))
			if err != nil {
				t.Fatalf("trial %d: %v", i, err)
			}
			for name, tbl := range map[string]*InferenceTable{
				"Alice": tblA, "Bob": tblB, "Ursula": tblU,
			} {
				if err := sys.SetInferenceTable(name, tbl, 0); err != nil {
					t.Fatalf("trial %d: %v", i, err)
				}
				if err := sys.PrepInference(name); err != nil {
					t.Fatalf("trial %d: %v", i, err)
				}
			}
			if err := p.Run(sys, true); err != nil {
				t.Fatalf("trial %d: %v", i, err)
			}
			win, err := FrauchigerRennerWin(sys)
			if err != nil {
				t.Fatalf("trial %d: %v", i, err)
			}
			if win {
				wins++
			}
		}

		Convey("The outcome Ursula ruled out still shows up one time in twelve", func() {
			So(float64(wins)/float64(trials), ShouldAlmostEqual, 1.0/12.0, 0.02)
		})
	})
}
