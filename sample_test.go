package rebop

import "testing"

func newDimerization(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	if err := e.SetSeed(7); err != nil {
		t.Fatal(err)
	}
	if err := e.AddReaction(ReactionSpec{
		Name:      "dimerize",
		Reactants: []Participant{{"M", 2}},
		Products:  []Participant{{"D", 1}},
		Rate:      K(0.01),
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCount("M", 100); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestRunProducesEvenlySpacedGrid(t *testing.T) {
	e := newDimerization(t)
	res, err := e.Run(10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Times) != 6 {
		t.Fatalf("expected 6 grid points (nbSteps+1), got %d", len(res.Times))
	}
	if res.Times[0] != 0 || res.Times[len(res.Times)-1] != 10 {
		t.Fatalf("expected grid to span [0, 10], got %v", res.Times)
	}
	if len(res.Counts) != len(res.Times) {
		t.Fatalf("Counts and Times length mismatch: %d vs %d", len(res.Counts), len(res.Times))
	}
	for _, row := range res.Counts {
		if len(row) != len(res.Species) {
			t.Fatalf("row width %d != species count %d", len(row), len(res.Species))
		}
	}
}

func TestRunZeroStepsRecordsEndpointsOnly(t *testing.T) {
	e := newDimerization(t)
	res, err := e.Run(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Times) != 2 {
		t.Fatalf("expected exactly 2 points, got %d", len(res.Times))
	}
}

func TestRunEventsStreamsEachFiring(t *testing.T) {
	e := newDimerization(t)
	var lastT float64
	fired, err := e.RunEvents(20, func(t float64, reaction int, counts []int64) error {
		if t < lastT {
			return errSomething("time went backwards")
		}
		lastT = t
		if reaction != 0 {
			return errSomething("unexpected reaction index")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if fired == 0 {
		t.Fatal("expected at least one firing in a 20-time-unit window")
	}
}

func TestRunEventsEarlyStop(t *testing.T) {
	e := newDimerization(t)
	seen := 0
	fired, err := e.RunEvents(1000, func(t float64, reaction int, counts []int64) error {
		seen++
		if seen == 3 {
			return errSomething("stop")
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected early-stop error to propagate")
	}
	if fired != 3 {
		t.Fatalf("expected exactly 3 recorded firings before stop, got %d", fired)
	}
}

type errSomething string

func (e errSomething) Error() string { return string(e) }
