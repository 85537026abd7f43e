package rebop

import (
	"bytes"
	"errors"
	"log"
	"math"
	"strings"
	"testing"
)

func newSIR(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	if err := e.SetSeed(1); err != nil {
		t.Fatal(err)
	}
	if err := e.AddReaction(ReactionSpec{
		Name:      "infection",
		Reactants: []Participant{{"S", 1}, {"I", 1}},
		Products:  []Participant{{"I", 2}},
		Rate:      K(0.001),
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.AddReaction(ReactionSpec{
		Name:      "recovery",
		Reactants: []Participant{{"I", 1}},
		Products:  []Participant{{"R", 1}},
		Rate:      K(0.05),
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCount("S", 999); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCount("I", 1); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCount("R", 0); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestSIRConservesTotalPopulation(t *testing.T) {
	e := newSIR(t)
	total := func() int64 {
		return e.Count("S") + e.Count("I") + e.Count("R")
	}
	before := total()
	if _, err := e.AdvanceUntil(50); err != nil {
		t.Fatal(err)
	}
	after := total()
	if before != after {
		t.Fatalf("population not conserved: before=%d after=%d", before, after)
	}
	for _, sp := range []string{"S", "I", "R"} {
		if e.Count(sp) < 0 {
			t.Fatalf("species %s went negative", sp)
		}
	}
}

func TestDeterministicReplay(t *testing.T) {
	runOnce := func() []int64 {
		e := newSIR(t)
		if _, err := e.AdvanceUntil(30); err != nil {
			t.Fatal(err)
		}
		return []int64{e.Count("S"), e.Count("I"), e.Count("R")}
	}
	a := runOnce()
	b := runOnce()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("replay diverged at species %d: %d != %d", i, a[i], b[i])
		}
	}
}

func TestDenseAndSparseAgree(t *testing.T) {
	dense := newSIR(t)
	sparse := newSIR(t)
	if err := sparse.SetSparse(true); err != nil {
		t.Fatal(err)
	}
	if _, err := dense.AdvanceUntil(40); err != nil {
		t.Fatal(err)
	}
	if _, err := sparse.AdvanceUntil(40); err != nil {
		t.Fatal(err)
	}
	for _, sp := range []string{"S", "I", "R"} {
		if dense.Count(sp) != sparse.Count(sp) {
			t.Fatalf("dense/sparse mismatch for %s: %d != %d", sp, dense.Count(sp), sparse.Count(sp))
		}
	}
}

func TestZeroPropensityIsTerminal(t *testing.T) {
	e := NewEngine()
	if err := e.SetSeed(1); err != nil {
		t.Fatal(err)
	}
	if err := e.AddReaction(ReactionSpec{
		Reactants: []Participant{{"A", 2}},
		Products:  []Participant{{"B", 1}},
		Rate:      K(1.0),
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCount("A", 1); err != nil { // below the reactant threshold: propensity is 0
		t.Fatal(err)
	}
	mu, err := e.AdvanceOneReaction(100)
	if err != nil {
		t.Fatal(err)
	}
	if mu != NoReaction {
		t.Fatalf("expected NoReaction, got %d", mu)
	}
	if e.Time() != 100 {
		t.Fatalf("expected time to jump to tmax, got %v", e.Time())
	}
}

func TestReversibleReactionRegistersTwoDirectedReactions(t *testing.T) {
	e := NewEngine()
	rev := K(2.0)
	if err := e.AddReaction(ReactionSpec{
		Name:        "binding",
		Reactants:   []Participant{{"A", 1}, {"B", 1}},
		Products:    []Participant{{"AB", 1}},
		Rate:        K(1.0),
		ReverseRate: &rev,
	}); err != nil {
		t.Fatal(err)
	}
	if got := e.NbReactions(); got != 2 {
		t.Fatalf("expected 2 directed reactions, got %d", got)
	}
}

func TestMutationForbiddenDuringRun(t *testing.T) {
	e := NewEngine()
	if err := e.AddReaction(ReactionSpec{
		Reactants: []Participant{{"A", 1}},
		Products:  []Participant{{"B", 1}},
		Rate:      K(10.0),
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCount("A", 1000); err != nil {
		t.Fatal(err)
	}

	var invalidState error
	_, err := e.RunEvents(1000, func(t float64, reaction int, counts []int64) error {
		invalidState = e.SetParameter("k", 1.0)
		return errors.New("stop after first event")
	})
	if err == nil {
		t.Fatal("expected RunEvents to propagate the handler error")
	}
	var ise *InvalidStateError
	if !errors.As(invalidState, &ise) {
		t.Fatalf("expected InvalidStateError from mutation during run, got %v", invalidState)
	}
}

func TestAdvanceUntilRejectsPastTmax(t *testing.T) {
	e := NewEngine()
	if err := e.SetTime(10); err != nil {
		t.Fatal(err)
	}
	_, err := e.AdvanceUntil(5)
	var iae *InvalidArgumentError
	if !errors.As(err, &iae) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
}

func TestNegativeCountRejected(t *testing.T) {
	e := NewEngine()
	err := e.SetCount("A", -1)
	var iae *InvalidArgumentError
	if !errors.As(err, &iae) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
}

func TestNegativeRateConstantRejectedAtInit(t *testing.T) {
	e := NewEngine()
	err := e.AddReaction(ReactionSpec{
		Reactants: []Participant{{"A", 1}},
		Products:  []Participant{{"B", 1}},
		Rate:      K(-1.0),
	})
	var rnae *RateNegativeAtInitError
	if !errors.As(err, &rnae) {
		t.Fatalf("expected RateNegativeAtInitError, got %v", err)
	}
}

func TestUnreferencedSpeciesWarnsViaLogger(t *testing.T) {
	e := NewEngine()
	var buf bytes.Buffer
	e.SetLogger(log.New(&buf, "", 0))
	if err := e.AddReaction(ReactionSpec{
		Reactants: []Participant{{"A", 1}},
		Products:  []Participant{{"B", 1}},
		Rate:      K(1.0),
	}); err != nil {
		t.Fatal(err)
	}
	// "orphan" is set but never appears in any reaction's reactants,
	// products, or rate expression.
	if err := e.SetCount("orphan", 3); err != nil {
		t.Fatal(err)
	}
	if _, err := e.SumRates(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "orphan") {
		t.Fatalf("expected a logged warning naming %q, got %q", "orphan", buf.String())
	}
	if strings.Contains(buf.String(), `"A"`) || strings.Contains(buf.String(), `"B"`) {
		t.Fatalf("referenced species A/B should not be warned about, got %q", buf.String())
	}
}

func TestAmbiguousIdentifierSurfacesAsError(t *testing.T) {
	e := NewEngine()
	if err := e.AddReaction(ReactionSpec{
		Reactants: []Participant{{"X", 1}},
		Products:  []Participant{{"Y", 1}},
		Rate:      Expr("k * X"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetParameter("k", 1.0); err != nil {
		t.Fatal(err)
	}
	// "k" was registered as a species when the reaction was added (it was
	// not yet a parameter), so it now names both a species and a parameter.
	if err := e.SetCount("k", 5); err != nil {
		t.Fatal(err)
	}
	_, err := e.SumRates()
	var ane *AmbiguousNameError
	if !errors.As(err, &ane) {
		t.Fatalf("expected AmbiguousNameError, got %v", err)
	}
}

func TestMichaelisMentenExprRate(t *testing.T) {
	e := NewEngine()
	// Vmax and Km must be declared before the reaction that references
	// them as parameters, or they are instead registered as species on
	// the reaction's first mention (spec §3 Lifecycle).
	if err := e.SetParameter("Vmax", 10); err != nil {
		t.Fatal(err)
	}
	if err := e.SetParameter("Km", 5); err != nil {
		t.Fatal(err)
	}
	if err := e.AddReaction(ReactionSpec{
		Reactants: []Participant{{"S", 1}},
		Products:  []Participant{{"P", 1}},
		Rate:      Expr("Vmax * S / (Km + S)"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCount("S", 5); err != nil {
		t.Fatal(err)
	}
	sum, err := e.SumRates()
	if err != nil {
		t.Fatal(err)
	}
	want := 10.0 * 5 / (5 + 5)
	if math.Abs(sum-want) > 1e-12 {
		t.Fatalf("got %v, want %v", sum, want)
	}
}
