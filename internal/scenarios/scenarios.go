// Package scenarios loads TOML reaction-network fixtures used by the
// engine's end-to-end tests and builds rebop.Engine instances from them, so
// the test scenarios named by the specification (S1-S6) live as data
// rather than as hand-assembled Go literals scattered across test files.
package scenarios

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/davecgh/go-spew/spew"

	"github.com/molsim/rebop"
)

// ParticipantSpec is one reactant or product entry in a fixture file.
type ParticipantSpec struct {
	Species string `toml:"species"`
	Count   int    `toml:"count"`
}

// RateSpec mirrors rebop.RateSpec's two constructors: exactly one of K or
// Expr should be set in the fixture.
type RateSpec struct {
	K    *float64 `toml:"k"`
	Expr string   `toml:"expr"`
}

// ReactionSpec mirrors rebop.ReactionSpec for TOML decoding.
type ReactionSpec struct {
	Name      string             `toml:"name"`
	Reactants []ParticipantSpec  `toml:"reactants"`
	Products  []ParticipantSpec  `toml:"products"`
	Rate      RateSpec           `toml:"rate"`
	Reverse   *RateSpec          `toml:"reverse"`
}

// Scenario is one complete fixture: a reaction network, initial state, and
// the run parameters used to exercise it.
type Scenario struct {
	Name      string             `toml:"name"`
	Seed      uint64             `toml:"seed"`
	Sparse    bool               `toml:"sparse"`
	TMax      float64            `toml:"tmax"`
	NbSteps   int                `toml:"nb_steps"`
	Params    map[string]float64 `toml:"params"`
	Counts    map[string]int64   `toml:"counts"`
	Reactions []ReactionSpec     `toml:"reactions"`
}

// Load decodes a scenario fixture from a TOML file.
func Load(path string) (*Scenario, error) {
	var sc Scenario
	if _, err := toml.DecodeFile(path, &sc); err != nil {
		return nil, fmt.Errorf("scenarios: decode %s: %w", path, err)
	}
	return &sc, nil
}

// Build constructs and configures a rebop.Engine from a decoded scenario:
// the seed, update strategy, parameters, reactions, and initial counts are
// all applied in that order, matching the lifecycle rules in rebop's own
// API (reactions and parameters must be set before the engine is run).
func Build(sc *Scenario) (*rebop.Engine, error) {
	e := rebop.NewEngine()
	if err := e.SetSeed(sc.Seed); err != nil {
		return nil, err
	}
	if err := e.SetSparse(sc.Sparse); err != nil {
		return nil, err
	}
	for name, v := range sc.Params {
		if err := e.SetParameter(name, v); err != nil {
			return nil, err
		}
	}
	for _, r := range sc.Reactions {
		spec := rebop.ReactionSpec{
			Name:      r.Name,
			Reactants: toParticipants(r.Reactants),
			Products:  toParticipants(r.Products),
			Rate:      toRateSpec(r.Rate),
		}
		if r.Reverse != nil {
			rv := toRateSpec(*r.Reverse)
			spec.ReverseRate = &rv
		}
		if err := e.AddReaction(spec); err != nil {
			return nil, fmt.Errorf("scenarios: %s: reaction %q: %w", sc.Name, r.Name, err)
		}
	}
	for name, c := range sc.Counts {
		if err := e.SetCount(name, c); err != nil {
			return nil, fmt.Errorf("scenarios: %s: count %q: %w", sc.Name, name, err)
		}
	}
	return e, nil
}

func toParticipants(ps []ParticipantSpec) []rebop.Participant {
	out := make([]rebop.Participant, len(ps))
	for i, p := range ps {
		out[i] = rebop.Participant{Species: p.Species, Count: p.Count}
	}
	return out
}

func toRateSpec(r RateSpec) rebop.RateSpec {
	if r.K != nil {
		return rebop.K(*r.K)
	}
	return rebop.Expr(r.Expr)
}

// Dump renders a value for diagnostic output on test failure, deeper than
// %+v for nested slices and maps of species counts.
func Dump(v interface{}) string {
	return spew.Sdump(v)
}
