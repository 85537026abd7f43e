package rebop

import (
	"fmt"
	"sort"

	"github.com/molsim/rebop/parser"
	"github.com/molsim/rebop/rate"
)

// Participant names one (species, stoichiometric coefficient) term of a
// reaction's reactant or product side (spec §3). Count must be positive;
// a species named more than once on one side has its counts summed.
type Participant struct {
	Species string
	Count   int
}

// RateSpec selects how a reaction's propensity is computed: either the
// law-of-mass-action fast path (a rate constant, combined with the
// reaction's own reactant multiplicities via the falling-factorial
// combinatorics in package rate) or a free-form expression evaluated
// verbatim against the current species counts and parameters, with no
// implicit combinatorial factor folded in (spec §9, Open Question (a)).
type RateSpec struct {
	k      float64
	isK    bool
	expr   string
	isExpr bool
}

// K builds a law-of-mass-action RateSpec with rate constant k.
func K(k float64) RateSpec {
	return RateSpec{k: k, isK: true}
}

// Expr builds a RateSpec from free-form rate-expression source, parsed
// with package parser and evaluated verbatim each time the reaction's
// propensity is needed (spec §4.1).
func Expr(src string) RateSpec {
	return RateSpec{expr: src, isExpr: true}
}

// ReactionSpec is the caller-facing description of one reaction, optionally
// with a reverse rate describing the same reaction run in the opposite
// direction (spec §3: reversible reactions normalize to one or two
// directed reactions sharing the same reactant/product multisets).
type ReactionSpec struct {
	Name        string
	Reactants   []Participant
	Products    []Participant
	Rate        RateSpec
	ReverseRate *RateSpec
}

// stoichTerm is one entry of a reaction's net stoichiometric change, kept
// in a sorted slice (never a map) so that applying it to the count vector
// and reading it for dependency-graph construction iterates in a fixed,
// reproducible order (spec §8 property 3).
type stoichTerm struct {
	Species int
	Delta   int
}

// reaction is one directed, normalized reaction: its net stoichiometric
// change and the Rate that computes its propensity.
type reaction struct {
	name  string
	delta []stoichTerm
	rt    rate.Rate
}

// buildReaction normalizes one directed side of a ReactionSpec (reactants
// consumed, products produced, using the given RateSpec) into an internal
// reaction: it merges repeated species into single multiplicities, and
// builds either an rate.LMA fast path or a parsed rate.Expr.
func buildReaction(name string, reactants, products []Participant, rs RateSpec, species *speciesRegistry, params map[string]float64) (reaction, error) {
	reactantCounts := make(map[int]int)
	var reactantOrder []int
	for _, p := range reactants {
		if p.Count <= 0 {
			return reaction{}, &InvalidArgumentError{Message: fmt.Sprintf("reaction %q: reactant %q has non-positive count %d", name, p.Species, p.Count)}
		}
		idx := species.getOrCreate(p.Species)
		if _, seen := reactantCounts[idx]; !seen {
			reactantOrder = append(reactantOrder, idx)
		}
		reactantCounts[idx] += p.Count
	}

	deltaMap := make(map[int]int)
	for idx, n := range reactantCounts {
		deltaMap[idx] -= n
	}
	for _, p := range products {
		if p.Count <= 0 {
			return reaction{}, &InvalidArgumentError{Message: fmt.Sprintf("reaction %q: product %q has non-positive count %d", name, p.Species, p.Count)}
		}
		idx := species.getOrCreate(p.Species)
		deltaMap[idx] += p.Count
	}

	delta := make([]stoichTerm, 0, len(deltaMap))
	for idx, d := range deltaMap {
		if d != 0 {
			delta = append(delta, stoichTerm{Species: idx, Delta: d})
		}
	}
	sort.Slice(delta, func(i, j int) bool { return delta[i].Species < delta[j].Species })

	var rt rate.Rate
	switch {
	case rs.isK:
		if rs.k < 0 {
			return reaction{}, &RateNegativeAtInitError{Value: rs.k}
		}
		terms := make([]rate.ReactantTerm, len(reactantOrder))
		for i, idx := range reactantOrder {
			terms[i] = rate.ReactantTerm{Species: idx, Count: reactantCounts[idx]}
		}
		sort.Slice(terms, func(i, j int) bool { return terms[i].Species < terms[j].Species })
		rt = &rate.LMA{K: rs.k, Reactants: terms}
	case rs.isExpr:
		root, err := parser.Parse(rs.expr)
		if err != nil {
			return reaction{}, err
		}
		// A name mentioned in a rate expression that is not already a
		// declared parameter is a species, created here on its first
		// mention (spec §3 Lifecycle). A name must therefore be given to
		// SetParameter before any reaction whose expression references it
		// as a parameter, or it is instead treated as a species counted
		// from zero.
		for _, id := range rate.Idents(root) {
			if _, isParam := params[id]; !isParam {
				species.getOrCreate(id)
			}
		}
		rt = rate.NewExpr(root)
	default:
		return reaction{}, &InvalidArgumentError{Message: fmt.Sprintf("reaction %q: no rate specified", name)}
	}

	return reaction{name: name, delta: delta, rt: rt}, nil
}

// mutatedSpecies returns the set of species indices this reaction's firing
// changes, used to build the sparse dependency graph (spec §4.2).
func (r reaction) mutatedSpecies() []int {
	out := make([]int, len(r.delta))
	for i, d := range r.delta {
		out[i] = d.Species
	}
	return out
}
