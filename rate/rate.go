package rate

import "math"

// Rate is a reaction's propensity term: given the current species counts
// and the run's parameter values, it returns the non-negative real
// propensity contributed by this reaction (spec §3, §4.1).
//
// Implementations are either an Expr (a parsed arithmetic expression,
// evaluated verbatim — spec §9(a) fixes this as the "no implicit LMA
// combinatorics" choice) or an LMA (the mass-action fast path, spec §4.1).
type Rate interface {
	// Eval returns the propensity for the given state. A negative result is
	// reported as RateNegativeError; a non-finite result as DomainError.
	Eval(counts []int64, speciesIndex map[string]int, params map[string]float64) (float64, error)

	// SpeciesRefs returns the set of species indices this rate reads,
	// resolved against the given species/parameter name tables. Used to
	// build the dependency graph (spec §4.2).
	SpeciesRefs(speciesIndex map[string]int, params map[string]float64) []int

	// IsConstant reports whether this rate depends on no species counts, so
	// it evaluates to the same value for the life of a run once parameters
	// are fixed (spec §9, "rate expression containing only parameters").
	IsConstant(speciesIndex map[string]int, params map[string]float64) bool
}

// Expr is the general rate variant: a parsed expression tree, evaluated
// verbatim against the current state (no implicit mass-action
// combinatorics — see spec §3 and §9(a)).
type Expr struct {
	Root Node
}

// NewExpr wraps a parsed AST root as a Rate.
func NewExpr(root Node) *Expr { return &Expr{Root: root} }

func (e *Expr) Eval(counts []int64, speciesIndex map[string]int, params map[string]float64) (float64, error) {
	v, err := e.Root.eval(counts, speciesIndex, params)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &DomainError{Reason: "expression evaluated to a non-finite result"}
	}
	if v < 0 {
		return 0, &RateNegativeError{Value: v}
	}
	return v, nil
}

func (e *Expr) SpeciesRefs(speciesIndex map[string]int, params map[string]float64) []int {
	idents := map[string]struct{}{}
	e.Root.collectIdents(idents)
	var refs []int
	for name := range idents {
		if _, isParam := params[name]; isParam {
			continue
		}
		if idx, ok := speciesIndex[name]; ok {
			refs = append(refs, idx)
		}
	}
	return refs
}

func (e *Expr) IsConstant(speciesIndex map[string]int, params map[string]float64) bool {
	return len(e.SpeciesRefs(speciesIndex, params)) == 0
}

// ReactantTerm is one (species, multiplicity) pair in an LMA reactant
// multiset. Stored as a sorted slice (never a map) so that the falling-
// -factorial product below is evaluated in a fixed, reproducible order
// (spec §8 property 3: bit-identical trajectories given the same seed).
type ReactantTerm struct {
	Species int
	Count   int
}

// LMA is the law-of-mass-action fast path: propensity = K *
// Π falling_factorial(counts[species], count), spec §4.1.
type LMA struct {
	K         float64
	Reactants []ReactantTerm // sorted by Species ascending
}

// fallingFactorial computes x*(x-1)*...*(x-n+1), returning 0 whenever any
// factor would be <= 0 (i.e. x < n), per spec §4.1 and §9's branch-free
// guard recommendation for the common case x >= n.
func fallingFactorial(x int64, n int) float64 {
	if n <= 0 {
		return 1
	}
	if x < int64(n) {
		return 0
	}
	switch n {
	case 1:
		return float64(x)
	case 2:
		return float64(x) * float64(x-1)
	default:
		v := float64(x)
		for i := 1; i < n; i++ {
			v *= float64(x - int64(i))
		}
		return v
	}
}

func (l *LMA) Eval(counts []int64, _ map[string]int, _ map[string]float64) (float64, error) {
	prod := l.K
	for _, term := range l.Reactants {
		if prod == 0 {
			break
		}
		prod *= fallingFactorial(counts[term.Species], term.Count)
	}
	if math.IsNaN(prod) || math.IsInf(prod, 0) {
		return 0, &DomainError{Reason: "LMA propensity evaluated to a non-finite result"}
	}
	if prod < 0 {
		return 0, &RateNegativeError{Value: prod}
	}
	return prod, nil
}

func (l *LMA) SpeciesRefs(map[string]int, map[string]float64) []int {
	refs := make([]int, len(l.Reactants))
	for i, t := range l.Reactants {
		refs[i] = t.Species
	}
	return refs
}

// IsConstant reports true only for an LMA with no reactants (a zero-order
// source reaction, whose propensity is K); any reactant makes the
// propensity depend on species counts.
func (l *LMA) IsConstant(map[string]int, map[string]float64) bool { return len(l.Reactants) == 0 }
