package rebop

import (
	"fmt"
	"log"
	"math"

	"github.com/molsim/rebop/rng"
)

// NoReaction is returned by AdvanceOneReaction in place of a reaction index
// when no reaction fires: either total propensity was zero (the chain is
// terminal, spec §4.3.3) or the next firing would land beyond the caller's
// time cap (spec §4.3.4).
const NoReaction = -1

// Engine holds the full mutable state of one Direct-Method SSA simulation:
// the reaction network, parameters, current time and species counts, the
// cached propensity vector, and the RNG stream that drives it (spec §3).
//
// An Engine is not safe for concurrent use from multiple goroutines.
type Engine struct {
	species   *speciesRegistry
	params    map[string]float64
	reactions []reaction

	sparse bool
	deps   [][]int
	prepared bool

	t      float64
	counts []int64
	rates  []float64
	sumRates float64

	r *rng.RNG

	inAdvance bool

	sparseUpdates      int
	sparseRefreshEvery int

	logger *log.Logger
}

// NewEngine returns an empty Engine seeded from OS entropy. Use SetSeed for
// a reproducible stream.
func NewEngine() *Engine {
	return &Engine{
		species:            newSpeciesRegistry(),
		params:             make(map[string]float64),
		r:                  rng.New(nil),
		sparseRefreshEvery: 1000,
	}
}

// SetLogger attaches a logger for coarse run-lifecycle messages: zero-
// propensity termination, sparse-mode drift-refresh events, and warnings
// about species no reaction references. A nil
// logger (the default) disables logging entirely; nothing is logged from
// the per-iteration hot path in either case.
func (e *Engine) SetLogger(l *log.Logger) {
	e.logger = l
}

// SetSeed reseeds the engine's RNG stream. It may not be called while a run
// is in progress.
func (e *Engine) SetSeed(seed uint64) error {
	if e.inAdvance {
		return &InvalidStateError{Message: "cannot reseed while a run is in progress"}
	}
	e.r = rng.New(&seed)
	return nil
}

// SetSparse selects the sparse, dependency-graph-driven propensity update
// strategy (spec §4.3.2) in place of the dense full-recompute strategy
// (spec §4.3.1). It may not be called while a run is in progress.
func (e *Engine) SetSparse(sparse bool) error {
	if e.inAdvance {
		return &InvalidStateError{Message: "cannot change update strategy while a run is in progress"}
	}
	e.sparse = sparse
	return nil
}

// Sparse reports whether the engine is using the sparse update strategy.
func (e *Engine) Sparse() bool { return e.sparse }

// AddReaction registers a reaction, creating any species it mentions for
// the first time. If spec.ReverseRate is set, a second, reverse-direction
// reaction is also registered, sharing the same reactant/product multisets
// with reactants and products swapped (spec §3). It may not be called
// while a run is in progress (spec §5).
func (e *Engine) AddReaction(spec ReactionSpec) error {
	if e.inAdvance {
		return &InvalidStateError{Message: "cannot add a reaction while a run is in progress"}
	}
	fwd, err := buildReaction(spec.Name, spec.Reactants, spec.Products, spec.Rate, e.species, e.params)
	if err != nil {
		return err
	}
	e.reactions = append(e.reactions, fwd)
	e.growCounts()

	if spec.ReverseRate != nil {
		revName := spec.Name
		if revName != "" {
			revName += " (reverse)"
		}
		rev, err := buildReaction(revName, spec.Products, spec.Reactants, *spec.ReverseRate, e.species, e.params)
		if err != nil {
			return err
		}
		e.reactions = append(e.reactions, rev)
		e.growCounts()
	}

	e.prepared = false
	return nil
}

// SetParameter sets (or creates) a named parameter used by rate
// expressions. It may not be called while a run is in progress (spec §5).
func (e *Engine) SetParameter(name string, value float64) error {
	if e.inAdvance {
		return &InvalidStateError{Message: "cannot set a parameter while a run is in progress"}
	}
	e.params[name] = value
	e.prepared = false
	return nil
}

// NbSpecies returns the number of distinct species registered so far.
func (e *Engine) NbSpecies() int { return e.species.len() }

// NbReactions returns the number of directed reactions registered so far
// (a reversible ReactionSpec contributes two).
func (e *Engine) NbReactions() int { return len(e.reactions) }

// Time returns the engine's current simulated time.
func (e *Engine) Time() float64 { return e.t }

// SetTime sets the engine's current simulated time. t must be finite and
// non-negative.
func (e *Engine) SetTime(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return &InvalidArgumentError{Message: fmt.Sprintf("time must be finite and non-negative, got %v", t)}
	}
	e.t = t
	return nil
}

// Count returns the current population of a species, creating it (at count
// zero) if it has not been mentioned before.
func (e *Engine) Count(species string) int64 {
	idx := e.species.getOrCreate(species)
	e.growCounts()
	return e.counts[idx]
}

// SetCount sets a species' current population, creating the species if it
// has not been mentioned before. count must be non-negative.
func (e *Engine) SetCount(species string, count int64) error {
	if count < 0 {
		return &InvalidArgumentError{Message: fmt.Sprintf("species %q: negative count %d", species, count)}
	}
	idx := e.species.getOrCreate(species)
	e.growCounts()
	e.counts[idx] = count
	if e.prepared {
		// Counts changed after rates were last computed: the invariant
		// that rates[i] reflects the current counts (spec §3) must be
		// restored immediately, since it is required to hold between
		// operations, not just during a run.
		if err := e.recomputeAllRates(); err != nil {
			return err
		}
	}
	return nil
}

// SumRates returns the total propensity a0 = sum_i rates[i], preparing the
// engine (building the dependency graph and evaluating all propensities
// against the current counts) if this has not happened yet.
func (e *Engine) SumRates() (float64, error) {
	if err := e.ensurePrepared(); err != nil {
		return 0, err
	}
	return e.sumRates, nil
}

func (e *Engine) growCounts() {
	for len(e.counts) < e.species.len() {
		e.counts = append(e.counts, 0)
	}
}

// ensurePrepared (re)builds the dependency graph and the propensity vector
// if the network or parameters changed since the last time this ran. It is
// idempotent and safe to call from read-only accessors.
func (e *Engine) ensurePrepared() error {
	if e.prepared {
		return nil
	}
	e.growCounts()
	e.deps = e.buildDependencyGraph()
	if err := e.recomputeAllRates(); err != nil {
		return err
	}
	e.warnUnreferencedSpecies()
	e.prepared = true
	return nil
}

// warnUnreferencedSpecies surfaces a non-fatal, host-facing notice (spec
// §6: "species not referenced by any reaction are allowed with a
// non-fatal warning surfaced to the host") for every species that no
// reaction reads or mutates — typically one set via SetCount/Count but
// never mentioned by a reaction's reactants, products, or rate
// expression. It is silent unless a logger has been attached (SetLogger).
func (e *Engine) warnUnreferencedSpecies() {
	if e.logger == nil {
		return
	}
	referenced := make([]bool, e.species.len())
	for _, r := range e.reactions {
		for _, idx := range r.mutatedSpecies() {
			referenced[idx] = true
		}
		for _, idx := range r.rt.SpeciesRefs(e.species.index, e.params) {
			referenced[idx] = true
		}
	}
	for idx, name := range e.species.names {
		if !referenced[idx] {
			e.logger.Printf("rebop: species %q is not referenced by any reaction", name)
		}
	}
}

// recomputeAllRates re-evaluates every reaction's propensity into e.rates
// in place. e.rates is (re)allocated only when its length no longer
// matches the reaction count (i.e. a reaction was just added); the per-
// firing dense path below calls this every iteration without ever
// triggering that branch, satisfying spec §5: "rates... sized once per
// run and not reallocated inside the hot loop."
func (e *Engine) recomputeAllRates() error {
	if len(e.rates) != len(e.reactions) {
		e.rates = make([]float64, len(e.reactions))
	}
	var sum float64
	for i, r := range e.reactions {
		v, err := r.rt.Eval(e.counts, e.species.index, e.params)
		if err != nil {
			return fmt.Errorf("rebop: reaction %d (%s): %w", i, r.name, err)
		}
		e.rates[i] = v
		sum += v
	}
	e.sumRates = sum
	return nil
}

// AdvanceUntil runs the Direct Method SSA from the engine's current state
// until the simulated time would exceed tmax, then stops (spec §4.3.4).
// Time always ends at exactly tmax, even if no reaction fires in the
// interval or the chain is terminal. It returns the number of
// reactions that fired.
func (e *Engine) AdvanceUntil(tmax float64) (int, error) {
	if math.IsNaN(tmax) || tmax < e.t {
		return 0, &InvalidArgumentError{Message: fmt.Sprintf("tmax %v is before current time %v", tmax, e.t)}
	}
	e.inAdvance = true
	defer func() { e.inAdvance = false }()

	if err := e.ensurePrepared(); err != nil {
		return 0, err
	}

	fired := 0
	for {
		_, ok, err := e.step(tmax)
		if err != nil {
			return fired, err
		}
		if !ok {
			break
		}
		fired++
	}
	e.t = tmax
	return fired, nil
}

// AdvanceOneReaction performs a single Direct Method iteration: it draws
// the waiting time and the next reaction to fire, and either fires it (if
// the resulting time does not exceed tmax) or advances time to tmax
// without firing. It returns the index of the reaction that fired, or
// NoReaction if none did (spec §4.3.3, §4.3.4).
func (e *Engine) AdvanceOneReaction(tmax float64) (int, error) {
	if math.IsNaN(tmax) || tmax < e.t {
		return NoReaction, &InvalidArgumentError{Message: fmt.Sprintf("tmax %v is before current time %v", tmax, e.t)}
	}
	e.inAdvance = true
	defer func() { e.inAdvance = false }()

	if err := e.ensurePrepared(); err != nil {
		return NoReaction, err
	}

	mu, ok, err := e.step(tmax)
	if err != nil {
		return NoReaction, err
	}
	if !ok {
		e.t = tmax
		return NoReaction, nil
	}
	return mu, nil
}

// step performs one Direct Method iteration in place. It reports the fired
// reaction index and ok=true if a reaction fired within [e.t, tmax]; if the
// chain is terminal (sumRates == 0) or the drawn firing time exceeds tmax,
// it reports ok=false and leaves time advancement to the caller, so that a
// caller driving several iterations via AdvanceOneReaction only pays the
// single final jump to tmax once.
func (e *Engine) step(tmax float64) (int, bool, error) {
	if e.sumRates <= 0 {
		if e.logger != nil {
			e.logger.Printf("rebop: chain terminal at t=%v, sum of rates is zero", e.t)
		}
		return NoReaction, false, nil
	}

	u1 := e.r.Uniform01()
	tau := -math.Log(u1) / e.sumRates

	u2 := e.r.Uniform01()
	threshold := u2 * e.sumRates
	mu := selectReaction(e.rates, threshold)

	if e.t+tau > tmax {
		return NoReaction, false, nil
	}

	e.t += tau
	e.applyDelta(mu)
	if err := e.refreshRatesAfterFiring(mu); err != nil {
		return NoReaction, false, err
	}
	return mu, true, nil
}

// selectReaction returns the smallest index i such that the prefix sum of
// rates[:i+1] is >= threshold (spec §4.3 step 4). The final index is a
// floating-point safety net for the case where accumulated rounding leaves
// the running sum just short of threshold.
func selectReaction(rates []float64, threshold float64) int {
	var cum float64
	for i, v := range rates {
		cum += v
		if cum >= threshold {
			return i
		}
	}
	return len(rates) - 1
}

func (e *Engine) applyDelta(mu int) {
	for _, d := range e.reactions[mu].delta {
		e.counts[d.Species] += int64(d.Delta)
	}
}

// refreshRatesAfterFiring updates the propensity vector after reaction mu
// has fired, using whichever strategy is selected (spec §4.3.1, §4.3.2).
func (e *Engine) refreshRatesAfterFiring(mu int) error {
	if !e.sparse {
		return e.recomputeAllRates()
	}
	return e.refreshRatesSparse(mu)
}

// refreshRatesSparse re-evaluates only the reactions reachable from mu in
// the dependency graph, maintaining sumRates incrementally. Because
// incremental addition/subtraction of the O(1e5)-plus floats a typical
// long run performs can drift from the exact sum by a few ULPs, sumRates
// is periodically resynced by a plain re-summation of the current
// (already fresh) rates vector — no propensities are re-evaluated, so this
// costs O(reactions) and never touches the RNG stream, preserving bit-exact
// reproducibility (spec §4.3.2, §9).
func (e *Engine) refreshRatesSparse(mu int) error {
	for _, j := range e.deps[mu] {
		old := e.rates[j]
		v, err := e.reactions[j].rt.Eval(e.counts, e.species.index, e.params)
		if err != nil {
			return fmt.Errorf("rebop: reaction %d (%s): %w", j, e.reactions[j].name, err)
		}
		e.rates[j] = v
		e.sumRates += v - old
	}

	e.sparseUpdates++
	if e.sparseUpdates%e.sparseRefreshEvery == 0 {
		var sum float64
		for _, v := range e.rates {
			sum += v
		}
		if e.logger != nil {
			e.logger.Printf("rebop: sparse drift refresh at t=%v: sumRates %v -> %v", e.t, e.sumRates, sum)
		}
		e.sumRates = sum
	}
	return nil
}
