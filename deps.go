package rebop

import "sort"

// buildDependencyGraph computes, for each reaction i, the set of reactions
// whose propensity must be re-evaluated after i fires: every reaction j
// that reads a species i's firing mutates, plus i itself (spec §4.2).
//
//	deps[i] = { j : reads(j) ∩ mutates(i) ≠ ∅ } ∪ { i }
//
// It is built once per run (the first advance after the network or
// parameters last changed) and frozen for the run's duration; reactants and
// products do not change mid-run, so the graph stays valid throughout.
func (e *Engine) buildDependencyGraph() [][]int {
	n := len(e.reactions)
	deps := make([][]int, n)
	if n == 0 {
		return deps
	}

	reads := make([][]int, n)
	for j, r := range e.reactions {
		reads[j] = r.rt.SpeciesRefs(e.species.index, e.params)
	}

	mutates := make([]map[int]bool, n)
	for i, r := range e.reactions {
		m := make(map[int]bool, len(r.delta))
		for _, s := range r.mutatedSpecies() {
			m[s] = true
		}
		mutates[i] = m
	}

	for i := 0; i < n; i++ {
		set := map[int]bool{i: true}
		for j := 0; j < n; j++ {
			for _, s := range reads[j] {
				if mutates[i][s] {
					set[j] = true
					break
				}
			}
		}
		list := make([]int, 0, len(set))
		for j := range set {
			list = append(list, j)
		}
		sort.Ints(list)
		deps[i] = list
	}
	return deps
}
