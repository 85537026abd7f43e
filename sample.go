package rebop

import "math"

// Result holds the species-count trajectory produced by Run: a snapshot of
// every species' population at each point of an evenly spaced time grid
// from the engine's time at the start of the call to tmax (spec §4.4).
type Result struct {
	Species []string
	Times   []float64
	// Counts[k][i] is the population of Species[i] at Times[k].
	Counts [][]int64
}

// Run drives the engine from its current time to tmax, recording a
// snapshot of every species' count at nbSteps+1 evenly spaced grid points
// (including both endpoints). nbSteps == 0 records only the start and end
// states (spec §4.4). Columns follow reaction-order introduction, i.e.
// speciesRegistry's append-only assignment order. To record only a subset
// of species, or a caller-specified column order, use RunSubset.
func (e *Engine) Run(tmax float64, nbSteps int) (*Result, error) {
	return e.RunSubset(tmax, nbSteps, nil)
}

// RunSubset behaves like Run, except the recorded columns are restricted
// to varNames and ordered exactly as given (spec §4.4: "optional subset of
// species to record"; spec §6: the recording order is "caller-specified
// (var_names) or falls back to reaction-order introduction"). A nil or
// empty varNames records every species in reaction-order introduction,
// identical to Run.
func (e *Engine) RunSubset(tmax float64, nbSteps int, varNames []string) (*Result, error) {
	if nbSteps < 0 {
		return nil, &InvalidArgumentError{Message: "nbSteps must be non-negative"}
	}
	if math.IsNaN(tmax) || tmax < e.t {
		return nil, &InvalidArgumentError{Message: "tmax is before the engine's current time"}
	}
	if err := e.ensurePrepared(); err != nil {
		return nil, err
	}

	names := varNames
	if len(names) == 0 {
		names = e.species.names
	}
	cols := make([]int, len(names))
	for i, n := range names {
		idx, ok := e.species.lookup(n)
		if !ok {
			return nil, &InvalidArgumentError{Message: "unknown species \"" + n + "\" in var_names"}
		}
		cols[i] = idx
	}

	t0 := e.t
	res := &Result{Species: append([]string(nil), names...)}
	record := func() {
		res.Times = append(res.Times, e.t)
		snap := make([]int64, len(cols))
		for i, idx := range cols {
			snap[i] = e.counts[idx]
		}
		res.Counts = append(res.Counts, snap)
	}
	record()

	if nbSteps == 0 {
		if _, err := e.AdvanceUntil(tmax); err != nil {
			return nil, err
		}
		record()
		return res, nil
	}

	dt := (tmax - t0) / float64(nbSteps)
	for k := 1; k <= nbSteps; k++ {
		target := t0 + dt*float64(k)
		if k == nbSteps {
			target = tmax
		}
		if _, err := e.AdvanceUntil(target); err != nil {
			return nil, err
		}
		record()
	}
	return res, nil
}

// EventHandler receives one reaction firing from RunEvents: the new
// simulated time, the index of the reaction that fired, and a fresh
// snapshot of species counts after the firing. Returning a non-nil error
// stops the run early.
type EventHandler func(t float64, reaction int, counts []int64) error

// RunEvents drives the engine from its current state to tmax, invoking
// onEvent once per reaction firing instead of recording a time grid
// (spec SPEC_FULL §4.4.1). This lets a host stream per-event data — e.g.
// writing a trajectory to disk incrementally, or stopping as soon as some
// species crosses a threshold — without buffering the whole run in memory.
//
// It returns the number of reactions fired. If onEvent returns an error,
// RunEvents stops immediately and returns that error unchanged; the engine
// is left at the state of the last successful firing (spec §5: errors
// mid-run leave t and counts reflecting the last successful firing).
func (e *Engine) RunEvents(tmax float64, onEvent EventHandler) (int, error) {
	if math.IsNaN(tmax) || tmax < e.t {
		return 0, &InvalidArgumentError{Message: "tmax is before the engine's current time"}
	}
	e.inAdvance = true
	defer func() { e.inAdvance = false }()

	if err := e.ensurePrepared(); err != nil {
		return 0, err
	}

	fired := 0
	for {
		mu, ok, err := e.step(tmax)
		if err != nil {
			return fired, err
		}
		if !ok {
			break
		}
		fired++
		if onEvent != nil {
			snap := make([]int64, len(e.counts))
			copy(snap, e.counts)
			if err := onEvent(e.t, mu, snap); err != nil {
				return fired, err
			}
		}
	}
	e.t = tmax
	return fired, nil
}
