// Package analysis provides statistical validation helpers for simulated
// trajectories: conserved-moiety checks, oscillation-period recovery via
// autocorrelation, and an incremental mean/variance accumulator for
// aggregating many independently seeded runs. It operates on plain slices
// so it has no dependency on the simulation engine itself.
package analysis

import (
	"github.com/GaryBoone/GoStats/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RunningStats accumulates mean and variance across repeated, independently
// seeded simulation runs without retaining every observation in memory.
type RunningStats struct {
	acc stats.Stats
}

// NewRunningStats returns an empty accumulator.
func NewRunningStats() *RunningStats { return &RunningStats{} }

// Observe folds one more sample into the running mean and variance.
func (r *RunningStats) Observe(x float64) { r.acc.Update(x) }

// Mean returns the running mean of all observed samples.
func (r *RunningStats) Mean() float64 { return r.acc.Mean() }

// Variance returns the running population variance of all observed samples.
func (r *RunningStats) Variance() float64 { return r.acc.PopulationVariance() }

// SampleMean is a thin wrapper around gonum's numerically stable mean, for
// callers that already hold a full series in memory rather than streaming
// it through RunningStats.
func SampleMean(values []float64) float64 { return stat.Mean(values, nil) }

// Invariant checks that a linear combination of species counts (a moiety
// total, e.g. free enzyme + bound enzyme) stays constant, within tol,
// across an entire trajectory — it names the conserved quantity via a
// coefficient vector and reports whether it actually held.
//
// counts[k] holds the full species-count vector at grid point k; coeffs[i]
// is the weight applied to species i. It reports the largest absolute
// deviation from the combination's initial value.
func Invariant(counts [][]int64, coeffs []float64, tol float64) (ok bool, maxDeviation float64) {
	if len(counts) == 0 {
		return true, 0
	}
	values := make([]float64, len(counts))
	for k, row := range counts {
		var v float64
		for i, c := range coeffs {
			if i < len(row) {
				v += c * float64(row[i])
			}
		}
		values[k] = v
	}

	baseline := values[0]
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = v - baseline
	}
	maxDev := floats.Max(deviations)
	minDev := floats.Min(deviations)
	if -minDev > maxDev {
		maxDev = -minDev
	}
	return maxDev <= tol, maxDev
}

// ACF estimates the dominant oscillation period of a species trajectory
// sampled on an evenly spaced time grid (e.g. the Vilar oscillator's
// periodic species) from its autocorrelation function: the lag of the
// first local maximum after the zero lag, scaled by the grid's sampling
// interval dt. maxLag bounds how many lags are examined.
//
// It returns period == 0 if the series is constant, too short to judge, or
// has no local maximum of its autocorrelation below maxLag.
func ACF(values []float64, dt float64, maxLag int) (period float64, peakLag int) {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 2 {
		return 0, 0
	}
	variance := stat.Variance(values, nil)
	if variance == 0 {
		return 0, 0
	}

	acf := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		acf[lag] = stat.Covariance(values[:n-lag], values[lag:], nil) / variance
	}

	lag := 1
	for lag < len(acf)-1 && acf[lag] > acf[lag+1] {
		lag++
	}
	for lag < len(acf)-1 && acf[lag+1] > acf[lag] {
		lag++
	}
	if lag >= len(acf)-1 {
		// The scan ran off the end of the examined lags without finding a
		// local maximum.
		return 0, 0
	}
	return float64(lag) * dt, lag
}
