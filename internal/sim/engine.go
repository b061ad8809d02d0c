// Package sim implements the Monte Carlo sea-level-rise engine: a seeded
// PRNG, the fixed five-contributor physical model, the sampling loop, and
// the nearest-rank statistics reduction.
//
// # Sampling model
//
// For each iteration and each contributor, the engine scales the contributor
// mean by temperature^exponent and its spread by sqrt(temperature), then
// draws a normal variate via the Box-Muller transform (two uniform draws per
// variate, in contributor table order). Negative draws are clamped to zero
// because a physical contribution cannot remove water from the ocean. The
// five clamped values sum to the iteration total.
//
// # Determinism
//
// The engine never touches a global random source. Every run is a pure
// function of (temperature, iterations, seed); seed derivation policy
// belongs to the caller (see ManualSeed and ProjectionSeed). Two runs with
// identical inputs produce bit-identical sorted samples and statistics.
package sim

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidInput reports a simulation request the engine refuses to run.
var ErrInvalidInput = errors.New("invalid simulation input")

// Input is one simulation request. Seed is mandatory: callers that want
// non-reproducible behavior derive a seed from the wall clock themselves.
type Input struct {
	TemperatureIncrease float64 `json:"temperature_increase"`
	Iterations          int     `json:"iterations"`
	Seed                uint32  `json:"seed"`
}

// Result is one completed run. It is immutable once returned; SortedTotals
// is exposed in full because the histogram consumer bins the raw sample.
type Result struct {
	TemperatureIncrease float64            `json:"temperature_increase"`
	Iterations          int                `json:"iterations"`
	Seed                uint32             `json:"seed"`
	SortedTotals        []float64          `json:"sorted_totals"`
	Stats               Summary            `json:"stats"`
	ContributorStats    map[string]Summary `json:"contributor_stats"`
}

// Run executes a fixed-size Monte Carlo simulation. There is no early exit,
// no adaptive stopping, and no variance reduction: auditability of the
// sample beats efficiency for this engine.
//
// A temperature of zero or below is the degenerate case: the result carries
// zero iterations, an empty sample, and all-zero statistics, and no PRNG
// draws occur. A non-positive iteration count with a positive temperature
// fails with ErrInvalidInput.
func Run(in Input) (Result, error) {
	if in.TemperatureIncrease <= 0 {
		return zeroResult(in), nil
	}
	if in.Iterations <= 0 {
		return Result{}, fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidInput, in.Iterations)
	}

	rng := NewRNG(in.Seed)

	// Per-contributor scaling is constant across iterations.
	means := make([]float64, NumContributors)
	stds := make([]float64, NumContributors)
	for i, c := range contributors {
		means[i] = c.MeanPerDegree * math.Pow(in.TemperatureIncrease, c.Exponent)
		stds[i] = c.StdPerDegree * math.Sqrt(in.TemperatureIncrease)
	}

	totals := make([]float64, 0, in.Iterations)
	perContributor := make([][]float64, NumContributors)
	for i := range perContributor {
		perContributor[i] = make([]float64, 0, in.Iterations)
	}

	for it := 0; it < in.Iterations; it++ {
		total := 0.0
		for ci := range contributors {
			v := means[ci] + boxMuller(rng)*stds[ci]
			if v < 0 {
				v = 0
			}
			perContributor[ci] = append(perContributor[ci], v)
			total += v
		}
		totals = append(totals, total)
	}

	sort.Float64s(totals)
	contribStats := make(map[string]Summary, NumContributors)
	for i, c := range contributors {
		sort.Float64s(perContributor[i])
		contribStats[c.Name] = Summarize(perContributor[i])
	}

	return Result{
		TemperatureIncrease: in.TemperatureIncrease,
		Iterations:          in.Iterations,
		Seed:                in.Seed,
		SortedTotals:        totals,
		Stats:               Summarize(totals),
		ContributorStats:    contribStats,
	}, nil
}

// boxMuller draws one standard-normal variate from two fresh uniforms.
func boxMuller(rng *RNG) float64 {
	return normalVariate(rng.Float64(), rng.Float64())
}

// normalVariate maps two uniforms in [0,1) to a standard-normal draw via the
// Box-Muller transform. A first uniform of exactly zero is clamped to the
// smallest positive double so the logarithm stays finite; draw counts and
// all nonzero draws are unaffected.
func normalVariate(u1, u2 float64) float64 {
	if u1 == 0 {
		u1 = math.SmallestNonzeroFloat64
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func zeroResult(in Input) Result {
	contribStats := make(map[string]Summary, NumContributors)
	for _, c := range contributors {
		contribStats[c.Name] = Summary{}
	}
	return Result{
		TemperatureIncrease: in.TemperatureIncrease,
		Iterations:          0,
		Seed:                in.Seed,
		SortedTotals:        []float64{},
		Stats:               Summary{},
		ContributorStats:    contribStats,
	}
}
