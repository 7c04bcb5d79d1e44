// Package pool implements the simulated-annealing pool optimizer
// (component C6): it picks the final deployable per-constellation subsets
// of candidates, trading off visibility compliance, temporal distribution,
// signal quality, and RAAN diversity under hard feasibility constraints.
package pool

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/aurora-leo/poolplanner/internal/config"
	"github.com/aurora-leo/poolplanner/internal/coverage"
	"github.com/aurora-leo/poolplanner/internal/filter"
)

// CandidateInput is one satellite's scoring record plus the per-instant
// visibility bitmap and RAAN value the optimizer needs to evaluate
// fitness, assembled by the orchestrator from C2's and C5's outputs.
type CandidateInput struct {
	Score   filter.CandidateScore
	Bitmap  []bool // true where this satellite is above the mask, aligned to the shared time grid
	RAANDeg float64
}

// Bounds is a target band with a lower and upper bound.
type Bounds struct {
	Min int
	Max int
}

// ConstellationInput bundles one constellation's candidate pool, its
// selection-set-size feasibility band (Bounds, e.g. Starlink selects
// 10-450), and its concurrent-visible-at-any-moment band used by the
// visibility_compliance objective (VisibleBounds, e.g. Starlink 10-100 —
// spec.md §4.6, much narrower than the selected-set size since the selected
// set is only ever partially visible at once).
type ConstellationInput struct {
	Candidates    []CandidateInput
	Bounds        Bounds
	VisibleBounds Bounds
}

// FitnessBreakdown is the four normalized objectives the annealer combines.
type FitnessBreakdown struct {
	VisibilityCompliance float64
	TemporalDistribution float64
	SignalQuality        float64
	RAANDiversity        float64
	Total                float64
}

// ComplianceDict mirrors spec.md's named compliance booleans.
type ComplianceDict struct {
	StarlinkTargetMet       bool
	OneWebTargetMet         bool
	VisibilityComplianceOK  bool
	TemporalDistributionOK  bool
	SignalQualityOK         bool
	RAANDiversityOK         bool
}

// Solution is the optimizer's output.
type Solution struct {
	Starlink   []filter.CandidateScore
	OneWeb     []filter.CandidateScore
	Fitness    FitnessBreakdown
	Compliance ComplianceDict
	Feasible   bool
	Iterations int
}

const (
	minVisibilityCompliance = 0.70
	minTemporalDistribution = 0.50

	weightVisibility = 0.45
	weightTemporal   = 0.20
	weightSignal     = 0.15
	weightRAAN       = 0.20
)

// state is one candidate pool state: a boolean selection mask per
// constellation.
type state struct {
	starlinkSel []bool
	onewebSel   []bool
}

// Optimize runs simulated annealing jointly over the Starlink and OneWeb
// candidate pools. It never returns a solution violating the hard
// constraints (pool size band, visibility_compliance, temporal_distribution)
// unless max_iterations elapses with nothing feasible found, in which case
// it returns the best infeasible state with Feasible=false.
func Optimize(starlink, oneweb ConstellationInput, covCfg config.CoverageConfig, annCfg config.AnnealingConfig, rng *rand.Rand) Solution {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	cur := initialState(starlink, oneweb)
	curFit, curFeasible := evaluate(cur, starlink, oneweb, covCfg)

	best := cloneState(cur)
	bestFit := curFit
	bestFeasible := curFeasible

	temperature := annCfg.InitialTemperature
	iterations := 0

	for iterations = 0; iterations < annCfg.MaxIterations; iterations++ {
		next := proposeNeighbor(cur, starlink, oneweb, rng)
		nextFit, nextFeasible := evaluate(next, starlink, oneweb, covCfg)

		if !nextFeasible && curFeasible {
			// Hard constraints reject this neighbor outright; don't even
			// roll the annealing dice, matching "rejected neighbor states".
			temperature *= annCfg.CoolingRate
			continue
		}

		accept := false
		switch {
		case nextFeasible && !curFeasible:
			accept = true
		case nextFit.Total >= curFit.Total:
			accept = true
		default:
			delta := curFit.Total - nextFit.Total
			if temperature > 0 && rng.Float64() < math.Exp(-delta/temperature) {
				accept = true
			}
		}

		if accept {
			cur = next
			curFit = nextFit
			curFeasible = nextFeasible
		}

		if betterSolution(curFeasible, curFit, bestFeasible, bestFit) {
			best = cloneState(cur)
			bestFit = curFit
			bestFeasible = curFeasible
		}

		temperature *= annCfg.CoolingRate
	}

	return buildSolution(best, starlink, oneweb, bestFit, bestFeasible, iterations, covCfg)
}

func betterSolution(feasible bool, fit FitnessBreakdown, bestFeasible bool, bestFit FitnessBreakdown) bool {
	if feasible != bestFeasible {
		return feasible
	}
	return fit.Total > bestFit.Total
}

// initialState seeds the annealer with the top-scoring candidates already
// marked Selected by the filter engine, up to each constellation's bounds.
func initialState(starlink, oneweb ConstellationInput) state {
	return state{
		starlinkSel: seedSelection(starlink),
		onewebSel:   seedSelection(oneweb),
	}
}

func seedSelection(in ConstellationInput) []bool {
	sel := make([]bool, len(in.Candidates))
	target := in.Bounds.Max
	if target > len(in.Candidates) {
		target = len(in.Candidates)
	}
	count := 0
	for i, c := range in.Candidates {
		if c.Score.Selected && count < target {
			sel[i] = true
			count++
		}
	}
	// Top up with the highest-scored remaining candidates if the filter
	// engine's selection didn't fill the band (e.g. too few survivors).
	for i := range sel {
		if count >= in.Bounds.Min {
			break
		}
		if !sel[i] {
			sel[i] = true
			count++
		}
	}
	return sel
}

func cloneState(s state) state {
	out := state{
		starlinkSel: make([]bool, len(s.starlinkSel)),
		onewebSel:   make([]bool, len(s.onewebSel)),
	}
	copy(out.starlinkSel, s.starlinkSel)
	copy(out.onewebSel, s.onewebSel)
	return out
}

// proposeNeighbor makes 1-3 swaps, each in a randomly chosen
// constellation's selection, biased toward covering empty RAAN bins and
// replacing the lowest-scoring currently-selected member.
func proposeNeighbor(cur state, starlink, oneweb ConstellationInput, rng *rand.Rand) state {
	next := cloneState(cur)

	swaps := 1 + rng.Intn(3)
	for i := 0; i < swaps; i++ {
		if rng.Intn(2) == 0 {
			mutateSelection(next.starlinkSel, starlink, rng)
		} else {
			mutateSelection(next.onewebSel, oneweb, rng)
		}
	}
	return next
}

func mutateSelection(sel []bool, in ConstellationInput, rng *rand.Rand) {
	if len(sel) == 0 {
		return
	}

	selectedIdx := selectedIndices(sel)
	unselectedIdx := unselectedIndices(sel)

	emptyBins := coverage.EmptyRAANBins(raansOf(in.Candidates, selectedIdx))

	var swapIn int
	if len(emptyBins) > 0 && len(unselectedIdx) > 0 {
		swapIn = candidateCoveringBin(in.Candidates, unselectedIdx, emptyBins, rng)
	} else if len(unselectedIdx) > 0 {
		swapIn = unselectedIdx[rng.Intn(len(unselectedIdx))]
	} else {
		return
	}

	var swapOut int
	if len(selectedIdx) > 0 {
		swapOut = lowestScoring(in.Candidates, selectedIdx)
	} else {
		sel[swapIn] = true
		return
	}

	sel[swapOut] = false
	sel[swapIn] = true
}

func selectedIndices(sel []bool) []int {
	var idx []int
	for i, v := range sel {
		if v {
			idx = append(idx, i)
		}
	}
	return idx
}

func unselectedIndices(sel []bool) []int {
	var idx []int
	for i, v := range sel {
		if !v {
			idx = append(idx, i)
		}
	}
	return idx
}

func raansOf(candidates []CandidateInput, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, id := range idx {
		out[i] = candidates[id].RAANDeg
	}
	return out
}

func candidateCoveringBin(candidates []CandidateInput, unselectedIdx []int, emptyBins []int, rng *rand.Rand) int {
	targetBin := emptyBins[rng.Intn(len(emptyBins))]
	for _, id := range unselectedIdx {
		if coverage.RAANBinOf(candidates[id].RAANDeg) == targetBin {
			return id
		}
	}
	return unselectedIdx[rng.Intn(len(unselectedIdx))]
}

func lowestScoring(candidates []CandidateInput, idx []int) int {
	lowest := idx[0]
	for _, id := range idx[1:] {
		if candidates[id].Score.TotalScore < candidates[lowest].Score.TotalScore {
			lowest = id
		}
	}
	return lowest
}

// evaluate computes the fitness breakdown and hard-constraint feasibility
// of a state.
func evaluate(s state, starlink, oneweb ConstellationInput, covCfg config.CoverageConfig) (FitnessBreakdown, bool) {
	starlinkCount := countTrue(s.starlinkSel)
	onewebCount := countTrue(s.onewebSel)

	sizeOK := inBand(starlinkCount, starlink.Bounds) && inBand(onewebCount, oneweb.Bounds)

	visibility := visibilityCompliance(s, starlink, oneweb)
	temporal := temporalDistribution(s, starlink, oneweb)
	sig := meanSignalQuality(s, starlink, oneweb)
	raan := raanDiversity(s, starlink, oneweb, covCfg)

	fit := FitnessBreakdown{
		VisibilityCompliance: visibility,
		TemporalDistribution: temporal,
		SignalQuality:        sig,
		RAANDiversity:         raan,
	}
	fit.Total = weightVisibility*visibility + weightTemporal*temporal + weightSignal*sig/100 + weightRAAN*raan

	feasible := sizeOK && visibility >= minVisibilityCompliance && temporal >= minTemporalDistribution
	return fit, feasible
}

func inBand(count int, b Bounds) bool {
	return count >= b.Min && count <= b.Max
}

func countTrue(sel []bool) int {
	n := 0
	for _, v := range sel {
		if v {
			n++
		}
	}
	return n
}

// visibleCountsOverTime sums, at each shared time-grid index, how many
// selected candidates (across both constellations) are visible.
func visibleCountsOverTime(s state, starlink, oneweb ConstellationInput) []int {
	n := gridLength(starlink, oneweb)
	if n == 0 {
		return nil
	}
	counts := make([]int, n)
	accumulate(counts, s.starlinkSel, starlink.Candidates)
	accumulate(counts, s.onewebSel, oneweb.Candidates)
	return counts
}

func accumulate(counts []int, sel []bool, candidates []CandidateInput) {
	for i, selected := range sel {
		if !selected {
			continue
		}
		bitmap := candidates[i].Bitmap
		for t := 0; t < len(counts) && t < len(bitmap); t++ {
			if bitmap[t] {
				counts[t]++
			}
		}
	}
}

func gridLength(starlink, oneweb ConstellationInput) int {
	for _, c := range starlink.Candidates {
		if len(c.Bitmap) > 0 {
			return len(c.Bitmap)
		}
	}
	for _, c := range oneweb.Candidates {
		if len(c.Bitmap) > 0 {
			return len(c.Bitmap)
		}
	}
	return 0
}

// visibilityCompliance is the fraction of time-grid points where the
// concurrent visible count across both constellations' selected members
// falls within the combined target band.
func visibilityCompliance(s state, starlink, oneweb ConstellationInput) float64 {
	counts := visibleCountsOverTime(s, starlink, oneweb)
	if len(counts) == 0 {
		return 0
	}
	lo := starlink.VisibleBounds.Min + oneweb.VisibleBounds.Min
	hi := starlink.VisibleBounds.Max + oneweb.VisibleBounds.Max
	inBandCount := 0
	for _, c := range counts {
		if c >= lo && c <= hi {
			inBandCount++
		}
	}
	return float64(inBandCount) / float64(len(counts))
}

// temporalDistribution rewards low variance in the visible count across
// time — a pool that sheds coverage in bursts scores worse than one with a
// steady concurrent count.
func temporalDistribution(s state, starlink, oneweb ConstellationInput) float64 {
	counts := visibleCountsOverTime(s, starlink, oneweb)
	if len(counts) < 2 {
		return 1
	}
	floats := make([]float64, len(counts))
	for i, c := range counts {
		floats[i] = float64(c)
	}
	mean := stat.Mean(floats, nil)
	if mean == 0 {
		return 0
	}
	variance := stat.Variance(floats, nil)
	coeffVariation := math.Sqrt(variance) / mean
	// Normalize: a coefficient of variation of 0 is perfectly uniform (1.0);
	// 1.0 or above is treated as maximally non-uniform (0.0).
	score := 1 - coeffVariation
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func meanSignalQuality(s state, starlink, oneweb ConstellationInput) float64 {
	var sum float64
	var n int
	for i, selected := range s.starlinkSel {
		if selected {
			sum += starlink.Candidates[i].Score.TotalScore
			n++
		}
	}
	for i, selected := range s.onewebSel {
		if selected {
			sum += oneweb.Candidates[i].Score.TotalScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func raanDiversity(s state, starlink, oneweb ConstellationInput, covCfg config.CoverageConfig) float64 {
	var raans []float64
	for i, selected := range s.starlinkSel {
		if selected {
			raans = append(raans, starlink.Candidates[i].RAANDeg)
		}
	}
	for i, selected := range s.onewebSel {
		if selected {
			raans = append(raans, oneweb.Candidates[i].RAANDeg)
		}
	}
	occupied := 36 - len(coverage.EmptyRAANBins(raans))
	return float64(occupied) / 36.0
}

func buildSolution(best state, starlink, oneweb ConstellationInput, fit FitnessBreakdown, feasible bool, iterations int, covCfg config.CoverageConfig) Solution {
	sol := Solution{
		Fitness:    fit,
		Feasible:   feasible,
		Iterations: iterations,
	}
	for i, selected := range best.starlinkSel {
		if selected {
			sol.Starlink = append(sol.Starlink, starlink.Candidates[i].Score)
		}
	}
	for i, selected := range best.onewebSel {
		if selected {
			sol.OneWeb = append(sol.OneWeb, oneweb.Candidates[i].Score)
		}
	}

	sol.Compliance = ComplianceDict{
		StarlinkTargetMet:      inBand(len(sol.Starlink), starlink.Bounds),
		OneWebTargetMet:        inBand(len(sol.OneWeb), oneweb.Bounds),
		VisibilityComplianceOK: fit.VisibilityCompliance >= minVisibilityCompliance,
		TemporalDistributionOK: fit.TemporalDistribution >= minTemporalDistribution,
		SignalQualityOK:        fit.SignalQuality >= 60,
		RAANDiversityOK:        fit.RAANDiversity >= covCfg.RAANDiversityTarget,
	}

	return sol
}
