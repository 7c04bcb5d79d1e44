package pool

import (
	"math/rand"
	"testing"

	"github.com/aurora-leo/poolplanner/internal/config"
	"github.com/aurora-leo/poolplanner/internal/filter"
)

func buildConstellation(n int, visibleAll bool) ConstellationInput {
	candidates := make([]CandidateInput, n)
	bitmap := make([]bool, 20)
	for i := range bitmap {
		bitmap[i] = visibleAll || i%2 == 0
	}
	for i := 0; i < n; i++ {
		candidates[i] = CandidateInput{
			Score: filter.CandidateScore{
				NoradID:    10000 + i,
				TotalScore: 50 + float64(i%40),
				Selected:   i < n/2,
			},
			Bitmap:  bitmap,
			RAANDeg: float64(i%36) * 10,
		}
	}
	return ConstellationInput{
		Candidates:    candidates,
		Bounds:        Bounds{Min: 5, Max: n},
		VisibleBounds: Bounds{Min: 0, Max: len(bitmap)},
	}
}

func TestOptimizeProducesFeasibleSolutionWithAmpleCandidates(t *testing.T) {
	starlink := buildConstellation(30, true)
	oneweb := buildConstellation(20, true)

	covCfg := config.CoverageConfig{ReliabilityThreshold: 0.99, MaxGapSeconds: 120, RAANDiversityTarget: 0.5}
	annCfg := config.AnnealingConfig{InitialTemperature: 1000, CoolingRate: 0.9, MaxIterations: 200}

	sol := Optimize(starlink, oneweb, covCfg, annCfg, rand.New(rand.NewSource(42)))

	if len(sol.Starlink) < starlink.Bounds.Min {
		t.Fatalf("expected at least %d starlink candidates selected, got %d", starlink.Bounds.Min, len(sol.Starlink))
	}
	if len(sol.OneWeb) < oneweb.Bounds.Min {
		t.Fatalf("expected at least %d oneweb candidates selected, got %d", oneweb.Bounds.Min, len(sol.OneWeb))
	}
	if sol.Fitness.VisibilityCompliance < minVisibilityCompliance && sol.Feasible {
		t.Fatalf("feasible solution should meet visibility compliance floor, got %v", sol.Fitness.VisibilityCompliance)
	}
}

func TestOptimizeFallsBackWhenInfeasible(t *testing.T) {
	// Bounds unsatisfiable: min exceeds available candidates.
	starlink := ConstellationInput{
		Candidates: []CandidateInput{{
			Score:   filter.CandidateScore{NoradID: 1, TotalScore: 10},
			Bitmap:  []bool{false, false, false},
			RAANDeg: 5,
		}},
		Bounds: Bounds{Min: 50, Max: 100},
	}
	oneweb := ConstellationInput{Candidates: nil, Bounds: Bounds{Min: 10, Max: 20}}

	covCfg := config.CoverageConfig{ReliabilityThreshold: 0.99, MaxGapSeconds: 120, RAANDiversityTarget: 0.85}
	annCfg := config.AnnealingConfig{InitialTemperature: 1000, CoolingRate: 0.95, MaxIterations: 50}

	sol := Optimize(starlink, oneweb, covCfg, annCfg, rand.New(rand.NewSource(1)))

	if sol.Feasible {
		t.Fatal("expected infeasible fallback given unsatisfiable bounds")
	}
	if sol.Iterations != annCfg.MaxIterations {
		t.Fatalf("expected annealer to exhaust all iterations, ran %d", sol.Iterations)
	}
}

func TestRAANDiversityReflectsBinOccupancy(t *testing.T) {
	starlinkSel := []bool{true, true}
	onewebSel := []bool{true}
	starlink := ConstellationInput{Candidates: []CandidateInput{
		{RAANDeg: 5}, {RAANDeg: 15},
	}}
	oneweb := ConstellationInput{Candidates: []CandidateInput{
		{RAANDeg: 25},
	}}
	s := state{starlinkSel: starlinkSel, onewebSel: onewebSel}
	got := raanDiversity(s, starlink, oneweb, config.CoverageConfig{})
	want := 3.0 / 36.0
	if got != want {
		t.Fatalf("expected raan diversity %v, got %v", want, got)
	}
}

func TestTemporalDistributionPerfectlyUniformScoresHigh(t *testing.T) {
	bitmap := make([]bool, 10)
	for i := range bitmap {
		bitmap[i] = true
	}
	starlink := ConstellationInput{Candidates: []CandidateInput{{Bitmap: bitmap}}}
	oneweb := ConstellationInput{Candidates: nil}
	s := state{starlinkSel: []bool{true}}

	got := temporalDistribution(s, starlink, oneweb)
	if got != 1 {
		t.Fatalf("expected perfectly uniform coverage to score 1.0, got %v", got)
	}
}
