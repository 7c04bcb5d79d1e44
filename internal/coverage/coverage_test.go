package coverage

import (
	"testing"
	"time"

	"github.com/aurora-leo/poolplanner/internal/config"
)

func buildCounts(t *testing.T, counts []int) []VisibleCountSample {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]VisibleCountSample, len(counts))
	for i, c := range counts {
		out[i] = VisibleCountSample{Time: base.Add(time.Duration(i) * 30 * time.Second), Count: c}
	}
	return out
}

func TestAnalyzeDetectsCriticalGap(t *testing.T) {
	cfg := config.CoverageConfig{ReliabilityThreshold: 0.99, MaxGapSeconds: 60, RAANDiversityTarget: 0.85}
	// 10 samples at 30s step; a run of 5 below-minimum samples spans 150s > 60s gap threshold.
	counts := buildCounts(t, []int{12, 12, 2, 2, 2, 2, 2, 12, 12, 12})
	report := Analyze(counts, nil, 10, 15, cfg)
	if report.CriticalGapCount == 0 {
		t.Fatal("expected at least one critical gap")
	}
	if report.ContinuousCoverageOK {
		t.Fatal("continuous coverage should fail in the presence of a critical gap")
	}
}

func TestAnalyzeNoGapWhenAlwaysAboveMinimum(t *testing.T) {
	cfg := config.CoverageConfig{ReliabilityThreshold: 0.99, MaxGapSeconds: 120, RAANDiversityTarget: 0.85}
	counts := buildCounts(t, []int{12, 12, 12, 12, 12})
	report := Analyze(counts, nil, 10, 15, cfg)
	if report.CriticalGapCount != 0 {
		t.Fatalf("expected no gaps, got %d", report.CriticalGapCount)
	}
	if !report.ContinuousCoverageOK {
		t.Fatal("expected continuous coverage to hold")
	}
	if report.ReliabilityRatio != 1.0 {
		t.Fatalf("expected reliability ratio 1.0, got %v", report.ReliabilityRatio)
	}
}

func TestRAANDiversityMeetsTargetWithEnoughBins(t *testing.T) {
	cfg := config.CoverageConfig{ReliabilityThreshold: 0.99, MaxGapSeconds: 120, RAANDiversityTarget: 0.85}
	raans := make([]float64, 0, 32)
	for i := 0; i < 32; i++ {
		raans = append(raans, float64(i)*10+1)
	}
	counts := buildCounts(t, []int{12, 12, 12})
	report := Analyze(counts, raans, 10, 15, cfg)
	if !report.RAANDiversityOK {
		t.Fatalf("expected RAAN diversity target met, got fraction %v", report.RAANBinCoverageFrac)
	}
	if report.RAANBinsOccupied != 32 {
		t.Fatalf("expected 32 occupied bins, got %d", report.RAANBinsOccupied)
	}
}

func TestEmptyRAANBinsIdentifiesGaps(t *testing.T) {
	raans := []float64{5, 15, 25} // bins 0,1,2 occupied
	empty := EmptyRAANBins(raans)
	if len(empty) != 33 {
		t.Fatalf("expected 33 empty bins, got %d", len(empty))
	}
	for _, b := range empty {
		if b == 0 || b == 1 || b == 2 {
			t.Fatalf("bin %d should be occupied, not reported empty", b)
		}
	}
}
