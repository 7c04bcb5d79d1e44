package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/aurora-leo/poolplanner/internal/catalog"
	"github.com/aurora-leo/poolplanner/internal/config"
	"github.com/aurora-leo/poolplanner/internal/orbit"
)

const filterSampleTLEs = `STARLINK-1007
1 44713U 19074A   24001.50000000  .00001234  00000-0  12345-3 0  9990
2 44713  53.0534 123.4567 0001234  45.6789 314.3456 15.06400000123455
ONEWEB-0012
1 44057U 19010A   24001.50000000  .00000123  00000-0  12345-4 0  9998
2 44057  87.4012  45.6789 0002345  90.1234 270.1234 13.26900000123451
`

func buildSeries(t *testing.T) []catalog.SatelliteSeries {
	t.Helper()
	records, _, err := catalog.Load(strings.NewReader(filterSampleTLEs))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	obs := orbit.Observer{LatitudeDeg: 24.944, LongitudeDeg: 121.371, AltitudeKM: 0.05}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series, _ := catalog.GenerateSeries(records, obs, start, 200*time.Minute, 30*time.Second, false)
	return series
}

func TestRunProducesScoredCandidates(t *testing.T) {
	series := buildSeries(t)
	cfg := config.Default()
	var starlink []catalog.SatelliteSeries
	for _, s := range series {
		if s.Record.Constellation == catalog.Starlink {
			starlink = append(starlink, s)
		}
	}

	result := Run(starlink, catalog.Starlink, cfg.Observer.LatitudeDeg, cfg.Constellations, cfg.Terminal, false)
	if result.Constellation != catalog.Starlink {
		t.Fatalf("expected starlink result, got %v", result.Constellation)
	}
	if result.Stats.Input != len(starlink) {
		t.Fatalf("expected input stat %d, got %d", len(starlink), result.Stats.Input)
	}
}

func TestDevelopmentProfileRetainsAllWithSamples(t *testing.T) {
	series := buildSeries(t)
	cfg := config.Default()
	result := Run(series, catalog.Starlink, cfg.Observer.LatitudeDeg, cfg.Constellations, cfg.Terminal, true)
	withSamples := 0
	for _, s := range series {
		if len(s.Samples) > 0 {
			withSamples++
		}
	}
	if len(result.Candidates) != withSamples {
		t.Fatalf("expected %d retained candidates, got %d", withSamples, len(result.Candidates))
	}
	for _, c := range result.Candidates {
		if c.TotalScore < 60 {
			t.Fatalf("expected development profile floor score of 60, got %v", c.TotalScore)
		}
	}
}

func TestAnalyzeVisibilityCountsDisjointPasses(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 30 * time.Second
	samples := []catalog.PositionSample{
		{Time: base, ElevationDeg: 20},
		{Time: base.Add(step), ElevationDeg: 2},
		{Time: base.Add(2 * step), ElevationDeg: 15},
	}
	va := analyzeVisibility(samples, 10)
	if va.PassCount != 2 {
		t.Fatalf("expected 2 disjoint passes, got %d", va.PassCount)
	}
}

func TestClosenessScoreAtOptimalIsMax(t *testing.T) {
	if got := closenessScore(53, 53, 30); got != 100 {
		t.Fatalf("expected 100 at optimal value, got %v", got)
	}
}
