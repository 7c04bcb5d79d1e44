package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/aurora-leo/poolplanner/internal/orbit"
)

func TestGenerateSeriesProducesSamples(t *testing.T) {
	records, _, err := Load(strings.NewReader(sampleTLEs))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	obs := orbit.Observer{LatitudeDeg: 24.944, LongitudeDeg: 121.371, AltitudeKM: 0.05}
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	series, stats := GenerateSeries(records, obs, start, 10*time.Minute, 30*time.Second, false)
	if stats.SatellitesSucceeded == 0 {
		t.Fatal("expected at least one satellite to propagate successfully")
	}
	if len(series) != stats.SatellitesSucceeded {
		t.Fatalf("series count %d does not match succeeded count %d", len(series), stats.SatellitesSucceeded)
	}
	for _, s := range series {
		if len(s.Samples) == 0 {
			t.Fatalf("satellite %d produced no samples", s.Record.NoradID)
		}
		for i := 1; i < len(s.Samples); i++ {
			if !s.Samples[i].Time.After(s.Samples[i-1].Time) {
				t.Fatalf("samples not monotonically increasing in time for satellite %d", s.Record.NoradID)
			}
		}
	}
}

func TestGenerateSeriesParallelMatchesSequential(t *testing.T) {
	records, _, err := Load(strings.NewReader(sampleTLEs))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	obs := orbit.Observer{LatitudeDeg: 24.944, LongitudeDeg: 121.371, AltitudeKM: 0.05}
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	seq, seqStats := GenerateSeries(records, obs, start, 10*time.Minute, 30*time.Second, false)
	par, parStats := GenerateSeriesParallel(records, obs, start, 10*time.Minute, 30*time.Second, false, 4)

	if seqStats.SatellitesSucceeded != parStats.SatellitesSucceeded {
		t.Fatalf("mismatch: sequential %d vs parallel %d", seqStats.SatellitesSucceeded, parStats.SatellitesSucceeded)
	}
	if len(seq) != len(par) {
		t.Fatalf("series length mismatch: %d vs %d", len(seq), len(par))
	}
}
