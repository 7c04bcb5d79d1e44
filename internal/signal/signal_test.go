package signal

import (
	"math"
	"testing"

	"github.com/aurora-leo/poolplanner/internal/catalog"
	"github.com/aurora-leo/poolplanner/internal/config"
)

func testConfig() (config.ConstellationsConfig, config.TerminalConfig) {
	cfg := config.Default()
	return cfg.Constellations, cfg.Terminal
}

func TestFreeSpacePathLossKnownValue(t *testing.T) {
	// FSPL = 32.45 + 20log10(12.5) + 20log10(550) at 550 km, 12.5 GHz.
	got := FreeSpacePathLoss(12.5, 550)
	want := 32.45 + 20*math.Log10(12.5) + 20*math.Log10(550)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestComputeDegradedForUnclassifiedConstellation(t *testing.T) {
	cc, term := testConfig()
	s := Compute(cc, term, catalog.Unclassified, Link{RangeKM: 1000, ElevationDeg: 45})
	if s.Quality != QualityDegraded {
		t.Fatalf("expected degraded quality, got %v", s.Quality)
	}
	if s.RSRPDBm != 0 {
		t.Fatalf("expected no fabricated RSRP, got %v", s.RSRPDBm)
	}
}

func TestComputeVariesOverTime(t *testing.T) {
	cc, term := testConfig()
	a := Compute(cc, term, catalog.Starlink, Link{RangeKM: 600, ElevationDeg: 80, RangeRateKMS: 0})
	b := Compute(cc, term, catalog.Starlink, Link{RangeKM: 1200, ElevationDeg: 15, RangeRateKMS: 5})
	if a.RSRPDBm == b.RSRPDBm {
		t.Fatal("expected RSRP to vary with range/elevation, got identical values")
	}
	if a.DopplerHz == b.DopplerHz {
		t.Fatal("expected Doppler to vary with range rate")
	}
}

func TestComputeClampsOutOfBoundRSRP(t *testing.T) {
	cc, term := testConfig()
	// Extreme range forces RSRP far below the -150 dBm floor.
	s := Compute(cc, term, catalog.Starlink, Link{RangeKM: 1_000_000_000, ElevationDeg: 45})
	if !s.ClampedRSRP {
		t.Fatal("expected RSRP to be clamped at extreme range")
	}
	if s.RSRPDBm < rsrpFloorDBm || s.RSRPDBm > rsrpCeilDBm {
		t.Fatalf("clamped RSRP out of bounds: %v", s.RSRPDBm)
	}
}

func TestAtmosphericAttenuationIncreasesAtLowElevation(t *testing.T) {
	high := AtmosphericAttenuation(80, 12.5)
	low := AtmosphericAttenuation(6, 12.5)
	belowFive := AtmosphericAttenuation(2, 12.5)
	if !(belowFive > low && low > high) {
		t.Fatalf("expected monotonically increasing attenuation as elevation drops: high=%v low=%v belowFive=%v", high, low, belowFive)
	}
}

func TestDopplerFlagOnExcessiveShift(t *testing.T) {
	cc, term := testConfig()
	// An unrealistically high range rate to force the flag.
	s := Compute(cc, term, catalog.Starlink, Link{RangeKM: 600, ElevationDeg: 45, RangeRateKMS: 50})
	if !s.DopplerFlag {
		t.Fatal("expected Doppler flag for excessive shift")
	}
}
