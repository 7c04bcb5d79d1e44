package event

import (
	"testing"
	"time"

	"github.com/aurora-leo/poolplanner/internal/catalog"
	"github.com/aurora-leo/poolplanner/internal/config"
	"github.com/aurora-leo/poolplanner/internal/signal"
)

func timeline(noradID int, constellation catalog.Constellation, rsrp, rangeKM float64, n int) SatelliteTimeline {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := catalog.Record{NoradID: noradID, Name: "test", Constellation: constellation}
	samples := make([]catalog.PositionSample, n)
	sigs := make([]signal.Sample, n)
	for i := 0; i < n; i++ {
		samples[i] = catalog.PositionSample{Time: base.Add(time.Duration(i) * 30 * time.Second), RangeKM: rangeKM}
		sigs[i] = signal.Sample{RSRPDBm: rsrp, Quality: signal.QualityNominal}
	}
	return SatelliteTimeline{Record: rec, Samples: samples, Signals: sigs}
}

func TestA4FiresWhenNeighborExceedsThreshold(t *testing.T) {
	cfg := config.Default().Events
	serving := timeline(1, catalog.Starlink, -130, 1000, 3)
	neighbor := timeline(2, catalog.Starlink, cfg.A4ThresholdDBm+10, 1000, 3)

	events, stats := Detect(serving, []SatelliteTimeline{neighbor}, cfg)
	if stats.CountByType[TypeA4] == 0 {
		t.Fatalf("expected at least one A4 event, got %+v", stats.CountByType)
	}
	for _, e := range events {
		if e.Type == TypeA4 && e.Confidence <= 0 {
			t.Fatalf("expected positive confidence for firing A4 event, got %v", e.Confidence)
		}
	}
}

func TestA5RequiresBothConditions(t *testing.T) {
	cfg := config.Default().Events
	serving := timeline(1, catalog.Starlink, cfg.A5ServingDBm-10, 1000, 2)
	neighborGood := timeline(2, catalog.Starlink, cfg.A5NeighborDBm+10, 1000, 2)
	neighborBad := timeline(3, catalog.Starlink, cfg.A5NeighborDBm-10, 1000, 2)

	events, _ := Detect(serving, []SatelliteTimeline{neighborGood, neighborBad}, cfg)
	for _, e := range events {
		if e.Type == TypeA5 && e.NeighborNoradID == 3 {
			t.Fatal("A5 should not fire against a neighbor that isn't better")
		}
	}

	found := false
	for _, e := range events {
		if e.Type == TypeA5 && e.NeighborNoradID == 2 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected A5 to fire against the improving neighbor")
	}
}

func TestD2FiresOnDistanceAdvantage(t *testing.T) {
	cfg := config.Default().Events
	servingRangeKM := (cfg.D2ServingMeters + 500_000) / 1000
	neighborRangeKM := (cfg.D2NeighborMeters - 500_000) / 1000

	serving := timeline(1, catalog.Starlink, -100, servingRangeKM, 2)
	neighbor := timeline(2, catalog.OneWeb, -100, neighborRangeKM, 2)

	events, stats := Detect(serving, []SatelliteTimeline{neighbor}, cfg)
	if stats.CountByType[TypeD2] == 0 {
		t.Fatal("expected D2 events to fire")
	}
	for _, e := range events {
		if e.Type == TypeD2 && !e.Trigger.CrossConstellation {
			t.Fatal("expected cross_constellation flag to be set for Starlink/OneWeb pair")
		}
	}
}

func TestEventsSortedByTimestampThenPriority(t *testing.T) {
	cfg := config.Default().Events
	serving := timeline(1, catalog.Starlink, cfg.A5ServingDBm-10, 1000, 3)
	neighbor := timeline(2, catalog.Starlink, cfg.A5NeighborDBm+10, 1000, 3)

	events, _ := Detect(serving, []SatelliteTimeline{neighbor}, cfg)
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Fatal("events not in non-decreasing timestamp order")
		}
	}
}
