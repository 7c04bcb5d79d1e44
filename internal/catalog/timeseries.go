package catalog

import (
	"runtime"
	"sync"
	"time"

	"github.com/aurora-leo/poolplanner/internal/orbit"
)

// PositionSample is one (satellite, time) observation: the raw ECI state,
// its geodetic subpoint, and the observer-relative look angles. This is
// the C1 output the rest of the pipeline consumes.
type PositionSample struct {
	Time         time.Time
	ECI          orbit.ECI
	Subpoint     orbit.Geodetic
	ElevationDeg float64
	AzimuthDeg   float64
	RangeKM      float64
	RangeRateKMS float64
}

// SatelliteSeries is one satellite's full ordered sample sequence plus the
// catalog record it was propagated from.
type SatelliteSeries struct {
	Record  Record
	Samples []PositionSample
}

// PropagationStats summarizes how many satellites/samples C1 produced
// versus how many were dropped by propagation failures, per spec.md §4.1's
// load-statistics bundle.
type PropagationStats struct {
	SatellitesAttempted int
	SatellitesSucceeded int
	SatellitesFailed    int
	SamplesProduced     int
	FullMode            bool
}

// GenerateSeries propagates every record over [start, start+window) at the
// given step and derives observer-relative look angles for each sample.
// A satellite whose propagator fails to initialize an SGP4 state at any
// sampled instant is not faked: that sample is simply omitted, and if no
// samples result at all the satellite contributes zero samples (per the
// propagation contract's failure semantics) but is not otherwise an error.
func GenerateSeries(records []Record, obs orbit.Observer, start time.Time, window time.Duration, step time.Duration, fullMode bool) ([]SatelliteSeries, PropagationStats) {
	end := start.Add(window)
	stats := PropagationStats{SatellitesAttempted: len(records), FullMode: fullMode}

	out := make([]SatelliteSeries, 0, len(records))
	for _, rec := range records {
		states, err := rec.Propagator.Sample(start, end, step)
		if err != nil || len(states) == 0 {
			stats.SatellitesFailed++
			continue
		}

		samples := make([]PositionSample, 0, len(states))
		for _, e := range states {
			look := orbit.LookAnglesFor(obs, e)
			subpoint := geodeticFromECI(e)
			samples = append(samples, PositionSample{
				Time:         e.Time,
				ECI:          e,
				Subpoint:     subpoint,
				ElevationDeg: look.ElevationDeg,
				AzimuthDeg:   look.AzimuthDeg,
				RangeKM:      look.RangeKM,
				RangeRateKMS: look.RangeRateKMS,
			})
		}

		stats.SatellitesSucceeded++
		stats.SamplesProduced += len(samples)
		out = append(out, SatelliteSeries{Record: rec, Samples: samples})
	}

	return out, stats
}

// GenerateSeriesParallel is the concurrent counterpart of GenerateSeries,
// propagating each satellite as an independent task across a bounded
// worker pool. Order of the returned slice matches the input order; only
// the scheduling is parallel, not the result ordering, so downstream
// consumers see a deterministic series list regardless of goroutine
// interleaving.
func GenerateSeriesParallel(records []Record, obs orbit.Observer, start time.Time, window time.Duration, step time.Duration, fullMode bool, workers int) ([]SatelliteSeries, PropagationStats) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	end := start.Add(window)

	type slot struct {
		series SatelliteSeries
		ok     bool
	}
	slots := make([]slot, len(records))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				rec := records[idx]
				states, err := rec.Propagator.Sample(start, end, step)
				if err != nil || len(states) == 0 {
					continue
				}
				samples := make([]PositionSample, 0, len(states))
				for _, e := range states {
					look := orbit.LookAnglesFor(obs, e)
					samples = append(samples, PositionSample{
						Time:         e.Time,
						ECI:          e,
						Subpoint:     geodeticFromECI(e),
						ElevationDeg: look.ElevationDeg,
						AzimuthDeg:   look.AzimuthDeg,
						RangeKM:      look.RangeKM,
						RangeRateKMS: look.RangeRateKMS,
					})
				}
				slots[idx] = slot{series: SatelliteSeries{Record: rec, Samples: samples}, ok: true}
			}
		}()
	}

	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	stats := PropagationStats{SatellitesAttempted: len(records), FullMode: fullMode}
	out := make([]SatelliteSeries, 0, len(records))
	for _, s := range slots {
		if !s.ok {
			stats.SatellitesFailed++
			continue
		}
		stats.SatellitesSucceeded++
		stats.SamplesProduced += len(s.series.Samples)
		out = append(out, s.series)
	}
	return out, stats
}

func geodeticFromECI(e orbit.ECI) orbit.Geodetic {
	x, y, z := orbit.ECIToECEF(e)
	return orbit.ECEFToGeodetic(x, y, z)
}
