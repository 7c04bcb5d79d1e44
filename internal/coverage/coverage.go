// Package coverage assesses whether a candidate set guarantees continuous
// visibility above the elevation mask across the planning window:
// gap identification, a continuous-coverage boolean, a reliability ratio,
// and RAAN-bin diversity. This is component C5 of the pool planner.
package coverage

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aurora-leo/poolplanner/internal/config"
)

// Gap is a maximal run of samples where fewer than the configured minimum
// satellite count was visible.
type Gap struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Critical bool
}

// Report is the full coverage assessment for one constellation's selected
// candidate set.
type Report struct {
	Gaps                 []Gap
	CriticalGapCount      int
	ContinuousCoverageOK  bool
	ReliabilityRatio      float64
	ReliabilityOK         bool
	AverageVisibleCount   float64
	RAANBinCoverageFrac   float64
	RAANDiversityOK       bool
	RAANBinsOccupied      int
	RAANBinsTotal         int
}

const raanBinCount = 36
const raanBinWidthDeg = 360.0 / raanBinCount

// VisibleCountSample is the number of selected satellites visible above
// the mask at one time-grid instant.
type VisibleCountSample struct {
	Time  time.Time
	Count int
}

// Analyze scans the per-instant visible counts and the selected
// candidates' RAAN values, producing the full coverage Report. minVisible
// and maxVisible are the constellation's configured per-instant target
// band (e.g. Starlink 10-15); reliability is the fraction of time-grid
// points falling inside that band. cfg supplies the max gap duration,
// reliability threshold, and RAAN diversity target.
func Analyze(counts []VisibleCountSample, raanDegrees []float64, minVisible, maxVisible int, cfg config.CoverageConfig) Report {
	var r Report

	if len(counts) == 0 {
		return r
	}

	step := sampleStep(counts)
	maxGap := time.Duration(cfg.MaxGapSeconds) * time.Second

	inGap := false
	var gapStart time.Time
	visible := make([]float64, len(counts))
	inBand := make([]float64, len(counts))

	for i, c := range counts {
		visible[i] = float64(c.Count)
		if c.Count >= minVisible && c.Count <= maxVisible {
			inBand[i] = 1
		}

		below := c.Count < minVisible
		if below {
			if !inGap {
				inGap = true
				gapStart = c.Time
			}
			if i == len(counts)-1 {
				r.Gaps = append(r.Gaps, closeGap(gapStart, c.Time.Add(step), maxGap))
			}
		} else if inGap {
			inGap = false
			r.Gaps = append(r.Gaps, closeGap(gapStart, c.Time, maxGap))
		}
	}

	for _, g := range r.Gaps {
		if g.Critical {
			r.CriticalGapCount++
		}
	}

	r.AverageVisibleCount = stat.Mean(visible, nil)
	r.ContinuousCoverageOK = r.CriticalGapCount == 0 && r.AverageVisibleCount >= float64(minVisible)

	// The fraction of time-grid points within [minVisible, maxVisible] is a
	// mean over a 0/1 indicator series, same formula stat.Mean uses for the
	// weighted case.
	r.ReliabilityRatio = stat.Mean(inBand, nil)
	r.ReliabilityOK = r.ReliabilityRatio >= cfg.ReliabilityThreshold

	r.RAANBinsTotal = raanBinCount
	r.RAANBinsOccupied = countOccupiedBins(raanDegrees)
	r.RAANBinCoverageFrac = float64(r.RAANBinsOccupied) / float64(raanBinCount)
	r.RAANDiversityOK = r.RAANBinCoverageFrac >= cfg.RAANDiversityTarget

	return r
}

func closeGap(start, end time.Time, maxGap time.Duration) Gap {
	d := end.Sub(start)
	return Gap{Start: start, End: end, Duration: d, Critical: d > maxGap}
}

func sampleStep(counts []VisibleCountSample) time.Duration {
	if len(counts) < 2 {
		return 0
	}
	return counts[1].Time.Sub(counts[0].Time)
}

// countOccupiedBins partitions [0,360) into 36 10-degree RAAN bins and
// counts how many contain at least one of the provided RAAN values.
func countOccupiedBins(raanDegrees []float64) int {
	occupied := make([]bool, raanBinCount)
	for _, raan := range raanDegrees {
		norm := normalizeDegrees(raan)
		bin := int(norm / raanBinWidthDeg)
		if bin >= raanBinCount {
			bin = raanBinCount - 1
		}
		occupied[bin] = true
	}
	count := 0
	for _, o := range occupied {
		if o {
			count++
		}
	}
	return count
}

// RAANBinOf returns which of the 36 10-degree bins a RAAN value falls in.
func RAANBinOf(raanDeg float64) int {
	bin := int(normalizeDegrees(raanDeg) / raanBinWidthDeg)
	if bin >= raanBinCount {
		bin = raanBinCount - 1
	}
	return bin
}

// EmptyRAANBins returns the indices of the 36 RAAN bins containing none of
// the provided RAAN values, for use by the pool optimizer's neighbor
// proposal bias toward covering empty bins.
func EmptyRAANBins(raanDegrees []float64) []int {
	occupied := make([]bool, raanBinCount)
	for _, raan := range raanDegrees {
		occupied[RAANBinOf(raan)] = true
	}
	var empty []int
	for i, o := range occupied {
		if !o {
			empty = append(empty, i)
		}
	}
	return empty
}

func normalizeDegrees(deg float64) float64 {
	for deg < 0 {
		deg += 360
	}
	for deg >= 360 {
		deg -= 360
	}
	return deg
}
