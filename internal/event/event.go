// Package event detects 3GPP NTN measurement events (A4, A5, D2) across a
// serving satellite's Signal Sample sequence and a set of neighbor
// sequences sharing the same time grid. This is component C4 of the pool
// planner.
package event

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aurora-leo/poolplanner/internal/catalog"
	"github.com/aurora-leo/poolplanner/internal/config"
	"github.com/aurora-leo/poolplanner/internal/signal"
)

// Type identifies a 3GPP NTN measurement event.
type Type string

const (
	TypeA4 Type = "A4"
	TypeA5 Type = "A5"
	TypeD2 Type = "D2"
)

// Priority ranks an event for downstream scheduling; also used as the
// tie-break order when events share a timestamp.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// priorityRank gives the tie-break ordering A5 < A4 < D2 (HIGH, then
// MEDIUM, then LOW) for events sharing a timestamp.
func priorityRank(t Type) int {
	switch t {
	case TypeA5:
		return 0
	case TypeA4:
		return 1
	case TypeD2:
		return 2
	default:
		return 3
	}
}

// TriggerCondition records the thresholds, hysteresis, measured values,
// margins, and cross-constellation flag behind an event, so the event can
// be independently reproduced from stored snapshots.
type TriggerCondition struct {
	Thresholds   map[string]float64 `json:"thresholds"`
	Hysteresis   float64            `json:"hysteresis"`
	Measured     map[string]float64 `json:"measured"`
	Margin       float64            `json:"margin"`
	CrossConstellation bool         `json:"cross_constellation"`
}

// Event is one detected handover-relevant measurement event.
type Event struct {
	ID                 string            `json:"id"`
	Type               Type              `json:"type"`
	Priority           Priority          `json:"priority"`
	Timestamp          time.Time         `json:"timestamp"`
	ServingNoradID     int               `json:"serving_norad_id"`
	NeighborNoradID    int               `json:"neighbor_norad_id"`
	Trigger            TriggerCondition  `json:"trigger"`
	Description        string            `json:"description"`
	Recommended        bool              `json:"recommended"`
	Confidence         float64           `json:"confidence"`
}

// Stats summarizes the event catalog: counts per type and priority,
// average confidence, and the number of events recommending a handover.
type Stats struct {
	CountByType       map[Type]int
	CountByPriority   map[Priority]int
	AverageConfidence float64
	RecommendedCount  int
}

// SatelliteTimeline pairs a catalog record with its per-sample signal
// measurements, sharing the time grid of catalog.PositionSample.
type SatelliteTimeline struct {
	Record  catalog.Record
	Samples []catalog.PositionSample
	Signals []signal.Sample
}

// Detect scans a serving timeline against every neighbor timeline and
// returns the full set of A4/A5/D2 events, in ascending timestamp order
// (ties broken by priority rank then neighbor NORAD ID).
func Detect(serving SatelliteTimeline, neighbors []SatelliteTimeline, cfg config.EventsConfig) ([]Event, Stats) {
	var events []Event
	seq := 0
	ttt := time.Duration(cfg.TimeToTriggerMS) * time.Millisecond

	for _, neighbor := range neighbors {
		n := minLen(serving.Samples, neighbor.Samples)

		// Per-neighbor time-to-trigger timers: a trigger condition must hold
		// continuously since onset for at least TTT before it is reported,
		// matching the 3GPP measurement-report timer this field models. The
		// timer resets the instant the underlying condition stops holding.
		var a4Onset, a5Onset, d2Onset *time.Time

		for i := 0; i < n; i++ {
			servingSample := serving.Samples[i]
			servingSig := serving.Signals[i]
			neighborSample := neighbor.Samples[i]
			neighborSig := neighbor.Signals[i]

			if servingSig.Quality == signal.QualityDegraded || neighborSig.Quality == signal.QualityDegraded {
				a4Onset, a5Onset, d2Onset = nil, nil, nil
				continue
			}

			crossConstellation := serving.Record.Constellation != neighbor.Record.Constellation
			ts := servingSample.Time

			if e, fires := evaluateA4(ts, serving.Record.NoradID, neighbor.Record.NoradID, neighborSig.RSRPDBm, cfg, crossConstellation, &seq); fires {
				if a4Onset == nil {
					a4Onset = &ts
				}
				if ts.Sub(*a4Onset) >= ttt {
					events = append(events, e)
				}
			} else {
				a4Onset = nil
			}

			if e, fires := evaluateA5(ts, serving.Record.NoradID, neighbor.Record.NoradID, servingSig.RSRPDBm, neighborSig.RSRPDBm, cfg, crossConstellation, &seq); fires {
				if a5Onset == nil {
					a5Onset = &ts
				}
				if ts.Sub(*a5Onset) >= ttt {
					events = append(events, e)
				}
			} else {
				a5Onset = nil
			}

			if e, fires := evaluateD2(ts, serving.Record.NoradID, neighbor.Record.NoradID, servingSample.RangeKM*1000, neighborSample.RangeKM*1000, cfg, crossConstellation, &seq); fires {
				if d2Onset == nil {
					d2Onset = &ts
				}
				if ts.Sub(*d2Onset) >= ttt {
					events = append(events, e)
				}
			} else {
				d2Onset = nil
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		if priorityRank(events[i].Type) != priorityRank(events[j].Type) {
			return priorityRank(events[i].Type) < priorityRank(events[j].Type)
		}
		return events[i].NeighborNoradID < events[j].NeighborNoradID
	})

	return events, computeStats(events)
}

func evaluateA4(ts time.Time, servingID, neighborID int, neighborRSRP float64, cfg config.EventsConfig, cross bool, seq *int) (Event, bool) {
	margin := neighborRSRP - cfg.HysteresisDB - cfg.A4ThresholdDBm
	if margin <= 0 {
		return Event{}, false
	}

	confidence := saturate(margin, 15)
	*seq++
	return Event{
		ID:              fmt.Sprintf("A4-%d-%d-%d", servingID, neighborID, *seq),
		Type:            TypeA4,
		Priority:        PriorityMedium,
		Timestamp:       ts,
		ServingNoradID:  servingID,
		NeighborNoradID: neighborID,
		Trigger: TriggerCondition{
			Thresholds:         map[string]float64{"threshold_dbm": cfg.A4ThresholdDBm},
			Hysteresis:         cfg.HysteresisDB,
			Measured:           map[string]float64{"neighbor_rsrp_dbm": neighborRSRP},
			Margin:             margin,
			CrossConstellation: cross,
		},
		Description: fmt.Sprintf("neighbor %d RSRP %.1f dBm exceeds A4 threshold %.1f dBm by %.1f dB", neighborID, neighborRSRP, cfg.A4ThresholdDBm, margin),
		// A4 is MEDIUM priority (spec.md §4.4): a neighbor worth adding to
		// the measurement set, not necessarily worth handing over to yet.
		// Only recommend acting on it once the margin clears the event's
		// own hysteresis a second time over, i.e. it's not a borderline call.
		Recommended: margin >= 2*cfg.HysteresisDB,
		Confidence:  confidence,
	}, true
}

func evaluateA5(ts time.Time, servingID, neighborID int, servingRSRP, neighborRSRP float64, cfg config.EventsConfig, cross bool, seq *int) (Event, bool) {
	servingWorse := servingRSRP+cfg.HysteresisDB < cfg.A5ServingDBm
	neighborBetter := neighborRSRP-cfg.HysteresisDB > cfg.A5NeighborDBm
	if !servingWorse || !neighborBetter {
		return Event{}, false
	}

	servingMargin := cfg.A5ServingDBm - (servingRSRP + cfg.HysteresisDB)
	neighborMargin := (neighborRSRP - cfg.HysteresisDB) - cfg.A5NeighborDBm
	confidence := saturate(math.Min(servingMargin, neighborMargin), 15)

	*seq++
	return Event{
		ID:              fmt.Sprintf("A5-%d-%d-%d", servingID, neighborID, *seq),
		Type:            TypeA5,
		Priority:        PriorityHigh,
		Timestamp:       ts,
		ServingNoradID:  servingID,
		NeighborNoradID: neighborID,
		Trigger: TriggerCondition{
			Thresholds: map[string]float64{
				"serving_threshold_dbm":  cfg.A5ServingDBm,
				"neighbor_threshold_dbm": cfg.A5NeighborDBm,
			},
			Hysteresis: cfg.HysteresisDB,
			Measured: map[string]float64{
				"serving_rsrp_dbm":  servingRSRP,
				"neighbor_rsrp_dbm": neighborRSRP,
			},
			Margin:             math.Min(servingMargin, neighborMargin),
			CrossConstellation: cross,
		},
		Description: fmt.Sprintf("serving %d degraded to %.1f dBm while neighbor %d improved to %.1f dBm", servingID, servingRSRP, neighborID, neighborRSRP),
		Recommended: true,
		Confidence:  confidence,
	}, true
}

func evaluateD2(ts time.Time, servingID, neighborID int, servingRangeM, neighborRangeM float64, cfg config.EventsConfig, cross bool, seq *int) (Event, bool) {
	servingFar := servingRangeM-cfg.D2HysteresisMeters > cfg.D2ServingMeters
	neighborNear := neighborRangeM+cfg.D2HysteresisMeters < cfg.D2NeighborMeters
	if !servingFar || !neighborNear {
		return Event{}, false
	}

	advantageM := servingRangeM - neighborRangeM
	confidence := saturate(advantageM/1000, 2000)

	*seq++
	return Event{
		ID:              fmt.Sprintf("D2-%d-%d-%d", servingID, neighborID, *seq),
		Type:            TypeD2,
		Priority:        PriorityLow,
		Timestamp:       ts,
		ServingNoradID:  servingID,
		NeighborNoradID: neighborID,
		Trigger: TriggerCondition{
			Thresholds: map[string]float64{
				"serving_threshold_m":  cfg.D2ServingMeters,
				"neighbor_threshold_m": cfg.D2NeighborMeters,
			},
			Hysteresis: cfg.D2HysteresisMeters,
			Measured: map[string]float64{
				"serving_range_m":  servingRangeM,
				"neighbor_range_m": neighborRangeM,
			},
			Margin:             advantageM,
			CrossConstellation: cross,
		},
		Description: fmt.Sprintf("serving %d distance %.0f m exceeds D2 serving threshold while neighbor %d at %.0f m is within range", servingID, servingRangeM, neighborID, neighborRangeM),
		// D2 is optimization-class (LOW priority, spec.md §4.4): it flags a
		// distance advantage worth considering, not an action the radio
		// layer must take, so it's only recommended once the advantage is
		// large enough to be worth the handover cost.
		Recommended: advantageM >= 2*cfg.D2HysteresisMeters,
		Confidence:  confidence,
	}, true
}

// saturate maps a non-negative excess value onto [0,1], saturating at cap.
func saturate(excess, cap float64) float64 {
	if excess <= 0 {
		return 0
	}
	if excess >= cap {
		return 1
	}
	return excess / cap
}

func minLen(a []catalog.PositionSample, b []catalog.PositionSample) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}

func computeStats(events []Event) Stats {
	stats := Stats{
		CountByType:     make(map[Type]int),
		CountByPriority: make(map[Priority]int),
	}
	if len(events) == 0 {
		return stats
	}
	var sumConfidence float64
	for _, e := range events {
		stats.CountByType[e.Type]++
		stats.CountByPriority[e.Priority]++
		sumConfidence += e.Confidence
		if e.Recommended {
			stats.RecommendedCount++
		}
	}
	stats.AverageConfidence = sumConfidence / float64(len(events))
	return stats
}
