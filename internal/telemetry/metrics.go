package telemetry

import "github.com/prometheus/client_golang/prometheus"

// These are the metrics the orchestrator instruments every run with,
// registered once against the default registry at package init and served
// at /metrics via promhttp.Handler in internal/app.
var (
	// StageDurationSeconds observes how long each pipeline stage (C1-C6
	// plus the artifact-write stage) took to run.
	StageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poolplanner_stage_duration_seconds",
			Help:    "Wall-clock duration of each orchestrator pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms .. ~82s
		},
		[]string{"stage"},
	)

	// SatellitesProcessedTotal counts satellites that survived SGP4
	// propagation, by constellation, across all runs.
	SatellitesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolplanner_satellites_processed_total",
			Help: "Satellites successfully propagated by catalog.GenerateSeriesParallel, by constellation.",
		},
		[]string{"constellation"},
	)

	// SatellitesDroppedTotal counts satellites dropped by the filter engine,
	// by constellation and by the stage that dropped them.
	SatellitesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolplanner_satellites_dropped_total",
			Help: "Satellites dropped during candidate filtering, by constellation and filter stage.",
		},
		[]string{"constellation", "stage"},
	)

	// RunsTotal counts completed orchestrator runs by outcome.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolplanner_orchestrator_runs_total",
			Help: "Completed orchestrator runs, by outcome (feasible, infeasible, error).",
		},
		[]string{"outcome"},
	)

	// HandoverEventsTotal counts detected 3GPP NTN events by type.
	HandoverEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolplanner_handover_events_total",
			Help: "Handover events detected by the event engine, by type (A4, A5, D2).",
		},
		[]string{"event_type"},
	)
)

func init() {
	prometheus.MustRegister(
		StageDurationSeconds,
		SatellitesProcessedTotal,
		SatellitesDroppedTotal,
		RunsTotal,
		HandoverEventsTotal,
	)
}
