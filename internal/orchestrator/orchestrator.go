// Package orchestrator sequences the six pipeline components (C1-C6) in
// strict dependency order, writes the canonical JSON artifacts to the
// temporary and permanent buckets, and reports per-stage durations and the
// final compliance summary. This is the "O" component of the pool planner.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/aurora-leo/poolplanner/internal/catalog"
	"github.com/aurora-leo/poolplanner/internal/config"
	"github.com/aurora-leo/poolplanner/internal/coverage"
	"github.com/aurora-leo/poolplanner/internal/event"
	"github.com/aurora-leo/poolplanner/internal/filter"
	"github.com/aurora-leo/poolplanner/internal/orbit"
	"github.com/aurora-leo/poolplanner/internal/perr"
	"github.com/aurora-leo/poolplanner/internal/pool"
	"github.com/aurora-leo/poolplanner/internal/signal"
	"github.com/aurora-leo/poolplanner/internal/telemetry"
)

// Exit codes, per spec.md §6.
const (
	ExitSuccess           = 0
	ExitInfeasible        = 2
	ExitFatalStageError   = 3
	ExitConfigInvalid     = 4
)

// ProgressFunc receives stage-progress notifications for the WebSocket hub.
type ProgressFunc func(stage telemetry.Stage, percent float64, detail string)

// Metadata is embedded in every artifact: observer coordinates, window,
// step, constellation counts, a UTC generation timestamp, and the physics
// constants version tag.
type Metadata struct {
	ObserverLatitudeDeg  float64 `json:"observer_latitude_deg"`
	ObserverLongitudeDeg float64 `json:"observer_longitude_deg"`
	ObserverAltitudeM    float64 `json:"observer_altitude_m"`
	WindowDurationMinutes int    `json:"window_duration_minutes"`
	StepSeconds          int     `json:"step_seconds"`
	StarlinkCount        int     `json:"starlink_count"`
	OneWebCount          int     `json:"oneweb_count"`
	GeneratedAt          string  `json:"generated_at"`
	ConstantsVersion     string  `json:"constants_version"`
}

// StageDuration records wall-clock time spent in one pipeline stage.
type StageDuration struct {
	Stage   string  `json:"stage"`
	Seconds float64 `json:"seconds"`
}

// Result summarizes a completed (or aborted) orchestrator run.
type Result struct {
	ExitCode   int
	Feasible   bool
	Durations  []StageDuration
	Solution   pool.Solution
}

func newMetadata(cfg config.Config, starlinkCount, onewebCount int, now time.Time) Metadata {
	return Metadata{
		ObserverLatitudeDeg:   cfg.Observer.LatitudeDeg,
		ObserverLongitudeDeg:  cfg.Observer.LongitudeDeg,
		ObserverAltitudeM:     cfg.Observer.AltitudeM,
		WindowDurationMinutes: cfg.Window.DurationMinutes,
		StepSeconds:           cfg.Window.StepSeconds,
		StarlinkCount:         starlinkCount,
		OneWebCount:           onewebCount,
		GeneratedAt:           now.UTC().Format(time.RFC3339),
		ConstantsVersion:      signal.ConstantsVersion,
	}
}

// positionSampleJSON is the per-sample projection written to the stage 1
// artifact; it omits the raw ECI vector to keep the temporary bucket file
// to a manageable size while still carrying every downstream-relevant field.
type positionSampleJSON struct {
	Time         time.Time `json:"time"`
	LatitudeDeg  float64   `json:"latitude_deg"`
	LongitudeDeg float64   `json:"longitude_deg"`
	AltitudeKM   float64   `json:"altitude_km"`
	ElevationDeg float64   `json:"elevation_deg"`
	AzimuthDeg   float64   `json:"azimuth_deg"`
	RangeKM      float64   `json:"range_km"`
	RangeRateKMS float64   `json:"range_rate_km_s"`
}

type seriesJSON struct {
	NoradID       int                   `json:"norad_id"`
	Name          string                `json:"name"`
	Constellation catalog.Constellation `json:"constellation"`
	Samples       []positionSampleJSON  `json:"samples"`
}

type loadArtifact struct {
	Metadata    Metadata                            `json:"metadata"`
	Stats       catalog.LoadStats                   `json:"load_stats"`
	Propagation map[string]catalog.PropagationStats `json:"propagation_stats"`
	Series      []seriesJSON                        `json:"series"`
}

type filterArtifact struct {
	Metadata     Metadata      `json:"metadata"`
	Starlink     filter.Result `json:"starlink"`
	OneWeb       filter.Result `json:"oneweb"`
	Unclassified filter.Result `json:"unclassified,omitempty"`
}

type eventArtifact struct {
	Metadata Metadata     `json:"metadata"`
	Events   []event.Event `json:"events"`
	Stats    event.Stats   `json:"stats"`
}

type poolArtifact struct {
	Metadata Metadata      `json:"metadata"`
	Solution pool.Solution `json:"solution"`
}

type finalReport struct {
	Metadata         Metadata              `json:"metadata"`
	Durations        []StageDuration       `json:"durations"`
	StarlinkSelected int                   `json:"starlink_selected"`
	OneWebSelected   int                   `json:"oneweb_selected"`
	Feasible         bool                  `json:"feasible"`
	Compliance       pool.ComplianceDict   `json:"compliance"`
	CoverageStarlink coverage.Report       `json:"coverage_starlink"`
	CoverageOneWeb   coverage.Report       `json:"coverage_oneweb"`
	AnnealingIterations int                `json:"annealing_iterations"`
}

// Run executes the full C1→C6 pipeline against the TLE stream in r, writing
// the canonical JSON artifacts under cfg.Data.TempRoot/PermanentRoot. The
// returned Result.ExitCode follows spec.md §6 exactly. progress, if
// non-nil, is called as each stage begins and ends.
func Run(ctx context.Context, cfg config.Config, r io.Reader, logger *log.Logger, progress ProgressFunc) (result Result, runErr error) {
	if progress == nil {
		progress = func(telemetry.Stage, float64, string) {}
	}

	defer func() {
		if runErr != nil && result.ExitCode != ExitInfeasible {
			telemetry.RunsTotal.WithLabelValues("error").Inc()
		}
	}()

	start := time.Now()
	var durations []StageDuration
	stage := func(name telemetry.Stage, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return perr.Wrap(perr.KindStageTimeout, string(name), "context cancelled before stage start", err)
		}
		t0 := time.Now()
		progress(name, 0, "starting")
		err := fn()
		elapsed := time.Since(t0).Seconds()
		durations = append(durations, StageDuration{Stage: string(name), Seconds: elapsed})
		telemetry.StageDurationSeconds.WithLabelValues(string(name)).Observe(elapsed)
		if err != nil {
			progress(name, 100, "failed: "+err.Error())
			return err
		}
		progress(name, 100, "complete")
		return nil
	}

	if err := config.EnsureDirectories(cfg); err != nil {
		return Result{ExitCode: ExitConfigInvalid}, perr.Wrap(perr.KindConfig, "orchestrator", "ensure data directories", err)
	}

	// Stage 1: C1 — load + propagate.
	var records []catalog.Record
	var loadStats catalog.LoadStats
	var starlinkSeries, onewebSeries, unclassifiedSeries []catalog.SatelliteSeries
	var starlinkPropStats, onewebPropStats, unclassifiedPropStats catalog.PropagationStats

	obs := orbit.Observer{
		LatitudeDeg:  cfg.Observer.LatitudeDeg,
		LongitudeDeg: cfg.Observer.LongitudeDeg,
		AltitudeKM:   cfg.Observer.AltitudeM / 1000,
	}
	windowStart := time.Now().UTC().Truncate(time.Second)
	window := time.Duration(cfg.Window.DurationMinutes) * time.Minute
	step := time.Duration(cfg.Window.StepSeconds) * time.Second
	workers := runtime.GOMAXPROCS(0)

	if err := stage(telemetry.StageLoad, func() error {
		var err error
		records, loadStats, err = catalog.Load(r)
		if err != nil {
			return err
		}
		starlinkRecords := catalog.FilterConstellation(records, catalog.Starlink)
		onewebRecords := catalog.FilterConstellation(records, catalog.OneWeb)
		unclassifiedRecords := catalog.FilterConstellation(records, catalog.Unclassified)

		starlinkSeries, starlinkPropStats = catalog.GenerateSeriesParallel(starlinkRecords, obs, windowStart, window, step, loadStats.FullModeEngaged, workers)
		onewebSeries, onewebPropStats = catalog.GenerateSeriesParallel(onewebRecords, obs, windowStart, window, step, loadStats.FullModeEngaged, workers)
		unclassifiedSeries, unclassifiedPropStats = catalog.GenerateSeriesParallel(unclassifiedRecords, obs, windowStart, window, step, loadStats.FullModeEngaged, workers)

		telemetry.SatellitesProcessedTotal.WithLabelValues(string(catalog.Starlink)).Add(float64(starlinkPropStats.SatellitesSucceeded))
		telemetry.SatellitesProcessedTotal.WithLabelValues(string(catalog.OneWeb)).Add(float64(onewebPropStats.SatellitesSucceeded))
		telemetry.SatellitesProcessedTotal.WithLabelValues(string(catalog.Unclassified)).Add(float64(unclassifiedPropStats.SatellitesSucceeded))

		return writeLoadArtifact(cfg, loadStats, starlinkPropStats, onewebPropStats, unclassifiedPropStats, starlinkSeries, onewebSeries, unclassifiedSeries)
	}); err != nil {
		return Result{ExitCode: ExitFatalStageError}, perr.Wrap(perr.KindParse, "orchestrator", "stage 1 load/propagation", err)
	}

	if len(starlinkSeries) == 0 && len(onewebSeries) == 0 {
		return Result{ExitCode: ExitFatalStageError}, perr.New(perr.KindInvariantFailure, "orchestrator", "no satellites survived propagation")
	}

	// Stage 2: C2 — filter engine. Unclassified satellites (unknown TLE
	// tag, spec.md §8.4 scenario 4) run through the same six stages so
	// stage 5's signal pre-assessment — which has no link-budget params
	// for an unrecognized constellation — is the one that drops them,
	// rather than silently discarding them before C2 ever sees them.
	var starlinkFilter, onewebFilter, unclassifiedFilter filter.Result
	developmentMode := !loadStats.FullModeEngaged

	if err := stage(telemetry.StageFilter, func() error {
		starlinkFilter = filter.Run(starlinkSeries, catalog.Starlink, cfg.Observer.LatitudeDeg, cfg.Constellations, cfg.Terminal, developmentMode)
		onewebFilter = filter.Run(onewebSeries, catalog.OneWeb, cfg.Observer.LatitudeDeg, cfg.Constellations, cfg.Terminal, developmentMode)
		unclassifiedFilter = filter.Run(unclassifiedSeries, catalog.Unclassified, cfg.Observer.LatitudeDeg, cfg.Constellations, cfg.Terminal, false)
		recordDropMetrics(string(catalog.Starlink), starlinkFilter.Stats)
		recordDropMetrics(string(catalog.OneWeb), onewebFilter.Stats)
		recordDropMetrics(string(catalog.Unclassified), unclassifiedFilter.Stats)
		if len(starlinkFilter.Selected) == 0 && len(onewebFilter.Selected) == 0 {
			return perr.New(perr.KindInvariantFailure, "filter", "empty candidate set after filtering")
		}
		return writeFilterArtifact(cfg, starlinkFilter, onewebFilter, unclassifiedFilter)
	}); err != nil {
		return Result{ExitCode: ExitFatalStageError}, err
	}

	seriesByID := indexSeries(starlinkSeries, onewebSeries, unclassifiedSeries)

	// Stage 3: C3 — signal engine, computed per selected candidate to build
	// event-detection timelines.
	var timelines map[int]event.SatelliteTimeline
	if err := stage(telemetry.StageSignal, func() error {
		timelines = buildTimelines(cfg, append(append([]filter.CandidateScore{}, starlinkFilter.Selected...), onewebFilter.Selected...), seriesByID)
		return nil
	}); err != nil {
		return Result{ExitCode: ExitFatalStageError}, err
	}

	// Stage 4: C4 — handover event detection. The highest-scored candidate
	// across both constellations is the serving satellite; every other
	// selected candidate is a handover neighbor.
	var events []event.Event
	var eventStats event.Stats
	if err := stage(telemetry.StageEvents, func() error {
		serving, neighbors := servingAndNeighbors(timelines, starlinkFilter.Selected, onewebFilter.Selected)
		if serving == nil {
			return nil
		}
		events, eventStats = event.Detect(*serving, neighbors, cfg.Events)
		for t, n := range eventStats.CountByType {
			telemetry.HandoverEventsTotal.WithLabelValues(string(t)).Add(float64(n))
		}
		return writeEventArtifact(cfg, events, eventStats)
	}); err != nil {
		return Result{ExitCode: ExitFatalStageError}, err
	}

	// Stage 5: C5 — coverage analysis, one report per constellation.
	var covStarlink, covOneWeb coverage.Report
	if err := stage(telemetry.StageCoverage, func() error {
		covStarlink = analyzeCoverage(starlinkFilter.Selected, seriesByID, cfg.Constellations.Starlink, cfg.Coverage)
		covOneWeb = analyzeCoverage(onewebFilter.Selected, seriesByID, cfg.Constellations.OneWeb, cfg.Coverage)
		return nil
	}); err != nil {
		return Result{ExitCode: ExitFatalStageError}, err
	}

	// Stage 6: C6 — simulated annealing pool optimizer.
	var solution pool.Solution
	if err := stage(telemetry.StageOptimize, func() error {
		starlinkInput := buildConstellationInput(starlinkFilter.Candidates, seriesByID, cfg.Constellations.Starlink)
		onewebInput := buildConstellationInput(onewebFilter.Candidates, seriesByID, cfg.Constellations.OneWeb)
		rng := rand.New(rand.NewSource(1))
		solution = pool.Optimize(starlinkInput, onewebInput, cfg.Coverage, cfg.Annealing, rng)
		return writePoolArtifact(cfg, solution)
	}); err != nil {
		return Result{ExitCode: ExitFatalStageError}, err
	}

	// Final summary report.
	if err := stage(telemetry.StageArtifacts, func() error {
		report := finalReport{
			Metadata:            newMetadata(cfg, len(starlinkSeries), len(onewebSeries), time.Now()),
			Durations:           durations,
			StarlinkSelected:    len(solution.Starlink),
			OneWebSelected:      len(solution.OneWeb),
			Feasible:            solution.Feasible,
			Compliance:          solution.Compliance,
			CoverageStarlink:    covStarlink,
			CoverageOneWeb:      covOneWeb,
			AnnealingIterations: solution.Iterations,
		}
		return writeJSON(filepath.Join(cfg.Data.PermanentRoot, "leo_optimization_final_report.json"), report)
	}); err != nil {
		return Result{ExitCode: ExitFatalStageError}, err
	}

	logger.Printf("orchestrator run complete in %s, feasible=%v", time.Since(start).Truncate(time.Millisecond), solution.Feasible)

	exitCode := ExitSuccess
	outcome := "feasible"
	if !solution.Feasible {
		exitCode = ExitInfeasible
		outcome = "infeasible"
	}
	telemetry.RunsTotal.WithLabelValues(outcome).Inc()

	return Result{ExitCode: exitCode, Feasible: solution.Feasible, Durations: durations, Solution: solution}, nil
}

// recordDropMetrics reports the per-stage drop counts from one
// constellation's filter run to the satellites-dropped counter.
func recordDropMetrics(constellation string, stats filter.StageStats) {
	telemetry.SatellitesDroppedTotal.WithLabelValues(constellation, "geographic").Add(float64(stats.DroppedGeographic))
	telemetry.SatellitesDroppedTotal.WithLabelValues(constellation, "visibility").Add(float64(stats.DroppedVisibility))
	telemetry.SatellitesDroppedTotal.WithLabelValues(constellation, "elevation").Add(float64(stats.DroppedElevation))
	telemetry.SatellitesDroppedTotal.WithLabelValues(constellation, "continuity").Add(float64(stats.DroppedContinuity))
	telemetry.SatellitesDroppedTotal.WithLabelValues(constellation, "signal").Add(float64(stats.DroppedSignal))
	telemetry.SatellitesDroppedTotal.WithLabelValues(constellation, "missing_samples").Add(float64(stats.DroppedMissingSamples))
}

func indexSeries(groups ...[]catalog.SatelliteSeries) map[int]catalog.SatelliteSeries {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make(map[int]catalog.SatelliteSeries, n)
	for _, g := range groups {
		for _, s := range g {
			out[s.Record.NoradID] = s
		}
	}
	return out
}

func buildTimelines(cfg config.Config, candidates []filter.CandidateScore, seriesByID map[int]catalog.SatelliteSeries) map[int]event.SatelliteTimeline {
	out := make(map[int]event.SatelliteTimeline, len(candidates))
	for _, c := range candidates {
		s, ok := seriesByID[c.NoradID]
		if !ok {
			continue
		}
		sigs := make([]signal.Sample, len(s.Samples))
		for i, samp := range s.Samples {
			sigs[i] = signal.Compute(cfg.Constellations, cfg.Terminal, c.Constellation, signal.Link{
				RangeKM:      samp.RangeKM,
				ElevationDeg: samp.ElevationDeg,
				RangeRateKMS: samp.RangeRateKMS,
			})
		}
		out[c.NoradID] = event.SatelliteTimeline{Record: s.Record, Samples: s.Samples, Signals: sigs}
	}
	return out
}

func servingAndNeighbors(timelines map[int]event.SatelliteTimeline, starlinkSelected, onewebSelected []filter.CandidateScore) (*event.SatelliteTimeline, []event.SatelliteTimeline) {
	all := append(append([]filter.CandidateScore{}, starlinkSelected...), onewebSelected...)
	if len(all) == 0 {
		return nil, nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TotalScore > all[j].TotalScore })

	servingTL, ok := timelines[all[0].NoradID]
	if !ok {
		return nil, nil
	}
	var neighbors []event.SatelliteTimeline
	for _, c := range all[1:] {
		if tl, ok := timelines[c.NoradID]; ok {
			neighbors = append(neighbors, tl)
		}
	}
	return &servingTL, neighbors
}

func analyzeCoverage(selected []filter.CandidateScore, seriesByID map[int]catalog.SatelliteSeries, params config.ConstellationParams, covCfg config.CoverageConfig) coverage.Report {
	if len(selected) == 0 {
		return coverage.Report{}
	}

	var raans []float64
	var n int
	for _, c := range selected {
		s, ok := seriesByID[c.NoradID]
		if !ok {
			continue
		}
		raans = append(raans, s.Record.RAANDeg())
		if len(s.Samples) > n {
			n = len(s.Samples)
		}
	}

	counts := make([]coverage.VisibleCountSample, n)
	initialized := false
	for _, c := range selected {
		s, ok := seriesByID[c.NoradID]
		if !ok {
			continue
		}
		bitmap := filter.VisibilityBitmap(s.Samples, params.ElevationMaskDeg)
		for i := 0; i < len(bitmap) && i < n; i++ {
			if !initialized {
				counts[i].Time = s.Samples[i].Time
			}
			if bitmap[i] {
				counts[i].Count++
			}
		}
		initialized = true
	}

	return coverage.Analyze(counts, raans, params.MinVisibleCount, params.MaxVisibleCount, covCfg)
}

func buildConstellationInput(candidates []filter.CandidateScore, seriesByID map[int]catalog.SatelliteSeries, params config.ConstellationParams) pool.ConstellationInput {
	inputs := make([]pool.CandidateInput, 0, len(candidates))
	for _, c := range candidates {
		s, ok := seriesByID[c.NoradID]
		if !ok {
			continue
		}
		inputs = append(inputs, pool.CandidateInput{
			Score:   c,
			Bitmap:  filter.VisibilityBitmap(s.Samples, params.ElevationMaskDeg),
			RAANDeg: s.Record.RAANDeg(),
		})
	}
	return pool.ConstellationInput{
		Candidates:    inputs,
		Bounds:        pool.Bounds{Min: params.MinVisibleCount, Max: params.CandidateTarget},
		VisibleBounds: pool.Bounds{Min: params.PoolVisibleMin, Max: params.PoolVisibleMax},
	}
}

func writeLoadArtifact(cfg config.Config, stats catalog.LoadStats, starlinkStats, onewebStats, unclassifiedStats catalog.PropagationStats, starlink, oneweb, unclassified []catalog.SatelliteSeries) error {
	artifact := loadArtifact{
		Metadata: newMetadata(cfg, len(starlink), len(oneweb), time.Now()),
		Stats:    stats,
		Propagation: map[string]catalog.PropagationStats{
			"starlink":     starlinkStats,
			"oneweb":       onewebStats,
			"unclassified": unclassifiedStats,
		},
		Series: toSeriesJSON(starlink, oneweb, unclassified),
	}
	return writeJSON(filepath.Join(cfg.Data.TempRoot, "tle_loading_and_orbit_calculation_results.json"), artifact)
}

func toSeriesJSON(groups ...[]catalog.SatelliteSeries) []seriesJSON {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]seriesJSON, 0, n)
	for _, group := range groups {
		for _, s := range group {
			samples := make([]positionSampleJSON, len(s.Samples))
			for i, p := range s.Samples {
				samples[i] = positionSampleJSON{
					Time:         p.Time,
					LatitudeDeg:  p.Subpoint.LatitudeDeg,
					LongitudeDeg: p.Subpoint.LongitudeDeg,
					AltitudeKM:   p.Subpoint.AltitudeKM,
					ElevationDeg: p.ElevationDeg,
					AzimuthDeg:   p.AzimuthDeg,
					RangeKM:      p.RangeKM,
					RangeRateKMS: p.RangeRateKMS,
				}
			}
			out = append(out, seriesJSON{
				NoradID:       s.Record.NoradID,
				Name:          s.Record.Name,
				Constellation: s.Record.Constellation,
				Samples:       samples,
			})
		}
	}
	return out
}

func writeFilterArtifact(cfg config.Config, starlink, oneweb, unclassified filter.Result) error {
	artifact := filterArtifact{
		Metadata:     newMetadata(cfg, starlink.Stats.Input, oneweb.Stats.Input, time.Now()),
		Starlink:     starlink,
		OneWeb:       oneweb,
		Unclassified: unclassified,
	}
	return writeJSON(filepath.Join(cfg.Data.TempRoot, "satellite_filtering_and_candidate_selection_results.json"), artifact)
}

func writeEventArtifact(cfg config.Config, events []event.Event, stats event.Stats) error {
	artifact := eventArtifact{
		Metadata: newMetadata(cfg, 0, 0, time.Now()),
		Events:   events,
		Stats:    stats,
	}
	return writeJSON(filepath.Join(cfg.Data.PermanentRoot, "handover_event_analysis_results.json"), artifact)
}

func writePoolArtifact(cfg config.Config, solution pool.Solution) error {
	artifact := poolArtifact{
		Metadata: newMetadata(cfg, len(solution.Starlink), len(solution.OneWeb), time.Now()),
		Solution: solution,
	}
	return writeJSON(filepath.Join(cfg.Data.PermanentRoot, "dynamic_satellite_pool_optimization_results.json"), artifact)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, b, 0o644)
}
