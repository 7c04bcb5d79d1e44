// Package config handles loading, defaulting, and validation of the pool
// planner's TOML configuration file. Every section maps to a typed struct
// so the rest of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Observer       ObserverConfig       `toml:"observer"       json:"observer"`
	Window         WindowConfig         `toml:"window"         json:"window"`
	Logging        LoggingConfig        `toml:"logging"        json:"logging"`
	Server         ServerConfig         `toml:"server"         json:"server"`
	Data           DataConfig           `toml:"data"           json:"data"`
	Constellations ConstellationsConfig `toml:"constellations" json:"constellations"`
	Terminal       TerminalConfig       `toml:"terminal"       json:"terminal"`
	Events         EventsConfig         `toml:"events"         json:"events"`
	Annealing      AnnealingConfig      `toml:"annealing"      json:"annealing"`
	Coverage       CoverageConfig       `toml:"coverage"       json:"coverage"`
}

// ObserverConfig is the fixed ground observation point.
type ObserverConfig struct {
	LatitudeDeg  float64 `toml:"latitude_deg"  json:"latitude_deg"`
	LongitudeDeg float64 `toml:"longitude_deg" json:"longitude_deg"`
	AltitudeM    float64 `toml:"altitude_m"    json:"altitude_m"`
}

// WindowConfig is the planning horizon and sampling cadence.
type WindowConfig struct {
	DurationMinutes int `toml:"duration_minutes" json:"duration_minutes"`
	StepSeconds     int `toml:"step_seconds"     json:"step_seconds"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

// DataConfig names the temporary and permanent artifact buckets the
// orchestrator writes stage outputs to.
type DataConfig struct {
	TempRoot      string `toml:"temp_root"      json:"temp_root"`
	PermanentRoot string `toml:"permanent_root" json:"permanent_root"`
}

// ConstellationParams holds the per-constellation filter and link-budget
// parameters that differ between Starlink and OneWeb. MinVisibleCount and
// MaxVisibleCount are the coverage analyzer's per-instant band (e.g.
// Starlink 10-15); PoolVisibleMin/PoolVisibleMax are the pool optimizer's
// much wider concurrent-visible band (e.g. Starlink 10-100) — the two
// bands serve different spec clauses (§4.5 vs §4.6) and must not be
// conflated.
type ConstellationParams struct {
	OptimalInclinationDeg float64 `toml:"optimal_inclination_deg" json:"optimal_inclination_deg"`
	OptimalAltitudeKM     float64 `toml:"optimal_altitude_km"     json:"optimal_altitude_km"`
	ElevationMaskDeg      float64 `toml:"elevation_mask_deg"      json:"elevation_mask_deg"`
	CandidateTarget       int     `toml:"candidate_target"        json:"candidate_target"`
	FullModeTarget        int     `toml:"full_mode_target"        json:"full_mode_target"`
	EIRPDBW               float64 `toml:"eirp_dbw"                json:"eirp_dbw"`
	CarrierFreqGHz        float64 `toml:"carrier_freq_ghz"        json:"carrier_freq_ghz"`
	AntennaGainMinDBi     float64 `toml:"antenna_gain_min_dbi"    json:"antenna_gain_min_dbi"`
	AntennaGainMaxDBi     float64 `toml:"antenna_gain_max_dbi"    json:"antenna_gain_max_dbi"`
	MinVisibleCount       int     `toml:"min_visible_count"       json:"min_visible_count"`
	MaxVisibleCount       int     `toml:"max_visible_count"       json:"max_visible_count"`
	PoolVisibleMin        int     `toml:"pool_visible_min"        json:"pool_visible_min"`
	PoolVisibleMax        int     `toml:"pool_visible_max"        json:"pool_visible_max"`
}

type ConstellationsConfig struct {
	Starlink ConstellationParams `toml:"starlink" json:"starlink"`
	OneWeb   ConstellationParams `toml:"oneweb"   json:"oneweb"`
}

// TerminalConfig captures ground-terminal RF parameters used by the
// signal engine's link budget.
type TerminalConfig struct {
	AntennaGainDBi       float64 `toml:"antenna_gain_dbi"       json:"antenna_gain_dbi"`
	NoiseFigureDB        float64 `toml:"noise_figure_db"        json:"noise_figure_db"`
	ImplementationLossDB float64 `toml:"implementation_loss_db" json:"implementation_loss_db"`
	PolarizationLossDB   float64 `toml:"polarization_loss_db"   json:"polarization_loss_db"`
	PointingLossDB       float64 `toml:"pointing_loss_db"       json:"pointing_loss_db"`
}

// EventsConfig holds the 3GPP NTN measurement event thresholds.
type EventsConfig struct {
	A4ThresholdDBm     float64 `toml:"a4_threshold_dbm"   json:"a4_threshold_dbm"`
	HysteresisDB       float64 `toml:"hysteresis_db"      json:"hysteresis_db"`
	TimeToTriggerMS    int     `toml:"time_to_trigger_ms" json:"time_to_trigger_ms"`
	A5ServingDBm       float64 `toml:"a5_serving_dbm"     json:"a5_serving_dbm"`
	A5NeighborDBm      float64 `toml:"a5_neighbor_dbm"    json:"a5_neighbor_dbm"`
	D2ServingMeters    float64 `toml:"d2_serving_m"       json:"d2_serving_m"`
	D2NeighborMeters   float64 `toml:"d2_neighbor_m"      json:"d2_neighbor_m"`
	D2HysteresisMeters float64 `toml:"d2_hysteresis_m"    json:"d2_hysteresis_m"`
}

// AnnealingConfig tunes the simulated-annealing pool optimizer.
type AnnealingConfig struct {
	InitialTemperature float64 `toml:"initial_temperature" json:"initial_temperature"`
	CoolingRate        float64 `toml:"cooling_rate"        json:"cooling_rate"`
	MaxIterations      int     `toml:"max_iterations"      json:"max_iterations"`
}

// CoverageConfig holds the coverage-continuity targets. The coverage
// analyzer reports against them and the pool optimizer's raan_diversity_ok
// flag uses RAANDiversityTarget; none of them is an optimizer hard constraint.
type CoverageConfig struct {
	ReliabilityThreshold float64 `toml:"reliability_threshold" json:"reliability_threshold"`
	MaxGapSeconds        int     `toml:"max_gap_seconds"       json:"max_gap_seconds"`
	RAANDiversityTarget  float64 `toml:"raan_diversity_target" json:"raan_diversity_target"`
}

// DefaultConfigDir returns the XDG-compliant config directory for the planner.
// It respects $XDG_CONFIG_HOME and falls back to ~/.config/poolplanner.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "poolplanner")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "poolplanner")
}

// DefaultDataDir returns the XDG-compliant data directory for the planner.
// It respects $XDG_DATA_HOME and falls back to ~/.local/share/poolplanner.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "poolplanner")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "poolplanner")
}

// FindConfigFile searches for a config file in standard locations:
//  1. $POOLPLANNER_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/poolplanner/config.toml
//  3. /etc/poolplanner/poolplanner.toml
//  4. configs/example.toml (bundled fallback)
//
// Returns the path to the first file found, or empty string if none exist.
// An empty return means the caller should use Default() directly.
func FindConfigFile() string {
	if env := os.Getenv("POOLPLANNER_CONFIG"); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env
		}
	}

	xdgPath := filepath.Join(DefaultConfigDir(), "config.toml")
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}

	legacyPath := "/etc/poolplanner/poolplanner.toml"
	if _, err := os.Stat(legacyPath); err == nil {
		return legacyPath
	}

	if _, err := os.Stat("configs/example.toml"); err == nil {
		return "configs/example.toml"
	}

	return ""
}

// ProfileInfo describes a config profile discovered in the config directory.
type ProfileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// ListProfiles scans a directory for .toml files and returns them as profiles.
func ListProfiles(configDir string) ([]ProfileInfo, error) {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var profiles []ProfileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".toml")
		profiles = append(profiles, ProfileInfo{
			Name:    name,
			Path:    filepath.Join(configDir, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	return profiles, nil
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field. Constellation targets default
// to the load-balanced 450/113 candidate-pool figures rather than the
// full-mode 8,085/651 catalog-scale figures (see DESIGN.md, OQ-1).
func Default() Config {
	dataDir := DefaultDataDir()
	return Config{
		Observer: ObserverConfig{
			LatitudeDeg:  24.944,
			LongitudeDeg: 121.371,
			AltitudeM:    50,
		},
		Window: WindowConfig{
			DurationMinutes: 200,
			StepSeconds:     30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Bind: "0.0.0.0:8090",
		},
		Data: DataConfig{
			TempRoot:      filepath.Join(dataDir, "tmp"),
			PermanentRoot: filepath.Join(dataDir, "artifacts"),
		},
		Constellations: ConstellationsConfig{
			Starlink: ConstellationParams{
				OptimalInclinationDeg: 53.0,
				OptimalAltitudeKM:     550.0,
				ElevationMaskDeg:      5.0,
				CandidateTarget:       450,
				FullModeTarget:        8085,
				EIRPDBW:               37.0,
				CarrierFreqGHz:        12.5,
				AntennaGainMinDBi:     0,
				AntennaGainMaxDBi:     25,
				MinVisibleCount:       10,
				MaxVisibleCount:       15,
				PoolVisibleMin:        10,
				PoolVisibleMax:        100,
			},
			OneWeb: ConstellationParams{
				OptimalInclinationDeg: 87.4,
				OptimalAltitudeKM:     1200.0,
				ElevationMaskDeg:      10.0,
				CandidateTarget:       113,
				FullModeTarget:        651,
				EIRPDBW:               40.0,
				CarrierFreqGHz:        11.7,
				AntennaGainMinDBi:     15,
				AntennaGainMaxDBi:     35,
				MinVisibleCount:       3,
				MaxVisibleCount:       6,
				PoolVisibleMin:        3,
				PoolVisibleMax:        50,
			},
		},
		Terminal: TerminalConfig{
			AntennaGainDBi:       25.0,
			NoiseFigureDB:        7.0,
			ImplementationLossDB: 2.0,
			PolarizationLossDB:   0.5,
			PointingLossDB:       0.3,
		},
		Events: EventsConfig{
			A4ThresholdDBm:   -115,
			HysteresisDB:     2,
			TimeToTriggerMS:  320,
			A5ServingDBm:     -125,
			A5NeighborDBm:    -115,
			D2ServingMeters:    2_000_000,
			D2NeighborMeters:   1_000_000,
			D2HysteresisMeters: 50_000,
		},
		Annealing: AnnealingConfig{
			InitialTemperature: 1000,
			CoolingRate:        0.95,
			MaxIterations:      5000,
		},
		Coverage: CoverageConfig{
			ReliabilityThreshold: 0.99,
			MaxGapSeconds:        120,
			RAANDiversityTarget:  0.85,
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. Data directories are created automatically if they
// don't exist.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	// Expand ~ in path fields so users can write "~/.local/share/..." in TOML.
	cfg.Data.TempRoot = expandHome(cfg.Data.TempRoot)
	cfg.Data.PermanentRoot = expandHome(cfg.Data.PermanentRoot)

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, ensureDirs(cfg)
}

// EnsureDirectories creates the XDG config dir and data directories.
// Called by the daemon on startup regardless of whether a config file was found.
func EnsureDirectories(cfg Config) error {
	if err := os.MkdirAll(DefaultConfigDir(), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return ensureDirs(cfg)
}

func ensureDirs(cfg Config) error {
	if err := os.MkdirAll(cfg.Data.TempRoot, 0o755); err != nil {
		return fmt.Errorf("create temp root: %w", err)
	}
	if err := os.MkdirAll(cfg.Data.PermanentRoot, 0o755); err != nil {
		return fmt.Errorf("create permanent root: %w", err)
	}
	return nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func validate(cfg Config) error {
	if cfg.Data.TempRoot == "" {
		return errors.New("data.temp_root must not be empty")
	}
	if cfg.Data.PermanentRoot == "" {
		return errors.New("data.permanent_root must not be empty")
	}
	if cfg.Window.DurationMinutes <= 0 {
		return errors.New("window.duration_minutes must be > 0")
	}
	if cfg.Window.StepSeconds <= 0 {
		return errors.New("window.step_seconds must be > 0")
	}
	if cfg.Observer.LatitudeDeg < -90 || cfg.Observer.LatitudeDeg > 90 {
		return errors.New("observer.latitude_deg must be between -90 and 90")
	}
	if cfg.Observer.LongitudeDeg < -180 || cfg.Observer.LongitudeDeg > 180 {
		return errors.New("observer.longitude_deg must be between -180 and 180")
	}
	if cfg.Constellations.Starlink.CandidateTarget <= 0 {
		return errors.New("constellations.starlink.candidate_target must be > 0")
	}
	if cfg.Constellations.OneWeb.CandidateTarget <= 0 {
		return errors.New("constellations.oneweb.candidate_target must be > 0")
	}
	if cfg.Annealing.MaxIterations < 0 {
		return errors.New("annealing.max_iterations must be >= 0")
	}
	if cfg.Annealing.CoolingRate <= 0 || cfg.Annealing.CoolingRate >= 1 {
		return errors.New("annealing.cooling_rate must be in (0, 1)")
	}
	if cfg.Coverage.ReliabilityThreshold < 0 || cfg.Coverage.ReliabilityThreshold > 1 {
		return errors.New("coverage.reliability_threshold must be between 0 and 1")
	}
	return nil
}
