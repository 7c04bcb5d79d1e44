package ctl

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var raw json.RawMessage
	if err := getJSON(baseURL, "/api/config", &raw); err != nil {
		return err
	}

	if jsonOutput {
		var v any
		_ = json.Unmarshal(raw, &v)
		return printJSON(v)
	}

	var cfg struct {
		Observer struct {
			LatitudeDeg  float64 `json:"latitude_deg"`
			LongitudeDeg float64 `json:"longitude_deg"`
			AltitudeM    float64 `json:"altitude_m"`
		} `json:"observer"`
		Window struct {
			DurationMinutes int `json:"duration_minutes"`
			StepSeconds     int `json:"step_seconds"`
		} `json:"window"`
		Server struct {
			Bind string `json:"bind"`
		} `json:"server"`
		Data struct {
			TempRoot      string `json:"temp_root"`
			PermanentRoot string `json:"permanent_root"`
		} `json:"data"`
		Constellations struct {
			Starlink struct {
				ElevationMaskDeg float64 `json:"elevation_mask_deg"`
				CandidateTarget  int     `json:"candidate_target"`
				FullModeTarget   int     `json:"full_mode_target"`
			} `json:"starlink"`
			OneWeb struct {
				ElevationMaskDeg float64 `json:"elevation_mask_deg"`
				CandidateTarget  int     `json:"candidate_target"`
				FullModeTarget   int     `json:"full_mode_target"`
			} `json:"oneweb"`
		} `json:"constellations"`
		Annealing struct {
			InitialTemperature float64 `json:"initial_temperature"`
			CoolingRate        float64 `json:"cooling_rate"`
			MaxIterations      int     `json:"max_iterations"`
		} `json:"annealing"`
		Coverage struct {
			ReliabilityThreshold float64 `json:"reliability_threshold"`
			MaxGapSeconds        int     `json:"max_gap_seconds"`
			RAANDiversityTarget  float64 `json:"raan_diversity_target"`
		} `json:"coverage"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(header("  DAEMON CONFIGURATION"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 50)))

	section := func(name string) {
		fmt.Printf("\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Printf("    %-24s %v\n", colorize(dim, key+":"), val)
	}

	section("observer")
	field("latitude_deg", cfg.Observer.LatitudeDeg)
	field("longitude_deg", cfg.Observer.LongitudeDeg)
	field("altitude_m", cfg.Observer.AltitudeM)

	section("window")
	field("duration_minutes", cfg.Window.DurationMinutes)
	field("step_seconds", cfg.Window.StepSeconds)

	section("server")
	field("bind", cfg.Server.Bind)

	section("data")
	field("temp_root", cfg.Data.TempRoot)
	field("permanent_root", cfg.Data.PermanentRoot)

	section("constellations.starlink")
	field("elevation_mask_deg", cfg.Constellations.Starlink.ElevationMaskDeg)
	field("candidate_target", cfg.Constellations.Starlink.CandidateTarget)
	field("full_mode_target", cfg.Constellations.Starlink.FullModeTarget)

	section("constellations.oneweb")
	field("elevation_mask_deg", cfg.Constellations.OneWeb.ElevationMaskDeg)
	field("candidate_target", cfg.Constellations.OneWeb.CandidateTarget)
	field("full_mode_target", cfg.Constellations.OneWeb.FullModeTarget)

	section("annealing")
	field("initial_temperature", cfg.Annealing.InitialTemperature)
	field("cooling_rate", cfg.Annealing.CoolingRate)
	field("max_iterations", cfg.Annealing.MaxIterations)

	section("coverage")
	field("reliability_threshold", cfg.Coverage.ReliabilityThreshold)
	field("max_gap_seconds", cfg.Coverage.MaxGapSeconds)
	field("raan_diversity_target", cfg.Coverage.RAANDiversityTarget)

	fmt.Println()

	return nil
}

// ConfigList fetches and displays the available config profiles.
func ConfigList(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		ConfigDir string `json:"config_dir"`
		Profiles  []struct {
			Name    string `json:"name"`
			Path    string `json:"path"`
			ModTime string `json:"mod_time"`
		} `json:"profiles"`
	}
	if err := getJSON(baseURL, "/api/config-list", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  CONFIG PROFILES"))
	fmt.Printf("  %s %s\n", colorize(dim, "directory:"), resp.ConfigDir)
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 46)))
	if len(resp.Profiles) == 0 {
		fmt.Println(colorize(dim, "  (no profiles found)"))
	}
	for _, p := range resp.Profiles {
		fmt.Printf("  %-20s %s\n", p.Name, colorize(dim, p.Path))
	}
	fmt.Println()

	return nil
}
