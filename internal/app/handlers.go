package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aurora-leo/poolplanner/internal/config"
	"github.com/aurora-leo/poolplanner/internal/scheduler"
)

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()

	resp := map[string]any{
		"name":             "poolplannerd",
		"state":            a.state.Load().(string),
		"uptime_seconds":   int64(time.Since(a.startedAt).Seconds()),
		"temp_root":        cfg.Data.TempRoot,
		"permanent_root":   cfg.Data.PermanentRoot,
		"window_minutes":   cfg.Window.DurationMinutes,
		"step_seconds":     cfg.Window.StepSeconds,
	}

	if a.scheduler != nil {
		resp["paused"] = a.scheduler.IsPaused()
		resp["latest_run"] = a.scheduler.Latest()
	}

	if du := diskUsage(cfg.Data.PermanentRoot); du != nil {
		resp["disk"] = du
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"version":    Version,
		"go_version": GoVersion,
		"built_at":   BuiltAt,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.getConfig())
}

func (a *App) handleConfigProfiles(w http.ResponseWriter, _ *http.Request) {
	profiles, err := config.ListProfiles(config.DefaultConfigDir())
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []config.ProfileInfo{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"config_dir": config.DefaultConfigDir(),
		"profiles":   profiles,
	})
}

func (a *App) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Profile string `json:"profile"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	loadPath := a.configPath
	if body.Profile != "" {
		candidate := filepath.Join(config.DefaultConfigDir(), body.Profile+".toml")
		if _, err := os.Stat(candidate); err != nil {
			jsonError(w, fmt.Sprintf("profile %q not found at %s", body.Profile, candidate), http.StatusNotFound)
			return
		}
		loadPath = candidate
	}

	if loadPath == "" {
		jsonError(w, "no config file path set", http.StatusInternalServerError)
		return
	}

	newCfg, err := config.Load(loadPath)
	if err != nil {
		jsonError(w, "config reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	a.cfgMu.Lock()
	a.cfg = newCfg
	a.configPath = loadPath
	a.cfgMu.Unlock()

	a.emit("poolplannerd", map[string]any{
		"type":    "log",
		"level":   "info",
		"message": fmt.Sprintf("config reloaded from %s", loadPath),
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":      true,
		"message": "configuration reloaded from " + loadPath,
	})
}

// ---------------------------------------------------------------------------
// Scheduler controls
// ---------------------------------------------------------------------------

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result := a.sendSchedulerCommand("run_now", nil)
	writeCommandResult(w, result)
}

func (a *App) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result := a.sendSchedulerCommand("pause", nil)
	writeCommandResult(w, result)
}

func (a *App) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result := a.sendSchedulerCommand("resume", nil)
	writeCommandResult(w, result)
}

// ---------------------------------------------------------------------------
// Logs
// ---------------------------------------------------------------------------

func (a *App) handleLogs(w http.ResponseWriter, r *http.Request) {
	a.logBufMu.Lock()
	entries := make([]logEntry, len(a.logBuf))
	copy(entries, a.logBuf)
	a.logBufMu.Unlock()

	if levelFilter := r.URL.Query().Get("level"); levelFilter != "" {
		var filtered []logEntry
		for _, e := range entries {
			if e.Level == levelFilter {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"logs": entries})
}

func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()

	checks := map[string]any{}
	allOK := true

	for name, dir := range map[string]string{"temp_root": cfg.Data.TempRoot, "permanent_root": cfg.Data.PermanentRoot} {
		probe := filepath.Join(dir, ".healthcheck")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			checks[name] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
			continue
		}
		os.Remove(probe)
		checks[name] = map[string]any{"ok": true, "path": dir}
	}

	if a.scheduler != nil {
		latest := a.scheduler.Latest()
		staleness := time.Since(latest.RanAt)
		fresh := !latest.RanAt.IsZero() && staleness < 2*time.Duration(cfg.Window.DurationMinutes)*time.Minute
		checks["latest_run"] = map[string]any{
			"ok":        latest.RanAt.IsZero() || fresh,
			"ran_at":    latest.RanAt,
			"feasible":  latest.Feasible,
			"exit_code": latest.ExitCode,
		}
	}

	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			checks["config_file"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			checks["config_file"] = map[string]any{"ok": true, "path": a.configPath}
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"healthy": allOK,
		"checks":  checks,
	})
}

// ---------------------------------------------------------------------------
// Artifacts — the five canonical JSON bundles of spec.md §6, spread across
// the temporary (stage 1-2) and permanent (stage 3-6 + report) buckets.
// ---------------------------------------------------------------------------

// artifactNames lists the canonical artifact names in pipeline order;
// artifactPath maps each one to its bucket (temporary vs permanent).
var artifactNames = []string{
	"tle_loading_and_orbit_calculation_results.json",
	"satellite_filtering_and_candidate_selection_results.json",
	"handover_event_analysis_results.json",
	"dynamic_satellite_pool_optimization_results.json",
	"leo_optimization_final_report.json",
}

func (a *App) artifactPath(name string) (string, bool) {
	cfg := a.getConfig()
	switch name {
	case "tle_loading_and_orbit_calculation_results.json",
		"satellite_filtering_and_candidate_selection_results.json":
		return filepath.Join(cfg.Data.TempRoot, name), true
	case "handover_event_analysis_results.json",
		"dynamic_satellite_pool_optimization_results.json",
		"leo_optimization_final_report.json":
		return filepath.Join(cfg.Data.PermanentRoot, name), true
	default:
		return "", false
	}
}

func (a *App) handleArtifactList(w http.ResponseWriter, _ *http.Request) {
	type artifactInfo struct {
		Name      string    `json:"name"`
		Available bool      `json:"available"`
		Bytes     int64     `json:"bytes,omitempty"`
		ModTime   time.Time `json:"mod_time,omitempty"`
	}

	infos := make([]artifactInfo, 0, len(artifactNames))
	for _, name := range artifactNames {
		path, _ := a.artifactPath(name)
		info := artifactInfo{Name: name}
		if st, err := os.Stat(path); err == nil {
			info.Available = true
			info.Bytes = st.Size()
			info.ModTime = st.ModTime()
		}
		infos = append(infos, info)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"artifacts": infos})
}

func (a *App) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/artifacts/")
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		jsonError(w, "invalid artifact name", http.StatusBadRequest)
		return
	}

	path, known := a.artifactPath(name)
	if !known {
		jsonError(w, "unknown artifact: "+name, http.StatusNotFound)
		return
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			jsonError(w, "artifact not yet produced: "+name, http.StatusNotFound)
		} else {
			jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (a *App) sendSchedulerCommand(cmdType string, payload json.RawMessage) scheduler.CommandResult {
	reply := make(chan scheduler.CommandResult, 1)
	a.scheduler.Commands <- scheduler.Command{
		Type:    cmdType,
		Payload: payload,
		Reply:   reply,
	}
	return <-reply
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"error": msg,
	})
}

func writeCommandResult(w http.ResponseWriter, result scheduler.CommandResult) {
	w.Header().Set("Content-Type", "application/json")
	if !result.OK {
		w.WriteHeader(http.StatusInternalServerError)
	}
	_ = json.NewEncoder(w).Encode(result)
}
