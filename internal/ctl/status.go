package ctl

import (
	"fmt"
	"strings"
	"time"
)

// latestRun mirrors scheduler.RunSummary for display purposes.
type latestRun struct {
	RanAt            time.Time `json:"ran_at"`
	ExitCode         int       `json:"exit_code"`
	Feasible         bool      `json:"feasible"`
	StarlinkSelected int       `json:"starlink_selected"`
	OneWebSelected   int       `json:"oneweb_selected"`
}

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name           string     `json:"name"`
	State          string     `json:"state"`
	UptimeSeconds  int64      `json:"uptime_seconds"`
	TempRoot       string     `json:"temp_root"`
	PermanentRoot  string     `json:"permanent_root"`
	WindowMinutes  int        `json:"window_minutes"`
	StepSeconds    int        `json:"step_seconds"`
	Paused         bool       `json:"paused"`
	LatestRun      *latestRun `json:"latest_run"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	stateStr := colorize(stateColor(s.State), s.State)

	fmt.Println()
	fmt.Println(header("  POOL PLANNER STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 42)))
	fmt.Printf("  %-16s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Printf("  %-16s %s\n", colorize(dim, "State:"), stateStr)
	fmt.Printf("  %-16s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Printf("  %-16s %v\n", colorize(dim, "Paused:"), s.Paused)
	fmt.Printf("  %-16s %d min / %d s step\n", colorize(dim, "Window:"), s.WindowMinutes, s.StepSeconds)
	fmt.Printf("  %-16s %s\n", colorize(dim, "Temp bucket:"), s.TempRoot)
	fmt.Printf("  %-16s %s\n", colorize(dim, "Permanent:"), s.PermanentRoot)
	if s.LatestRun != nil && !s.LatestRun.RanAt.IsZero() {
		feasStr := colorize(green, "true")
		if !s.LatestRun.Feasible {
			feasStr = colorize(yellow, "false")
		}
		fmt.Printf("  %-16s %s (exit %d, feasible=%s)\n", colorize(dim, "Last run:"), s.LatestRun.RanAt.Local().Format(time.RFC3339), s.LatestRun.ExitCode, feasStr)
		fmt.Printf("  %-16s %d starlink / %d oneweb\n", colorize(dim, "Pool size:"), s.LatestRun.StarlinkSelected, s.LatestRun.OneWebSelected)
	}
	fmt.Printf("  %-16s %s\n", colorize(dim, "Host:"), baseURL)
	fmt.Println()

	return nil
}
