// Package scheduler drives the orchestrator's predict-run-cycle loop: it
// runs the full C1-C6 pipeline on a fixed interval, exposes pause/resume/
// trigger controls through a command channel, and reports progress and
// pool state to the WebSocket hub. This mirrors the predict-wait-capture
// loop pattern of a receiver daemon, with the pass loop replaced by a
// pipeline-run loop.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/aurora-leo/poolplanner/internal/config"
	"github.com/aurora-leo/poolplanner/internal/orchestrator"
	"github.com/aurora-leo/poolplanner/internal/pool"
	"github.com/aurora-leo/poolplanner/internal/telemetry"
	"github.com/aurora-leo/poolplanner/internal/ws"
)

// Command represents an external command sent to the scheduler via its
// Commands channel. The Reply channel receives exactly one result.
type Command struct {
	Type    string
	Payload json.RawMessage
	Reply   chan<- CommandResult
}

// CommandResult is the response sent back through a Command's Reply channel.
type CommandResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunSummary is the latest orchestrator run outcome, kept for /api/status.
type RunSummary struct {
	RanAt            time.Time `json:"ran_at"`
	ExitCode         int       `json:"exit_code"`
	Feasible         bool      `json:"feasible"`
	StarlinkSelected int       `json:"starlink_selected"`
	OneWebSelected   int       `json:"oneweb_selected"`
}

// Runner owns the periodic orchestrator-run loop.
type Runner struct {
	Hub *ws.Hub
	Cfg config.Config
	Log *log.Logger

	// Commands receives external commands from HTTP handlers.
	Commands chan Command

	tleSource func() (*os.File, error)

	paused atomic.Bool
	latest atomic.Value // RunSummary

	stateCallback func(string)
}

// New creates a scheduler that reads the TLE catalog from tlePath on every
// cycle.
func New(hub *ws.Hub, cfg config.Config, logger *log.Logger, tlePath string) *Runner {
	r := &Runner{
		Hub:      hub,
		Cfg:      cfg,
		Log:      logger,
		Commands: make(chan Command, 4),
		tleSource: func() (*os.File, error) {
			return os.Open(tlePath)
		},
	}
	r.latest.Store(RunSummary{})
	return r
}

// IsPaused reports whether the scheduler is paused.
func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

// Latest returns the most recent orchestrator run summary.
func (r *Runner) Latest() RunSummary {
	return r.latest.Load().(RunSummary)
}

// Run is the main scheduler loop: it runs the orchestrator once, sleeps for
// the configured window duration (so the pool is refreshed roughly once per
// planning horizon), and repeats until ctx is cancelled. External commands
// (trigger, pause, resume) are serviced between cycles and during sleeps.
func (r *Runner) Run(ctx context.Context, setState func(string)) {
	r.stateCallback = setState
	r.broadcast(map[string]any{"type": "log", "level": "info", "message": "scheduler started"})

	interval := time.Duration(r.Cfg.Window.DurationMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	for {
		if ctx.Err() != nil {
			return
		}

		if r.paused.Load() {
			setState("IDLE")
			if r.sleepOrCommand(ctx, 24*365*time.Hour) == sleepCancelled {
				return
			}
			continue
		}

		r.runOnce(ctx, setState)

		if r.sleepOrCommand(ctx, interval) == sleepCancelled {
			return
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, setState func(string)) {
	setState("RUNNING")
	r.broadcast(map[string]any{"type": "log", "level": "info", "message": "orchestrator run starting"})

	f, err := r.tleSource()
	if err != nil {
		r.broadcast(map[string]any{"type": "log", "level": "error", "message": "TLE source unavailable: " + err.Error()})
		setState("IDLE")
		return
	}
	defer f.Close()

	progress := func(stage telemetry.Stage, percent float64, detail string) {
		r.broadcast(map[string]any{
			"type":    "progress",
			"stage":   string(stage),
			"percent": percent,
			"detail":  detail,
		})
	}

	result, runErr := orchestrator.Run(ctx, r.Cfg, f, r.Log, progress)
	summary := RunSummary{
		RanAt:            time.Now().UTC(),
		ExitCode:         result.ExitCode,
		Feasible:         result.Feasible,
		StarlinkSelected: len(result.Solution.Starlink),
		OneWebSelected:   len(result.Solution.OneWeb),
	}
	r.latest.Store(summary)

	if runErr != nil {
		r.broadcast(map[string]any{"type": "log", "level": "error", "message": "orchestrator run failed: " + runErr.Error()})
	} else {
		r.broadcast(map[string]any{
			"type":    "log",
			"level":   "info",
			"message": fmt.Sprintf("orchestrator run complete: feasible=%v starlink=%d oneweb=%d", result.Feasible, summary.StarlinkSelected, summary.OneWebSelected),
		})
	}

	setState("IDLE")
}

type sleepResult int

const (
	sleepCompleted sleepResult = iota
	sleepCancelled
	sleepInterrupted
)

func (r *Runner) sleepOrCommand(ctx context.Context, d time.Duration) sleepResult {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return sleepCancelled
	case <-t.C:
		return sleepCompleted
	case cmd := <-r.Commands:
		r.handleCommand(ctx, cmd)
		return sleepInterrupted
	}
}

func (r *Runner) handleCommand(ctx context.Context, cmd Command) {
	switch cmd.Type {
	case "run_now":
		r.runOnce(ctx, r.stateCallback)
		cmd.Reply <- CommandResult{OK: true, Message: "run triggered"}
	case "pause":
		r.paused.Store(true)
		r.broadcast(map[string]any{"type": "log", "level": "info", "message": "scheduler paused by user"})
		cmd.Reply <- CommandResult{OK: true, Message: "scheduler paused"}
	case "resume":
		r.paused.Store(false)
		r.broadcast(map[string]any{"type": "log", "level": "info", "message": "scheduler resumed by user"})
		cmd.Reply <- CommandResult{OK: true, Message: "scheduler resumed"}
	default:
		cmd.Reply <- CommandResult{OK: false, Error: "unknown command: " + cmd.Type}
	}
}

func (r *Runner) broadcast(v map[string]any) {
	v["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	v["component"] = "scheduler"
	r.Hub.BroadcastJSON(v)
}

// PoolSolution re-exports the pool package's solution type for callers that
// only import scheduler.
type PoolSolution = pool.Solution
