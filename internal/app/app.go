// Package app wires together the HTTP server, WebSocket hub, and the
// orchestrator-driving scheduler. It owns the daemon's lifecycle and is the
// single source of truth for the current operating state.
package app

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aurora-leo/poolplanner/internal/config"
	"github.com/aurora-leo/poolplanner/internal/scheduler"
	"github.com/aurora-leo/poolplanner/internal/ws"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger     *log.Logger
	Cfg        config.Config
	Bind       string
	ConfigPath string
	TLEPath    string
}

// logEntry is one buffered log line surfaced via /api/logs.
type logEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// App is the top-level daemon process. It manages the HTTP server, the
// WebSocket event hub, and the orchestrator scheduler.
type App struct {
	log  *log.Logger
	bind string

	cfgMu      sync.RWMutex
	cfg        config.Config
	configPath string

	server *http.Server

	startedAt time.Time
	state     atomic.Value // current state string (BOOTING, IDLE, RUNNING, ...)

	wsHub     *ws.Hub
	scheduler *scheduler.Runner

	logBufMu sync.Mutex
	logBuf   []logEntry
}

// New creates an App in the BOOTING state. Call Run to start serving.
func New(opts Options) *App {
	a := &App{
		log:        opts.Logger,
		cfg:        opts.Cfg,
		bind:       opts.Bind,
		configPath: opts.ConfigPath,
		startedAt:  time.Now(),
		wsHub:      ws.NewHub(),
	}
	a.state.Store("BOOTING")
	a.scheduler = scheduler.New(a.wsHub, opts.Cfg, opts.Logger, opts.TLEPath)
	return a
}

// Run starts the HTTP server, WebSocket hub, heartbeat ticker, and the
// orchestrator scheduler. It blocks until the context is cancelled or the
// server returns an error.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" {
		cfg := a.getConfig()
		bind = cfg.Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/config-list", a.handleConfigProfiles)
	mux.HandleFunc("/api/reload", a.handleReload)
	mux.HandleFunc("/api/run", a.handleRun)
	mux.HandleFunc("/api/pause", a.handlePause)
	mux.HandleFunc("/api/resume", a.handleResume)
	mux.HandleFunc("/api/logs", a.handleLogs)
	mux.HandleFunc("/api/artifacts/", a.handleArtifact)
	mux.HandleFunc("/api/artifacts", a.handleArtifactList)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", a.wsHub.Handler())

	a.server = &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Printf("listening on http://%s", bind)

	go a.wsHub.Run(ctx)
	a.transition("IDLE")
	go a.heartbeatLoop(ctx)
	go a.scheduler.Run(ctx, a.transition)

	go func() {
		<-ctx.Done()
		a.log.Printf("shutdown requested")
		_ = a.server.Shutdown(context.Background())
	}()

	return a.server.Serve(ln)
}

func (a *App) getConfig() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// transition atomically updates the daemon state and broadcasts the change
// to all connected WebSocket clients.
func (a *App) transition(newState string) {
	old, _ := a.state.Load().(string)
	if old == newState {
		return
	}
	a.state.Store(newState)

	a.wsHub.BroadcastJSON(map[string]any{
		"type":      "state",
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"from":      old,
		"to":        newState,
		"component": "poolplannerd",
	})
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.wsHub.BroadcastJSON(map[string]any{
				"type":           "heartbeat",
				"ts":             time.Now().UTC().Format(time.RFC3339Nano),
				"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
				"state":          a.state.Load(),
			})
		}
	}
}

// emit stamps a payload with a timestamp and component name, then pushes it
// to every connected WebSocket client and appends it to the log buffer if
// it is a log-type event.
func (a *App) emit(component string, payload map[string]any) {
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	payload["component"] = component
	if payload["type"] == "log" {
		level, _ := payload["level"].(string)
		message, _ := payload["message"].(string)
		a.appendLog(level, message)
	}
	a.wsHub.BroadcastJSON(payload)
}

func (a *App) appendLog(level, message string) {
	a.logBufMu.Lock()
	a.logBuf = append(a.logBuf, logEntry{Time: time.Now().UTC(), Level: level, Message: message})
	if len(a.logBuf) > 500 {
		a.logBuf = a.logBuf[len(a.logBuf)-500:]
	}
	a.logBufMu.Unlock()
}
