// Poolplannerd is the main daemon for the dynamic satellite pool planner.
//
// It loads configuration, starts the HTTP/WebSocket server, and runs the
// orchestrator scheduler on a fixed cycle, refreshing the handover-ready
// pool roughly once per planning horizon. Shutdown is handled gracefully
// on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/aurora-leo/poolplanner/internal/app"
	"github.com/aurora-leo/poolplanner/internal/config"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "Path to config TOML (auto-discovers if omitted)")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides server.bind)")
		tlePath    = pflag.StringP("tle", "t", "", "Path to the TLE catalog file propagated on every cycle")
	)
	pflag.Parse()

	cfgFile := *configPath
	if cfgFile == "" {
		cfgFile = config.FindConfigFile()
	}

	logger := log.New(os.Stdout, "poolplannerd ", log.LstdFlags|log.Lmicroseconds)

	var cfg config.Config
	if cfgFile == "" {
		cfg = config.Default()
		logger.Printf("no config file found, using defaults")
		logger.Printf("create %s/config.toml to customize", config.DefaultConfigDir())
	} else {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
		logger.Printf("loaded config from %s", cfgFile)
	}

	if err := config.EnsureDirectories(cfg); err != nil {
		log.Fatalf("directory setup: %v", err)
	}

	if *tlePath == "" {
		log.Fatalf("--tle is required: path to a Celestrak-format TLE catalog")
	}

	a := app.New(app.Options{
		Logger:     logger,
		Cfg:        cfg,
		Bind:       *bind,
		ConfigPath: cfgFile,
		TLEPath:    *tlePath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("poolplannerd failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
}
