// Poolctl is the command-line client for monitoring and controlling a
// running poolplannerd instance. It connects over HTTP and WebSocket to
// query status, inspect artifacts, and stream live per-stage progress.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/aurora-leo/poolplanner/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8090", "Pool planner daemon URL (e.g. http://192.168.8.1:8090)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter state,log)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --profile are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	// ── Query commands ────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "config":
		err = ctl.Config(*host, *jsonOut)

	case "config-list":
		err = ctl.ConfigList(*host, *jsonOut)

	case "artifacts":
		opts := ctl.ArtifactsOptions{JSON: *jsonOut}
		artFlags := pflag.NewFlagSet("artifacts", pflag.ContinueOnError)
		artFlags.StringVar(&opts.Fetch, "fetch", "", "Fetch and print one artifact bundle by name")
		_ = artFlags.Parse(subArgs)
		err = ctl.Artifacts(*host, opts)

	case "logs":
		opts := ctl.LogsOptions{JSON: *jsonOut}
		logFlags := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		logFlags.StringVar(&opts.Level, "level", "", "Filter by log level (info, error, warn)")
		logFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of log entries shown")
		logFlags.BoolVar(&opts.Tail, "tail", false, "Stream live log events (like --filter log watch)")
		_ = logFlags.Parse(subArgs)
		err = ctl.Logs(*host, opts)

	// ── Control commands ──────────────────────────────────────────
	case "run":
		err = ctl.Run(*host, *jsonOut)

	case "pause":
		err = ctl.Pause(*host, *jsonOut)

	case "resume":
		err = ctl.Resume(*host, *jsonOut)

	case "reload":
		opts := ctl.ReloadOptions{JSON: *jsonOut}
		reloadFlags := pflag.NewFlagSet("reload", pflag.ContinueOnError)
		reloadFlags.StringVar(&opts.Profile, "profile", "", "Switch to a named config profile")
		_ = reloadFlags.Parse(subArgs)
		err = ctl.Reload(*host, opts)

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  poolctl — Dynamic Satellite Pool Planner control CLI

  USAGE
    poolctl [flags] <command> [command-flags]

  COMMANDS (query)
    status          Show daemon state, uptime, and latest pool run
    health          Check daemon and component health
    version         Show CLI and daemon version information
    config          Show the daemon's running configuration
    config-list     List available config profiles
    artifacts       List the five pipeline JSON bundles and their freshness
    logs            Show recent daemon log messages

  COMMANDS (control)
    run             Trigger an immediate orchestrator run
    pause           Pause the periodic orchestrator-run cycle
    resume          Resume the periodic orchestrator-run cycle
    reload          Reload configuration from disk

  COMMANDS (live)
    watch           Stream live per-stage progress events (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8090)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    artifacts:
        --fetch NAME        Fetch and print one artifact bundle in full

    logs:
        --level LEVEL       Filter by log level (info, error, warn)
        --limit N           Limit number of log entries shown
        --tail              Stream live log events

    reload:
        --profile NAME      Switch to a named config profile

  EXAMPLES
    poolctl status
    poolctl --json status
    poolctl --host http://192.168.8.1:8090 watch
    poolctl run
    poolctl artifacts
    poolctl artifacts --fetch dynamic_satellite_pool_optimization_results.json
    poolctl logs --level error --limit 20
    poolctl logs --tail
    poolctl pause
    poolctl resume
    poolctl config-list
    poolctl reload --profile example
    poolctl --filter state,log,progress watch

`)
}
