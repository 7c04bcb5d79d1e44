package ctl

import (
	"fmt"
	"strings"
	"time"
)

// ArtifactsOptions controls the artifacts command.
type ArtifactsOptions struct {
	Fetch string // artifact name to fetch and print in full
	JSON  bool
}

// Artifacts lists the five canonical JSON bundles the orchestrator produces
// (spec.md §6), or fetches and prints one in full when Fetch is set.
func Artifacts(baseURL string, opts ArtifactsOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	if opts.Fetch != "" {
		status, body, err := getRaw(baseURL, "/api/artifacts/"+opts.Fetch)
		if err != nil {
			return err
		}
		if status != 200 {
			return fmt.Errorf("HTTP %d: %s", status, strings.TrimSpace(string(body)))
		}
		fmt.Println(string(body))
		return nil
	}

	var resp struct {
		Artifacts []struct {
			Name      string    `json:"name"`
			Available bool      `json:"available"`
			Bytes     int64     `json:"bytes"`
			ModTime   time.Time `json:"mod_time"`
		} `json:"artifacts"`
	}
	if err := getJSON(baseURL, "/api/artifacts", &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  PIPELINE ARTIFACTS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 60)))
	for _, a := range resp.Artifacts {
		if a.Available {
			fmt.Printf("  %-58s %s  %s\n", a.Name, colorize(green, "ready"), formatBytes(a.Bytes))
		} else {
			fmt.Printf("  %-58s %s\n", a.Name, colorize(dim, "not yet produced"))
		}
	}
	fmt.Println()

	return nil
}
