package ctl

import (
	"fmt"
	"strings"
)

// Run triggers an immediate orchestrator run, bypassing the scheduler's
// periodic cycle.
func Run(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var result struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := postJSON(baseURL, "/api/run", nil, &result); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(result)
	}

	fmt.Println()
	if result.OK {
		fmt.Printf("  %s  %s\n", colorize(green, "TRIGGERED"), result.Message)
	} else {
		fmt.Printf("  %s  %s\n", colorize(red, "FAILED"), result.Error)
	}
	fmt.Println()

	return nil
}
