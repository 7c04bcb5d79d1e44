package ctl

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// LogsOptions controls the logs command behavior.
type LogsOptions struct {
	Level string
	Limit int
	Tail  bool
	JSON  bool
}

// Logs fetches recent buffered log lines from the daemon, or streams them
// live via the WebSocket hub when Tail is set.
func Logs(baseURL string, opts LogsOptions) error {
	if opts.Tail {
		return Watch(baseURL, WatchOptions{Filter: []string{"log"}, JSON: opts.JSON})
	}

	baseURL = strings.TrimRight(baseURL, "/")

	q := url.Values{}
	if opts.Level != "" {
		q.Set("level", opts.Level)
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}
	path := "/api/logs"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var resp struct {
		Logs []struct {
			Time    time.Time `json:"time"`
			Level   string    `json:"level"`
			Message string    `json:"message"`
		} `json:"logs"`
	}
	if err := getJSON(baseURL, path, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  RECENT LOGS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 50)))
	for _, e := range resp.Logs {
		fmt.Printf("  %s %s  %s\n", colorize(dim, e.Time.Local().Format("15:04:05")), formatLogLevel(e.Level), e.Message)
	}
	fmt.Println()

	return nil
}
