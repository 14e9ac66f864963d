// Command dailydigest runs the podcast digest pipeline: a one-shot `run`
// for CI/operator invocation, a `serve` read path for the RSS/health/
// metrics endpoints, and a `schedule` long-running unattended mode driven
// by a cron expression (§6.5).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "dailydigest",
		Short: "Podcast ingestion, scoring, digest, and publishing pipeline",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml/config.toml (optional; env vars always apply)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newScheduleCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
