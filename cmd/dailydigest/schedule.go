package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/geraldfingburke/dailydigest/internal/orchestrator"
)

func newScheduleCmd() *cobra.Command {
	var cronExpr string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the full pipeline unattended on a cron expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			defer a.Close()

			expr := cronExpr
			if expr == "" {
				expr, err = a.settings.String(context.Background(), "scheduler", "cron_expression")
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(2)
				}
			}

			c := cron.New()
			_, err = c.AddFunc(expr, func() {
				a.log.Info().Msg("schedule: firing scheduled run")
				runOnce(a)
			})
			if err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", expr, err)
			}

			c.Start()
			a.log.Info().Str("cron", expr).Msg("schedule: started")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			a.log.Info().Msg("schedule: shutting down")
			stopCtx := c.Stop()
			<-stopCtx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "", "override scheduler.cron_expression setting")
	return cmd
}

// runOnce executes every phase and logs the outcome. Errors are logged,
// not fatal — a firing that fails should not kill the long-running process;
// the next firing retries.
func runOnce(a *app) {
	deps, err := a.buildOrchestratorDeps()
	if err != nil {
		a.log.Error().Err(err).Msg("schedule: failed to build pipeline dependencies")
		return
	}
	report, err := orchestrator.Run(context.Background(), deps, orchestrator.AllPhases, false)
	for _, p := range report.Phases {
		if p.Err != "" {
			a.log.Error().Str("phase", p.Phase).Str("error", p.Err).Msg("schedule: phase failed")
		}
	}
	if err != nil {
		a.log.Error().Err(err).Msg("schedule: run failed")
	}
}
