package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/geraldfingburke/dailydigest/internal/orchestrator"
)

func newRunCmd() *cobra.Command {
	var phaseNames []string
	var limit int
	var dryRun bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once (one or more phases)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			defer a.Close()

			if verbose {
				a.log = a.log.Level(zerolog.DebugLevel)
			}

			deps, err := a.buildOrchestratorDeps()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(orchestrator.ExitCode(err))
			}
			if limit > 0 {
				deps.AudioLimit = limit
				deps.MaxNewEpisodesPerRun = limit
			}

			phases := phaseNames
			if len(phases) == 0 {
				phases = orchestrator.AllPhases
			}

			report, runErr := orchestrator.Run(context.Background(), deps, phases, dryRun)
			for _, p := range report.Phases {
				if p.Skipped {
					a.log.Warn().Str("phase", p.Phase).Msg("phase skipped after earlier failure")
					continue
				}
				if p.Err != "" {
					a.log.Error().Str("phase", p.Phase).Str("error", p.Err).Msg("phase failed")
				} else {
					a.log.Info().Str("phase", p.Phase).Msg("phase completed")
				}
			}
			if runErr != nil {
				os.Exit(orchestrator.ExitCode(runErr))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&phaseNames, "phase", nil, "phases to run (repeatable); default is all six in order")
	cmd.Flags().IntVar(&limit, "limit", 0, "override per-phase item cap (testing)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "enumerate retention targets without deleting")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	return cmd
}
