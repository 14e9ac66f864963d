// Package orchestrator drives the six-phase pipeline (§4.1) in fixed
// order, aborting on any phase failure except Retention, which always runs
// if reached. It is the one piece of this system with global knowledge of
// every other package — everything else is independently testable.
package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/geraldfingburke/dailydigest/internal/audio"
	"github.com/geraldfingburke/dailydigest/internal/digest"
	"github.com/geraldfingburke/dailydigest/internal/episodes"
	"github.com/geraldfingburke/dailydigest/internal/feeds"
	"github.com/geraldfingburke/dailydigest/internal/metrics"
	"github.com/geraldfingburke/dailydigest/internal/publish"
	"github.com/geraldfingburke/dailydigest/internal/retention"
	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
	"github.com/geraldfingburke/dailydigest/internal/tts"
)

// Phase names recognized by Run and the CLI --phase flag.
const (
	PhaseDiscovery  = "discovery"
	PhaseAudio      = "audio"
	PhaseDigest     = "digest"
	PhaseTTS        = "tts"
	PhasePublishing = "publishing"
	PhaseRetention  = "retention"
)

// AllPhases is the fixed execution order (§4.1).
var AllPhases = []string{PhaseDiscovery, PhaseAudio, PhaseDigest, PhaseTTS, PhasePublishing, PhaseRetention}

// Deps bundles every collaborator the orchestrator calls into. Callers
// assemble this from internal/settings-sourced values and the bootstrap
// config's credentials before invoking Run.
type Deps struct {
	DB *sql.DB

	FeedsStore    *feeds.Store
	FeedsService  *feeds.Service
	Episodes      *episodes.Store
	TopicsStore   *digest.TopicStore
	DigestsStore  *digest.Store
	AudioDeps     audio.Deps
	Generator     *digest.Generator
	TTSDeps       tts.Deps
	PublishDeps   publish.Deps
	RetentionDeps retention.Deps

	LookbackHours             int
	MondayWideningFactor      int
	MaxNewEpisodesPerRun      int
	FeedDeactivationThreshold int
	AudioLimit                int
	MaxInputChars             int
	MaxOutputTokens           int
	ScoreThreshold            float64
	MaxEpisodesPerDigest      int
	RetentionWindows          retention.Windows

	// DisplayLocation governs every user-visible timestamp this run produces
	// (filenames, pubDate, titles) — display_timezone in the Settings Store.
	DisplayLocation *time.Location

	Log zerolog.Logger
}

// PhaseSummary is one phase's machine-readable report (§4.1).
type PhaseSummary struct {
	Phase     string    `json:"phase"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Skipped   bool      `json:"skipped"`
	Err       string    `json:"error,omitempty"`
}

// Report is the full run's structured outcome.
type Report struct {
	Phases []PhaseSummary `json:"phases"`
}

// ExitCode maps a Run error to the CLI exit code contract (§6.5).
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case taxonomy.IsConfigMissing(err):
		return 2
	case taxonomy.IsTransient(err):
		return 3
	default:
		return 1
	}
}

// Run executes phases (a subset of AllPhases, in AllPhases order) and
// persists a pipeline_runs audit row. dryRun is forwarded to Retention only
// — the other phases' external calls are not safely simulatable without a
// fake collaborator, per §4.1's note that dry-run "exercises the state
// machine" for the phases where that is meaningful.
func Run(ctx context.Context, d Deps, phases []string, dryRun bool) (Report, error) {
	wanted := toSet(phases)
	loc := d.DisplayLocation
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)

	var report Report
	var runErr error

	for _, phase := range AllPhases {
		if !wanted[phase] {
			continue
		}
		if runErr != nil && phase != PhaseRetention {
			report.Phases = append(report.Phases, PhaseSummary{Phase: phase, Skipped: true})
			continue
		}

		summary := PhaseSummary{Phase: phase, StartedAt: time.Now().UTC()}
		err := runPhase(ctx, d, phase, now, dryRun)
		summary.EndedAt = time.Now().UTC()

		outcome := "ok"
		if err != nil {
			outcome = "error"
			summary.Err = err.Error()
			if runErr == nil {
				runErr = err
			}
		}
		metrics.PhaseRuns.WithLabelValues(phase, outcome).Inc()
		report.Phases = append(report.Phases, summary)
	}

	if err := recordRun(ctx, d.DB, report, runErr == nil); err != nil {
		d.Log.Error().Err(err).Msg("failed to record pipeline run audit row")
	}

	return report, runErr
}

func runPhase(ctx context.Context, d Deps, phase string, now time.Time, dryRun bool) error {
	switch phase {
	case PhaseDiscovery:
		_, err := feeds.Run(ctx, feeds.Deps{
			Feeds:                     d.FeedsStore,
			Episodes:                  d.Episodes,
			Service:                   d.FeedsService,
			LookbackHours:             d.LookbackHours,
			MondayWideningFactor:      d.MondayWideningFactor,
			MaxNewEpisodesPerRun:      d.MaxNewEpisodesPerRun,
			FeedDeactivationThreshold: d.FeedDeactivationThreshold,
			Now:                       now,
			Log:                       d.Log,
		})
		return err
	case PhaseAudio:
		_, err := audio.Run(ctx, d.AudioDeps, d.AudioLimit)
		return err
	case PhaseDigest:
		_, err := digest.Run(ctx, digest.Deps{
			Episodes:             d.Episodes,
			Topics:               d.TopicsStore,
			Digests:              d.DigestsStore,
			Generator:            d.Generator,
			ScoreThreshold:       d.ScoreThreshold,
			MaxEpisodesPerDigest: d.MaxEpisodesPerDigest,
			MaxInputChars:        d.MaxInputChars,
			MaxOutputTokens:      d.MaxOutputTokens,
			Log:                  d.Log,
		}, now)
		return err
	case PhaseTTS:
		_, err := tts.Run(ctx, d.TTSDeps, now.AddDate(0, 0, -1))
		return err
	case PhasePublishing:
		_, err := publish.Run(ctx, d.PublishDeps)
		return err
	case PhaseRetention:
		_, err := retention.Run(ctx, d.RetentionDeps, d.RetentionWindows, now, dryRun)
		return err
	default:
		return fmt.Errorf("unknown phase %q", phase)
	}
}

func recordRun(ctx context.Context, db *sql.DB, report Report, ok bool) error {
	phasesJSON, err := json.Marshal(report.Phases)
	if err != nil {
		return fmt.Errorf("marshal phase report: %w", err)
	}
	var started, ended time.Time
	if len(report.Phases) > 0 {
		started = report.Phases[0].StartedAt
		ended = report.Phases[len(report.Phases)-1].EndedAt
	} else {
		started = time.Now().UTC()
		ended = started
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (started_at, ended_at, phases, ok)
		VALUES ($1, $2, $3, $4)
	`, started, ended, phasesJSON, ok)
	if err != nil {
		return fmt.Errorf("insert pipeline_runs row: %w", err)
	}
	return nil
}

func toSet(phases []string) map[string]bool {
	set := make(map[string]bool, len(phases))
	for _, p := range phases {
		set[p] = true
	}
	return set
}
