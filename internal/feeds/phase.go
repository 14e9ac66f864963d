package feeds

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/geraldfingburke/dailydigest/internal/episodes"
)

// Deps bundles everything the Discovery phase needs, wired by the
// orchestrator.
type Deps struct {
	Feeds                 *Store
	Episodes              *episodes.Store
	Service                *Service
	LookbackHours          int
	MondayWideningFactor   int
	MaxNewEpisodesPerRun   int
	FeedDeactivationThreshold int
	Now                    time.Time // display-timezone "now"; caller supplies it so tests are deterministic
	Log                    zerolog.Logger
}

// FeedOutcome records one feed's discovery result for the per-feed summary
// (§4.3 "Output").
type FeedOutcome struct {
	FeedTitle    string
	NewEpisodes  int
	Deactivated  bool
	Err          error
}

// Report is the Discovery phase's structured outcome.
type Report struct {
	Processed []FeedOutcome
}

// Run fetches every active feed and upserts any new episode within the
// lookback window, capped at MaxNewEpisodesPerRun total across all feeds
// (§4.3). Monday's lookback is widened by MondayWideningFactor to bridge
// the weekend gap (§9 decision).
func Run(ctx context.Context, d Deps) (Report, error) {
	active, err := d.Feeds.ListActive(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list active feeds: %w", err)
	}

	cutoff := d.Now.Add(-lookbackDuration(d))

	var report Report
	newTotal := 0

	for _, f := range active {
		if newTotal >= d.MaxNewEpisodesPerRun {
			break
		}

		outcome := FeedOutcome{FeedTitle: f.Title}
		parsed, err := d.Service.FetchFeed(ctx, f.URL)
		if err != nil {
			outcome.Err = err
			deactivated, recErr := d.Feeds.RecordFailure(ctx, f.ID, d.FeedDeactivationThreshold)
			if recErr != nil {
				d.Log.Error().Err(recErr).Int64("feed_id", f.ID).Msg("failed to record feed failure")
			}
			outcome.Deactivated = deactivated
			report.Processed = append(report.Processed, outcome)
			continue
		}

		descriptors := ExtractEpisodes(parsed, cutoff)
		for _, desc := range descriptors {
			if newTotal >= d.MaxNewEpisodesPerRun {
				break
			}
			created, err := d.Episodes.Upsert(ctx, f.ID, desc.GUID, desc.Title, desc.AudioURL, desc.PublishedAt, desc.DurationSeconds)
			if err != nil {
				outcome.Err = err
				continue
			}
			if created {
				outcome.NewEpisodes++
				newTotal++
			}
		}

		title := parsed.Title
		if title == "" {
			title = f.Title
		}
		if err := d.Feeds.RecordSuccess(ctx, f.ID, title); err != nil {
			d.Log.Error().Err(err).Int64("feed_id", f.ID).Msg("failed to record feed success")
		}
		report.Processed = append(report.Processed, outcome)
	}

	return report, nil
}

func lookbackDuration(d Deps) time.Duration {
	hours := d.LookbackHours
	if d.Now.Weekday() == time.Monday {
		factor := d.MondayWideningFactor
		if factor <= 0 {
			factor = 1
		}
		hours *= factor
	}
	return time.Duration(hours) * time.Hour
}
