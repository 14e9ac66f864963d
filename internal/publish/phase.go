package publish

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/geraldfingburke/dailydigest/internal/digest"
	"github.com/geraldfingburke/dailydigest/internal/metrics"
	"github.com/geraldfingburke/dailydigest/internal/models"
)

// Deps bundles everything the Publishing phase needs, wired by the
// orchestrator.
type Deps struct {
	Digests    *digest.Store
	GitHub     *GitHubClient
	MaxRetries int
	Log        zerolog.Logger
}

// ItemOutcome records one digest's publish result for the phase summary.
type ItemOutcome struct {
	Topic      string
	DigestDate time.Time
	Err        error
}

// Report is the Publishing phase's structured outcome.
type Report struct {
	Processed []ItemOutcome
}

// Run uploads every digest with a materialized mp3_path and no
// artifact_url yet (§4.7). Uploads are attempted sequentially — the
// artifact host is the shared rate-limited resource here, not a pool of
// independent workers the way Audio/TTS are.
func Run(ctx context.Context, d Deps) (Report, error) {
	pending, err := d.Digests.ListPendingPublish(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list digests pending publish: %w", err)
	}

	var report Report
	for _, dg := range pending {
		outcome := ItemOutcome{Topic: dg.Topic, DigestDate: dg.DigestDate}
		status := "ok"
		if err := publishOne(ctx, d, dg); err != nil {
			outcome.Err = err
			status = "error"
			d.Log.Error().Err(err).Str("topic", dg.Topic).Msg("publish failed")
		}
		metrics.ItemOutcomes.WithLabelValues("publishing", status).Inc()
		report.Processed = append(report.Processed, outcome)
	}
	return report, nil
}

func publishOne(ctx context.Context, d Deps, dg models.Digest) error {
	if dg.MP3Path == nil {
		return fmt.Errorf("digest %d has no mp3_path", dg.ID)
	}
	tag := DailyTag(dg.DigestDate)

	var releaseID int64
	var assetURL string
	var err error

	backoff := time.Second
	for attempt := 0; attempt <= d.MaxRetries; attempt++ {
		releaseID, err = d.GitHub.EnsureTag(ctx, tag)
		if err == nil {
			assetURL, err = d.GitHub.UploadAsset(ctx, releaseID, *dg.MP3Path, "audio/mpeg")
		}
		if err == nil {
			break
		}
		if attempt == d.MaxRetries {
			return fmt.Errorf("upload asset after %d attempts: %w", attempt+1, err)
		}
		time.Sleep(backoff)
		backoff *= 2
	}

	publishedAt := time.Now().UTC()
	if err := d.Digests.SetArtifactURL(ctx, dg.ID, assetURL, publishedAt); err != nil {
		return fmt.Errorf("record artifact url: %w", err)
	}

	// Deletion is a functional requirement, not best-effort cleanup, but a
	// failure here does not fail the phase: Retention sweeps any survivor
	// (§4.7 step 4).
	if err := os.Remove(*dg.MP3Path); err != nil && !os.IsNotExist(err) {
		d.Log.Warn().Err(err).Str("path", *dg.MP3Path).Msg("failed to delete local mp3 after publish")
	}
	return nil
}
