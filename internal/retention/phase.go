// Package retention implements the Retention phase (§4.8): age-windowed
// cleanup across six distinct classes of artifact, in the strict order the
// reconciliation contract requires — artifact host before digest rows
// before episode rows — so an orphaned reference never outlives the thing
// it points to.
package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/geraldfingburke/dailydigest/internal/digest"
	"github.com/geraldfingburke/dailydigest/internal/episodes"
	"github.com/geraldfingburke/dailydigest/internal/publish"
)

// Windows holds the six configured retention ages (§6.1 `retention.*`,
// fatal if absent — the orchestrator reads these from the Settings Store
// before calling Run).
type Windows struct {
	LocalMP3Days       int
	AudioCacheDays     int
	LogsDays           int
	GitHubReleaseDays  int
	EpisodeDays        int
	DigestDays         int
}

// Deps bundles everything the Retention phase needs, wired by the
// orchestrator.
type Deps struct {
	Episodes   *episodes.Store
	Digests    *digest.Store
	GitHub     *publish.GitHubClient
	StagingDir string
	LogsDir    string
	Log        zerolog.Logger
}

// ClassResult reports how many items one retention class touched.
type ClassResult struct {
	Class string
	Count int
	Err   error
}

// Report is the Retention phase's structured outcome.
type Report struct {
	Classes []ClassResult
}

// Run applies every retention class against now, in contract order. dryRun
// enumerates targets without deleting anything.
func Run(ctx context.Context, d Deps, w Windows, now time.Time, dryRun bool) (Report, error) {
	var report Report

	report.Classes = append(report.Classes, sweepFiles(d.StagingDir, "local_mp3", now, w.LocalMP3Days, dryRun))
	report.Classes = append(report.Classes, sweepFiles(filepath.Join(d.StagingDir, "audio"), "audio_cache", now, w.AudioCacheDays, dryRun))
	report.Classes = append(report.Classes, sweepFiles(d.LogsDir, "logs", now, w.LogsDays, dryRun))

	// Artifact host before digest rows: an orphaned artifact_url must never
	// outlive the asset it names.
	report.Classes = append(report.Classes, sweepGitHubTags(ctx, d, now, w.GitHubReleaseDays, dryRun))

	// Digest rows before episode rows, per the same ordering invariant.
	digestCutoff := now.AddDate(0, 0, -w.DigestDays)
	n, err := d.Digests.DeleteOlderThan(ctx, digestCutoff, dryRun)
	report.Classes = append(report.Classes, ClassResult{Class: "digest_rows", Count: n, Err: err})

	episodeCutoff := now.AddDate(0, 0, -w.EpisodeDays)
	n, err = d.Episodes.DeleteOlderThan(ctx, episodeCutoff, dryRun)
	report.Classes = append(report.Classes, ClassResult{Class: "episode_rows", Count: n, Err: err})

	return report, nil
}

// sweepFiles deletes regular files under dir whose mtime is older than
// windowDays. Used for local MP3 staging, residual audio chunks, and log
// files — all three are plain filesystem age sweeps, not DB-backed.
func sweepFiles(dir, class string, now time.Time, windowDays int, dryRun bool) ClassResult {
	cutoff := now.AddDate(0, 0, -windowDays)
	result := ClassResult{Class: class}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result
		}
		result.Err = fmt.Errorf("read dir %s for %s retention: %w", dir, class, err)
		return result
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !dryRun {
			if err := os.Remove(path); err != nil {
				result.Err = fmt.Errorf("remove %s: %w", path, err)
				continue
			}
		}
		result.Count++
	}
	return result
}

// sweepGitHubTags deletes daily release tags whose encoded date is older
// than windowDays.
func sweepGitHubTags(ctx context.Context, d Deps, now time.Time, windowDays int, dryRun bool) ClassResult {
	result := ClassResult{Class: "github_releases"}
	cutoff := now.AddDate(0, 0, -windowDays)

	tags, err := d.GitHub.ListTags(ctx)
	if err != nil {
		result.Err = fmt.Errorf("list github tags: %w", err)
		return result
	}

	for _, tag := range tags {
		date, ok := parseDailyTag(tag)
		if !ok || date.After(cutoff) {
			continue
		}
		if !dryRun {
			if err := d.GitHub.DeleteTag(ctx, tag); err != nil {
				result.Err = fmt.Errorf("delete tag %s: %w", tag, err)
				continue
			}
		}
		result.Count++
	}
	return result
}

func parseDailyTag(tag string) (time.Time, bool) {
	const prefix = "daily-"
	if !strings.HasPrefix(tag, prefix) {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", strings.TrimPrefix(tag, prefix))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
