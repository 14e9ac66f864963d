package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/geraldfingburke/dailydigest/internal/episodes"
	"github.com/geraldfingburke/dailydigest/internal/metrics"
	"github.com/geraldfingburke/dailydigest/internal/models"
	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

// Scorer is the LLM scoring boundary consumed by the Audio phase. Defined
// here (not in internal/scoring) so this package never needs to import its
// caller's caller — internal/scoring implements this interface.
type Scorer interface {
	Score(ctx context.Context, transcript string, activeTopics []string) (models.TopicScores, error)
}

// Deps bundles everything the Audio phase needs, wired by the orchestrator.
type Deps struct {
	Episodes            *episodes.Store
	Downloader          *Downloader
	Chunker             Chunker
	Transcriber         Transcriber
	Scorer              Scorer
	StagingDir          string
	ChunkDuration       time.Duration
	MaxChunksPerEpisode int
	MaxWorkers          int
	ScoreThreshold      float64
	AdTrimFraction      float64
	MaxRetries          int
	// ProcessingTimeout is pipeline.processing_timeout_minutes: a claimed
	// episode stuck in `processing` longer than this is reset to `pending`
	// before the next claim round.
	ProcessingTimeout time.Duration
	ActiveTopics      []string
	Log               zerolog.Logger
}

// ItemOutcome records one episode's final status for the phase summary.
type ItemOutcome struct {
	EpisodeGUID string
	Title       string
	Scores      models.TopicScores
	Status      models.EpisodeStatus
	Err         error
}

// Report is the Audio phase's structured outcome (§4.4 "per-phase summary").
type Report struct {
	Processed []ItemOutcome
}

// Run claims up to limit pending episodes (after resetting any stuck
// `processing` rows) and processes them with up to MaxWorkers concurrent
// workers. Each worker owns its own staging subdirectory so no two workers
// ever write the same path.
func Run(ctx context.Context, d Deps, limit int) (Report, error) {
	timeout := d.ProcessingTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if _, err := d.Episodes.RecoverStuck(ctx, timeout); err != nil {
		return Report{}, fmt.Errorf("recover stuck episodes: %w", err)
	}

	claimed, err := d.Episodes.ClaimPending(ctx, limit)
	if err != nil {
		return Report{}, fmt.Errorf("claim pending episodes: %w", err)
	}

	workers := d.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	results := make([]ItemOutcome, len(claimed))
	var wg sync.WaitGroup

	for i, ep := range claimed {
		i, ep := i, ep
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			outcome := processOne(ctx, d, ep)
			metrics.ItemOutcomes.WithLabelValues("audio", string(outcome.Status)).Inc()
			results[i] = outcome
		}()
	}
	wg.Wait()

	return Report{Processed: results}, nil
}

func processOne(ctx context.Context, d Deps, ep models.Episode) ItemOutcome {
	outcome := ItemOutcome{EpisodeGUID: ep.EpisodeGUID, Title: ep.Title}
	log := d.Log.With().Str("episode_guid", ep.EpisodeGUID).Logger()

	workDir := filepath.Join(d.StagingDir, "audio", uuid.NewString())
	defer os.RemoveAll(workDir)

	sourcePath := filepath.Join(workDir, "source.audio")
	if err := d.Downloader.Download(ctx, ep.AudioURL, sourcePath); err != nil {
		return failEpisode(ctx, d, ep, outcome, "download failed", err)
	}

	chunks, err := d.Chunker.Chunk(ctx, sourcePath, filepath.Join(workDir, "chunks"), d.ChunkDuration, d.MaxChunksPerEpisode)
	if err != nil {
		return failEpisode(ctx, d, ep, outcome, "chunking failed", err)
	}
	if len(chunks) == 0 {
		return failEpisode(ctx, d, ep, outcome, "no chunks produced", nil)
	}

	for i, chunkPath := range chunks {
		text, err := d.Transcriber.Transcribe(ctx, chunkPath)
		if err != nil {
			return failEpisode(ctx, d, ep, outcome, "transcription failed", err)
		}
		if err := d.Episodes.AppendTranscriptChunk(ctx, ep.EpisodeGUID, text, i+1); err != nil {
			return failEpisode(ctx, d, ep, outcome, "append transcript chunk failed", err)
		}
	}

	if err := d.Episodes.FinalizeTranscript(ctx, ep.EpisodeGUID); err != nil {
		return failEpisode(ctx, d, ep, outcome, "finalize transcript failed", err)
	}

	fresh, err := d.Episodes.ByGUID(ctx, ep.EpisodeGUID)
	if err != nil {
		return failEpisode(ctx, d, ep, outcome, "reload episode failed", err)
	}
	transcript := ""
	if fresh.TranscriptText != nil {
		transcript = *fresh.TranscriptText
	}
	trimmed := trimAds(transcript, d.AdTrimFraction)

	scores, err := d.Scorer.Score(ctx, trimmed, d.ActiveTopics)
	if err != nil {
		return failEpisode(ctx, d, ep, outcome, "scoring failed", err)
	}

	if err := d.Episodes.SetScores(ctx, ep.EpisodeGUID, scores, d.ScoreThreshold); err != nil {
		return failEpisode(ctx, d, ep, outcome, "persist scores failed", err)
	}

	outcome.Scores = scores
	if max, ok := scores.Max(); ok && max >= d.ScoreThreshold {
		outcome.Status = models.EpisodeStatusScored
	} else {
		outcome.Status = models.EpisodeStatusNotRelevant
	}
	log.Info().Str("outcome", string(outcome.Status)).Msg("episode processed")
	return outcome
}

func failEpisode(ctx context.Context, d Deps, ep models.Episode, outcome ItemOutcome, reason string, err error) ItemOutcome {
	full := reason
	if err != nil {
		full = fmt.Sprintf("%s: %v", reason, err)
	}
	if markErr := d.Episodes.MarkFailed(ctx, ep.EpisodeGUID, full, d.MaxRetries); markErr != nil {
		d.Log.Error().Err(markErr).Str("episode_guid", ep.EpisodeGUID).Msg("failed to record episode failure")
	}
	outcome.Status = models.EpisodeStatusFailed
	outcome.Err = taxonomy.NewInputInvalid(full, err)
	d.Log.Warn().Str("episode_guid", ep.EpisodeGUID).Str("reason", full).Msg("episode failed")
	return outcome
}

// trimAds removes a leading and trailing fraction of the transcript
// (§4.4 Scoring protocol, step 2) to reduce the chance sponsor reads
// dominate the topic score.
func trimAds(transcript string, fraction float64) string {
	if fraction <= 0 || fraction >= 0.5 {
		return strings.TrimSpace(transcript)
	}
	n := len(transcript)
	cut := int(float64(n) * fraction)
	if cut*2 >= n {
		return strings.TrimSpace(transcript)
	}
	return strings.TrimSpace(transcript[cut : n-cut])
}
