package tts

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

	"github.com/geraldfingburke/dailydigest/internal/digest"
	"github.com/geraldfingburke/dailydigest/internal/metrics"
	"github.com/geraldfingburke/dailydigest/internal/models"
	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

// Deps bundles everything the TTS phase needs, wired by the orchestrator.
type Deps struct {
	Digests          *digest.Store
	Topics           *digest.TopicStore
	Synthesizer      Synthesizer
	Prober           *Prober
	Metadata         *MetadataGenerator
	StagingDir       string
	MaxWorkers       int
	MaxTitleTokens   int
	MaxSummaryTokens int
	// MaxCharacters is tts_generation.max_characters: scripts longer than
	// this are rejected outright, never silently truncated.
	MaxCharacters int
	// DisplayLocation governs the timestamp embedded in the final MP3 filename.
	DisplayLocation *time.Location
	Log             zerolog.Logger
}

// ItemOutcome records one digest's TTS result for the phase summary.
type ItemOutcome struct {
	Topic      string
	DigestDate time.Time
	Err        error
}

// Report is the TTS phase's structured outcome.
type Report struct {
	Processed []ItemOutcome
}

// Run renders audio for every digest pending synthesis (§4.6), with up to
// MaxWorkers concurrent renders.
func Run(ctx context.Context, d Deps, since time.Time) (Report, error) {
	pending, err := d.Digests.ListPendingTTS(ctx, since)
	if err != nil {
		return Report{}, fmt.Errorf("list digests pending tts: %w", err)
	}

	workers := d.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	results := make([]ItemOutcome, len(pending))
	var wg sync.WaitGroup

	for i, dg := range pending {
		i, dg := i, dg
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			outcome := ItemOutcome{Topic: dg.Topic, DigestDate: dg.DigestDate}
			status := "ok"
			if err := processOne(ctx, d, dg); err != nil {
				outcome.Err = err
				status = "error"
				d.Log.Error().Err(err).Str("topic", dg.Topic).Msg("tts synthesis failed")
			}
			metrics.ItemOutcomes.WithLabelValues("tts", status).Inc()
			results[i] = outcome
		}()
	}
	wg.Wait()

	return Report{Processed: results}, nil
}

func processOne(ctx context.Context, d Deps, dg models.Digest) error {
	topic, err := d.Topics.ByName(ctx, dg.Topic)
	if err != nil {
		return fmt.Errorf("resolve voice binding: %w", err)
	}
	if topic.VoiceID == "" {
		return taxonomy.NewConfigMissing(fmt.Sprintf("topics.%s.voice_id", dg.Topic))
	}
	if d.MaxCharacters > 0 && len(dg.ScriptContent) > d.MaxCharacters {
		return taxonomy.NewInputInvalid(fmt.Sprintf("script for topic %s is %d characters, exceeds tts_generation.max_characters (%d)", dg.Topic, len(dg.ScriptContent), d.MaxCharacters), nil)
	}

	workDir := filepath.Join(d.StagingDir, "tts", uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create tts staging dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	tempPath := filepath.Join(workDir, "render.mp3")
	if err := d.Synthesizer.Synthesize(ctx, dg.ScriptContent, topic.VoiceID, tempPath); err != nil {
		return fmt.Errorf("synthesize audio: %w", err)
	}

	allowShort := isNoContentScript(dg.ScriptContent)
	duration, err := d.Prober.Probe(ctx, tempPath, allowShort)
	if err != nil {
		return fmt.Errorf("probe rendered audio: %w", err)
	}

	title, summary := d.generateMetadata(ctx, dg)

	info, err := os.Stat(tempPath)
	if err != nil {
		return fmt.Errorf("stat rendered mp3 before commit: %w", err)
	}

	loc := d.DisplayLocation
	if loc == nil {
		loc = time.UTC
	}
	finalName := fmt.Sprintf("%s_%s.mp3", dg.TopicSlug(), time.Now().In(loc).Format("20060102_150405"))
	finalPath := filepath.Join(d.StagingDir, finalName)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("rename rendered mp3 into staging: %w", err)
	}

	if err := d.Digests.CommitMP3(ctx, dg.ID, finalPath, int(duration.Seconds()), info.Size(), title, summary); err != nil {
		os.Remove(finalPath)
		return fmt.Errorf("commit mp3: %w", err)
	}
	return nil
}

func (d Deps) generateMetadata(ctx context.Context, dg models.Digest) (string, string) {
	if d.Metadata == nil {
		return FallbackTitle(dg.Topic, dg.DigestDate), ""
	}
	title, summary, err := d.Metadata.Generate(ctx, dg.Topic, dg.ScriptContent, d.MaxTitleTokens, d.MaxSummaryTokens)
	if err != nil {
		d.Log.Warn().Err(err).Str("topic", dg.Topic).Msg("metadata generation failed, using fallback title")
		return FallbackTitle(dg.Topic, dg.DigestDate), ""
	}
	return title, summary
}

// isNoContentScript recognizes the fixed no-content template so its short
// render is not rejected by the minimum-duration check (§4.6 step 2).
func isNoContentScript(script string) bool {
	return len(script) > 0 && len(script) < 400 && strings.Contains(script, "met today's bar for inclusion")
}
