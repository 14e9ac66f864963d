package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/geraldfingburke/dailydigest/internal/audio"
	"github.com/geraldfingburke/dailydigest/internal/config"
	"github.com/geraldfingburke/dailydigest/internal/database"
	"github.com/geraldfingburke/dailydigest/internal/digest"
	"github.com/geraldfingburke/dailydigest/internal/episodes"
	"github.com/geraldfingburke/dailydigest/internal/feeds"
	"github.com/geraldfingburke/dailydigest/internal/orchestrator"
	"github.com/geraldfingburke/dailydigest/internal/publish"
	"github.com/geraldfingburke/dailydigest/internal/retention"
	"github.com/geraldfingburke/dailydigest/internal/scoring"
	"github.com/geraldfingburke/dailydigest/internal/settings"
	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
	"github.com/geraldfingburke/dailydigest/internal/tts"
)

// app bundles the bootstrap-level collaborators shared by every subcommand.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	settings *settings.Store
	log      zerolog.Logger
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Logging.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	} else {
		log = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &app{cfg: cfg, db: db, settings: settings.NewStore(db), log: log}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// buildOrchestratorDeps reads every required domain Setting and assembles
// an orchestrator.Deps. Any missing setting surfaces as a ConfigMissingError
// here, before any phase runs — the fail-fast boundary described in §4.1.
func (a *app) buildOrchestratorDeps() (orchestrator.Deps, error) {
	ctx := context.Background()
	s := a.settings

	scoreThreshold, err := s.Float(ctx, "content_filtering", "score_threshold")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	maxEpisodesPerDigest, err := s.Int(ctx, "content_filtering", "max_episodes_per_digest")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	// min_episodes_per_digest is read and validated here so a malformed value
	// fails bootstrap, but it is intentionally not consulted by Digest
	// selection — the "below minimum -> no-content" branch was dropped and
	// is not being reintroduced without explicit product direction.
	minEpisodesPerDigest, err := s.Int(ctx, "content_filtering", "min_episodes_per_digest")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	if minEpisodesPerDigest < 0 {
		return orchestrator.Deps{}, taxonomy.NewConfigMissing("content_filtering.min_episodes_per_digest")
	}
	lookbackHours, err := s.Int(ctx, "pipeline", "discovery_lookback_hours")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	maxEpisodesPerRun, err := s.Int(ctx, "pipeline", "max_episodes_per_run")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	deactivationThreshold, err := s.Int(ctx, "pipeline", "feed_deactivation_threshold")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	audioMaxWorkers, err := s.Int(ctx, "pipeline", "audio_max_workers")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	chunkDurationMinutes, err := s.Int(ctx, "audio_processing", "chunk_duration_minutes")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	maxChunksPerEpisode, err := s.Int(ctx, "audio_processing", "max_chunks_per_episode")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	processingTimeoutMinutes, err := s.Int(ctx, "pipeline", "processing_timeout_minutes")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	adTrimFraction, err := s.Float(ctx, "pipeline", "ad_trim_fraction")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	maxRetries, err := s.Int(ctx, "pipeline", "max_retries")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	ttsMaxWorkers, err := s.Int(ctx, "pipeline", "tts_max_workers")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	maxTitleTokens, err := s.Int(ctx, "ai_metadata_generation", "max_title_tokens")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	maxSummaryTokens, err := s.Int(ctx, "ai_metadata_generation", "max_summary_tokens")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	metadataModel, err := s.String(ctx, "ai_metadata_generation", "model")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	ttsModel, err := s.String(ctx, "tts_generation", "model")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	ttsMaxCharacters, err := s.Int(ctx, "tts_generation", "max_characters")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	publishMaxRetries, err := s.Int(ctx, "pipeline", "publish_max_retries")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	maxInputTokens, err := s.Int(ctx, "ai_digest_generation", "max_input_tokens")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	maxOutputTokens, err := s.Int(ctx, "ai_digest_generation", "max_output_tokens")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	digestModel, err := s.String(ctx, "ai_digest_generation", "model")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	scoringModel, err := s.String(ctx, "ai_content_scoring", "model")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	scoringMaxTokens, err := s.Int(ctx, "ai_content_scoring", "max_tokens")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	tzName, err := s.String(ctx, "general", "display_timezone")
	if err != nil {
		return orchestrator.Deps{}, err
	}
	location, err := time.LoadLocation(tzName)
	if err != nil {
		return orchestrator.Deps{}, fmt.Errorf("display_timezone %q: %w", tzName, err)
	}

	windows, err := a.retentionWindows(ctx)
	if err != nil {
		return orchestrator.Deps{}, err
	}

	activeTopics, err := digest.NewTopicStore(a.db).ListActive(ctx)
	if err != nil {
		return orchestrator.Deps{}, err
	}
	topicNames := make([]string, len(activeTopics))
	for i, t := range activeTopics {
		topicNames[i] = t.Name
	}

	episodesStore := episodes.NewStore(a.db)
	digestsStore := digest.NewStore(a.db)
	topicsStore := digest.NewTopicStore(a.db)
	feedsStore := feeds.NewStore(a.db)

	scorer := scoring.NewService(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.BaseURL, scoringModel, scoringMaxTokens)
	generator := digest.NewGenerator(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.BaseURL, digestModel)
	synth := tts.NewHTTPSynthesizer(a.cfg.TTS.BaseURL, a.cfg.TTS.APIKey, ttsModel)
	metadataGen := tts.NewMetadataGenerator(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.BaseURL, metadataModel)
	github := publish.NewGitHubClient(a.cfg.Artifact.Token, a.cfg.Artifact.Owner, a.cfg.Artifact.Repo)

	return orchestrator.Deps{
		DB:           a.db,
		FeedsStore:   feedsStore,
		FeedsService: feeds.NewService(),
		Episodes:     episodesStore,
		TopicsStore:  topicsStore,
		DigestsStore: digestsStore,
		AudioDeps: audio.Deps{
			Episodes:            episodesStore,
			Downloader:          audio.NewDownloader(),
			Chunker:             audio.NewFFmpegChunker(),
			Transcriber:         audio.NewHTTPTranscriber(a.cfg.TTS.BaseURL),
			Scorer:              scorer,
			StagingDir:          a.cfg.Staging.RootDir,
			ChunkDuration:       durationMinutes(chunkDurationMinutes),
			MaxChunksPerEpisode: maxChunksPerEpisode,
			MaxWorkers:          audioMaxWorkers,
			ScoreThreshold:      scoreThreshold,
			AdTrimFraction:      adTrimFraction,
			MaxRetries:          maxRetries,
			ProcessingTimeout:   durationMinutes(processingTimeoutMinutes),
			ActiveTopics:        topicNames,
			Log:                 a.log,
		},
		Generator: generator,
		TTSDeps: tts.Deps{
			Digests:          digestsStore,
			Topics:           topicsStore,
			Synthesizer:      synth,
			Prober:           tts.NewProber(),
			Metadata:         metadataGen,
			StagingDir:       a.cfg.Staging.RootDir,
			MaxWorkers:       ttsMaxWorkers,
			MaxTitleTokens:   maxTitleTokens,
			MaxSummaryTokens: maxSummaryTokens,
			MaxCharacters:    ttsMaxCharacters,
			DisplayLocation:  location,
			Log:              a.log,
		},
		PublishDeps: publish.Deps{
			Digests:    digestsStore,
			GitHub:     github,
			MaxRetries: publishMaxRetries,
			Log:        a.log,
		},
		RetentionDeps: retention.Deps{
			Episodes:   episodesStore,
			Digests:    digestsStore,
			GitHub:     github,
			StagingDir: a.cfg.Staging.RootDir,
			LogsDir:    "/var/log/dailydigest",
			Log:        a.log,
		},
		LookbackHours:             lookbackHours,
		MondayWideningFactor:      mondayWideningFactor,
		MaxNewEpisodesPerRun:      maxEpisodesPerRun,
		FeedDeactivationThreshold: deactivationThreshold,
		AudioLimit:                maxEpisodesPerRun,
		MaxInputChars:             maxInputTokens * 4, // rough token-to-character ratio for truncation budgeting
		MaxOutputTokens:           maxOutputTokens,
		ScoreThreshold:            scoreThreshold,
		MaxEpisodesPerDigest:      maxEpisodesPerDigest,
		RetentionWindows:          windows,
		DisplayLocation:           location,
		Log:                       a.log,
	}, nil
}

// mondayWideningFactor is a fixed multiplier, not a Settings Store value:
// Monday's lookback window covers the weekend gap, so Discovery widens
// discovery_lookback_hours by this factor whenever the run falls on a
// Monday in the display timezone.
const mondayWideningFactor = 3

func durationMinutes(m int) time.Duration {
	return time.Duration(m) * time.Minute
}

func (a *app) retentionWindows(ctx context.Context) (retention.Windows, error) {
	s := a.settings
	var w retention.Windows
	var err error
	if w.LocalMP3Days, err = s.Int(ctx, "retention", "local_mp3_days"); err != nil {
		return w, err
	}
	if w.AudioCacheDays, err = s.Int(ctx, "retention", "audio_cache_days"); err != nil {
		return w, err
	}
	if w.LogsDays, err = s.Int(ctx, "retention", "logs_days"); err != nil {
		return w, err
	}
	if w.GitHubReleaseDays, err = s.Int(ctx, "retention", "github_release_days"); err != nil {
		return w, err
	}
	if w.EpisodeDays, err = s.Int(ctx, "retention", "episode_retention_days"); err != nil {
		return w, err
	}
	if w.DigestDays, err = s.Int(ctx, "retention", "digest_retention_days"); err != nil {
		return w, err
	}
	return w, nil
}
