package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/geraldfingburke/dailydigest/internal/episodes"
	"github.com/geraldfingburke/dailydigest/internal/models"
)

// Deps bundles everything the Digest phase needs, wired by the orchestrator.
type Deps struct {
	Episodes            *episodes.Store
	Topics              *TopicStore
	Digests             *Store
	Generator           *Generator
	ScoreThreshold      float64
	MaxEpisodesPerDigest int
	MaxInputChars       int
	MaxOutputTokens     int
	Log                 zerolog.Logger
}

// TopicOutcome records one topic's digest result for the phase summary.
type TopicOutcome struct {
	Topic         string
	EpisodeCount  int
	NoContent     bool
	Err           error
}

// Report is the Digest phase's structured outcome.
type Report struct {
	Processed []TopicOutcome
}

// Run builds one digest per active topic for digestDate (§4.5). Every
// topic must be processed successfully before any referenced episode is
// marked `digested` — a partial failure leaves all qualifying episodes at
// `scored` so the next run retries cleanly, rather than half-consuming
// the day's pool.
func Run(ctx context.Context, d Deps, digestDate time.Time) (Report, error) {
	topics, err := d.Topics.ListActive(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list active topics: %w", err)
	}

	var (
		report          Report
		referencedIDs   []int64
		anyFailed       bool
	)

	for _, topic := range topics {
		outcome, ids, err := processTopic(ctx, d, topic, digestDate)
		outcome.Topic = topic.Name
		if err != nil {
			outcome.Err = err
			anyFailed = true
			d.Log.Error().Err(err).Str("topic", topic.Name).Msg("digest generation failed")
		} else {
			referencedIDs = append(referencedIDs, ids...)
		}
		report.Processed = append(report.Processed, outcome)
	}

	if anyFailed {
		// §4.5 step 6: only mark episodes digested once every topic for the
		// day has succeeded. A single failure defers marking entirely so a
		// re-run reconsiders the full qualifying pool for every topic.
		return report, fmt.Errorf("digest phase: at least one topic failed, deferring episode marking")
	}

	if err := d.Episodes.MarkDigested(ctx, referencedIDs); err != nil {
		return report, fmt.Errorf("mark episodes digested: %w", err)
	}
	return report, nil
}

func processTopic(ctx context.Context, d Deps, topic models.Topic, digestDate time.Time) (TopicOutcome, []int64, error) {
	qualifying, err := d.Episodes.QualifyingForTopic(ctx, topic.Name, d.ScoreThreshold, d.MaxEpisodesPerDigest)
	if err != nil {
		return TopicOutcome{}, nil, fmt.Errorf("query qualifying episodes for %s: %w", topic.Name, err)
	}

	outcome := TopicOutcome{EpisodeCount: len(qualifying)}

	var script string
	var ids []int64
	if len(qualifying) == 0 {
		script = GenerateNoContentScript(topic.Name)
		outcome.NoContent = true
	} else {
		perEpisodeBudget := d.MaxInputChars
		if len(qualifying) > 0 {
			perEpisodeBudget = d.MaxInputChars / len(qualifying)
		}
		transcripts := make([]Transcript, 0, len(qualifying))
		for _, ep := range qualifying {
			text := ""
			if ep.TranscriptText != nil {
				text = *ep.TranscriptText
			}
			transcripts = append(transcripts, Transcript{
				EpisodeTitle: ep.Title,
				Text:         TruncateToLimit(text, perEpisodeBudget),
			})
			ids = append(ids, ep.ID)
		}
		script, err = d.Generator.GenerateScript(ctx, topic.Name, topic.InstructionsMD, transcripts, d.MaxOutputTokens)
		if err != nil {
			return outcome, nil, fmt.Errorf("generate script for %s: %w", topic.Name, err)
		}
	}

	if _, err := d.Digests.Upsert(ctx, topic.Name, digestDate, script, models.Int64Array(ids)); err != nil {
		return outcome, nil, fmt.Errorf("upsert digest for %s: %w", topic.Name, err)
	}
	return outcome, ids, nil
}
