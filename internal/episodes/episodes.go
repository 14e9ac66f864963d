// Package episodes implements the episode state machine (§4.2) and the
// memory-efficient chunked transcription protocol (§4.4) against the State
// Store. Every transition is a single-row SQL statement guarded by a
// natural key, so concurrent workers never need an in-process lock: the
// database itself is the mutex.
package episodes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/geraldfingburke/dailydigest/internal/models"
	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
	"github.com/lib/pq"
)

// Store is the episode repository.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert inserts a new episode if episodeGUID is unseen. On conflict it is
// a no-op (idempotence law: re-running discovery never creates duplicates).
// Returns true if a new row was created.
func (s *Store) Upsert(ctx context.Context, feedID int64, episodeGUID, title, audioURL string, publishedDate time.Time, durationSeconds int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (episode_guid, feed_id, title, published_date, audio_url, duration_seconds, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		ON CONFLICT (episode_guid) DO NOTHING
	`, episodeGUID, feedID, title, publishedDate, audioURL, durationSeconds)
	if err != nil {
		return false, fmt.Errorf("upsert episode %s: %w", episodeGUID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert episode %s: rows affected: %w", episodeGUID, err)
	}
	return n == 1, nil
}

// RecoverStuck resets any episode stuck in `processing` past timeout back to
// `pending` (§5 "Stuck-work recovery"). Returns the number of rows reset.
func (s *Store) RecoverStuck(ctx context.Context, timeout time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET status = 'pending', updated_at = NOW()
		WHERE status = 'processing' AND updated_at < NOW() - $1::interval
	`, fmt.Sprintf("%d seconds", int(timeout.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("recover stuck episodes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recover stuck episodes: rows affected: %w", err)
	}
	return int(n), nil
}

// ClaimPending selects up to limit pending episodes (ascending published
// date, per §5's Audio-phase ordering guarantee) and atomically flips each
// to `processing`. The claim is the `pending → processing` conditional
// UPDATE described in §9: only one worker's claim on a given row can
// succeed, so no two workers ever process the same episode.
func (s *Store) ClaimPending(ctx context.Context, limit int) ([]models.Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM episodes
		WHERE status = 'pending'
		ORDER BY published_date ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending episodes: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pending episode id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending episodes: %w", err)
	}

	var claimed []models.Episode
	for _, id := range ids {
		var ep models.Episode
		err := s.db.QueryRowContext(ctx, `
			UPDATE episodes
			SET status = 'processing', updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING id, episode_guid, feed_id, title, published_date, audio_url, duration_seconds,
				transcript_text, scores, word_count, status, failure_count, failure_reason, created_at, updated_at
		`, id).Scan(
			&ep.ID, &ep.EpisodeGUID, &ep.FeedID, &ep.Title, &ep.PublishedDate, &ep.AudioURL, &ep.DurationSeconds,
			&ep.TranscriptText, &ep.Scores, &ep.WordCount, &ep.Status, &ep.FailureCount, &ep.FailureReason,
			&ep.CreatedAt, &ep.UpdatedAt,
		)
		if err == sql.ErrNoRows {
			// Another worker claimed it first; not an error, just skip.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("claim episode %d: %w", id, err)
		}
		claimed = append(claimed, ep)
	}
	return claimed, nil
}

// AppendTranscriptChunk appends text to transcript_text in a single round
// trip. This is the heart of the O(1)-memory transcription protocol: the
// caller never needs to hold more than one chunk of text at a time.
func (s *Store) AppendTranscriptChunk(ctx context.Context, episodeGUID, text string, chunkNumber int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET transcript_text = COALESCE(transcript_text, '') || $2,
		    updated_at = NOW()
		WHERE episode_guid = $1
	`, episodeGUID, text)
	if err != nil {
		return fmt.Errorf("append transcript chunk %d for %s: %w", chunkNumber, episodeGUID, err)
	}
	return nil
}

// FinalizeTranscript marks transcription complete: status becomes
// `transcribed` and word_count is recorded from the final transcript.
func (s *Store) FinalizeTranscript(ctx context.Context, episodeGUID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET status = 'transcribed',
		    word_count = array_length(regexp_split_to_array(trim(transcript_text), '\s+'), 1),
		    updated_at = NOW()
		WHERE episode_guid = $1
	`, episodeGUID)
	if err != nil {
		return fmt.Errorf("finalize transcript for %s: %w", episodeGUID, err)
	}
	return nil
}

// SetScores persists the scores mapping and advances status to `scored` if
// the episode's highest score meets threshold, or `not_relevant` otherwise
// (§4.4 Scoring protocol, step 4).
func (s *Store) SetScores(ctx context.Context, episodeGUID string, scores models.TopicScores, threshold float64) error {
	max, _ := scores.Max()
	status := models.EpisodeStatusNotRelevant
	if max >= threshold {
		status = models.EpisodeStatusScored
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET scores = $2, status = $3, updated_at = NOW()
		WHERE episode_guid = $1
	`, episodeGUID, scores, status)
	if err != nil {
		return fmt.Errorf("set scores for %s: %w", episodeGUID, err)
	}
	return nil
}

// MarkFailed increments failure_count and records failure_reason. Status
// becomes `failed` once failure_count reaches maxRetries; otherwise the
// episode is returned to `pending` for another attempt.
func (s *Store) MarkFailed(ctx context.Context, episodeGUID, reason string, maxRetries int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET failure_count = failure_count + 1,
		    failure_reason = $2,
		    status = CASE WHEN failure_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
		    updated_at = NOW()
		WHERE episode_guid = $1
	`, episodeGUID, reason, maxRetries)
	if err != nil {
		return fmt.Errorf("mark episode %s failed: %w", episodeGUID, err)
	}
	return nil
}

// QualifyingForTopic returns episodes with status=scored and scores[topic]
// >= threshold, ordered by that score descending, capped at limit (§4.2
// invariant, §4.5 step 1-2).
func (s *Store) QualifyingForTopic(ctx context.Context, topic string, threshold float64, limit int) ([]models.Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, episode_guid, feed_id, title, published_date, audio_url, duration_seconds,
			transcript_text, scores, word_count, status, failure_count, failure_reason, created_at, updated_at
		FROM episodes
		WHERE status = 'scored' AND COALESCE((scores->>$1)::float8, -1) >= $2
		ORDER BY (scores->>$1)::float8 DESC
		LIMIT $3
	`, topic, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("query qualifying episodes for topic %s: %w", topic, err)
	}
	defer rows.Close()

	var out []models.Episode
	for rows.Next() {
		var ep models.Episode
		if err := rows.Scan(
			&ep.ID, &ep.EpisodeGUID, &ep.FeedID, &ep.Title, &ep.PublishedDate, &ep.AudioURL, &ep.DurationSeconds,
			&ep.TranscriptText, &ep.Scores, &ep.WordCount, &ep.Status, &ep.FailureCount, &ep.FailureReason,
			&ep.CreatedAt, &ep.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan qualifying episode: %w", err)
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// MarkDigested transitions the given episode ids to `digested`. Called only
// after every active topic's digest for the day has been created
// successfully (§4.5 step 6 — deferred marking).
func (s *Store) MarkDigested(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE episodes SET status = 'digested', updated_at = NOW()
		WHERE id = ANY($1) AND status = 'scored'
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark episodes digested: %w", err)
	}
	return nil
}

// ByGUID loads a single episode by its natural key.
func (s *Store) ByGUID(ctx context.Context, episodeGUID string) (models.Episode, error) {
	var ep models.Episode
	err := s.db.QueryRowContext(ctx, `
		SELECT id, episode_guid, feed_id, title, published_date, audio_url, duration_seconds,
			transcript_text, scores, word_count, status, failure_count, failure_reason, created_at, updated_at
		FROM episodes WHERE episode_guid = $1
	`, episodeGUID).Scan(
		&ep.ID, &ep.EpisodeGUID, &ep.FeedID, &ep.Title, &ep.PublishedDate, &ep.AudioURL, &ep.DurationSeconds,
		&ep.TranscriptText, &ep.Scores, &ep.WordCount, &ep.Status, &ep.FailureCount, &ep.FailureReason,
		&ep.CreatedAt, &ep.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return ep, taxonomy.NewIntegrityViolation("episode not found: "+episodeGUID, err)
	}
	if err != nil {
		return ep, fmt.Errorf("load episode %s: %w", episodeGUID, err)
	}
	return ep, nil
}

// DeleteOlderThan deletes episodes whose published_date (never updated_at —
// §4.8's date field policy) is older than cutoff. Returns the count deleted.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time, dryRun bool) (int, error) {
	if dryRun {
		var n int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE published_date < $1`, cutoff).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("count episodes eligible for retention: %w", err)
		}
		return n, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE published_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete episodes older than %s: %w", cutoff, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete episodes: rows affected: %w", err)
	}
	return int(n), nil
}
