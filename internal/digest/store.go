package digest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/geraldfingburke/dailydigest/internal/models"
)

// Store is the Digest repository.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert writes a Digest row for (topic, digestDate). On conflict it
// replaces script_content and episode_ids, keeping re-runs idempotent
// within the same day (§4.5 "Uniqueness").
func (s *Store) Upsert(ctx context.Context, topic string, digestDate time.Time, scriptContent string, episodeIDs models.Int64Array) (models.Digest, error) {
	var d models.Digest
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO digests (topic, digest_date, script_content, episode_ids)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (topic, digest_date) DO UPDATE
			SET script_content = EXCLUDED.script_content, episode_ids = EXCLUDED.episode_ids
		RETURNING id, topic, digest_date, script_content, episode_ids, mp3_path, mp3_duration_seconds, mp3_size_bytes,
			mp3_title, mp3_summary, artifact_url, published_at, generated_at
	`, topic, digestDate, scriptContent, episodeIDs).Scan(
		&d.ID, &d.Topic, &d.DigestDate, &d.ScriptContent, &d.EpisodeIDs, &d.MP3Path, &d.MP3DurationSeconds, &d.MP3SizeBytes,
		&d.MP3Title, &d.MP3Summary, &d.ArtifactURL, &d.PublishedAt, &d.GeneratedAt,
	)
	if err != nil {
		return d, fmt.Errorf("upsert digest %s/%s: %w", topic, digestDate.Format("2006-01-02"), err)
	}
	return d, nil
}

// ListPendingTTS returns digests whose script_content is non-empty, whose
// artifact_url is still null, and whose mp3_path is still unset (§4.6).
func (s *Store) ListPendingTTS(ctx context.Context, since time.Time) ([]models.Digest, error) {
	return s.query(ctx, `
		SELECT id, topic, digest_date, script_content, episode_ids, mp3_path, mp3_duration_seconds, mp3_size_bytes,
			mp3_title, mp3_summary, artifact_url, published_at, generated_at
		FROM digests
		WHERE script_content <> '' AND artifact_url IS NULL AND mp3_path IS NULL AND digest_date >= $1
	`, since)
}

// ListPendingPublish returns digests with a non-null mp3_path and null
// artifact_url (§4.7).
func (s *Store) ListPendingPublish(ctx context.Context) ([]models.Digest, error) {
	return s.query(ctx, `
		SELECT id, topic, digest_date, script_content, episode_ids, mp3_path, mp3_duration_seconds, mp3_size_bytes,
			mp3_title, mp3_summary, artifact_url, published_at, generated_at
		FROM digests
		WHERE mp3_path IS NOT NULL AND artifact_url IS NULL
	`)
}

// ListPublished returns every digest with a non-null artifact_url, ordered
// by published_at descending (§4.9).
func (s *Store) ListPublished(ctx context.Context) ([]models.Digest, error) {
	return s.query(ctx, `
		SELECT id, topic, digest_date, script_content, episode_ids, mp3_path, mp3_duration_seconds, mp3_size_bytes,
			mp3_title, mp3_summary, artifact_url, published_at, generated_at
		FROM digests
		WHERE artifact_url IS NOT NULL
		ORDER BY published_at DESC
	`)
}

func (s *Store) query(ctx context.Context, q string, args ...interface{}) ([]models.Digest, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query digests: %w", err)
	}
	defer rows.Close()

	var out []models.Digest
	for rows.Next() {
		var d models.Digest
		if err := rows.Scan(
			&d.ID, &d.Topic, &d.DigestDate, &d.ScriptContent, &d.EpisodeIDs, &d.MP3Path, &d.MP3DurationSeconds, &d.MP3SizeBytes,
			&d.MP3Title, &d.MP3Summary, &d.ArtifactURL, &d.PublishedAt, &d.GeneratedAt,
		); err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CommitMP3 performs the atomic file+row commit of §4.6's protocol, step 3:
// the temp-file rename into its final staging path has already happened by
// the time this is called; this writes mp3_path/duration/title/summary in
// one statement, which is the DB half of the "same transaction" guarantee
// (a single UPDATE is inherently atomic; no explicit BEGIN/COMMIT is needed
// for a one-statement write).
func (s *Store) CommitMP3(ctx context.Context, digestID int64, mp3Path string, durationSeconds int, sizeBytes int64, title, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE digests SET mp3_path = $2, mp3_duration_seconds = $3, mp3_size_bytes = $4, mp3_title = $5, mp3_summary = $6
		WHERE id = $1
	`, digestID, mp3Path, durationSeconds, sizeBytes, title, summary)
	if err != nil {
		return fmt.Errorf("commit mp3 for digest %d: %w", digestID, err)
	}
	return nil
}

// SetArtifactURL writes artifact_url and published_at, and clears mp3_path
// (§4.7 steps 3-4: the local file is deleted by the caller; this call
// records that the row's local-file reference is gone).
func (s *Store) SetArtifactURL(ctx context.Context, digestID int64, artifactURL string, publishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE digests SET artifact_url = $2, published_at = $3, mp3_path = NULL
		WHERE id = $1
	`, digestID, artifactURL, publishedAt)
	if err != nil {
		return fmt.Errorf("set artifact url for digest %d: %w", digestID, err)
	}
	return nil
}

// DeleteOlderThan deletes digests whose digest_date (never generated_at —
// §4.8's date field policy) is older than cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time, dryRun bool) (int, error) {
	if dryRun {
		var n int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM digests WHERE digest_date < $1`, cutoff).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("count digests eligible for retention: %w", err)
		}
		return n, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM digests WHERE digest_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete digests older than %s: %w", cutoff, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete digests: rows affected: %w", err)
	}
	return int(n), nil
}
