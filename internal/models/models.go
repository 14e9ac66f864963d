// Package models defines the persistent entities of the digest pipeline.
//
// # Model Architecture
//
// Every type here maps one-to-one to a table in the State Store (see
// internal/database for the schema). Fields carry both `json` tags (API /
// report serialization) and `db` tags (column names for hand-written SQL —
// this package uses no ORM).
//
// # Key Relationships
//
//   - Feed 1--N Episode, by feed_id. Feeds are never cascade-deleted while
//     episodes reference them; retention manages episode lifetime directly.
//   - Topic 1--N Digest, by topic name (not a foreign key — digests store
//     the topic name directly so historical digests survive topic renames
//     cleanly; a weak reference is intentional).
//   - Digest N--M Episode via EpisodeIDs, a weak jsonb-encoded id list.
//     Deleting an Episode referenced by a Digest does not break the Digest;
//     it only orphans one id in the list.
//
// # Timestamp Conventions
//
// All timestamps are stored as timestamptz and read back as time.Time in
// UTC. Any user-visible rendering (filenames, RSS pubDate, digest titles)
// converts to the configured display timezone at the point of rendering,
// never at the point of storage.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// EpisodeStatus enumerates the states of the episode state machine (see
// internal/episodes for the transition logic).
type EpisodeStatus string

const (
	EpisodeStatusPending     EpisodeStatus = "pending"
	EpisodeStatusProcessing  EpisodeStatus = "processing"
	EpisodeStatusTranscribed EpisodeStatus = "transcribed"
	EpisodeStatusScored      EpisodeStatus = "scored"
	EpisodeStatusDigested    EpisodeStatus = "digested"
	EpisodeStatusNotRelevant EpisodeStatus = "not_relevant"
	EpisodeStatusFailed      EpisodeStatus = "failed"
)

// Feed is a subscribed podcast RSS source.
type Feed struct {
	ID                  int64      `json:"id" db:"id"`
	URL                 string     `json:"url" db:"url"`
	Title               string     `json:"title" db:"title"`
	Active              bool       `json:"active" db:"active"`
	ConsecutiveFailures int        `json:"consecutive_failures" db:"consecutive_failures"`
	LastChecked         *time.Time `json:"last_checked,omitempty" db:"last_checked"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// TopicScores maps topic name to relevance score in [0.0, 1.0]. It is stored
// as a jsonb column and is nil until the Scorer has run for an episode.
type TopicScores map[string]float64

// Value implements driver.Valuer so a TopicScores can be written directly as
// a jsonb column value.
func (s TopicScores) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal topic scores: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner for reading a jsonb column back into a
// TopicScores map.
func (s *TopicScores) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported scan type for TopicScores: %T", value)
	}
	if len(b) == 0 {
		*s = nil
		return nil
	}
	var m TopicScores
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("unmarshal topic scores: %w", err)
	}
	*s = m
	return nil
}

// Max returns the highest score in the map and true, or 0 and false if the
// map is empty.
func (s TopicScores) Max() (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	best := 0.0
	first := true
	for _, v := range s {
		if first || v > best {
			best = v
			first = false
		}
	}
	return best, true
}

// Int64Array is a jsonb-encoded list of episode ids referenced by a Digest.
// Modeled on the teacher's pq.Array-backed StringArray, but digests store
// their episode references as jsonb (so they survive independently of the
// episodes table's own lifecycle), not as a Postgres native array.
type Int64Array []int64

func (a Int64Array) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal([]int64(a))
	if err != nil {
		return nil, fmt.Errorf("marshal episode id list: %w", err)
	}
	return b, nil
}

func (a *Int64Array) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported scan type for Int64Array: %T", value)
	}
	if len(b) == 0 {
		*a = nil
		return nil
	}
	var ids []int64
	if err := json.Unmarshal(b, &ids); err != nil {
		return fmt.Errorf("unmarshal episode id list: %w", err)
	}
	*a = ids
	return nil
}

// StringArray is a Postgres native text[] column value, a thin pq.Array
// wrapper. No column in the current schema uses it.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	return pq.Array([]string(a)).Value()
}

func (a *StringArray) Scan(value interface{}) error {
	return pq.Array((*[]string)(a)).Scan(value)
}

// Episode is a single podcast episode discovered from a Feed, carried
// through transcription, scoring, and digest inclusion.
type Episode struct {
	ID              int64         `json:"id" db:"id"`
	EpisodeGUID     string        `json:"episode_guid" db:"episode_guid"`
	FeedID          int64         `json:"feed_id" db:"feed_id"`
	Title           string        `json:"title" db:"title"`
	PublishedDate   time.Time     `json:"published_date" db:"published_date"`
	AudioURL        string        `json:"audio_url" db:"audio_url"`
	DurationSeconds int           `json:"duration_seconds" db:"duration_seconds"`
	TranscriptText  *string       `json:"transcript_text,omitempty" db:"transcript_text"`
	Scores          TopicScores   `json:"scores,omitempty" db:"scores"`
	WordCount       int           `json:"word_count" db:"word_count"`
	Status          EpisodeStatus `json:"status" db:"status"`
	FailureCount    int           `json:"failure_count" db:"failure_count"`
	FailureReason   *string       `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// Topic is an operator-managed subject that gates digest inclusion and
// binds a voice and generation instructions.
type Topic struct {
	ID             int64  `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	Active         bool   `json:"active" db:"active"`
	VoiceID        string `json:"voice_id" db:"voice_id"`
	InstructionsMD string `json:"instructions_md" db:"instructions_md"`
	Description    string `json:"description" db:"description"`
	SortOrder      int    `json:"sort_order" db:"sort_order"`
}

// Digest is a topic-scoped, single-day aggregation of qualifying episode
// transcripts synthesized into a script and, later, an MP3.
type Digest struct {
	ID                 int64      `json:"id" db:"id"`
	Topic              string     `json:"topic" db:"topic"`
	DigestDate         time.Time  `json:"digest_date" db:"digest_date"`
	ScriptContent      string     `json:"script_content" db:"script_content"`
	EpisodeIDs         Int64Array `json:"episode_ids" db:"episode_ids"`
	MP3Path            *string    `json:"mp3_path,omitempty" db:"mp3_path"`
	MP3DurationSeconds *int       `json:"mp3_duration_seconds,omitempty" db:"mp3_duration_seconds"`
	MP3SizeBytes       *int64     `json:"mp3_size_bytes,omitempty" db:"mp3_size_bytes"`
	MP3Title           *string    `json:"mp3_title,omitempty" db:"mp3_title"`
	MP3Summary         *string    `json:"mp3_summary,omitempty" db:"mp3_summary"`
	ArtifactURL        *string    `json:"artifact_url,omitempty" db:"artifact_url"`
	PublishedAt        *time.Time `json:"published_at,omitempty" db:"published_at"`
	GeneratedAt        time.Time  `json:"generated_at" db:"generated_at"`
}

// TopicSlug returns a filesystem- and guid-safe slug for the digest's topic,
// used for staging filenames and RSS item guids.
func (d Digest) TopicSlug() string {
	return Slugify(d.Topic)
}

// Setting is a single typed key/value row from the Settings Store, scoped
// by category (content_filtering, audio_processing, retention, ai_*,
// pipeline, rss, scheduler).
type Setting struct {
	Category  string `db:"category"`
	Key       string `db:"key"`
	ValueType string `db:"type"`
	ValueText string `db:"value_text"`
}

// PipelineRun is one audit row recorded by the orchestrator after every
// Run invocation (see internal/orchestrator). Never read by any phase.
type PipelineRun struct {
	ID        int64     `json:"id" db:"id"`
	StartedAt time.Time `json:"started_at" db:"started_at"`
	EndedAt   time.Time `json:"ended_at" db:"ended_at"`
	Phases    []byte    `json:"phases" db:"phases"`
	OK        bool      `json:"ok" db:"ok"`
}
