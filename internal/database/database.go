// Package database provides PostgreSQL connection management and schema
// migrations for the digest pipeline. It handles connection pooling and
// applies a single idempotent schema (no version tracking) for every core
// table (feeds, episodes, topics, digests, settings, pipeline runs).
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Open establishes a PostgreSQL connection pool against dsn and verifies
// connectivity with Ping. dsn is a bootstrap value (internal/config), never
// a domain Setting — the Settings Store itself lives inside this database,
// so the connection string necessarily comes from outside it.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// schema is the full, idempotent schema definition. Every statement uses
// CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS so Migrate is
// safe to run on every process start.
const schema = `
CREATE TABLE IF NOT EXISTS feeds (
	id SERIAL PRIMARY KEY,
	url TEXT UNIQUE NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT true,
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	last_checked TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS topics (
	id SERIAL PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	active BOOLEAN NOT NULL DEFAULT true,
	voice_id TEXT NOT NULL DEFAULT '',
	instructions_md TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS episodes (
	id SERIAL PRIMARY KEY,
	episode_guid TEXT UNIQUE NOT NULL,
	feed_id INTEGER NOT NULL REFERENCES feeds(id),
	title TEXT NOT NULL DEFAULT '',
	published_date TIMESTAMPTZ NOT NULL,
	audio_url TEXT NOT NULL DEFAULT '',
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	transcript_text TEXT,
	scores JSONB,
	word_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending','processing','transcribed','scored','digested','not_relevant','failed')),
	failure_count INTEGER NOT NULL DEFAULT 0,
	failure_reason TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_episodes_status ON episodes(status);
CREATE INDEX IF NOT EXISTS idx_episodes_feed_id ON episodes(feed_id);
CREATE INDEX IF NOT EXISTS idx_episodes_published_date ON episodes(published_date);

CREATE TABLE IF NOT EXISTS digests (
	id SERIAL PRIMARY KEY,
	topic TEXT NOT NULL,
	digest_date DATE NOT NULL,
	script_content TEXT NOT NULL DEFAULT '',
	episode_ids JSONB NOT NULL DEFAULT '[]',
	mp3_path TEXT,
	mp3_duration_seconds INTEGER,
	mp3_size_bytes BIGINT,
	mp3_title TEXT,
	mp3_summary TEXT,
	artifact_url TEXT,
	published_at TIMESTAMPTZ,
	generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (topic, digest_date)
);

CREATE INDEX IF NOT EXISTS idx_digests_artifact_url ON digests(artifact_url) WHERE artifact_url IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_digests_digest_date ON digests(digest_date);

CREATE TABLE IF NOT EXISTS web_settings (
	category TEXT NOT NULL,
	key TEXT NOT NULL,
	type TEXT NOT NULL,
	value_text TEXT NOT NULL,
	PRIMARY KEY (category, key)
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id SERIAL PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ NOT NULL,
	phases JSONB NOT NULL DEFAULT '[]',
	ok BOOLEAN NOT NULL
);
`

// Migrate applies the schema. It is safe to call on every process start.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
