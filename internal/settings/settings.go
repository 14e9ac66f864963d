// Package settings provides fail-fast, typed access to the Settings Store
// (the web_settings table). No accessor in this package ever substitutes a
// default for a missing key: every required setting that is absent is a
// ConfigMissingError, full stop. This is a deliberate departure from the
// teacher's getEnvOrDefault convention (internal/config keeps that
// convention for bootstrap values only — see that package's doc comment).
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

// Store reads typed configuration from web_settings.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) lookup(ctx context.Context, category, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value_text FROM web_settings WHERE category = $1 AND key = $2`,
		category, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", taxonomy.NewConfigMissing(category + "." + key)
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s.%s: %w", category, key, err)
	}
	return value, nil
}

// String returns the raw string value of category.key, or a ConfigMissingError.
func (s *Store) String(ctx context.Context, category, key string) (string, error) {
	return s.lookup(ctx, category, key)
}

// Int returns category.key parsed as an integer.
func (s *Store) Int(ctx context.Context, category, key string) (int, error) {
	raw, err := s.lookup(ctx, category, key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, taxonomy.NewInputInvalid(fmt.Sprintf("setting %s.%s is not an integer", category, key), err)
	}
	return v, nil
}

// Float returns category.key parsed as a float64.
func (s *Store) Float(ctx context.Context, category, key string) (float64, error) {
	raw, err := s.lookup(ctx, category, key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, taxonomy.NewInputInvalid(fmt.Sprintf("setting %s.%s is not a float", category, key), err)
	}
	return v, nil
}

// Bool returns category.key parsed as a boolean.
func (s *Store) Bool(ctx context.Context, category, key string) (bool, error) {
	raw, err := s.lookup(ctx, category, key)
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, taxonomy.NewInputInvalid(fmt.Sprintf("setting %s.%s is not a boolean", category, key), err)
	}
	return v, nil
}

// Upsert writes or overwrites a setting value. Used by migrations/seed data
// and by operator tooling; never called from a phase.
func (s *Store) Upsert(ctx context.Context, category, key, valueType, valueText string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO web_settings (category, key, type, value_text)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (category, key) DO UPDATE SET type = EXCLUDED.type, value_text = EXCLUDED.value_text
	`, category, key, valueType, valueText)
	if err != nil {
		return fmt.Errorf("upsert setting %s.%s: %w", category, key, err)
	}
	return nil
}
