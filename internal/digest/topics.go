package digest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/geraldfingburke/dailydigest/internal/models"
	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

// TopicStore is the Topic repository.
type TopicStore struct {
	db *sql.DB
}

func NewTopicStore(db *sql.DB) *TopicStore {
	return &TopicStore{db: db}
}

// ListActive returns every active topic, ordered by sort_order. It fails
// fast (ConfigMissingError) if an active topic has empty instructions_md
// (§3 Topic invariant: "instructions_md must be non-empty for active
// topics; the generator fails fast if missing").
func (s *TopicStore) ListActive(ctx context.Context) ([]models.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, active, voice_id, instructions_md, description, sort_order
		FROM topics WHERE active = true ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list active topics: %w", err)
	}
	defer rows.Close()

	var out []models.Topic
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Active, &t.VoiceID, &t.InstructionsMD, &t.Description, &t.SortOrder); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		if t.InstructionsMD == "" {
			return nil, taxonomy.NewConfigMissing(fmt.Sprintf("topics.%s.instructions_md", t.Name))
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ByName loads a single topic by its natural key. Used by the TTS phase to
// resolve voice binding for a digest (§4.6 "Voice binding").
func (s *TopicStore) ByName(ctx context.Context, name string) (models.Topic, error) {
	var t models.Topic
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, active, voice_id, instructions_md, description, sort_order
		FROM topics WHERE name = $1
	`, name).Scan(&t.ID, &t.Name, &t.Active, &t.VoiceID, &t.InstructionsMD, &t.Description, &t.SortOrder)
	if err == sql.ErrNoRows {
		return t, taxonomy.NewConfigMissing(fmt.Sprintf("topics.%s", name))
	}
	if err != nil {
		return t, fmt.Errorf("load topic %s: %w", name, err)
	}
	return t, nil
}
