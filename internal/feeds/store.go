package feeds

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/geraldfingburke/dailydigest/internal/models"
)

// Store is the Feed repository.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListActive returns every feed with active = true.
func (s *Store) ListActive(ctx context.Context) ([]models.Feed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, active, consecutive_failures, last_checked, created_at, updated_at
		FROM feeds WHERE active = true ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list active feeds: %w", err)
	}
	defer rows.Close()

	var out []models.Feed
	for rows.Next() {
		var f models.Feed
		if err := rows.Scan(&f.ID, &f.URL, &f.Title, &f.Active, &f.ConsecutiveFailures, &f.LastChecked, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// RecordSuccess clears the consecutive-failure count and stamps last_checked.
func (s *Store) RecordSuccess(ctx context.Context, feedID int64, title string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE feeds SET consecutive_failures = 0, last_checked = NOW(), title = COALESCE(NULLIF($2, ''), title), updated_at = NOW()
		WHERE id = $1
	`, feedID, title)
	if err != nil {
		return fmt.Errorf("record feed success for %d: %w", feedID, err)
	}
	return nil
}

// RecordFailure increments the consecutive-failure count and deactivates
// the feed once it exceeds deactivationThreshold (§4.3 failure policy).
// Returns true if this call deactivated the feed.
func (s *Store) RecordFailure(ctx context.Context, feedID int64, deactivationThreshold int) (bool, error) {
	var failures int
	err := s.db.QueryRowContext(ctx, `
		UPDATE feeds
		SET consecutive_failures = consecutive_failures + 1, last_checked = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING consecutive_failures
	`, feedID).Scan(&failures)
	if err != nil {
		return false, fmt.Errorf("record feed failure for %d: %w", feedID, err)
	}
	if failures <= deactivationThreshold {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE feeds SET active = false, updated_at = NOW() WHERE id = $1`, feedID); err != nil {
		return false, fmt.Errorf("deactivate feed %d: %w", feedID, err)
	}
	return true, nil
}
