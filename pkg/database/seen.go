package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"levelhub/pkg/models"
)

// SeenStore persists which source-native ids have already been indexed,
// so a re-run skips prior work. This is resume state for the indexers,
// not the catalog; the catalog stays a flat JSON snapshot.
type SeenStore struct {
	DB *sql.DB
}

func NewSeenStore(db *sql.DB) *SeenStore {
	return &SeenStore{DB: db}
}

// IsSeen reports whether originalID was already processed for source.
func (s *SeenStore) IsSeen(ctx context.Context, source models.LevelSource, originalID string) (bool, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT 1 FROM seen_items WHERE source = ? AND original_id = ?
	`, string(source), originalID)

	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("seen scan: %w", err)
	}
	return true, nil
}

// MarkSeen records originalID as processed. Re-marking is a no-op.
func (s *SeenStore) MarkSeen(ctx context.Context, source models.LevelSource, originalID, levelID string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO seen_items (source, original_id, level_id, seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source, original_id) DO NOTHING
	`, string(source), originalID, levelID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// SeenCount returns how many ids are recorded for source.
func (s *SeenStore) SeenCount(ctx context.Context, source models.LevelSource) (int, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM seen_items WHERE source = ?
	`, string(source))

	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("seen count scan: %w", err)
	}
	return n, nil
}
