package database

import (
	"database/sql"
	"fmt"
)

// The resume store is tiny so the schema lives here rather than in an
// external .sql file.
const schema = `
CREATE TABLE IF NOT EXISTS seen_items (
  source      TEXT NOT NULL,
  original_id TEXT NOT NULL,
  level_id    TEXT NOT NULL,
  seen_at     TEXT NOT NULL,
  PRIMARY KEY (source, original_id)
);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
