package pghistory

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Store) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS parcel_history (
  number TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  courier TEXT NOT NULL,
  last_status TEXT NOT NULL,
  last_updated_time TEXT NULL,
  days_in_transit INT NULL,
  touched_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_parcel_history_touched_at ON parcel_history(touched_at DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
