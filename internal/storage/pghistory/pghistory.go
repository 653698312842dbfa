package pghistory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/astoko/ParcelBuddy/internal/models"
	"github.com/astoko/ParcelBuddy/internal/storage"
)

// Store is the Postgres history backend. Same bounded most-recent-first
// contract as the JSON file store; useful when the daemon runs where a local
// data dir is not durable.
type Store struct {
	db *pgxpool.Pool
}

func New(connString string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Store) Load(ctx context.Context) ([]models.ParcelRecord, error) {
	rows, err := s.db.Query(ctx, `
SELECT name, number, courier, last_status, last_updated_time, days_in_transit
FROM parcel_history
ORDER BY touched_at DESC
LIMIT $1
`, storage.HistoryLimit)
	if err != nil {
		return nil, errors.Wrapf(storage.ErrPersistence, "select history: %v", err)
	}
	defer rows.Close()

	out := make([]models.ParcelRecord, 0, storage.HistoryLimit)
	for rows.Next() {
		var r models.ParcelRecord
		var lastUpdated *string
		var days *int
		if err := rows.Scan(&r.Name, &r.Number, &r.Courier, &r.LastStatus, &lastUpdated, &days); err != nil {
			return nil, errors.Wrapf(storage.ErrPersistence, "scan history row: %v", err)
		}
		if lastUpdated != nil {
			r.LastUpdatedTime = *lastUpdated
		}
		r.DaysInTransit = days
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrapf(storage.ErrPersistence, "rows: %v", rows.Err())
	}
	return out, nil
}

// Save replaces the whole history with the given most-recent-first list.
func (s *Store) Save(ctx context.Context, history []models.ParcelRecord) error {
	if len(history) > storage.HistoryLimit {
		history = history[:storage.HistoryLimit]
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrapf(storage.ErrPersistence, "begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM parcel_history`); err != nil {
		return errors.Wrapf(storage.ErrPersistence, "clear history: %v", err)
	}

	// touched_at убывает по позиции, чтобы Load вернул тот же порядок.
	now := time.Now().UTC()
	for i, r := range history {
		touched := now.Add(-time.Duration(i) * time.Millisecond)
		if _, err := tx.Exec(ctx, `
INSERT INTO parcel_history (name, number, courier, last_status, last_updated_time, days_in_transit, touched_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, r.Name, r.Number, r.Courier, r.LastStatus, nullIfEmpty(r.LastUpdatedTime), r.DaysInTransit, touched); err != nil {
			return errors.Wrapf(storage.ErrPersistence, "insert history row: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrapf(storage.ErrPersistence, "commit tx: %v", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, rec models.ParcelRecord) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrapf(storage.ErrPersistence, "begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO parcel_history (name, number, courier, last_status, last_updated_time, days_in_transit, touched_at)
VALUES ($1,$2,$3,$4,$5,$6, now())
ON CONFLICT (number) DO UPDATE SET
  name = EXCLUDED.name,
  courier = EXCLUDED.courier,
  last_status = EXCLUDED.last_status,
  last_updated_time = EXCLUDED.last_updated_time,
  days_in_transit = EXCLUDED.days_in_transit,
  touched_at = now()
`, rec.Name, rec.Number, rec.Courier, rec.LastStatus, nullIfEmpty(rec.LastUpdatedTime), rec.DaysInTransit); err != nil {
		return errors.Wrapf(storage.ErrPersistence, "upsert history row: %v", err)
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM parcel_history
WHERE number NOT IN (
  SELECT number FROM parcel_history ORDER BY touched_at DESC LIMIT $1
)
`, storage.HistoryLimit); err != nil {
		return errors.Wrapf(storage.ErrPersistence, "truncate history: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrapf(storage.ErrPersistence, "commit tx: %v", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, number string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM parcel_history WHERE number = $1`, number); err != nil {
		return errors.Wrapf(storage.ErrPersistence, "delete history row: %v", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM parcel_history`); err != nil {
		return errors.Wrapf(storage.ErrPersistence, "clear history: %v", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
