package histfile

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/astoko/ParcelBuddy/internal/models"
	"github.com/astoko/ParcelBuddy/internal/storage"
)

// Store keeps the parcel history in a single JSON file, most-recent-first,
// capped at storage.HistoryLimit. Every mutation is a full-file rewrite, so a
// Load right after Save returns exactly what was written. The engine is the
// single writer.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the history file. A missing or corrupt file is not fatal: it
// logs and returns an empty history, never a parse error.
func (s *Store) Load(ctx context.Context) ([]models.ParcelRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("read history file", "path", s.path, "error", err.Error())
		}
		return []models.ParcelRecord{}, nil
	}

	var history []models.ParcelRecord
	if err := json.Unmarshal(data, &history); err != nil {
		slog.Warn("history file is corrupt, starting empty", "path", s.path, "error", err.Error())
		return []models.ParcelRecord{}, nil
	}
	if len(history) > storage.HistoryLimit {
		history = history[:storage.HistoryLimit]
	}
	return history, nil
}

// Save rewrites the whole history file with at most HistoryLimit records.
func (s *Store) Save(ctx context.Context, history []models.ParcelRecord) error {
	if history == nil {
		history = []models.ParcelRecord{}
	}
	if len(history) > storage.HistoryLimit {
		history = history[:storage.HistoryLimit]
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(storage.ErrPersistence, "mkdir history dir: %v", err)
	}
	data, err := json.MarshalIndent(history, "", "    ")
	if err != nil {
		return errors.Wrapf(storage.ErrPersistence, "marshal history: %v", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrapf(storage.ErrPersistence, "write history file: %v", err)
	}
	return nil
}

// Upsert removes any record with the same tracking number, inserts the new
// one at the front and truncates to the history limit.
func (s *Store) Upsert(ctx context.Context, rec models.ParcelRecord) error {
	history, _ := s.Load(ctx)

	kept := make([]models.ParcelRecord, 0, len(history)+1)
	kept = append(kept, rec)
	for _, r := range history {
		if r.Number != rec.Number {
			kept = append(kept, r)
		}
	}
	return s.Save(ctx, kept)
}

func (s *Store) Remove(ctx context.Context, number string) error {
	history, _ := s.Load(ctx)

	kept := make([]models.ParcelRecord, 0, len(history))
	for _, r := range history {
		if r.Number != number {
			kept = append(kept, r)
		}
	}
	return s.Save(ctx, kept)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.Save(ctx, nil)
}
