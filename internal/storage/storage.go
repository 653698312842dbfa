package storage

import "github.com/pkg/errors"

// HistoryLimit caps the persisted parcel history: only the N most recently
// touched records survive, most-recent-first.
const HistoryLimit = 10

var ErrPersistence = errors.New("history persistence failure")
