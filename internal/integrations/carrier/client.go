package carrier

import (
	"context"

	"github.com/pkg/errors"

	"github.com/astoko/ParcelBuddy/internal/models"
)

// FetchResult is a transient view of one tracking query, never persisted.
// LastEvent may be nil even when Events is non-empty (remote returned a null
// lastEvent field); the reconciler treats such a fetch as inconclusive.
type FetchResult struct {
	LastEvent *models.TrackingEvent
	Events    []models.TrackingEvent
}

// Ошибки клиента. Движок различает их через errors.Is.
var (
	ErrDirectory       = errors.New("carrier directory unavailable")
	ErrCarrierNotFound = errors.New("carrier not found")
	ErrTimeout         = errors.New("request timed out")
	ErrNetwork         = errors.New("network error")
	ErrNoData          = errors.New("no tracking information found")
)

type Client interface {
	// ListCarriers pages through the remote carrier directory and returns the
	// merged displayName -> carrierID mapping. Never returns a partial map.
	ListCarriers(ctx context.Context) (map[string]string, error)

	// FetchTracking issues one track query for a resolved carrier ID.
	// Returned events are sorted ascending by time.
	FetchTracking(ctx context.Context, carrierID, trackingNumber string) (FetchResult, error)
}
