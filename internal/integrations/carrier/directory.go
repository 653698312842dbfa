package carrier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/astoko/ParcelBuddy/internal/cache"
)

const directoryCacheKey = "carrier:directory"

// Resolver maps a stored carrier label to its directory ID. The directory is
// listed on every resolve, matching the reference behaviour; an optional
// cache with TTL (cache_directory_ttl_seconds) cuts the request volume when
// explicitly enabled.
type Resolver struct {
	client Client
	cache  cache.BytesCache
	ttl    time.Duration
}

func NewResolver(client Client) *Resolver {
	return &Resolver{client: client}
}

// WithCache enables directory caching. ttl <= 0 keeps caching off.
func (r *Resolver) WithCache(c cache.BytesCache, ttl time.Duration) *Resolver {
	if c != nil && ttl > 0 {
		r.cache = c
		r.ttl = ttl
	}
	return r
}

// Carriers returns the label -> ID mapping, from cache when enabled.
func (r *Resolver) Carriers(ctx context.Context) (map[string]string, error) {
	if r.cache != nil {
		if b, ok, err := r.cache.Get(ctx, directoryCacheKey); err == nil && ok {
			var m map[string]string
			if json.Unmarshal(b, &m) == nil && len(m) > 0 {
				return m, nil
			}
		}
	}

	m, err := r.client.ListCarriers(ctx)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		// Кэш best-effort: ошибка записи не мешает резолву.
		if b, err := json.Marshal(m); err == nil {
			_ = r.cache.Set(ctx, directoryCacheKey, b, r.ttl)
		}
	}
	return m, nil
}

// Invalidate drops the cached directory. Called after a credentials swap:
// the new endpoint may expose a different carrier set.
func (r *Resolver) Invalidate(ctx context.Context) {
	if r.cache != nil {
		_ = r.cache.Del(ctx, directoryCacheKey)
	}
}

// Resolve returns the carrier ID for a display label.
func (r *Resolver) Resolve(ctx context.Context, label string) (string, error) {
	carriers, err := r.Carriers(ctx)
	if err != nil {
		return "", err
	}
	id, ok := carriers[label]
	if !ok {
		return "", errors.Wrapf(ErrCarrierNotFound, "carrier %q", label)
	}
	return id, nil
}
