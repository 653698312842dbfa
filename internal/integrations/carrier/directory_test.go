package carrier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type listerStub struct {
	carriers map[string]string
	err      error
	calls    int
}

func (s *listerStub) ListCarriers(ctx context.Context) (map[string]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.carriers, nil
}

func (s *listerStub) FetchTracking(ctx context.Context, carrierID, trackingNumber string) (FetchResult, error) {
	return FetchResult{}, nil
}

type mapCache struct {
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *mapCache) Del(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func TestResolver_ListsOnEveryResolve(t *testing.T) {
	stub := &listerStub{carriers: map[string]string{"DHL": "de.dhl"}}
	r := NewResolver(stub)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := r.Resolve(ctx, "DHL")
		require.NoError(t, err)
		require.Equal(t, "de.dhl", id)
	}
	// Без кэша каталог перечитывается на каждый резолв.
	require.Equal(t, 3, stub.calls)
}

func TestResolver_UnknownLabel(t *testing.T) {
	stub := &listerStub{carriers: map[string]string{"DHL": "de.dhl"}}
	r := NewResolver(stub)

	_, err := r.Resolve(context.Background(), "Pony Express")
	require.ErrorIs(t, err, ErrCarrierNotFound)
	require.Contains(t, err.Error(), "Pony Express")
}

func TestResolver_DirectoryError(t *testing.T) {
	stub := &listerStub{err: ErrDirectory}
	r := NewResolver(stub)

	_, err := r.Resolve(context.Background(), "DHL")
	require.ErrorIs(t, err, ErrDirectory)
}

func TestResolver_CacheCutsListings(t *testing.T) {
	stub := &listerStub{carriers: map[string]string{"DHL": "de.dhl"}}
	r := NewResolver(stub).WithCache(newMapCache(), time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := r.Resolve(ctx, "DHL")
		require.NoError(t, err)
		require.Equal(t, "de.dhl", id)
	}
	require.Equal(t, 1, stub.calls)
}

func TestResolver_InvalidateForcesRelist(t *testing.T) {
	stub := &listerStub{carriers: map[string]string{"DHL": "de.dhl"}}
	r := NewResolver(stub).WithCache(newMapCache(), time.Minute)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "DHL")
	require.NoError(t, err)
	require.Equal(t, 1, stub.calls)

	r.Invalidate(ctx)

	_, err = r.Resolve(ctx, "DHL")
	require.NoError(t, err)
	require.Equal(t, 2, stub.calls)
}

func TestResolver_ZeroTTLKeepsCachingOff(t *testing.T) {
	stub := &listerStub{carriers: map[string]string{"DHL": "de.dhl"}}
	r := NewResolver(stub).WithCache(newMapCache(), 0)
	ctx := context.Background()

	_, _ = r.Resolve(ctx, "DHL")
	_, _ = r.Resolve(ctx, "DHL")
	require.Equal(t, 2, stub.calls)
}
