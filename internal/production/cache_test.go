package production

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFetchPopulatesOnce(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return []InventarioVariedad{{IDVariedad: 1, Variedad: "Sorgo Blanco", TotalUnidades: 10}}, nil
	}

	var primera, segunda []InventarioVariedad
	require.NoError(t, cache.FetchJSON(ctx, []string{"production", "inventario"}, &primera, loader))
	require.NoError(t, cache.FetchJSON(ctx, []string{"production", "inventario"}, &segunda, loader))

	require.Equal(t, 1, calls)
	require.Equal(t, primera, segunda)
	require.Equal(t, int64(10), segunda[0].TotalUnidades)
}

func TestCacheBumpInvalidates(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return []InventarioVariedad{{IDVariedad: 1, TotalUnidades: int64(calls)}}, nil
	}

	var out []InventarioVariedad
	require.NoError(t, cache.FetchJSON(ctx, []string{"production", "inventario"}, &out, loader))
	require.NoError(t, cache.Bump(ctx))
	require.NoError(t, cache.FetchJSON(ctx, []string{"production", "inventario"}, &out, loader))

	require.Equal(t, 2, calls)
	require.Equal(t, int64(2), out[0].TotalUnidades)
}

func TestCacheNilClientPassesThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	var out []InventarioVariedad
	err := cache.FetchJSON(ctx, []string{"production", "inventario"}, &out,
		func(context.Context) (any, error) {
			return []InventarioVariedad{{IDVariedad: 7}}, nil
		})
	require.NoError(t, err)
	require.Equal(t, int64(7), out[0].IDVariedad)
	require.NoError(t, cache.Bump(ctx))
}
