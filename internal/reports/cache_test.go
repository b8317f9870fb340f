package reports

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheFetchAndBump(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]int{"calls": calls}, nil
	}

	key, err := cache.BuildKey(ctx, "kpi", "x")
	require.NoError(t, err)
	require.Equal(t, "reports:kpi:x:v1", key)

	var got map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 1, calls)
	require.True(t, mr.Exists(key))

	require.NoError(t, cache.Bump(ctx))
	key, err = cache.BuildKey(ctx, "kpi", "x")
	require.NoError(t, err)
	require.Equal(t, "reports:kpi:x:v2", key)
	require.NoError(t, cache.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 2, got["calls"])
}

func TestCacheCollapsesConcurrentLoads(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return []int{1, 2, 3}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got []int
			assert.NoError(t, cache.FetchJSON(ctx, "reports:same", &got, loader))
			assert.Equal(t, []int{1, 2, 3}, got)
		}()
	}
	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	require.Equal(t, int32(1), calls.Load())
}

func TestNilCacheCallsLoader(t *testing.T) {
	var cache *Cache
	var got []string
	err := cache.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, got)
	require.NoError(t, cache.Bump(context.Background()))
}

func TestSubscribeStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	cache := NewCache(client, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan int64, 1)
	require.NoError(t, cache.Subscribe(ctx, func(v int64) { got <- v }))
	require.NoError(t, cache.Bump(context.Background()))

	select {
	case v := <-got:
		require.Equal(t, int64(1), v)
	case <-time.After(2 * time.Second):
		t.Fatal("no bump notification")
	}
	cancel()
}
