package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type pageState struct {
	Phase string `json:"phase"`
	Count int    `json:"count"`
}

func newRedisStore(t *testing.T) (SessionStore, *miniredis.Miniredis) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSessionStore(client, "test", time.Hour), server
}

func storesUnderTest(t *testing.T) map[string]SessionStore {
	redisStore, _ := newRedisStore(t)
	return map[string]SessionStore{
		"redis":  redisStore,
		"memory": NewMemorySessionStore(time.Hour),
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var missing pageState
			found, err := store.Load(ctx, "s1", "exam", &missing)
			require.NoError(t, err)
			require.False(t, found)

			require.NoError(t, store.Save(ctx, "s1", "exam", pageState{Phase: "answering", Count: 2}))

			var loaded pageState
			found, err = store.Load(ctx, "s1", "exam", &loaded)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, pageState{Phase: "answering", Count: 2}, loaded)

			found, err = store.Load(ctx, "s2", "exam", &loaded)
			require.NoError(t, err)
			require.False(t, found)
		})
	}
}

func TestSessionStoreLockIsExclusive(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var acquired int32
			var wg sync.WaitGroup
			leases := make(chan *Lease, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					lease, err := store.TryLock(ctx, "s1", "upload", time.Minute)
					if err == nil {
						atomic.AddInt32(&acquired, 1)
						leases <- lease
						return
					}
					require.ErrorIs(t, err, ErrLocked)
				}()
			}
			wg.Wait()
			close(leases)
			require.Equal(t, int32(1), acquired)

			_, err := store.TryLock(ctx, "s1", "chat", time.Minute)
			require.NoError(t, err)

			for lease := range leases {
				require.NoError(t, lease.Release(ctx))
			}
			lease, err := store.TryLock(ctx, "s1", "upload", time.Minute)
			require.NoError(t, err)
			require.NoError(t, lease.Release(ctx))
		})
	}
}

func TestRedisLockExpiresAndStaleUnlockIsIgnored(t *testing.T) {
	store, server := newRedisStore(t)
	ctx := context.Background()

	stale, err := store.TryLock(ctx, "s1", "exam", time.Second)
	require.NoError(t, err)

	server.FastForward(2 * time.Second)

	lease, err := store.TryLock(ctx, "s1", "exam", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	require.ErrorIs(t, stale.Refresh(ctx, time.Minute), ErrLockLost)
	_, err = store.TryLock(ctx, "s1", "exam", time.Minute)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, lease.Release(ctx))
}

func TestRedisLeaseRefreshOutlivesInitialTTL(t *testing.T) {
	store, server := newRedisStore(t)
	ctx := context.Background()

	lease, err := store.TryLock(ctx, "s1", "upload", time.Second)
	require.NoError(t, err)

	server.FastForward(800 * time.Millisecond)
	require.NoError(t, lease.Refresh(ctx, time.Second))
	server.FastForward(800 * time.Millisecond)

	_, err = store.TryLock(ctx, "s1", "upload", time.Minute)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, lease.Release(ctx))
	require.ErrorIs(t, lease.Refresh(ctx, time.Second), ErrLockLost)
}

func TestMemoryLeaseRefresh(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(time.Hour).(*memorySessionStore)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	lease, err := store.TryLock(ctx, "s1", "upload", time.Minute)
	require.NoError(t, err)

	now = now.Add(50 * time.Second)
	require.NoError(t, lease.Refresh(ctx, time.Minute))
	now = now.Add(50 * time.Second)

	_, err = store.TryLock(ctx, "s1", "upload", time.Minute)
	require.ErrorIs(t, err, ErrLocked)

	now = now.Add(2 * time.Minute)
	require.ErrorIs(t, lease.Refresh(ctx, time.Minute), ErrLockLost)
	other, err := store.TryLock(ctx, "s1", "upload", time.Minute)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
	require.NoError(t, other.Refresh(ctx, time.Minute))
}

func TestRedisStateExpires(t *testing.T) {
	store, server := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", "app", pageState{Phase: "idle"}))
	server.FastForward(2 * time.Hour)

	var loaded pageState
	found, err := store.Load(ctx, "s1", "app", &loaded)
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryStateExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(time.Minute).(*memorySessionStore)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", "app", pageState{Phase: "idle"}))
	now = now.Add(2 * time.Minute)

	var loaded pageState
	found, err := store.Load(ctx, "s1", "app", &loaded)
	require.NoError(t, err)
	require.False(t, found)
}
