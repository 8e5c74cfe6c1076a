package history

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
)

func TestLocalLocker_MutualExclusion(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "u1", time.Second)
			require.NoError(t, err)

			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)

			require.NoError(t, unlock(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Zero(t, locker.Held(), "entries are dropped once released")
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a", time.Second)
	require.NoError(t, err)
	unlockB, err := locker.Lock(ctx, "b", time.Second)
	require.NoError(t, err)

	assert.Equal(t, 2, locker.Held())
	require.NoError(t, unlockA(ctx))
	require.NoError(t, unlockB(ctx))
	assert.Zero(t, locker.Held())
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "u1", time.Second)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "u1", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	assert.Zero(t, locker.Held())

	// Double unlock is harmless.
	require.NoError(t, unlock(ctx))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewRedisLocker(client, "scentflow:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "u1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("scentflow:lock:u1"))
	assert.Greater(t, mr.TTL("scentflow:lock:u1"), time.Duration(0))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("scentflow:lock:u1"))
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := newRedis(t)
	first := NewRedisLocker(client, "scentflow:")
	second := NewRedisLocker(client, "scentflow:")
	ctx := context.Background()

	unlock, err := first.Lock(ctx, "u1", 5*time.Second)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = second.Lock(waitCtx, "u1", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := second.Lock(ctx, "u1", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_ExpiredLockIsNotStolen(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewRedisLocker(client, "scentflow:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "u1", time.Second)
	require.NoError(t, err)

	// The lock expires and another holder takes it.
	mr.FastForward(2 * time.Second)
	unlockOther, err := locker.Lock(ctx, "u1", 5*time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, unlock(ctx), ErrLockLost)
	assert.True(t, mr.Exists("scentflow:lock:u1"), "the new holder keeps its lock")
	require.NoError(t, unlockOther(ctx))
}
