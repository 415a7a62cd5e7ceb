package locks

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"hindustanbills/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func exerciseMutualExclusion(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "scan:S1:u1:p1", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLocalMutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, NewLocal())
}

func TestRedisMutualExclusion(t *testing.T) {
	_, client := setupTestRedis(t)
	exerciseMutualExclusion(t, NewRedis(client))
}

func TestRedisReleaseOnlyOwnLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedis(client)

	release, err := l.Acquire(context.Background(), "cart:u1", time.Second)
	require.NoError(t, err)

	// someone else took over after expiry
	require.NoError(t, mr.Set("lock:cart:u1", "other-owner"))
	release()

	got, err := mr.Get("lock:cart:u1")
	require.NoError(t, err)
	assert.Equal(t, "other-owner", got)
}

func TestLocalExpiredLockCanBeTaken(t *testing.T) {
	l := NewLocal()
	_, err := l.Acquire(context.Background(), "k", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	release, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	release()
}

func TestAcquireHonoursContext(t *testing.T) {
	l := NewLocal()
	_, err := l.Acquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoReturnsConflictWhenBusy(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "cart:u1", time.Minute)
	require.NoError(t, err)
	defer release()

	called := false
	err = Do(ctx, l, "cart:u1", time.Second, func() error {
		called = true
		return nil
	})
	assert.Equal(t, http.StatusConflict, apperr.StatusOf(err))
	assert.False(t, called)
}

func TestLocalLateReleaseKeepsNewOwner(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "cart:u1", 20*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	current, err := l.Acquire(ctx, "cart:u1", time.Minute)
	require.NoError(t, err)
	defer current()

	// the first holder wakes up after its ttl and releases
	stale()

	shortCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(shortCtx, "cart:u1", time.Second)
	assert.Error(t, err)
}
