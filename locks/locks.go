// Package locks provides short-lived mutual exclusion keyed by string, used
// around read-modify-write sequences on scans, carts and payments.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"

	"hindustanbills/apperr"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockBusy = errors.New("locks: lock is held")

const (
	retryEvery  = 25 * time.Millisecond
	maxAttempts = 40
)

// Locker acquires a lock on key for at most ttl. The returned func releases it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

type localHold struct {
	token   string
	expires time.Time
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]localHold
}

func NewLocal() *Local {
	return &Local{held: make(map[string]localHold)}
}

func (l *Local) tryLock(key, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[key]; ok && time.Now().Before(h.expires) {
		return false
	}
	l.held[key] = localHold{token: token, expires: time.Now().Add(ttl)}
	return true
}

func (l *Local) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	err := retry(ctx, func() (bool, error) { return l.tryLock(key, token, ttl), nil })
	if err != nil {
		return nil, err
	}
	return func() {
		l.mu.Lock()
		// an expired hold may already belong to someone else
		if h, ok := l.held[key]; ok && h.token == token {
			delete(l.held, key)
		}
		l.mu.Unlock()
	}, nil
}

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a Locker shared by every replica that uses the same Redis.
type Redis struct {
	conn   *redis.Client
	prefix string
}

func NewRedis(conn *redis.Client) *Redis {
	return &Redis{conn: conn, prefix: "lock:"}
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	full := r.prefix + key
	err := retry(ctx, func() (bool, error) {
		return r.conn.SetNX(ctx, full, token, ttl).Result()
	})
	if err != nil {
		return nil, err
	}
	return func() {
		// release must survive a cancelled request context
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, r.conn, []string{full}, token).Err()
	}, nil
}

func retry(ctx context.Context, try func() (bool, error)) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryEvery):
		}
	}
	return ErrLockBusy
}

// Do runs fn while holding key. Contention surfaces as a 409 so callers can
// hand it straight to the client.
func Do(ctx context.Context, l Locker, key string, ttl time.Duration, fn func() error) error {
	release, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		if errors.Is(err, ErrLockBusy) {
			return apperr.Conflict("Another request is updating this, please retry")
		}
		return apperr.Internal(err, "Failed to acquire lock")
	}
	defer release()
	return fn()
}
