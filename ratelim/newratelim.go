package ratelim

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"hindustanbills/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Counter decides whether one more request from key is allowed.
type Counter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local is a per-process token bucket per key.
type Local struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

// NewLocal allows perMinute requests per key with the given burst.
func NewLocal(perMinute, burst int) *Local {
	return &Local{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

// Get or create a rate limiter for a key
func (rl *Local) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, exists := rl.visitors[key]; exists {
		v.lastSeen = time.Now()
		return v.limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.visitors[key] = &visitor{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

func (rl *Local) Allow(_ context.Context, key string) (bool, error) {
	return rl.getLimiter(key).Allow(), nil
}

// Cleanup drops keys idle for longer than the idle window.
func (rl *Local) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, v := range rl.visitors {
		if time.Since(v.lastSeen) > rl.idle {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// RunJanitor calls Cleanup every interval until ctx is done.
func (rl *Local) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// Redis is a fixed-window counter shared by all replicas.
type Redis struct {
	conn   *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedis(conn *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{conn: conn, limit: int64(limit), window: window, prefix: "ratelimit:"}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(r.window)
	k := r.prefix + key + ":" + strconv.FormatInt(bucket, 10)

	pipe := r.conn.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= r.limit, nil
}

// RateLimiter wraps handlers with a Counter keyed by client IP.
type RateLimiter struct {
	counter Counter
	keyOf   func(r *http.Request) string
}

func NewRateLimiter(c Counter) *RateLimiter {
	return &RateLimiter{counter: c, keyOf: clientIP}
}

// NewUserRateLimiter keys by the authenticated user so several tills behind
// one address get a bucket each. It must run after authentication; requests
// without a user fall back to the client IP.
func NewUserRateLimiter(c Counter, scope string) *RateLimiter {
	return &RateLimiter{counter: c, keyOf: func(r *http.Request) string {
		if id := utils.GetUserIDFromRequest(r); id != "" {
			return scope + ":user:" + id
		}
		return scope + ":ip:" + clientIP(r)
	}}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware to enforce rate limiting
func (rl *RateLimiter) Limit(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ok, err := rl.counter.Allow(r.Context(), rl.keyOf(r))
		if err != nil {
			// fail open: a Redis outage must not take the API down
			log.Printf("ratelim: counter error: %v", err)
			ok = true
		}
		if !ok {
			utils.RespondWithMessage(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next(w, r, ps) // Call the next handler
	}
}
