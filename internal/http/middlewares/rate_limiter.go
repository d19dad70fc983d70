package middlewares

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// CounterStore counts hits per key inside a fixed window. Two
// implementations exist: an in-process map and a Redis-backed one for when
// more than one instance is running.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, retryAfter time.Duration, err error)
}

type RateLimiter struct {
	store  CounterStore
	limit  int
	window time.Duration
}

func NewRateLimiter(store CounterStore, limit int, window time.Duration) *RateLimiter {
	if store == nil {
		store = NewMemoryCounterStore()
	}

	return &RateLimiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

// Middleware enforces the limit for a derived key.

func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		count, retryAfter, err := rl.store.Incr(c.Request.Context(), key, rl.window)

		if err != nil {
			// counting backend down: fail open rather than block traffic
			c.Next()
			return
		}

		if count > rl.limit {
			secs := int(retryAfter.Seconds())
			if secs < 0 {
				secs = 0
			}

			c.Header("Retry-After", strconv.Itoa(secs))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests. Please try again shortly.",
			})

			return
		}

		c.Next()
	}
}

// in-memory fixed windows

type memoryCounterStore struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryCounterStore() CounterStore {
	return &memoryCounterStore{
		clients: make(map[string]*clientBucket),
	}
}

func (s *memoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.clients[key]

	if !ok || now.After(b.windowEnd) {
		s.clients[key] = &clientBucket{
			count:     1,
			windowEnd: now.Add(window),
		}
		return 1, window, nil
	}

	b.count++
	return b.count, time.Until(b.windowEnd), nil
}

// redis fixed windows

type redisCounterStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCounterStore(rdb *redis.Client) CounterStore {
	return &redisCounterStore{rdb: rdb, prefix: "ratelimit:"}
}

func (s *redisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	k := s.prefix + key

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	ttl := pipe.TTL(ctx, k)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return 0, 0, err
	}

	retryAfter := ttl.Val()
	if retryAfter < 0 {
		retryAfter = window
	}

	return int(incr.Val()), retryAfter, nil
}

// key derivation helpers

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// for authenticated endpoints: rate limit by userID if available

func KeyByUserOrIP(c *gin.Context) string {
	u, ok := CurrentUser(c)

	if ok && u.ID != "" {
		return "user:" + u.ID
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	// normalize an accidental host:port form

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
