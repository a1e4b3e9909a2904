package middleware

// Per-client token buckets over golang.org/x/time/rate. Buckets idle for
// longer than bucketIdleTTL are swept every sweepEvery lookups. The limiter
// is process-local.

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	bucketIdleTTL = 10 * time.Minute
	sweepEvery    = 5000
)

// KeyFunc selects the identity used to key a rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByClientIP keys buckets by the client address as resolved by Gin
// (honouring trusted proxies).
func KeyByClientIP() KeyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter enforces a token bucket per key. It is safe for concurrent use.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	key    KeyFunc
	exempt map[string]bool

	mu      sync.Mutex
	buckets map[string]*bucket
	idleTTL time.Duration
	lookups int
}

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst. rps <= 0 disables limiting and burst is at least 1. Requests
// whose route template is listed in exempt are never limited.
func NewRateLimiter(rps float64, burst int, key KeyFunc, exempt ...string) *RateLimiter {
	if key == nil {
		key = KeyByClientIP()
	}
	ex := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		ex[p] = true
	}
	return &RateLimiter{
		limit:   rate.Limit(math.Max(rps, 0)),
		burst:   max(burst, 1),
		key:     key,
		exempt:  ex,
		buckets: make(map[string]*bucket),
		idleTTL: bucketIdleTTL,
	}
}

// limiterFor returns the bucket for key, creating it on first use. Idle
// buckets are swept before the lookup.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.lookups++; rl.lookups >= sweepEvery {
		rl.sweep(now)
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// sweep drops idle buckets. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, b := range rl.buckets {
		if now.Sub(b.seen) >= rl.idleTTL {
			delete(rl.buckets, k)
		}
	}
	rl.lookups = 0
}

// retryAfter is the whole number of seconds until one token refills.
func (rl *RateLimiter) retryAfter() string {
	return strconv.Itoa(max(int(math.Ceil(1/float64(rl.limit))), 1))
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay that should not consume tokens.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler rejects over-budget requests with 429, a Retry-After hint and the
// standard error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit == 0 || IsRateBypass(c) || rl.exempt[c.FullPath()] {
			c.Next()
			return
		}
		if rl.limiterFor(rl.key(c), time.Now()).Allow() {
			c.Next()
			return
		}

		rateLimited.Inc()
		c.Header("Retry-After", rl.retryAfter())
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
