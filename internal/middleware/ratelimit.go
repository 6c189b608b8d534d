package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/response"
	"github.com/gin-gonic/gin"
)

// RateLimiter throttles requests per client IP with a coarse token
// bucket: rate tokens per window, refilled in whole windows. Good enough
// for the auth endpoints it guards; not a precision limiter.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
}

type bucket struct {
	remaining int
	refilled  time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per window per IP.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		window:  window,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rl.evictStale()
		}
	}()

	return rl
}

// Middleware rejects over-limit requests with 429 before they reach the
// handler.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{remaining: rl.rate, refilled: time.Now()}
		rl.buckets[ip] = b
	}

	if windows := int(time.Since(b.refilled) / rl.window); windows > 0 {
		b.remaining += windows * rl.rate
		if b.remaining > rl.rate {
			b.remaining = rl.rate
		}
		b.refilled = time.Now()
	}

	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

func (rl *RateLimiter) evictStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := 3 * rl.window
	for ip, b := range rl.buckets {
		if time.Since(b.refilled) > cutoff {
			delete(rl.buckets, ip)
		}
	}
}
