package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/security"
)

// bucket is a token bucket for one client.
type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// RateLimiter implements a token bucket rate limiter per client key.
type RateLimiter struct {
	rate    float64 // tokens per second
	burst   int     // max tokens
	buckets map[string]*bucket
	mu      sync.Mutex
	now     func() time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:    rate,
		burst:   burst,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow checks if a request from key is allowed under the rate limit.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(r.burst), lastUpdate: now}
		r.buckets[key] = b
	}

	// Add tokens based on elapsed time
	b.tokens += now.Sub(b.lastUpdate).Seconds() * r.rate
	b.lastUpdate = now
	if b.tokens > float64(r.burst) {
		b.tokens = float64(r.burst)
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Prune drops buckets that have refilled completely.
func (r *RateLimiter) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	full := time.Duration(float64(r.burst) / r.rate * float64(time.Second))
	for key, b := range r.buckets {
		if now.Sub(b.lastUpdate) >= full {
			delete(r.buckets, key)
		}
	}
}

// Middleware rejects requests from clients that exceed the limit.
func (r *RateLimiter) Middleware(audit *security.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			audit.LogRateLimited(c.Request.Context(), c.ClientIP(), c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
