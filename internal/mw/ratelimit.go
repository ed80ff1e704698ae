package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused client limiter is kept.
const limiterIdleTTL = 10 * time.Minute

// ClientRateLimiter hands out one token bucket per client key. Buckets of
// clients that went quiet expire instead of accumulating forever.
type ClientRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return &ClientRateLimiter{
		limiters: cache.New(limiterIdleTTL, limiterIdleTTL),
		r:        r,
		b:        b,
	}
}

// Limiter returns the bucket for key, creating it on first use.
func (l *ClientRateLimiter) Limiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Get(key); ok {
		l.limiters.SetDefault(key, v)
		return v.(*rate.Limiter)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.r, l.b)
	l.limiters.SetDefault(key, limiter)
	return limiter
}

// RateLimiter rejects requests over the per-client budget with 429. Clients
// are identified by IP.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewClientRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.Limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
