// Package ratelimit provides a per-key token-bucket limiter for HTTP
// endpoints that must survive a misbehaving or retrying upstream caller,
// such as a provider webhook source.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

// Limiter tracks one token bucket per key (typically a remote address or
// tenant ID) and evicts buckets that have gone quiet.
type Limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	ratePerSec float64
	burst      int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New constructs a Limiter allowing ratePerMinute requests per minute per
// key, with burst as the maximum instantaneous allowance.
func New(ratePerMinute, burst int) *Limiter {
	l := &Limiter{
		buckets:    make(map[string]*bucket),
		ratePerSec: float64(ratePerMinute) / 60.0,
		burst:      burst,
	}
	go l.cleanup()
	return l
}

// Allow reports whether a request for key may proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.ratePerSec), l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, b := range l.buckets {
			if now.Sub(b.lastSeen) > entryTTL {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

// GinMiddleware rejects requests over the limit with 429, keyed by remote
// address.
func (l *Limiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
