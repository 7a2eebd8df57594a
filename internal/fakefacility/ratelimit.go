package fakefacility

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// limiter is a per-client token bucket. Clients are keyed by bearer token
// when one is sent, otherwise by IP.
type limiter struct {
	capacity int
	perMin   int
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens int
	last   time.Time
}

func newLimiter(perMinute int, now func() time.Time) *limiter {
	return &limiter{
		capacity: perMinute,
		perMin:   perMinute,
		now:      now,
		buckets:  make(map[string]*bucket),
	}
}

func (l *limiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			key = c.ClientIP()
		}
		if !l.allow(key) {
			abort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true
	}
	if refill := int(now.Sub(b.last).Minutes() * float64(l.perMin)); refill > 0 {
		b.tokens = min(b.tokens+refill, l.capacity)
		b.last = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}
