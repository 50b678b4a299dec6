package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"warehouse/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

// window tracks one client's requests inside a fixed window.
type window struct {
	count int
	end   time.Time
}

// RateLimiter is a per-IP fixed-window limiter.
type RateLimiter struct {
	limit   int
	period  time.Duration
	message string

	mu      sync.Mutex
	clients map[string]*window
	now     func() time.Time
}

// NewRateLimiter allows limit requests per period per client IP.
func NewRateLimiter(limit int, period time.Duration, message string) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		period:  period,
		message: message,
		clients: make(map[string]*window),
		now:     time.Now,
	}
}

// NewLoginRateLimiter allows 20 login attempts per minute per IP.
func NewLoginRateLimiter() *RateLimiter {
	return NewRateLimiter(20, time.Minute, "Too many login attempts. Try again in a minute.")
}

// allow records one request and reports whether it is within the limit,
// along with the end of the current window.
func (l *RateLimiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[ip]
	if !ok || now.After(w.end) {
		w = &window{end: now.Add(l.period)}
		l.clients[ip] = w
	}
	w.count++
	return w.count <= l.limit, w.end
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, end := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", end.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.message))
			return
		}
		c.Next()
	}
}

// purge drops windows that have ended and returns how many were removed.
func (l *RateLimiter) purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	purged := 0
	for ip, w := range l.clients {
		if now.After(w.end) {
			delete(l.clients, ip)
			purged++
		}
	}
	return purged
}

// RunPurge removes expired windows every few minutes until ctx is done.
func (l *RateLimiter) RunPurge(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.purge(); n > 0 {
				log.Debug().Int("purged", n).Msg("rate limiter entries purged")
			}
		}
	}
}
