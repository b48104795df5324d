package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"storefront/internal/config"
)

const limiterIdleAfter = 5 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	mu          sync.Mutex
	entries     map[string]*limiterEntry
	rate        rate.Limit
	burst       int
	lastCleanup time.Time
	now         func() time.Time
}

func newIPLimiter(cfg config.RateLimitConfig) *ipLimiter {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	requests := cfg.RequestsPerWindow
	if requests <= 0 {
		requests = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = requests
	}
	return &ipLimiter{
		entries:     make(map[string]*limiterEntry),
		rate:        rate.Limit(float64(requests) / window.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (l *ipLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) >= limiterIdleAfter {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) >= limiterIdleAfter {
				delete(l.entries, k)
			}
		}
		l.lastCleanup = now
	}

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// RateLimit throttles requests per client IP. A disabled config returns a
// pass-through handler.
func RateLimit(cfg config.RateLimitConfig, log zerolog.Logger) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newIPLimiter(cfg)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		lim := limiter.get(ip)
		if lim.Allow() {
			c.Next()
			return
		}

		reservation := lim.Reserve()
		retryAfter := int(reservation.Delay().Seconds())
		reservation.Cancel()
		if retryAfter < 1 {
			retryAfter = 1
		}

		log.Warn().
			Str("client_ip", ip).
			Str("path", c.Request.URL.Path).
			Int("retry_after", retryAfter).
			Msg("rate limit exceeded")

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limit_exceeded"})
	}
}
