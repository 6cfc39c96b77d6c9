package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per key (client or IP).
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	config   RateLimitConfig
	cleanup  *time.Ticker
	done     chan bool
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTTL is how long an unused bucket is kept.
	IdleTTL time.Duration
}

// NewRateLimiter creates a new rate limiter with automatic cleanup
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		config:   config,
		cleanup:  time.NewTicker(5 * time.Minute),
		done:     make(chan bool),
	}

	go func() {
		for {
			select {
			case <-rl.cleanup.C:
				rl.cleanupIdle(time.Now())
			case <-rl.done:
				return
			}
		}
	}()

	return rl
}

// Stop stops the rate limiter cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.cleanup.Stop()
	close(rl.done)
}

func (rl *RateLimiter) cleanupIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rl.config.IdleTTL {
			delete(rl.limiters, key)
		}
	}
}

// Allow takes a token for key. When none is available it returns how
// long until one will be.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)}
		rl.limiters[key] = entry
	}
	now := time.Now()
	entry.lastSeen = now
	rl.mu.Unlock()

	res := entry.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RateLimitMiddleware creates a middleware that applies rate limiting
func (rl *RateLimiter) RateLimitMiddleware(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, wait := rl.Allow(keyFunc(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Burst))

			if !allowed {
				retryAfter := int(math.Ceil(wait.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      "Rate limit exceeded",
					"retryAfter": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPRateLimitMiddleware creates a middleware that rate limits by IP
func (rl *RateLimiter) IPRateLimitMiddleware() func(http.Handler) http.Handler {
	return rl.RateLimitMiddleware(GetClientIP)
}

// ClientRateLimitMiddleware limits authenticated requests per client,
// falling back to the IP when no client is in the context.
func (rl *RateLimiter) ClientRateLimitMiddleware() func(http.Handler) http.Handler {
	return rl.RateLimitMiddleware(func(r *http.Request) string {
		if claims, ok := GetClientFromContext(r.Context()); ok {
			return "client:" + claims.ClientID
		}
		return "ip:" + GetClientIP(r)
	})
}

// GetClientIP extracts the real client IP from the request
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (set by the proxy in front of us)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip, _, err := net.SplitHostPort(first); err == nil {
			return ip
		}
		if net.ParseIP(first) != nil {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
