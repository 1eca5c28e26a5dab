// Package middleware holds HTTP middleware for the host's listeners.
package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ipLimiter pairs a token bucket with its last access time so stale
// entries can be evicted.
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a per-client-IP token bucket to incoming requests.
// Entries idle for a full cleanup interval are dropped; the map is capped
// so a rotating-IP client cannot grow it without bound.
type RateLimiter struct {
	mu              sync.Mutex
	limiters        map[string]*ipLimiter
	rate            rate.Limit
	burst           int
	maxSize         int
	cleanupInterval time.Duration
	stopCh          chan struct{}
	logger          *zap.Logger
}

// NewRateLimiter creates a limiter allowing requestsPerSecond per IP with
// the given burst, and starts its cleanup goroutine.
func NewRateLimiter(requestsPerSecond float64, burst int, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		limiters:        make(map[string]*ipLimiter),
		rate:            rate.Limit(requestsPerSecond),
		burst:           burst,
		maxSize:         10000,
		cleanupInterval: 5 * time.Minute,
		stopCh:          make(chan struct{}),
		logger:          logger,
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops entries not seen since the previous sweep.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.cleanupInterval)
	removed := 0

	for ip, lim := range rl.limiters {
		if lim.lastAccess.Before(cutoff) {
			delete(rl.limiters, ip)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("Rate limiter cleanup",
			zap.Int("removed", removed),
			zap.Int("remaining", len(rl.limiters)),
		)
	}
}

// Shutdown stops the cleanup goroutine.
func (rl *RateLimiter) Shutdown() {
	close(rl.stopCh)
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if lim, ok := rl.limiters[ip]; ok {
		lim.lastAccess = time.Now()
		return lim.limiter
	}

	// At capacity, evict the least recently seen IP.
	if len(rl.limiters) >= rl.maxSize {
		var oldestIP string
		var oldestTime time.Time
		for candidate, lim := range rl.limiters {
			if oldestIP == "" || lim.lastAccess.Before(oldestTime) {
				oldestIP = candidate
				oldestTime = lim.lastAccess
			}
		}
		delete(rl.limiters, oldestIP)
	}

	lim := &ipLimiter{
		limiter:    rate.NewLimiter(rl.rate, rl.burst),
		lastAccess: time.Now(),
	}
	rl.limiters[ip] = lim

	return lim.limiter
}

// clientIP strips the port from RemoteAddr so one client maps to one
// bucket regardless of the ephemeral port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the per-IP rate with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(clientIP(r)).Allow() {
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
